package authz

import "cp360/internal/domain/model"

// リソースに対する操作の種類。
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionModify  Action = "modify"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionExport  Action = "export"
)

// role==admin かつ is_staff かつ is_superuser の3条件すべて。
func IsAdmin(u *model.User) bool {
	if u == nil {
		return false
	}
	return u.Role == model.RoleAdmin && u.IsStaff && u.IsSuperuser
}

// role==staff または is_staff フラグ。
func IsStaff(u *model.User) bool {
	if u == nil {
		return false
	}
	return u.Role == model.RoleStaff || u.IsStaff
}

// 一般ユーザー（エージェント）。
func IsAgent(u *model.User) bool {
	if u == nil {
		return false
	}
	return u.Role == model.RoleEndUser
}

// 作成・変更系の複合許可。3つの述語のいずれかを満たせば良い。
func CanModify(u *model.User) bool {
	return IsAgent(u) || IsStaff(u) || IsAdmin(u)
}

// 承認・却下はroleがstaff/adminのときだけ。
// view層の許可とは別に、アクション実行時に再チェックする。
func CanApproveReject(u *model.User) bool {
	if u == nil {
		return false
	}
	return u.Role == model.RoleStaff || u.Role == model.RoleAdmin
}

// (user, action, resource) を1箇所で判定する中央ポリシー。
// resourceは "category" / "product" / "user"。
func Authorize(u *model.User, action Action, resource string) bool {
	if u == nil || !u.IsActive {
		return false
	}

	switch action {
	case ActionView, ActionExport:
		//認証済みなら閲覧可
		return true
	case ActionCreate, ActionModify, ActionDelete, ActionRestore:
		if resource == "user" {
			return IsAdmin(u)
		}
		return CanModify(u)
	case ActionApprove, ActionReject:
		return CanApproveReject(u)
	}
	return false
}
