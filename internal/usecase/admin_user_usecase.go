package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cp360/internal/domain/model"
	"cp360/internal/repository"
	"cp360/internal/validation"
)

// 管理者によるユーザー管理。
// 「他のadminは触れない（自分はOK）」が共通ルール。
type AdminUserUsecase struct {
	users     repository.UserRepository
	auditRepo repository.AuditLogRepository
}

func NewAdminUserUsecase(users repository.UserRepository, auditRepo repository.AuditLogRepository) *AdminUserUsecase {
	return &AdminUserUsecase{users: users, auditRepo: auditRepo}
}

type AdminUpdateUserInput struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	IsActive  *bool  `json:"is_active"`
}

type AdminUserStatusInput struct {
	IsActive *bool `json:"is_active"`
}

// 対象ユーザーの取得（admin画面用）。
func (u *AdminUserUsecase) GetUser(ctx context.Context, targetID int64) (*UserDTO, error) {
	target, err := u.findTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	dto := toUserDTO(target)
	return &dto, nil
}

// ユーザー情報の更新。role/is_activeも変更できる。
// 別のadminを変更しようとしたら403（自分自身はOK）。
func (u *AdminUserUsecase) UpdateUser(ctx context.Context, actor *model.User, targetID int64, in AdminUpdateUserInput) (*UserDTO, error) {
	target, err := u.findTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := u.guardSameAdmin(actor, target, "You cannot modify another admin user."); err != nil {
		return nil, err
	}

	fieldErrs := validation.NewPipeline().
		AddOptional("email", in.Email, validation.Email).
		AddOptional("username", in.Username, validation.Username).
		AddOptional("phone", in.Phone, validation.Phone).
		AddOptional("first_name", in.FirstName, validation.Alpha("First name")).
		AddOptional("last_name", in.LastName, validation.Alpha("Last name")).
		AddOptional("role", in.Role, validation.RoleChoice).
		Run()
	if fieldErrs != nil {
		return nil, NewValidationError(fieldErrs)
	}

	if errs := u.checkUnique(ctx, in.Email, in.Username, in.Phone, target); errs != nil {
		return nil, NewValidationError(errs)
	}

	if in.Email != "" {
		target.Email = in.Email
	}
	if in.Username != "" {
		target.Username = in.Username
	}
	if in.Phone != "" {
		target.Phone = in.Phone
	}
	if in.FirstName != "" {
		target.FirstName = in.FirstName
	}
	if in.LastName != "" {
		target.LastName = in.LastName
	}
	if in.Role != "" {
		target.Role = model.Role(in.Role)
		if target.Role == model.RoleAdmin {
			target.IsStaff = true
			target.IsSuperuser = true
		}
	}
	if in.IsActive != nil {
		target.IsActive = *in.IsActive
	}

	if err := u.users.Update(ctx, target); err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	dto := toUserDTO(target)
	return &dto, nil
}

// 有効/無効の切り替え。同じsame-admin保護が効く。
func (u *AdminUserUsecase) SetUserStatus(ctx context.Context, actor *model.User, targetID int64, in AdminUserStatusInput) (*UserDTO, error) {
	if in.IsActive == nil {
		return nil, NewValidationError(validation.FieldErrors{"is_active": "is_active is required"})
	}

	target, err := u.findTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := u.guardSameAdmin(actor, target, "You cannot deactivate another admin user."); err != nil {
		return nil, err
	}

	before := target.IsActive
	target.IsActive = *in.IsActive

	if err := u.users.Update(ctx, target); err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//監査ログ（誰がどのユーザーをどう切り替えたか）
	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actor.ID,
		Action:       model.AuditActionUpdateUserStatus,
		ResourceType: model.AuditResourceUser,
		ResourceID:   target.ID,
		BeforeJSON:   fmt.Sprintf(`{"is_active":%t}`, before),
		AfterJSON:    fmt.Sprintf(`{"is_active":%t}`, target.IsActive),
		CreatedAt:    time.Now(),
	})

	dto := toUserDTO(target)
	return &dto, nil
}

type AuditLogDTO struct {
	ID           int64     `json:"id"`
	ActorUserID  int64     `json:"actor_user_id"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   int64     `json:"resource_id"`
	Before       string    `json:"before"`
	After        string    `json:"after"`
	CreatedAt    time.Time `json:"created_at"`
}

// 監査ログの一覧（admin画面用、新しい順）。
func (u *AdminUserUsecase) ListAuditLogs(ctx context.Context, filter repository.AuditLogFilter) ([]AuditLogDTO, error) {
	logs, err := u.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := make([]AuditLogDTO, 0, len(logs))
	for _, l := range logs {
		out = append(out, AuditLogDTO{
			ID:           l.ID,
			ActorUserID:  l.ActorUserID,
			Action:       string(l.Action),
			ResourceType: string(l.ResourceType),
			ResourceID:   l.ResourceID,
			Before:       l.BeforeJSON,
			After:        l.AfterJSON,
			CreatedAt:    l.CreatedAt,
		})
	}
	return out, nil
}

func (u *AdminUserUsecase) findTarget(ctx context.Context, targetID int64) (*model.User, error) {
	if targetID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	target, err := u.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if target == nil {
		return nil, NewHTTPError(http.StatusNotFound, "not found")
	}
	return target, nil
}

// 別のadminへの変更を拒否する。自分自身は許可。
func (u *AdminUserUsecase) guardSameAdmin(actor *model.User, target *model.User, msg string) error {
	if actor == nil {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if target.Role == model.RoleAdmin && target.ID != actor.ID {
		return NewHTTPError(http.StatusForbidden, msg)
	}
	return nil
}

// AuthUsecaseと同じ重複チェックをadmin更新でも使う。
func (u *AdminUserUsecase) checkUnique(ctx context.Context, email, username, phone string, current *model.User) validation.FieldErrors {
	errs := validation.FieldErrors{}

	if email != "" && !strings.EqualFold(current.Email, email) {
		if found, err := u.users.FindByEmail(ctx, email); err == nil && found != nil && found.ID != current.ID {
			errs["email"] = "Email already exists."
		}
	}
	if username != "" && !strings.EqualFold(current.Username, username) {
		if found, err := u.users.FindByUsername(ctx, username); err == nil && found != nil && found.ID != current.ID {
			errs["username"] = "Username already exists."
		}
	}
	if phone != "" && current.Phone != phone {
		if found, err := u.users.FindByPhone(ctx, phone); err == nil && found != nil && found.ID != current.ID {
			errs["phone"] = "Phone already exists."
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
