package authz

import (
	"testing"

	"cp360/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func activeUser(role model.Role) *model.User {
	u := &model.User{Role: role, IsActive: true}
	if role == model.RoleAdmin {
		u.IsStaff = true
		u.IsSuperuser = true
	}
	return u
}

func TestIsAdmin_RequiresAllThreeFlags(t *testing.T) {
	assert.True(t, IsAdmin(&model.User{Role: model.RoleAdmin, IsStaff: true, IsSuperuser: true}))

	//roleだけadminでは不十分
	assert.False(t, IsAdmin(&model.User{Role: model.RoleAdmin}))
	assert.False(t, IsAdmin(&model.User{Role: model.RoleAdmin, IsStaff: true}))
	assert.False(t, IsAdmin(&model.User{Role: model.RoleAdmin, IsSuperuser: true}))

	assert.False(t, IsAdmin(&model.User{Role: model.RoleStaff, IsStaff: true, IsSuperuser: true}))
	assert.False(t, IsAdmin(nil))
}

func TestIsStaff(t *testing.T) {
	assert.True(t, IsStaff(&model.User{Role: model.RoleStaff}))

	// is_staffフラグだけでもstaff扱い
	assert.True(t, IsStaff(&model.User{Role: model.RoleEndUser, IsStaff: true}))

	assert.False(t, IsStaff(&model.User{Role: model.RoleEndUser}))
	assert.False(t, IsStaff(nil))
}

func TestIsAgent(t *testing.T) {
	assert.True(t, IsAgent(&model.User{Role: model.RoleEndUser}))
	assert.False(t, IsAgent(&model.User{Role: model.RoleStaff}))
	assert.False(t, IsAgent(nil))
}

func TestCanApproveReject(t *testing.T) {
	assert.True(t, CanApproveReject(&model.User{Role: model.RoleStaff}))
	assert.True(t, CanApproveReject(&model.User{Role: model.RoleAdmin}))

	// is_staffフラグだけではapprove/rejectできない
	assert.False(t, CanApproveReject(&model.User{Role: model.RoleEndUser, IsStaff: true}))
	assert.False(t, CanApproveReject(nil))
}

func TestAuthorize_InactiveUserAlwaysDenied(t *testing.T) {
	u := &model.User{Role: model.RoleAdmin, IsStaff: true, IsSuperuser: true, IsActive: false}

	assert.False(t, Authorize(u, ActionView, "product"))
	assert.False(t, Authorize(u, ActionModify, "user"))
	assert.False(t, Authorize(nil, ActionView, "product"))
}

func TestAuthorize_ViewAndExportForAnyActiveUser(t *testing.T) {
	u := activeUser(model.RoleEndUser)

	assert.True(t, Authorize(u, ActionView, "category"))
	assert.True(t, Authorize(u, ActionExport, "product"))
}

func TestAuthorize_UserResourceIsAdminOnly(t *testing.T) {
	assert.True(t, Authorize(activeUser(model.RoleAdmin), ActionModify, "user"))

	assert.False(t, Authorize(activeUser(model.RoleStaff), ActionModify, "user"))
	assert.False(t, Authorize(activeUser(model.RoleEndUser), ActionModify, "user"))
}

func TestAuthorize_WriteActionsForAnyKnownRole(t *testing.T) {
	for _, role := range []model.Role{model.RoleEndUser, model.RoleStaff, model.RoleAdmin} {
		u := activeUser(role)
		assert.True(t, Authorize(u, ActionCreate, "product"), string(role))
		assert.True(t, Authorize(u, ActionDelete, "category"), string(role))
		assert.True(t, Authorize(u, ActionRestore, "product"), string(role))
	}
}

func TestAuthorize_ApproveRejectByRoleOnly(t *testing.T) {
	assert.True(t, Authorize(activeUser(model.RoleStaff), ActionApprove, "product"))
	assert.True(t, Authorize(activeUser(model.RoleAdmin), ActionReject, "product"))

	agent := activeUser(model.RoleEndUser)
	agent.IsStaff = true
	assert.False(t, Authorize(agent, ActionApprove, "product"))
}

func TestAuthorize_UnknownActionDenied(t *testing.T) {
	assert.False(t, Authorize(activeUser(model.RoleAdmin), Action("purge"), "product"))
}
