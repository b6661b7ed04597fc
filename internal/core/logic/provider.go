package logic

import (
	"github.com/google/wire"
)

// ProviderSet provides the logic layer.
var ProviderSet = wire.NewSet(
	NewAuthLogic,
	NewTenantLogic,
	NewUserLogic,
	NewRoleLogic,
	NewPermissionLogic,
	NewPolicyLogic,
	NewDecisionLogic,
	NewApplicationLogic,
	NewMenuLogic,
	NewApprovalLogic,
)
