package repo

import (
	"github.com/google/wire"
)

// ProviderSet provides the repository layer.
var ProviderSet = wire.NewSet(
	NewRepositories,
	wire.FieldsOf(new(*Repositories),
		"Tenant",
		"SuperAdmin",
		"User",
		"Role",
		"Permission",
		"Policy",
		"Application",
		"Menu",
		"Approval",
	),
)
