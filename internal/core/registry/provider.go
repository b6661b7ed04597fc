package registry

import (
	"github.com/google/wire"
)

// ProviderSet provides the application registry.
var ProviderSet = wire.NewSet(NewRegistry)
