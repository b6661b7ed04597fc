package consts

// Cache key prefixes. Keys are namespaced per tenant so a flush of one
// tenant never touches another.
const (
	// CacheKeyPermSet caches the effective permission set:
	// perm:set:<tenantId>:<userId>:<version>
	CacheKeyPermSet = "perm:set:"

	// CacheKeyDecision prefixes the in-process decision cache:
	// dec:<tenantId>:<userId>:<resource>:<action>:<version>
	CacheKeyDecision = "dec:"
)
