package id

import "github.com/rs/xid"

// ExternalId generates the opaque identifier exposed at the HTTP boundary.
// xid is collision-resistant, URL-safe and sortable by creation time; the
// internal integer primary key never leaves the process.
func ExternalId() string {
	return xid.New().String()
}
