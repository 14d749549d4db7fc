package mbus

import uuid "gopkg.in/satori/go.uuid.v1"

// RouteInstanceID identifies one root-level Send call for the lifetime of
// its resolution, independent of retries: prepareForRetry resets a node's
// resolution state but keeps its RouteInstanceID, so trace correlation and
// resender diagnostics can follow a message across retry attempts.
type RouteInstanceID struct {
	u uuid.UUID
}

// NewRouteInstanceID returns a fresh random RouteInstanceID.
func NewRouteInstanceID() RouteInstanceID { return RouteInstanceID{u: uuid.NewV4()} }

func (id RouteInstanceID) String() string { return id.u.String() }

// IsZero reports whether id is the zero value (never assigned).
func (id RouteInstanceID) IsZero() bool { return id.u == uuid.Nil }
