package mbus

import "strings"

// Route is an ordered sequence of hops.
type Route struct {
	hops []*Hop
}

// NewRoute returns a Route over the given hops, in order.
func NewRoute(hops ...*Hop) *Route {
	hs := make([]*Hop, len(hops))
	copy(hs, hops)
	return &Route{hops: hs}
}

// NumHops returns the number of hops in the route.
func (r *Route) NumHops() int {
	if r == nil {
		return 0
	}
	return len(r.hops)
}

// Hop returns the hop at index i.
func (r *Route) Hop(i int) *Hop { return r.hops[i] }

// SetHop replaces the hop at index i.
func (r *Route) SetHop(i int, h *Hop) { r.hops[i] = h }

// AddHop appends a hop to the end of the route.
func (r *Route) AddHop(h *Hop) { r.hops = append(r.hops, h) }

// RemoveHop removes the hop at index i.
func (r *Route) RemoveHop(i int) {
	r.hops = append(r.hops[:i], r.hops[i+1:]...)
}

// Clone returns an independent copy of r; the underlying Hops are shared by
// pointer since Hop values are treated as immutable once placed in a Route
// (mutation happens through Hop.Clone, see hop.go).
func (r *Route) Clone() *Route {
	hs := make([]*Hop, len(r.hops))
	copy(hs, r.hops)
	return &Route{hops: hs}
}

// Tail returns a new Route over the hops starting at index from, through
// the end of r. Used by the resolver to splice a named hop/route's
// expansion in front of whatever remained of the current route (spec
// §4.5.3: "concatenating it with the tail of the current route").
//
// spec.md §9 records an open question about an apparent off-by-one in the
// original Route::getSuffix. This implementation always returns the exact
// hops[from:] slice with no adjustment; see DESIGN.md for why this
// implementation does not reproduce that ambiguity.
func (r *Route) Tail(from int) *Route {
	if from >= len(r.hops) {
		return &Route{}
	}
	hs := make([]*Hop, len(r.hops)-from)
	copy(hs, r.hops[from:])
	return &Route{hops: hs}
}

// WithHead returns a new Route formed by prepending head to r's hops
// (head's own index 0 tail, effectively). Used when a policy resolves a
// matched recipient hop and needs to build the child route by
// concatenating that recipient in front of the remaining hops of the
// current route (ctx.Tail()).
func (r *Route) WithHead(head *Hop) *Route {
	hs := make([]*Hop, 0, len(r.hops)+1)
	hs = append(hs, head)
	hs = append(hs, r.hops...)
	return &Route{hops: hs}
}

// IgnoreResult reports whether the route's first hop has the ignore-result
// flag set. This is hop(0)'s own flag only: lookupHop copies the flag onto
// a spliced-in blueprint selector, but lookupRoute does not copy it onto
// the hops of a spliced-in named route, so the cumulative, sticky-downward
// flag (spec §3) is the one RoutingNode keeps for itself.
func (r *Route) IgnoreResult() bool {
	if r == nil || len(r.hops) == 0 {
		return false
	}
	return r.hops[0].IgnoreResult()
}

// Matches reports whether r and other have the same number of hops with
// every hop pairwise matching.
func (r *Route) Matches(other *Route) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.hops) != len(other.hops) {
		return false
	}
	for i, h := range r.hops {
		if !h.Matches(other.hops[i]) {
			return false
		}
	}
	return true
}

// String returns the whitespace-joined serialization of the route's hops.
func (r *Route) String() string {
	parts := make([]string, len(r.hops))
	for i, h := range r.hops {
		parts[i] = h.String()
	}
	return strings.Join(parts, " ")
}

// DebugString joins the hops' DebugString forms instead.
func (r *Route) DebugString() string {
	parts := make([]string, len(r.hops))
	for i, h := range r.hops {
		parts[i] = h.DebugString()
	}
	return strings.Join(parts, " ")
}
