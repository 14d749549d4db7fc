package mbus

import "strings"

// Hop is an ordered sequence of directives plus an ignore-result flag. The
// service name of a hop is the "/"-joined serialization of its directives
// (spec §3/§4.2).
type Hop struct {
	directives   []Directive
	ignoreResult bool
}

// NewHop returns a Hop over the given directives, in order.
func NewHop(directives ...Directive) *Hop {
	ds := make([]Directive, len(directives))
	copy(ds, directives)
	return &Hop{directives: ds}
}

// NumDirectives returns the number of directives in the hop.
func (h *Hop) NumDirectives() int {
	if h == nil {
		return 0
	}
	return len(h.directives)
}

// Directive returns the directive at index i.
func (h *Hop) Directive(i int) Directive { return h.directives[i] }

// SetDirective replaces the directive at index i.
func (h *Hop) SetDirective(i int, d Directive) { h.directives[i] = d }

// AddDirective appends a directive to the end of the hop.
func (h *Hop) AddDirective(d Directive) { h.directives = append(h.directives, d) }

// InsertDirective inserts d at index i, shifting subsequent directives up.
func (h *Hop) InsertDirective(i int, d Directive) {
	h.directives = append(h.directives, nil)
	copy(h.directives[i+1:], h.directives[i:])
	h.directives[i] = d
}

// RemoveDirective removes the directive at index i.
func (h *Hop) RemoveDirective(i int) {
	h.directives = append(h.directives[:i], h.directives[i+1:]...)
}

// Clear removes all directives and resets the ignore-result flag.
func (h *Hop) Clear() {
	h.directives = nil
	h.ignoreResult = false
}

// IgnoreResult reports whether this hop's branch should have its errors
// dropped at notifyParent time.
func (h *Hop) IgnoreResult() bool { return h != nil && h.ignoreResult }

// SetIgnoreResult sets the ignore-result flag.
func (h *Hop) SetIgnoreResult(b bool) { h.ignoreResult = b }

// Clone returns an independent copy of h: a new backing slice of
// directives and a copy of the ignore-result flag. Mutating the clone via
// SetDirective never affects h, and vice versa.
//
// This is a deliberate resolution of the source ambiguity recorded in
// spec.md §9 ("Hop copy assignment copies the shared-handle selector...").
// Rather than reproduce the original's shared-handle aliasing (where
// mutating a copy's directive through setDirective could mutate the
// blueprint it was cloned from), Clone always deep-copies the directive
// slice. RoutingTable blueprints are documented as immutable after
// construction (spec §4.3); sharing backing storage with every Hop created
// from HopBlueprint.Create across concurrent resolutions would violate
// that immutability the moment any caller used SetDirective. See
// DESIGN.md.
func (h *Hop) Clone() *Hop {
	ds := make([]Directive, len(h.directives))
	copy(ds, h.directives)
	return &Hop{directives: ds, ignoreResult: h.ignoreResult}
}

// Matches reports whether h and other have equal-length selectors with
// every directive pairwise matching.
func (h *Hop) Matches(other *Hop) bool {
	if h == nil || other == nil {
		return h == other
	}
	if len(h.directives) != len(other.directives) {
		return false
	}
	for i, d := range h.directives {
		if !d.Matches(other.directives[i]) {
			return false
		}
	}
	return true
}

// ServiceName returns the "/"-joined serialization of the directives,
// without a leading '?' even if ignoreResult is set. Equivalent to
// toString(0, n) in the source design.
func (h *Hop) ServiceName() string { return h.rangeString(0, len(h.directives)) }

// String returns the canonical textual form of the hop: a leading '?' if
// ignoreResult is set, followed by ServiceName().
func (h *Hop) String() string {
	if h.ignoreResult {
		return "?" + h.ServiceName()
	}
	return h.ServiceName()
}

// DebugString is String with an explicit ignore-result marker, useful when
// tracing a resolution that has an otherwise-identical sibling.
func (h *Hop) DebugString() string {
	if h.ignoreResult {
		return h.String() + " (ignore-result)"
	}
	return h.String()
}

// Prefix returns the "/"-joined serialization of the directives strictly
// before index i; empty when i is 0.
func (h *Hop) Prefix(i int) string { return h.rangeString(0, i) }

// Suffix returns the "/"-joined serialization of the directives strictly
// after index i; empty when i is the last index.
func (h *Hop) Suffix(i int) string { return h.rangeString(i+1, len(h.directives)) }

func (h *Hop) rangeString(from, to int) string {
	if from >= to {
		return ""
	}
	parts := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		parts = append(parts, h.directives[i].String())
	}
	return strings.Join(parts, "/")
}
