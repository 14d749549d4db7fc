package mbus

import "testing"

func TestRouteTailExactSlice(t *testing.T) {
	r := NewRoute(
		NewHop(&VerbatimDirective{Image: "a"}),
		NewHop(&VerbatimDirective{Image: "b"}),
		NewHop(&VerbatimDirective{Image: "c"}),
	)
	tail := r.Tail(1)
	if got, want := tail.NumHops(), 2; got != want {
		t.Fatalf("Tail(1).NumHops() = %d, want %d", got, want)
	}
	if got, want := tail.Hop(0).String(), "b"; got != want {
		t.Errorf("Tail(1).Hop(0) = %q, want %q", got, want)
	}
	if got, want := tail.Hop(1).String(), "c"; got != want {
		t.Errorf("Tail(1).Hop(1) = %q, want %q", got, want)
	}
}

func TestRouteTailPastEndIsEmpty(t *testing.T) {
	r := NewRoute(NewHop(&VerbatimDirective{Image: "a"}))
	tail := r.Tail(5)
	if got := tail.NumHops(); got != 0 {
		t.Errorf("Tail(5).NumHops() = %d, want 0", got)
	}
}

func TestRouteWithHead(t *testing.T) {
	tail := NewRoute(NewHop(&VerbatimDirective{Image: "b"}))
	head := NewHop(&VerbatimDirective{Image: "a"})
	full := tail.WithHead(head)
	if got, want := full.String(), "a b"; got != want {
		t.Errorf("WithHead = %q, want %q", got, want)
	}
	// WithHead does not copy head: full's first hop is the very same *Hop
	// (Hop values are treated as immutable once placed in a route).
	if full.Hop(0) != head {
		t.Error("WithHead should share the head Hop by pointer")
	}
}

func TestRouteIgnoreResultFromFirstHop(t *testing.T) {
	h := NewHop(&VerbatimDirective{Image: "a"})
	h.SetIgnoreResult(true)
	r := NewRoute(h, NewHop(&VerbatimDirective{Image: "b"}))
	if !r.IgnoreResult() {
		t.Error("Route.IgnoreResult() should reflect hop(0)'s flag")
	}
}

func TestRouteStringWhitespaceJoined(t *testing.T) {
	r := ParseRoute("a/b ?c [Content]")
	if got, want := r.String(), "a/b ?c [Content]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
