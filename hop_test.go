package mbus

import "testing"

func TestHopStringIgnoreResult(t *testing.T) {
	h := NewHop(&VerbatimDirective{Image: "foo"}, &VerbatimDirective{Image: "bar"})
	if got, want := h.String(), "foo/bar"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	h.SetIgnoreResult(true)
	if got, want := h.String(), "?foo/bar"; got != want {
		t.Errorf("String() with ignore-result = %q, want %q", got, want)
	}
}

func TestHopCloneIsIndependent(t *testing.T) {
	orig := NewHop(&VerbatimDirective{Image: "foo"})
	clone := orig.Clone()
	clone.SetDirective(0, &VerbatimDirective{Image: "bar"})

	if orig.Directive(0).String() != "foo" {
		t.Errorf("mutating a clone must not affect the original, got %q", orig.Directive(0).String())
	}
	if clone.Directive(0).String() != "bar" {
		t.Errorf("clone should carry the mutation, got %q", clone.Directive(0).String())
	}
}

func TestHopPrefixSuffix(t *testing.T) {
	h := NewHop(
		&VerbatimDirective{Image: "a"},
		&PolicyDirective{Name: "Content"},
		&VerbatimDirective{Image: "b"},
	)
	if got, want := h.Prefix(1), "a"; got != want {
		t.Errorf("Prefix(1) = %q, want %q", got, want)
	}
	if got, want := h.Suffix(1), "b"; got != want {
		t.Errorf("Suffix(1) = %q, want %q", got, want)
	}
	if got, want := h.Prefix(0), ""; got != want {
		t.Errorf("Prefix(0) = %q, want empty", got)
	}
	if got, want := h.Suffix(2), ""; got != want {
		t.Errorf("Suffix(2) = %q, want empty", got)
	}
}

func TestHopMatches(t *testing.T) {
	a := NewHop(&VerbatimDirective{Image: "foo"})
	b := NewHop(&VerbatimDirective{Image: "foo"})
	c := NewHop(&VerbatimDirective{Image: "foo"}, &VerbatimDirective{Image: "bar"})
	if !a.Matches(b) {
		t.Error("identical hops should match")
	}
	if a.Matches(c) {
		t.Error("hops of different length should not match")
	}
}
