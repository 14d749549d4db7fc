package mbus

import "testing"

func TestParseHopTcp(t *testing.T) {
	h := ParseHop("tcp/localhost:19000/default")
	if h.NumDirectives() != 1 {
		t.Fatalf("expected 1 directive, got %d", h.NumDirectives())
	}
	tcp, ok := h.Directive(0).(*TcpDirective)
	if !ok {
		t.Fatalf("expected *TcpDirective, got %T", h.Directive(0))
	}
	if tcp.Host != "localhost" || tcp.Port != 19000 || tcp.Session != "default" {
		t.Errorf("got %+v", tcp)
	}
}

func TestParseHopTcpFallsThroughOnMalformedBody(t *testing.T) {
	// No session segment: not a valid tcp/ hop, falls back to generic
	// slash-separated parsing of the whole string as verbatim segments.
	h := ParseHop("tcp/localhost:19000")
	if h.NumDirectives() != 2 {
		t.Fatalf("expected fallback generic parse with 2 segments, got %d", h.NumDirectives())
	}
	if h.Directive(0).String() != "tcp" {
		t.Errorf("first segment = %q, want %q", h.Directive(0).String(), "tcp")
	}
}

func TestParseHopRoute(t *testing.T) {
	h := ParseHop("route:default")
	rd, ok := h.Directive(0).(*RouteDirective)
	if !ok || rd.Name != "default" {
		t.Fatalf("got %+v", h.Directive(0))
	}
}

func TestParseHopPolicyWithParam(t *testing.T) {
	h := ParseHop("[Content:docstore]")
	pd, ok := h.Directive(0).(*PolicyDirective)
	if !ok || pd.Name != "Content" || pd.Param != "docstore" {
		t.Fatalf("got %+v", h.Directive(0))
	}
}

func TestParseHopIgnoreResult(t *testing.T) {
	h := ParseHop("?foo/bar")
	if !h.IgnoreResult() {
		t.Error("expected ignore-result flag set")
	}
	if got, want := h.ServiceName(), "foo/bar"; got != want {
		t.Errorf("ServiceName() = %q, want %q", got, want)
	}
}

func TestParseHopEmptyIsError(t *testing.T) {
	h := ParseHop("")
	ed, ok := h.Directive(0).(*ErrorDirective)
	if !ok {
		t.Fatalf("expected *ErrorDirective, got %T", h.Directive(0))
	}
	if ed.Message == "" {
		t.Error("expected a diagnostic message")
	}
}

func TestParseHopEmbeddedWhitespaceIsError(t *testing.T) {
	h := ParseHop("foo bar")
	if _, ok := h.Directive(0).(*ErrorDirective); !ok {
		t.Fatalf("expected *ErrorDirective, got %T", h.Directive(0))
	}
}

func TestParseDirectivesUnbalancedBrackets(t *testing.T) {
	h := ParseHop("foo]bar")
	ed, ok := h.Directive(0).(*ErrorDirective)
	if !ok {
		t.Fatalf("expected *ErrorDirective, got %T", h.Directive(0))
	}
	if ed.Message == "" {
		t.Error("expected a diagnostic message")
	}
}

func TestParseRouteMultipleHops(t *testing.T) {
	r := ParseRoute("foo  bar\tbaz")
	if r.NumHops() != 3 {
		t.Fatalf("expected 3 hops, got %d", r.NumHops())
	}
}

func TestParseRouteEmpty(t *testing.T) {
	r := ParseRoute("   ")
	if r.NumHops() != 0 {
		t.Errorf("expected 0 hops, got %d", r.NumHops())
	}
}
