package mbus

import "testing"

func TestQuoteUnquoteConfigStringRoundTrip(t *testing.T) {
	cases := []string{
		"plain",
		`has "quotes" and \backslash`,
		"has\nnewline",
		"has\x00nul",
	}
	for _, s := range cases {
		quoted := quoteConfigString(s)
		got, err := unquoteConfigString(quoted)
		if err != nil {
			t.Fatalf("unquoteConfigString(%q): %v", quoted, err)
		}
		if got != s {
			t.Errorf("round trip of %q produced %q", s, got)
		}
	}
}

func TestRoutingSpecConfigStringRoundTrip(t *testing.T) {
	spec := RoutingSpec{
		Tables: []RoutingTableSpec{
			{
				Protocol: "document",
				Hops: []HopSpec{
					{
						Name:         "storage",
						Selector:     "[Content]",
						IgnoreResult: true,
						Recipients:   []string{"tcp/a:1/s", "tcp/b:2/s"},
					},
				},
				Routes: []RouteSpec{
					{Name: "default", Hops: []string{"storage", "tcp/c:3/s"}},
				},
			},
		},
	}

	text := spec.ToConfigString()
	got, err := ParseConfigString(text)
	if err != nil {
		t.Fatalf("ParseConfigString: %v\ninput:\n%s", err, text)
	}

	if len(got.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(got.Tables))
	}
	table := got.Tables[0]
	if table.Protocol != "document" {
		t.Errorf("Protocol = %q, want %q", table.Protocol, "document")
	}
	if len(table.Hops) != 1 || table.Hops[0].Name != "storage" {
		t.Fatalf("unexpected hops: %+v", table.Hops)
	}
	hop := table.Hops[0]
	if hop.Selector != "[Content]" || !hop.IgnoreResult {
		t.Errorf("unexpected hop: %+v", hop)
	}
	if len(hop.Recipients) != 2 || hop.Recipients[0] != "tcp/a:1/s" || hop.Recipients[1] != "tcp/b:2/s" {
		t.Errorf("unexpected recipients: %+v", hop.Recipients)
	}
	if len(table.Routes) != 1 || table.Routes[0].Name != "default" {
		t.Fatalf("unexpected routes: %+v", table.Routes)
	}
	route := table.Routes[0]
	if len(route.Hops) != 2 || route.Hops[0] != "storage" || route.Hops[1] != "tcp/c:3/s" {
		t.Errorf("unexpected route hops: %+v", route.Hops)
	}
}

func TestParseConfigStringRejectsUnknownKey(t *testing.T) {
	_, err := ParseConfigString("routingtable[0].bogus \"x\"\n")
	if err == nil {
		t.Fatal("expected an error for an unrecognized config key")
	}
}
