package mbus

import "testing"

func TestNewRoutingTableDuplicateHopName(t *testing.T) {
	_, err := NewRoutingTable(RoutingTableSpec{
		Protocol: "document",
		Hops: []HopSpec{
			{Name: "storage", Selector: "[Content]"},
			{Name: "storage", Selector: "[Content]"},
		},
	})
	if err == nil {
		t.Fatal("expected an error for duplicate hop names")
	}
}

func TestNewRoutingTableDuplicateRouteName(t *testing.T) {
	_, err := NewRoutingTable(RoutingTableSpec{
		Protocol: "document",
		Routes: []RouteSpec{
			{Name: "default", Hops: []string{"tcp/a:1/s"}},
			{Name: "default", Hops: []string{"tcp/b:1/s"}},
		},
	})
	if err == nil {
		t.Fatal("expected an error for duplicate route names")
	}
}

func TestRoutingTableHopAndRouteLookup(t *testing.T) {
	table, err := NewRoutingTable(RoutingTableSpec{
		Protocol: "document",
		Hops: []HopSpec{
			{Name: "storage", Selector: "[Content]", Recipients: []string{"tcp/a:1/s"}},
		},
		Routes: []RouteSpec{
			{Name: "default", Hops: []string{"storage"}},
		},
	})
	if err != nil {
		t.Fatalf("NewRoutingTable: %v", err)
	}
	if !table.HasHop("storage") || table.HasHop("missing") {
		t.Error("HasHop did not reflect the configured hops")
	}
	if !table.HasRoute("default") || table.HasRoute("missing") {
		t.Error("HasRoute did not reflect the configured routes")
	}
	bp := table.Hop("storage")
	if bp.ServiceName() != "[Content]" {
		t.Errorf("ServiceName() = %q", bp.ServiceName())
	}
	if len(bp.Recipients()) != 1 {
		t.Fatalf("expected 1 recipient, got %d", len(bp.Recipients()))
	}
}

func TestNewRoutingTableSetKeyedByProtocol(t *testing.T) {
	set, err := NewRoutingTableSet(RoutingSpec{
		Tables: []RoutingTableSpec{
			{Protocol: "document"},
			{Protocol: "search"},
		},
	})
	if err != nil {
		t.Fatalf("NewRoutingTableSet: %v", err)
	}
	if len(set) != 2 || set["document"] == nil || set["search"] == nil {
		t.Fatalf("unexpected set: %+v", set)
	}
}
