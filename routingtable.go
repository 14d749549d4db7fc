package mbus

import "golang.org/x/xerrors"

// RoutingTable is a per-protocol, immutable map of name -> HopBlueprint and
// name -> Route (spec §4.3). It is built once from a RoutingTableSpec and
// never mutated afterward, which is what makes it safe to share across the
// messenger/network-callback/heartbeat threads described in spec §5
// without any locking.
//
// spec.md §9 suggests exposing sharing as a reference-counted "Table
// handle" reclaimed by a background generation collector. Go's garbage
// collector already gives every *RoutingTable those semantics for free:
// any number of goroutines can hold the same pointer, and the table is
// reclaimed once the last reference (held in a RoutingTableSet, a
// RoutingNode, or a test) drops. Introducing manual refcounting on top of
// that would just be unexercised ceremony, so RoutingTable itself plays
// the role of the "handle"; see DESIGN.md.
type RoutingTable struct {
	protocol string
	hops     map[string]*HopBlueprint
	routes   map[string]*Route
}

// NewRoutingTable compiles a RoutingTableSpec into a RoutingTable.
func NewRoutingTable(spec RoutingTableSpec) (*RoutingTable, error) {
	hops := make(map[string]*HopBlueprint, len(spec.Hops))
	for _, hs := range spec.Hops {
		if _, dup := hops[hs.Name]; dup {
			return nil, xerrors.Errorf("compiling routing table %q: %w", spec.Protocol, newRoutingError(IllegalRoute, "duplicate hop name %q", hs.Name))
		}
		hops[hs.Name] = NewHopBlueprint(hs)
	}
	routes := make(map[string]*Route, len(spec.Routes))
	for _, rs := range spec.Routes {
		if _, dup := routes[rs.Name]; dup {
			return nil, xerrors.Errorf("compiling routing table %q: %w", spec.Protocol, newRoutingError(IllegalRoute, "duplicate route name %q", rs.Name))
		}
		hopList := make([]*Hop, 0, len(rs.Hops))
		for _, h := range rs.Hops {
			hopList = append(hopList, ParseHop(h))
		}
		routes[rs.Name] = &Route{hops: hopList}
	}
	return &RoutingTable{protocol: spec.Protocol, hops: hops, routes: routes}, nil
}

// Protocol returns the protocol name this table was built for.
func (t *RoutingTable) Protocol() string { return t.protocol }

// Hop looks up a named hop blueprint. It returns nil if absent.
func (t *RoutingTable) Hop(name string) *HopBlueprint {
	if t == nil {
		return nil
	}
	return t.hops[name]
}

// HasHop reports whether a hop blueprint by that name exists.
func (t *RoutingTable) HasHop(name string) bool { return t.Hop(name) != nil }

// Route looks up a named route. It returns nil if absent.
func (t *RoutingTable) Route(name string) *Route {
	if t == nil {
		return nil
	}
	return t.routes[name]
}

// HasRoute reports whether a route by that name exists.
func (t *RoutingTable) HasRoute(name string) bool { return t.Route(name) != nil }

// Names returns the hop names and the route names as two slices, in no
// particular order. It is used only by diagnostic tooling (diagserver) and
// is never consulted by the resolver.
func (t *RoutingTable) Names() (hopNames, routeNames []string) {
	for n := range t.hops {
		hopNames = append(hopNames, n)
	}
	for n := range t.routes {
		routeNames = append(routeNames, n)
	}
	return
}

// RoutingTableSet is the map of protocol -> *RoutingTable a resolver holds
// onto for the duration of a send. It is itself immutable once built
// (callers construct a fresh set when routing config changes and swap
// their reference, rather than mutate one in place).
type RoutingTableSet map[string]*RoutingTable

// NewRoutingTableSet compiles every table in spec into a RoutingTableSet.
func NewRoutingTableSet(spec RoutingSpec) (RoutingTableSet, error) {
	set := make(RoutingTableSet, len(spec.Tables))
	for _, ts := range spec.Tables {
		t, err := NewRoutingTable(ts)
		if err != nil {
			return nil, err
		}
		set[ts.Protocol] = t
	}
	return set, nil
}
