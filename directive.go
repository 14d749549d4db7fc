package mbus

import "fmt"

// DirectiveType identifies which of the five closed Directive variants a
// value holds.
type DirectiveType int

// The five directive variants (spec §3).
const (
	DirectiveVerbatim DirectiveType = iota
	DirectiveRoute
	DirectivePolicy
	DirectiveTcp
	DirectiveError
)

// Directive is the atomic unit of a Hop's selector. The concrete types
// below are the only implementations; callers type-switch on them the way
// the resolver does in resolve().
type Directive interface {
	// Type identifies the concrete variant.
	Type() DirectiveType

	// Matches reports whether this directive is considered equal to other
	// for the purposes of recipient/hop matching. The comparison is
	// per-variant; see the individual Matches methods.
	Matches(other Directive) bool

	// String returns the canonical textual serialization of the
	// directive. For every variant but ErrorDirective this round-trips
	// through RouteParser.
	String() string
}

// VerbatimDirective is matched literally by the name service.
type VerbatimDirective struct {
	Image string
}

func (d *VerbatimDirective) Type() DirectiveType { return DirectiveVerbatim }

func (d *VerbatimDirective) Matches(other Directive) bool {
	o, ok := other.(*VerbatimDirective)
	return ok && o.Image == d.Image
}

func (d *VerbatimDirective) String() string { return d.Image }

// RouteDirective expands to a named route from the routing table.
type RouteDirective struct {
	Name string
}

func (d *RouteDirective) Type() DirectiveType { return DirectiveRoute }

func (d *RouteDirective) Matches(other Directive) bool {
	o, ok := other.(*RouteDirective)
	return ok && o.Name == d.Name
}

func (d *RouteDirective) String() string { return "route:" + d.Name }

// PolicyDirective identifies a routing policy plus its opaque parameter
// string. A PolicyDirective matches anything at all, by design: a policy
// directive occupies a position in a hop that is resolved dynamically, so
// neither a literal comparison against another PolicyDirective's Name/Param
// nor a comparison against whatever concrete directive a candidate
// recipient carries at that position is meaningful. This wildcard is what
// lets RoutingContext.MatchedRecipients select every configured recipient
// hop against a selector hop built from a HopBlueprint whose own selector
// is itself just "[PolicyName]" (see hopblueprint.go).
type PolicyDirective struct {
	Name  string
	Param string
}

func (d *PolicyDirective) Type() DirectiveType { return DirectivePolicy }

func (d *PolicyDirective) Matches(other Directive) bool { return true }

func (d *PolicyDirective) String() string {
	if d.Param == "" {
		return "[" + d.Name + "]"
	}
	return "[" + d.Name + ":" + d.Param + "]"
}

// TcpDirective bypasses the name service and addresses a recipient
// directly by host, port and session name.
type TcpDirective struct {
	Host    string
	Port    uint32
	Session string
}

func (d *TcpDirective) Type() DirectiveType { return DirectiveTcp }

func (d *TcpDirective) Matches(other Directive) bool {
	o, ok := other.(*TcpDirective)
	return ok && o.Host == d.Host && o.Port == d.Port && o.Session == d.Session
}

func (d *TcpDirective) String() string {
	return fmt.Sprintf("tcp/%s:%d/%s", d.Host, d.Port, d.Session)
}

// ErrorDirective short-circuits resolution with an immediate error reply.
// It never matches anything, including another ErrorDirective, and its
// serialization is not re-parseable: parsing "(boom)" yields a
// Verbatim directive with that literal image, not an Error directive.
type ErrorDirective struct {
	Message string
}

func (d *ErrorDirective) Type() DirectiveType { return DirectiveError }

func (d *ErrorDirective) Matches(other Directive) bool { return false }

func (d *ErrorDirective) String() string { return "(" + d.Message + ")" }
