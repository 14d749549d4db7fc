package mbus

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// HopSpec is the plain value-object configuration of a named hop: its
// textual selector, whether it ignores results, and its recipient list
// (spec §3). RoutingTable construction (via HopBlueprint) compiles a
// HopSpec by parsing Selector and each Recipient with RouteParser.
type HopSpec struct {
	Name         string
	Selector     string
	IgnoreResult bool
	Recipients   []string
}

// RouteSpec is the plain value-object configuration of a named route: an
// ordered list of textual hops, each parsed individually.
type RouteSpec struct {
	Name string
	Hops []string
}

// RoutingTableSpec is the per-protocol configuration: its named hops and
// named routes.
type RoutingTableSpec struct {
	Protocol string
	Hops     []HopSpec
	Routes   []RouteSpec
}

// RoutingSpec is the full configuration tree: one RoutingTableSpec per
// protocol.
type RoutingSpec struct {
	Tables []RoutingTableSpec
}

// quoteConfigString implements the config-string escape convention of
// spec.md §6: wrap s in double quotes; backslash and double-quote are
// escaped with backslash; newline becomes the two characters "\n"; the
// null byte becomes the four characters "\x00".
func quoteConfigString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case 0:
			b.WriteString(`\x00`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// unquoteConfigString inverts quoteConfigString. It expects s to include
// the surrounding double quotes.
func unquoteConfigString(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("value %q is not a quoted config string", s)
	}
	inner := s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(inner) {
			return "", fmt.Errorf("dangling escape in config string %q", s)
		}
		switch inner[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 'x':
			if i+2 >= len(inner) {
				return "", fmt.Errorf("truncated \\x escape in config string %q", s)
			}
			v, err := strconv.ParseUint(inner[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("invalid \\x escape in config string %q: %w", s, err)
			}
			b.WriteByte(byte(v))
			i += 2
		default:
			return "", fmt.Errorf("unknown escape '\\%c' in config string %q", inner[i], s)
		}
	}
	return b.String(), nil
}

// ToConfigString renders the spec in the platform's config-string format
// (spec.md §6): newline-separated "prefix value" lines, with an explicit
// array-length declaration ("prefix[N]") preceding each repeated group.
func (s *RoutingSpec) ToConfigString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "routingtable[%d]\n", len(s.Tables))
	for i, t := range s.Tables {
		p := fmt.Sprintf("routingtable[%d]", i)
		fmt.Fprintf(&b, "%s.protocol %s\n", p, quoteConfigString(t.Protocol))
		fmt.Fprintf(&b, "%s.hop[%d]\n", p, len(t.Hops))
		for j, h := range t.Hops {
			hp := fmt.Sprintf("%s.hop[%d]", p, j)
			fmt.Fprintf(&b, "%s.name %s\n", hp, quoteConfigString(h.Name))
			fmt.Fprintf(&b, "%s.selector %s\n", hp, quoteConfigString(h.Selector))
			fmt.Fprintf(&b, "%s.ignoreresult %t\n", hp, h.IgnoreResult)
			fmt.Fprintf(&b, "%s.recipient[%d]\n", hp, len(h.Recipients))
			for k, rec := range h.Recipients {
				fmt.Fprintf(&b, "%s.recipient[%d] %s\n", hp, k, quoteConfigString(rec))
			}
		}
		fmt.Fprintf(&b, "%s.route[%d]\n", p, len(t.Routes))
		for j, rt := range t.Routes {
			rp := fmt.Sprintf("%s.route[%d]", p, j)
			fmt.Fprintf(&b, "%s.name %s\n", rp, quoteConfigString(rt.Name))
			fmt.Fprintf(&b, "%s.hop[%d]\n", rp, len(rt.Hops))
			for k, hop := range rt.Hops {
				fmt.Fprintf(&b, "%s.hop[%d] %s\n", rp, k, quoteConfigString(hop))
			}
		}
	}
	return b.String()
}

var (
	reProtocol     = regexp.MustCompile(`^routingtable\[(\d+)\]\.protocol$`)
	reHopName      = regexp.MustCompile(`^routingtable\[(\d+)\]\.hop\[(\d+)\]\.name$`)
	reHopSelector  = regexp.MustCompile(`^routingtable\[(\d+)\]\.hop\[(\d+)\]\.selector$`)
	reHopIgnore    = regexp.MustCompile(`^routingtable\[(\d+)\]\.hop\[(\d+)\]\.ignoreresult$`)
	reHopRecipient = regexp.MustCompile(`^routingtable\[(\d+)\]\.hop\[(\d+)\]\.recipient\[(\d+)\]$`)
	reRouteName    = regexp.MustCompile(`^routingtable\[(\d+)\]\.route\[(\d+)\]\.name$`)
	reRouteHop     = regexp.MustCompile(`^routingtable\[(\d+)\]\.route\[(\d+)\]\.hop\[(\d+)\]$`)
)

type hopBuilder struct {
	name, selector string
	ignoreResult   bool
	recipients     map[int]string
}

type routeBuilder struct {
	name string
	hops map[int]string
}

type tableBuilder struct {
	protocol string
	hops     map[int]*hopBuilder
	routes   map[int]*routeBuilder
}

// ParseConfigString inverts RoutingSpec.ToConfigString: it parses the
// platform's config-string format (spec.md §6) back into a RoutingSpec.
// Lines declaring only an array length ("prefix[N]" with no value) are
// skipped; only entry lines ("prefix[n] value") carry data, so line order
// and the presence of length-declaration lines do not matter.
func ParseConfigString(data string) (*RoutingSpec, error) {
	tables := make(map[int]*tableBuilder)
	get := func(i int) *tableBuilder {
		t, ok := tables[i]
		if !ok {
			t = &tableBuilder{hops: make(map[int]*hopBuilder), routes: make(map[int]*routeBuilder)}
			tables[i] = t
		}
		return t
	}
	getHop := func(t *tableBuilder, j int) *hopBuilder {
		h, ok := t.hops[j]
		if !ok {
			h = &hopBuilder{recipients: make(map[int]string)}
			t.hops[j] = h
		}
		return h
	}
	getRoute := func(t *tableBuilder, j int) *routeBuilder {
		r, ok := t.routes[j]
		if !ok {
			r = &routeBuilder{hops: make(map[int]string)}
			t.routes[j] = r
		}
		return r
	}

	for lineNo, line := range strings.Split(data, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		key, rest, hasValue := strings.Cut(line, " ")
		if !hasValue {
			continue // array-length declaration, e.g. "routingtable[3]"
		}

		if m := reProtocol.FindStringSubmatch(key); m != nil {
			v, err := unquoteConfigString(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			get(atoiMust(m[1])).protocol = v
			continue
		}
		if m := reHopName.FindStringSubmatch(key); m != nil {
			v, err := unquoteConfigString(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			getHop(get(atoiMust(m[1])), atoiMust(m[2])).name = v
			continue
		}
		if m := reHopSelector.FindStringSubmatch(key); m != nil {
			v, err := unquoteConfigString(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			getHop(get(atoiMust(m[1])), atoiMust(m[2])).selector = v
			continue
		}
		if m := reHopIgnore.FindStringSubmatch(key); m != nil {
			getHop(get(atoiMust(m[1])), atoiMust(m[2])).ignoreResult = rest == "true"
			continue
		}
		if m := reHopRecipient.FindStringSubmatch(key); m != nil {
			v, err := unquoteConfigString(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			h := getHop(get(atoiMust(m[1])), atoiMust(m[2]))
			h.recipients[atoiMust(m[3])] = v
			continue
		}
		if m := reRouteName.FindStringSubmatch(key); m != nil {
			v, err := unquoteConfigString(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			getRoute(get(atoiMust(m[1])), atoiMust(m[2])).name = v
			continue
		}
		if m := reRouteHop.FindStringSubmatch(key); m != nil {
			v, err := unquoteConfigString(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			r := getRoute(get(atoiMust(m[1])), atoiMust(m[2]))
			r.hops[atoiMust(m[3])] = v
			continue
		}
		return nil, fmt.Errorf("line %d: unrecognized config key %q", lineNo+1, key)
	}

	tableIdx := sortedKeys(tables)
	spec := &RoutingSpec{}
	for _, i := range tableIdx {
		t := tables[i]
		ts := RoutingTableSpec{Protocol: t.protocol}
		for _, j := range sortedKeysHop(t.hops) {
			h := t.hops[j]
			hs := HopSpec{Name: h.name, Selector: h.selector, IgnoreResult: h.ignoreResult}
			for _, k := range sortedKeysStr(h.recipients) {
				hs.Recipients = append(hs.Recipients, h.recipients[k])
			}
			ts.Hops = append(ts.Hops, hs)
		}
		for _, j := range sortedKeysRoute(t.routes) {
			r := t.routes[j]
			rs := RouteSpec{Name: r.name}
			for _, k := range sortedKeysStr(r.hops) {
				rs.Hops = append(rs.Hops, r.hops[k])
			}
			ts.Routes = append(ts.Routes, rs)
		}
		spec.Tables = append(spec.Tables, ts)
	}
	return spec, nil
}

func atoiMust(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func sortedKeys(m map[int]*tableBuilder) []int {
	ks := make([]int, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}

func sortedKeysHop(m map[int]*hopBuilder) []int {
	ks := make([]int, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}

func sortedKeysRoute(m map[int]*routeBuilder) []int {
	ks := make([]int, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}

func sortedKeysStr(m map[int]string) []int {
	ks := make([]int, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}
