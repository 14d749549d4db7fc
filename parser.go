package mbus

import (
	"fmt"
	"strconv"
	"strings"
)

// RouteParser parses textual route/hop expressions into Route/Hop values.
// It never returns an error: malformed input is represented as a Hop whose
// sole directive is an ErrorDirective carrying a diagnostic message (spec
// §4.1), so that a malformed route can still be carried through the system
// and reported as part of a normal Reply instead of panicking deep inside
// config loading.
type RouteParser struct{}

// ParseRoute splits s on runs of whitespace and parses each resulting
// token as a hop.
func (RouteParser) ParseRoute(s string) *Route { return ParseRoute(s) }

// ParseHop parses a single hop expression.
func (RouteParser) ParseHop(s string) *Hop { return ParseHop(s) }

const hopWhitespace = " \t\n\r\f"

// ParseRoute splits s on runs of whitespace and parses each resulting
// token as a hop via ParseHop. An empty or all-whitespace s yields a Route
// with zero hops.
func ParseRoute(s string) *Route {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(hopWhitespace, r)
	})
	hops := make([]*Hop, 0, len(fields))
	for _, f := range fields {
		hops = append(hops, ParseHop(f))
	}
	return &Route{hops: hops}
}

// ParseHop parses a single hop expression: an optional leading '?', then
// either "tcp/host:port/session", "route:name", or a '/'-separated list of
// directives, each of which is either "[name]"/"[name:param]" (a policy
// directive) or a verbatim image.
func ParseHop(s string) *Hop {
	ignore := false
	rest := s
	if strings.HasPrefix(rest, "?") {
		ignore = true
		rest = rest[1:]
	}
	if rest == "" {
		return errorHop("Failed to parse empty string.", ignore)
	}
	if strings.ContainsAny(rest, hopWhitespace) {
		return errorHop(fmt.Sprintf("Failed to completely parse '%s'.", s), ignore)
	}
	if strings.HasPrefix(rest, "tcp/") {
		if h, ok := parseTcpBody(rest[len("tcp/"):]); ok {
			h.ignoreResult = ignore
			return h
		}
		// Missing host, port or session: fall through to generic parsing
		// below, per spec §4.1 — this is not a parse error.
	}
	if strings.HasPrefix(rest, "route:") {
		h := NewHop(&RouteDirective{Name: rest[len("route:"):]})
		h.ignoreResult = ignore
		return h
	}
	dirs, err := parseDirectives(rest)
	if err != nil {
		return errorHop(err.Error(), ignore)
	}
	h := NewHop(dirs...)
	h.ignoreResult = ignore
	return h
}

func errorHop(message string, ignore bool) *Hop {
	h := NewHop(&ErrorDirective{Message: message})
	h.ignoreResult = ignore
	return h
}

// parseTcpBody parses "host:port/session" (the part of a tcp/ hop after
// the "tcp/" prefix). It returns ok=false if host, port or session is
// missing or port is not a valid decimal uint32, in which case the caller
// falls back to generic slash-separated parsing.
func parseTcpBody(body string) (*Hop, bool) {
	slash := strings.IndexByte(body, '/')
	if slash < 0 {
		return nil, false
	}
	hostPort, session := body[:slash], body[slash+1:]
	colon := strings.LastIndexByte(hostPort, ':')
	if colon < 0 {
		return nil, false
	}
	host, portStr := hostPort[:colon], hostPort[colon+1:]
	if host == "" || portStr == "" || session == "" {
		return nil, false
	}
	port, err := strconv.ParseUint(portStr, 10, 32)
	if err != nil {
		return nil, false
	}
	return NewHop(&TcpDirective{Host: host, Port: uint32(port), Session: session}), true
}

// parseDirectives splits s on '/' at bracket depth 0 and parses each
// segment as either a policy directive or a verbatim directive. Brackets
// must nest and balance across the whole string.
func parseDirectives(s string) ([]Directive, error) {
	var dirs []Directive
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("Unexpected token ']': syntax error")
			}
		case '/':
			if depth == 0 {
				dirs = append(dirs, parseDirSegment(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth > 0 {
		return nil, fmt.Errorf("Unexpected token '': syntax error")
	}
	dirs = append(dirs, parseDirSegment(s[start:]))
	return dirs, nil
}

// parseDirSegment recognizes the policy form "[name]"/"[name:param]" only
// when the whole segment starts with '[' and ends with ']'; anything else,
// including a lone "[foo" or "foo]" (already rejected earlier by the
// bracket-balance scan) is a verbatim image.
func parseDirSegment(seg string) Directive {
	if len(seg) >= 2 && seg[0] == '[' && seg[len(seg)-1] == ']' {
		inner := seg[1 : len(seg)-1]
		if idx := strings.IndexByte(inner, ':'); idx >= 0 {
			return &PolicyDirective{Name: inner[:idx], Param: inner[idx+1:]}
		}
		return &PolicyDirective{Name: inner}
	}
	return &VerbatimDirective{Image: seg}
}
