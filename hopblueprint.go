package mbus

// HopBlueprint is the compiled form of a HopSpec: the parsed selector
// (shared read-only storage, cloned per-instance by Create) plus an
// expanded recipient list where each recipient is itself a parsed Hop
// (spec §4.3).
type HopBlueprint struct {
	name       string
	selector   *Hop
	recipients []*Hop
}

// NewHopBlueprint compiles a HopSpec into a HopBlueprint by parsing its
// selector and recipients with RouteParser.
func NewHopBlueprint(spec HopSpec) *HopBlueprint {
	selector := ParseHop(spec.Selector)
	selector.SetIgnoreResult(selector.IgnoreResult() || spec.IgnoreResult)
	recipients := make([]*Hop, 0, len(spec.Recipients))
	for _, r := range spec.Recipients {
		recipients = append(recipients, ParseHop(r))
	}
	return &HopBlueprint{name: spec.Name, selector: selector, recipients: recipients}
}

// Name returns the blueprint's configured name.
func (b *HopBlueprint) Name() string { return b.name }

// ServiceName returns the selector's service name (spec §4.2).
func (b *HopBlueprint) ServiceName() string { return b.selector.ServiceName() }

// Create returns a fresh Hop copy of the blueprint's selector. Create()
// followed by Matches against the blueprint's own selector is always true
// (spec §8).
func (b *HopBlueprint) Create() *Hop { return b.selector.Clone() }

// Recipients returns the blueprint's expanded recipient hops. The slice is
// shared and must not be mutated by callers.
func (b *HopBlueprint) Recipients() []*Hop { return b.recipients }
