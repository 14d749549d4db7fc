package mbus

import (
	"sync"
	"time"

	"go.dedis.ch/protobuf"
	"golang.org/x/xerrors"
)

// TraceLevel gates how verbose a Trace is. SplitMerge is the level the
// resolver itself writes at (spec §4.5.4): one event per child spawned by
// a policy's Select.
type TraceLevel int

// TraceDisabled means tracing is off; Trace.Add and Trace.MergeChildren
// become no-ops.
const TraceDisabled TraceLevel = 0

// SplitMerge is the trace level used for the one event-per-child the
// resolver writes when a policy fans out (spec §4.5.4).
const SplitMerge TraceLevel = 1

// TraceNode is one node of the tree-structured trace attached to a
// RoutingNode (spec §3). The child traces added by one MergeChildren call
// form a non-strict subtree: their relative order carries no meaning, only
// their grouping does (spec §4.5.5/§5).
type TraceNode struct {
	Level    TraceLevel
	Note     string
	UnixNano int64
	Strict   bool
	Children []*TraceNode
}

// Trace is the tree-structured trace attached to a RoutingNode. It is safe
// for concurrent use: Add is called from whichever thread drives
// resolution. Every node of one send shares its root's Trace (addChild
// hands the parent's Trace to each child), so all events land in one flat
// list under the root; the resolver never calls MergeChildren, and events
// are not grouped per merge.
type Trace struct {
	mu    sync.Mutex
	level TraceLevel
	root  *TraceNode
}

// NewTrace returns a Trace that records events at or below level. A level
// of TraceDisabled makes Add and MergeChildren no-ops, matching spec
// §4.5.5's "skip this if tracing is disabled".
func NewTrace(level TraceLevel) *Trace {
	return &Trace{level: level, root: &TraceNode{Strict: true}}
}

// Enabled reports whether this trace records anything at all.
func (t *Trace) Enabled() bool { return t != nil && t.level != TraceDisabled }

// Add records one event at the given level, provided tracing is enabled
// and level does not exceed the trace's own level.
func (t *Trace) Add(level TraceLevel, note string) {
	if !t.Enabled() || level > t.level {
		return
	}
	t.mu.Lock()
	t.root.Children = append(t.root.Children, &TraceNode{
		Level:    level,
		Note:     note,
		UnixNano: time.Now().UnixNano(),
	})
	t.mu.Unlock()
}

// MergeChildren appends the given child traces as a single non-strict
// sibling subtree under this trace's root (spec §4.5.5 step 1). A nil
// entry in children is skipped.
func (t *Trace) MergeChildren(children []*Trace) {
	if !t.Enabled() {
		return
	}
	group := &TraceNode{Strict: false}
	for _, c := range children {
		if c == nil {
			continue
		}
		c.mu.Lock()
		group.Children = append(group.Children, c.root)
		c.mu.Unlock()
	}
	if len(group.Children) == 0 {
		return
	}
	t.mu.Lock()
	t.root.Children = append(t.root.Children, group)
	t.mu.Unlock()
}

// Marshal encodes the trace's current tree with go.dedis.ch/protobuf, for
// export off-process by an operator tool. This is entirely independent of
// the in-process Trace/TraceNode bookkeeping above; nothing in the
// resolver calls it.
func (t *Trace) Marshal() ([]byte, error) {
	t.mu.Lock()
	root := t.root
	t.mu.Unlock()
	buf, err := protobuf.Encode(root)
	if err != nil {
		return nil, xerrors.Errorf("encoding trace: %w", err)
	}
	return buf, nil
}

// UnmarshalTrace decodes a trace previously produced by Trace.Marshal.
func UnmarshalTrace(buf []byte) (*Trace, error) {
	var root TraceNode
	if err := protobuf.Decode(buf, &root); err != nil {
		return nil, xerrors.Errorf("decoding trace: %w", err)
	}
	return &Trace{root: &root}, nil
}
