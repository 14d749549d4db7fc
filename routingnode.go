package mbus

import (
	"fmt"
	"sync/atomic"

	"github.com/vespaext/mbus/log"
)

// maxResolveDepth bounds the number of times a hop's Route/Policy directive
// may be expanded in a single lineage, guarding against a routing table
// whose named route/hop expansions form a cycle (spec §4.5.1 edge case).
const maxResolveDepth = 64

// lookupResult is the three-way outcome of lookupHop/lookupRoute: whether
// the hop at index 0 named anything at all, whether it was successfully
// spliced in, or whether the lookup itself is a fatal failure (spec
// §4.5.3: a Route directive naming a route absent from the table is
// always fatal, never merely "no match").
type lookupResult int

const (
	lookupNone lookupResult = iota
	lookupSpliced
	lookupFatal
)

// RoutingNode is one node of the resolution tree rooted at a Send call
// (spec §3/§4.5). A node is either internal — it has children and waits
// for all of them to reply before computing its own reply via a policy's
// Merge — or a leaf, with a ServiceAddress allocated from the network and
// dispatched to directly.
type RoutingNode struct {
	parent   *RoutingNode
	children []*RoutingNode

	route   *Route
	message *Message
	network INetwork
	tables  RoutingTableSet
	proto   IProtocol

	recipients   []*Hop
	ignoreResult bool
	depth        int

	trace *Trace

	// pending counts children not yet accounted for by notifyParent, plus
	// one more while executePolicySelect is still inside Select(): that
	// extra unit is what stops a child completing synchronously from
	// triggering this node's merge before its siblings have even been
	// added. Starts at zero and stays zero on a leaf, whose dispatch is not
	// counted here; a fresh node with no children and no in-flight Select
	// is already "caught up". Accessed with atomic ops since notifyParent may
	// run concurrently from whichever goroutine delivered a child's or a
	// network reply.
	pending int32

	address ServiceAddress
	reply   *Reply

	ctx            *RoutingContext // non-nil only while this node's hop(0) is a policy
	policyForMerge IRoutingPolicy  // set alongside ctx, consulted by notifyMerge

	// replyHandler/discardHandler are set only on the root node of a Send.
	replyHandler   IReplyHandler
	discardHandler IDiscardHandler

	retryPolicy IRetryPolicy
	resender    *Resender

	// leaves accumulates dispatch-ready leaf nodes discovered during the
	// synchronous expansion of the whole tree; meaningful only on the
	// root, read once by Send after resolve returns.
	leaves []*RoutingNode

	// id correlates every node descended from one root Send call across
	// retries, for trace/diagnostic purposes only; meaningful only on the
	// root (ID() reads n.root().id).
	id RouteInstanceID
}

// ID returns the RouteInstanceID assigned to the root of this node's
// resolution tree at Send time. It is stable across prepareForRetry.
func (n *RoutingNode) ID() RouteInstanceID { return n.root().id }

// Send begins resolving route against tables/network/proto for message,
// delivering the eventual Reply to handler (spec §4.5/§6). resender and
// retryPolicy may both be nil, in which case this send never retries
// regardless of message.RetryEnabled.
func Send(route *Route, message *Message, tables RoutingTableSet, network INetwork, proto IProtocol, retryPolicy IRetryPolicy, resender *Resender, handler IReplyHandler, trace *Trace) *RoutingNode {
	root := &RoutingNode{
		route:        route,
		message:      message,
		network:      network,
		tables:       tables,
		proto:        proto,
		trace:        trace,
		replyHandler: handler,
		retryPolicy:  retryPolicy,
		resender:     resender,
		ignoreResult: route.IgnoreResult(),
		id:           NewRouteInstanceID(),
	}
	root.resolve(0)
	if root.reply != nil {
		// The whole tree failed or completed synchronously before a single
		// network round trip was needed; maybeFinish already delivered it
		// from within notifyParent's cascade.
		return root
	}
	if root.anyUnconsumedErrors() {
		// At least one sibling already terminated with an unconsumed,
		// non-retryable error while others are still waiting to be
		// dispatched (spec §4.5.1/§8 scenario 6): abort the whole send
		// rather than let the surviving leaves go out.
		root.notifyAbort()
		root.SetError(SendAborted, "Errors found while resolving route.")
		if root.replyHandler != nil {
			root.replyHandler.HandleReply(root.reply)
		}
		return root
	}
	if len(root.leaves) > 0 {
		network.Send(message, root.leaves)
	}
	return root
}

// addChild creates a child node resolving route, inheriting this node's
// message/network/tables/proto/recipients/trace, and increments this
// node's pending count. Called by RoutingContext.AddChild during a
// policy's Select.
func (n *RoutingNode) addChild(route *Route) *RoutingNode {
	child := &RoutingNode{
		parent:       n,
		route:        route,
		message:      n.message,
		network:      n.network,
		tables:       n.tables,
		proto:        n.proto,
		recipients:   n.recipients,
		ignoreResult: n.ignoreResult || route.IgnoreResult(),
		depth:        n.depth + 1,
		trace:        n.trace,
		retryPolicy:  n.retryPolicy,
		resender:     n.resender,
	}
	n.children = append(n.children, child)
	atomic.AddInt32(&n.pending, 1)
	child.resolve(0)
	return child
}

// root walks up to the node that owns replyHandler/discardHandler/leaves.
func (n *RoutingNode) root() *RoutingNode {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// ServiceAddress returns the address allocated for this leaf, or nil.
func (n *RoutingNode) ServiceAddress() ServiceAddress { return n.address }

// SetServiceAddress is called by an INetwork implementation from within
// AllocServiceAddress, on success.
func (n *RoutingNode) SetServiceAddress(addr ServiceAddress) { n.address = addr }

// Message returns the message being routed.
func (n *RoutingNode) Message() *Message { return n.message }

// Route returns the node's current route.
func (n *RoutingNode) Route() *Route { return n.route }

// Trace returns the node's trace, which may be a disabled (nil-safe) one.
func (n *RoutingNode) Trace() *Trace { return n.trace }

// Parent returns the node's parent, or nil for the root.
func (n *RoutingNode) Parent() *RoutingNode { return n.parent }

// Children returns the node's children.
func (n *RoutingNode) Children() []*RoutingNode { return n.children }

// Reply returns the node's current reply, or nil.
func (n *RoutingNode) Reply() *Reply { return n.reply }

// SetError replaces the node's reply with a fresh single-error reply. See
// RoutingContext.SetError's doc comment for the deliberate SetError/AddError
// asymmetry this resolves from spec.md §9.
func (n *RoutingNode) SetError(code ErrorCode, message string) {
	r := NewReply()
	r.AddError(code, message)
	n.reply = r
}

// AddError appends an error to the node's reply, creating one if absent.
func (n *RoutingNode) AddError(code ErrorCode, message string) {
	if n.reply == nil {
		n.reply = NewReply()
	}
	n.reply.AddError(code, message)
}

// SetReply replaces the node's reply outright.
func (n *RoutingNode) SetReply(r *Reply) { n.reply = r }

// resolved reports whether this node has already reached a terminal state:
// either it has a reply, or (for a leaf) a service address, or (for an
// internal node) at least one child was added.
func (n *RoutingNode) resolved() bool {
	return n.reply != nil || n.address != nil || len(n.children) > 0
}

// fail sets an error reply and propagates it to the parent (or finalizes,
// for the root), returning true once the node has reached a terminal
// state. It is the single exit used by every synchronous-failure branch in
// resolve.
func (n *RoutingNode) fail(code ErrorCode, format string, args ...interface{}) bool {
	msg := fmt.Sprintf(format, args...)
	log.Lvl2(n.ID().String(), code, msg)
	n.SetError(code, msg)
	n.notifyParent()
	return n.resolved()
}

// resolve expands hop(0) of the node's route until it names a concrete
// destination (a Tcp directive, or a Verbatim directive with no matching
// HopBlueprint, left for the name service to resolve) or a Policy
// directive, splicing in named Route/Hop lookups along the way. It is
// recursive only through lookupRoute/lookupHop's "splice and retry" path,
// bounded by maxResolveDepth.
func (n *RoutingNode) resolve(depth int) {
	if depth > maxResolveDepth {
		n.fail(IllegalRoute, "Route exceeds maximum resolution depth of %d", maxResolveDepth)
		return
	}
	if n.route == nil || n.route.NumHops() == 0 {
		n.fail(IllegalRoute, "Route has no hops to resolve")
		return
	}
	n.ignoreResult = n.ignoreResult || n.route.IgnoreResult()

	switch n.lookupRoute() {
	case lookupFatal:
		return
	case lookupSpliced:
		n.resolve(depth + 1)
		return
	}

	switch n.lookupHop() {
	case lookupFatal:
		return
	case lookupSpliced:
		n.resolve(depth + 1)
		return
	}

	hop := n.route.Hop(0)
	for i := 0; i < hop.NumDirectives(); i++ {
		if d, ok := hop.Directive(i).(*ErrorDirective); ok {
			n.fail(IllegalRoute, "%s", d.Message)
			return
		}
	}
	for i := 0; i < hop.NumDirectives(); i++ {
		if _, ok := hop.Directive(i).(*PolicyDirective); ok {
			n.executePolicySelect(i)
			return
		}
	}

	n.allocateLeaf()
}

// lookupRoute handles a bare Route directive occupying the whole of
// hop(0): "route:name" with no siblings. Per spec §4.5.3 a Route directive
// naming an entry absent from the table is always fatal.
func (n *RoutingNode) lookupRoute() lookupResult {
	hop := n.route.Hop(0)
	if hop.NumDirectives() != 1 {
		return lookupNone
	}
	rd, ok := hop.Directive(0).(*RouteDirective)
	if !ok {
		return lookupNone
	}
	table := n.tables[n.message.Protocol]
	named := table.Route(rd.Name)
	if named == nil {
		n.fail(IllegalRoute, "Route %q references unknown route %q", n.route.String(), rd.Name)
		return lookupFatal
	}
	spliced := named.Clone()
	spliced.hops = append(spliced.hops, n.route.Tail(1).hops...)
	n.ignoreResult = n.ignoreResult || hop.IgnoreResult()
	n.route = spliced
	return lookupSpliced
}

// lookupHop handles a bare hop name occupying the whole of hop(0) that
// names an entry in the protocol's RoutingTable: a single Verbatim
// directive whose image matches a configured HopBlueprint name. A
// matching blueprint splices in its selector and — for the node's
// lifetime — establishes recipients for any Policy directive reached
// further down the expansion (spec §4.3/§4.5.3).
func (n *RoutingNode) lookupHop() lookupResult {
	hop := n.route.Hop(0)
	if hop.NumDirectives() != 1 {
		return lookupNone
	}
	vd, ok := hop.Directive(0).(*VerbatimDirective)
	if !ok {
		return lookupNone
	}
	table := n.tables[n.message.Protocol]
	blueprint := table.Hop(vd.Image)
	if blueprint == nil {
		return lookupNone
	}
	selector := blueprint.Create()
	selector.SetIgnoreResult(selector.IgnoreResult() || hop.IgnoreResult())
	spliced := &Route{hops: append([]*Hop{selector}, n.route.Tail(1).hops...)}
	n.ignoreResult = n.ignoreResult || selector.IgnoreResult()
	n.recipients = blueprint.Recipients()
	n.route = spliced
	return lookupSpliced
}

// executePolicySelect runs the policy named by the directive at index i of
// hop(0), recovering from a panicking Select the way the source design
// recovers from an uncaught std::exception (spec §4.5.7: POLICY_ERROR).
func (n *RoutingNode) executePolicySelect(i int) {
	hop := n.route.Hop(0)
	pd := hop.Directive(i).(*PolicyDirective)
	policy := n.proto.CreatePolicy(pd.Name, pd.Param)
	if policy == nil {
		n.fail(UnknownPolicy, "Unknown policy %q", pd.Name)
		return
	}
	n.ctx = newRoutingContext(n, i)

	// Hold one pending unit open for the whole Select() call. Without it, a
	// child added early in Select that also completes synchronously (an
	// immediate policy failure, a cache-hit leaf) would decrement n.pending
	// back to zero and trigger n's merge before later AddChild calls in the
	// same Select run ever happened. This mirrors the original resolving the
	// child count only once the whole of resolveChildren (here, Select) has
	// returned.
	atomic.AddInt32(&n.pending, 1)

	ok := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("policy %q panicked during select: %v", pd.Name, r)
				n.SetError(PolicyError, fmt.Sprintf("Policy %q panicked during select: %v", pd.Name, r))
				ok = false
			}
		}()
		policy.Select(n.ctx)
		return true
	}()
	if ok {
		n.policyForMerge = policy
	}

	if n.reply != nil {
		atomic.AddInt32(&n.pending, -1)
		n.notifyParent()
		return
	}
	if len(n.children) == 0 {
		atomic.AddInt32(&n.pending, -1)
		n.fail(NoServicesForRoute, "Policy %q selected no recipients", pd.Name)
		return
	}
	for i := range n.children {
		n.trace.Add(SplitMerge, fmt.Sprintf("Select done: %s (child %d of %d)", pd.String(), i+1, len(n.children)))
	}
	n.finishPending()
}

// notifyMerge is invoked once every child of an internal node has replied.
// For a node whose hop(0) named a policy it calls that policy's Merge,
// recovering from a panic the same way executePolicySelect does; for a
// node with no policy to merge with (ctx or policyForMerge is nil, as after
// a Select that panicked once it had added children) it merges the
// children's replies via mergeChildrenVerbatim. Either way it then
// propagates upward via notifyParent (spec §4.5.5).
func (n *RoutingNode) notifyMerge() {
	if n.ctx == nil || n.policyForMerge == nil {
		n.mergeChildrenVerbatim()
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("policy panicked during merge: %v", r)
				n.SetError(PolicyError, fmt.Sprintf("Policy panicked during merge: %v", r))
			}
		}()
		n.policyForMerge.Merge(n.ctx)
	}()
	if n.reply == nil {
		n.SetError(AppFatalError, "Policy merge produced no reply")
	}
	n.notifyParent()
}

// mergeChildrenVerbatim is the merge behavior for an internal node that has
// no policy to merge with: a single child's reply passes through unchanged,
// and the errors of several children are collected into one new reply
// (spec §4.5.5).
func (n *RoutingNode) mergeChildrenVerbatim() {
	if len(n.children) == 1 {
		n.reply = n.children[0].reply
	} else {
		r := NewReply()
		for _, c := range n.children {
			if c.reply != nil {
				for _, e := range c.reply.Errors() {
					r.AddError(e.Code, e.Message)
				}
			}
		}
		n.reply = r
	}
	n.notifyParent()
}

// notifyParent reports this node's own completion to its parent. It first
// releases any service address the node holds back to the network, then
// applies the ignore-result flag to drop this node's errors from the
// aggregate the parent sees (spec §4.5.5/§3). For the root, which has no
// parent to report to, it finalizes the send directly.
func (n *RoutingNode) notifyParent() {
	if n.address != nil && n.network != nil {
		n.network.FreeServiceAddress(n)
		n.address = nil
	}
	if n.ignoreResult && n.reply != nil && n.reply.HasErrors() {
		n.reply = NewReply()
	}
	if n.parent == nil {
		n.maybeFinish()
		return
	}
	n.parent.finishPending()
}

// finishPending decrements n's own pending count by one and, once it
// reaches zero, merges n's children — n always has at least one by the
// time anything calls finishPending on it, either because addChild put it
// there or because executePolicySelect only calls this after confirming
// Select added children. notifyMerge's own tail then propagates upward via
// notifyParent, which finalizes the send if n turns out to be the root.
// finishPending is the one place pending ever reaches zero, shared by a
// child reporting completion (via notifyParent) and by executePolicySelect
// releasing the guard it held open across Select().
func (n *RoutingNode) finishPending() {
	if atomic.AddInt32(&n.pending, -1) > 0 {
		return
	}
	n.notifyMerge()
}

// Deliver is called by an INetwork implementation once a leaf's reply
// arrives. It sets the leaf's reply and reports it via notifyParent, which
// decrements the parent's pending count (or finishes the send, for a root
// that is itself a leaf).
func (n *RoutingNode) Deliver(reply *Reply) {
	n.reply = reply
	n.notifyParent()
}

// maybeFinish is called on the root once its own pending count reaches
// zero. It applies hasUnconsumedErrors/shouldRetry before handing the
// final reply to replyHandler (spec §4.5.7/§4.5.8).
func (n *RoutingNode) maybeFinish() {
	if atomic.LoadInt32(&n.pending) > 0 {
		return
	}
	if n.reply == nil {
		return
	}
	if n.hasUnconsumedErrors() && n.shouldRetry() {
		n.prepareForRetry()
		return
	}
	if n.replyHandler != nil {
		n.replyHandler.HandleReply(n.reply)
	}
}

// hasUnconsumedErrors reports whether the final reply carries any error
// not declared consumable by some ancestor's RoutingContext during Select
// (spec §4.5.7).
func (n *RoutingNode) hasUnconsumedErrors() bool {
	if n.reply == nil || !n.reply.HasErrors() {
		return false
	}
	for _, e := range n.reply.Errors() {
		if !n.isConsumedByAncestor(e.Code) {
			return true
		}
	}
	return false
}

// anyUnconsumedErrors walks the partially-resolved tree rooted at n,
// reporting whether any node that has already terminated carries an error
// not declared consumable by an ancestor's policy. Unlike
// hasUnconsumedErrors, it does not require n itself to have a reply yet:
// it is what lets Send notice a sibling that failed before the rest of
// the tree finished resolving, while other leaves are still sitting in
// root.leaves waiting to be dispatched.
func (n *RoutingNode) anyUnconsumedErrors() bool {
	if n.reply != nil && n.hasUnconsumedErrors() {
		return true
	}
	for _, c := range n.children {
		if c.anyUnconsumedErrors() {
			return true
		}
	}
	return false
}

func (n *RoutingNode) isConsumedByAncestor(code ErrorCode) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.ctx != nil && cur.ctx.IsConsumableError(code) {
			return true
		}
	}
	return false
}

// shouldRetry consults the retry policy (if any) and the message's
// RetryEnabled/TimeRemaining to decide whether prepareForRetry should run
// instead of delivering the reply as final (spec §4.6/§4.7). If the
// message's remaining time-to-live would not survive the computed delay,
// it instead attaches a Timeout error to the reply it is about to let
// through, the way Resender::scheduleRetry does in the original, so the
// caller learns resolution gave up because of the deadline rather than
// seeing the stale transient error alone.
func (n *RoutingNode) shouldRetry() bool {
	if n.resender == nil || n.retryPolicy == nil || !n.message.RetryEnabled {
		return false
	}
	for _, e := range n.reply.Errors() {
		if e.Code.IsFatal() || !n.retryPolicy.CanRetry(e.Code) {
			return false
		}
	}
	delay := n.reply.RetryDelay()
	if delay < 0 {
		delay = n.retryPolicy.Delay(n.message.Retry + 1)
	}
	if n.message.TimeRemaining() <= delay {
		n.AddError(Timeout, fmt.Sprintf("Timed out before a retry after %s could complete", delay))
		return false
	}
	return true
}

// prepareForRetry resets this node back to an unresolved state — discarding
// children, freeing any allocated leaf address, clearing the reply — and
// hands it to the Resender to re-run after the computed delay (spec
// §4.5.8/§4.7). notifyAbort is run over the discarded subtree first so any
// policy-held per-select state is released consistently with a normal
// abort.
func (n *RoutingNode) prepareForRetry() {
	delay := n.reply.RetryDelay()

	for _, c := range n.children {
		c.notifyAbort()
	}
	if n.address != nil {
		n.network.FreeServiceAddress(n)
		n.address = nil
	}
	n.children = nil
	n.reply = nil
	n.ctx = nil
	n.policyForMerge = nil
	n.leaves = nil
	n.pending = 0
	n.message.Retry++

	if delay < 0 {
		delay = n.retryPolicy.Delay(n.message.Retry)
	}
	log.Lvl3(n.ID().String(), "scheduling retry", n.message.Retry, "after", delay)
	n.resender.ScheduleRetry(n, delay)
}

// notifyAbort recursively discards a subtree that will never be resolved
// to completion: used both when prepareForRetry discards prior children
// and when Discard is called on an in-flight send during shutdown (spec
// §4.5.6/§7).
func (n *RoutingNode) notifyAbort() {
	for _, c := range n.children {
		c.notifyAbort()
	}
	if n.address != nil && n.network != nil {
		n.network.FreeServiceAddress(n)
		n.address = nil
	}
}

// SetDiscardHandler registers h to be notified instead of the reply
// handler if this send is abandoned via Discard, or dropped by Resender
// shutdown while scheduled for retry. Callers set this on the node Send
// returns, before any reply can arrive.
func (n *RoutingNode) SetDiscardHandler(h IDiscardHandler) { n.root().discardHandler = h }

// Discard abandons an in-flight send, freeing any leaf addresses and
// notifying discardHandler instead of replyHandler (spec §7).
func (n *RoutingNode) Discard() {
	root := n.root()
	root.notifyAbort()
	if root.discardHandler != nil {
		root.discardHandler.HandleDiscard(root)
	}
}

// allocateLeaf is reached once hop(0) resolves to a concrete destination
// with no further directives to expand: a Tcp directive, or a lone
// Verbatim directive that did not match any HopBlueprint and is left for
// the name service itself to resolve. It asks the network to allocate an
// address and, on success, registers the node on the root's leaves slice
// for dispatch by Send once the whole tree's synchronous expansion is
// done (spec §4.5.2).
func (n *RoutingNode) allocateLeaf() {
	n.network.AllocServiceAddress(n)
	if n.reply != nil {
		n.notifyParent()
		return
	}
	if n.address == nil {
		n.fail(NoServicesForRoute, "No service address could be allocated for %q", n.route.Hop(0).String())
		return
	}
	root := n.root()
	root.leaves = append(root.leaves, n)
}
