package mbus

import "time"

// ServiceAddress is the network layer's opaque token identifying a
// destination endpoint. Concrete INetwork implementations define their own
// underlying type; the resolver never inspects it.
type ServiceAddress interface{}

// Message is the envelope the resolver routes. Payload transport,
// serialization and compression are out of scope for this package (spec
// §1); Message only carries what the resolver itself needs to make
// decisions: which protocol's routing table to consult, and the
// retry/deadline bookkeeping the Resender reads and writes.
type Message struct {
	// Protocol selects which RoutingTable (if any) applies during
	// lookupHop/lookupRoute.
	Protocol string

	// Payload is the opaque, possibly-compressed body. See codec.Compress
	// and codec.Decompress for the thin compression wrapper mentioned in
	// spec §1.
	Payload []byte

	// RetryEnabled mirrors the source message bus's per-message retry
	// flag; RoutingNode.shouldRetry never retries a message whose flag is
	// false.
	RetryEnabled bool

	// Retry is the number of retries already attempted. shouldRetry reads
	// it to compute the next attempt number, and prepareForRetry increments
	// it before the node is handed to Resender.ScheduleRetry.
	Retry int

	// Deadline is when this message's time-to-live expires.
	Deadline time.Time
}

// TimeRemaining returns the duration until Deadline. A zero Deadline means
// no deadline was set and TimeRemaining returns a very large duration.
func (m *Message) TimeRemaining() time.Duration {
	if m.Deadline.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return time.Until(m.Deadline)
}

// ReplyError is one error attached to a Reply.
type ReplyError struct {
	Code    ErrorCode
	Message string
}

// Reply is the aggregate result handed back to the caller of Send, or
// passed between a policy's Select/Merge and the node that owns them.
type Reply struct {
	errors     []ReplyError
	retryDelay time.Duration
}

// NewReply returns an empty Reply with no errors and no explicit retry
// delay override (RetryDelay returns -1 until SetRetryDelay is called).
func NewReply() *Reply {
	return &Reply{retryDelay: -1}
}

// HasErrors reports whether the reply carries at least one error.
func (r *Reply) HasErrors() bool { return r != nil && len(r.errors) > 0 }

// Errors returns the reply's errors, in the order they were added.
func (r *Reply) Errors() []ReplyError {
	if r == nil {
		return nil
	}
	return r.errors
}

// AddError appends an error to the reply.
func (r *Reply) AddError(code ErrorCode, message string) {
	r.errors = append(r.errors, ReplyError{Code: code, Message: message})
}

// RetryDelay returns the reply's explicit retry-delay override, or a
// negative duration if none was set. A non-negative value here overrides
// whatever the RetryPolicy would otherwise compute (spec §4.6).
func (r *Reply) RetryDelay() time.Duration {
	if r == nil {
		return -1
	}
	return r.retryDelay
}

// SetRetryDelay sets the reply's explicit retry-delay override.
func (r *Reply) SetRetryDelay(d time.Duration) { r.retryDelay = d }

// IMirrorAPI is the local mirror of the name service a policy may consult
// during Select/Merge (spec §4.4/§6). The wire format and refresh protocol
// behind it are out of scope for this package.
type IMirrorAPI interface {
	// LookupService returns the known service addresses whose name
	// matches pattern.
	LookupService(pattern string) []string
}

// INetwork is the network transport collaborator (spec §6). Its wire
// encoding, connection pooling and name-service lookup are out of scope;
// the resolver only ever calls these four methods.
type INetwork interface {
	// AllocServiceAddress must, before returning, have set either
	// node.ServiceAddress() (on success) or node's reply (via node.SetError
	// / node.SetReply, on failure). It may consult the name service
	// asynchronously internally, but the resolver treats the call as
	// synchronous: it never observes a node with neither an address nor a
	// reply after this returns.
	AllocServiceAddress(node *RoutingNode)

	// FreeServiceAddress is called from notifyParent once a leaf's address
	// is no longer needed.
	FreeServiceAddress(node *RoutingNode)

	// Send enqueues transmission of msg to every leaf in leaves. Completion
	// is asynchronous, delivered later via IReplyHandler.HandleReply on
	// whichever node the reply belongs to.
	Send(msg *Message, leaves []*RoutingNode)

	// Mirror returns the name-service mirror accessor, exposed to policies
	// via RoutingContext.Mirror.
	Mirror() IMirrorAPI
}

// IProtocol is the per-protocol routing-policy factory (spec §6).
// CreatePolicy returns nil for a name it does not recognize; the resolver
// turns that into an UnknownPolicy error.
type IProtocol interface {
	CreatePolicy(name, param string) IRoutingPolicy
}

// IRoutingPolicy is the interface routing policy implementations satisfy.
// Select is invoked once per resolution of the hop that names the policy;
// Merge is invoked once all children added during Select have replied.
// Both run on whatever thread triggered them and must not block on I/O
// (spec §5).
type IRoutingPolicy interface {
	Select(ctx *RoutingContext)
	Merge(ctx *RoutingContext)
}

// IReplyHandler receives the final Reply for a root RoutingNode's send.
type IReplyHandler interface {
	HandleReply(reply *Reply)
}

// IDiscardHandler is notified instead of IReplyHandler when a root node is
// discarded during shutdown (spec §7).
type IDiscardHandler interface {
	HandleDiscard(node *RoutingNode)
}

// IRetryPolicy is the retry predicate + backoff schedule consulted by
// Resender (spec §4.7).
type IRetryPolicy interface {
	CanRetry(code ErrorCode) bool
	Delay(attempt int) time.Duration
}
