package mbus

import (
	"container/heap"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shirou/gopsutil/mem"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"

	"github.com/vespaext/mbus/log"
)

// resendItem is one scheduled retry: a node waiting for its computed delay
// to elapse before re-entering resolve (spec §4.7).
type resendItem struct {
	node    *RoutingNode
	dueAt   time.Time
	seq     uint64 // insertion order, breaks ties between equal dueAt
	heapIdx int
}

// resendQueue is a time-ordered min-heap of resendItem, keyed by dueAt,
// container/heap being the natural stdlib fit for a priority queue with no
// ecosystem alternative in the example pack (see DESIGN.md).
type resendQueue []*resendItem

func (q resendQueue) Len() int { return len(q) }
func (q resendQueue) Less(i, j int) bool {
	if q[i].dueAt.Equal(q[j].dueAt) {
		return q[i].seq < q[j].seq
	}
	return q[i].dueAt.Before(q[j].dueAt)
}
func (q resendQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].heapIdx, q[j].heapIdx = i, j
}
func (q *resendQueue) Push(x interface{}) {
	item := x.(*resendItem)
	item.heapIdx = len(*q)
	*q = append(*q, item)
}
func (q *resendQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Resender owns the time-ordered retry queue a RoutingNode is handed to by
// prepareForRetry (spec §4.7). ResendScheduled must be driven periodically
// (e.g. from a timer goroutine) to pop due items and re-run resolve on
// them; Resender does not start its own goroutine, matching the explicit
// external-driving model described for the heartbeat/timer thread in spec
// §5.
type Resender struct {
	mu       sync.Mutex
	queue    resendQueue
	nextSeq  uint64
	delays   []float64 // observed retry delays, for DelayPercentile
	closed   bool
	durable  *bolt.DB
	durables []byte // bucket name, cached
}

// NewResender returns an empty Resender. db may be nil, in which case
// the queue is kept purely in memory; a non-nil db additionally gets a
// best-effort record of each scheduled retry, written by ScheduleRetry and
// deleted by ResendScheduled, which nothing reads back (spec §7's non-goal
// is about never persisting an in-flight message's body — each record holds
// only the entry's insertion sequence number and due time, never
// Message.Payload; see DESIGN.md).
func NewResender(db *bolt.DB) (*Resender, error) {
	r := &Resender{durable: db, durables: []byte("mbus-resend-schedule")}
	if db != nil {
		err := db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(r.durables)
			return err
		})
		if err != nil {
			return nil, xerrors.Errorf("creating resend-schedule bucket: %w", err)
		}
	}
	return r, nil
}

// ScheduleRetry enqueues node to be re-resolved once delay has elapsed.
func (r *Resender) ScheduleRetry(node *RoutingNode, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		log.Lvl2("resender closed, discarding", node.ID().String())
		node.notifyAbort()
		if root := node.root(); root.discardHandler != nil {
			root.discardHandler.HandleDiscard(root)
		}
		return
	}
	item := &resendItem{node: node, dueAt: time.Now().Add(delay), seq: r.nextSeq}
	r.nextSeq++
	heap.Push(&r.queue, item)
	r.delays = append(r.delays, delay.Seconds())
	r.spill(item)
}

// spill best-effort persists the schedule entry for item; failures are
// swallowed since the queue is authoritative and durability here is purely
// advisory bookkeeping for operator tooling, not correctness.
func (r *Resender) spill(item *resendItem) {
	if r.durable == nil {
		return
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, item.seq)
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, uint64(item.dueAt.UnixNano()))
	_ = r.durable.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(r.durables).Put(key, val)
	})
}

func (r *Resender) unspill(item *resendItem) {
	if r.durable == nil {
		return
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, item.seq)
	_ = r.durable.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(r.durables).Delete(key)
	})
}

// ResendScheduled pops every item due at or before now and re-runs resolve
// on its node, returning how many were resent. Callers drive this from
// whatever timer thread they use; mbus itself owns no goroutines (spec
// §5).
func (r *Resender) ResendScheduled(now time.Time) int {
	var due []*resendItem
	r.mu.Lock()
	for r.queue.Len() > 0 && !r.queue[0].dueAt.After(now) {
		item := heap.Pop(&r.queue).(*resendItem)
		due = append(due, item)
	}
	r.mu.Unlock()

	if len(due) > 0 {
		r.annotateHostLoad(due[0].node)
	}
	for _, item := range due {
		r.unspill(item)
		node := item.node
		node.resolve(0)
		if node.parent != nil || node.reply != nil {
			// Either a child (never scheduled directly; defensive) or the
			// retry already failed/finished synchronously and maybeFinish
			// delivered it from within resolve's notifyParent cascade.
			continue
		}
		if node.anyUnconsumedErrors() {
			node.notifyAbort()
			node.SetError(SendAborted, "Errors found while resolving route.")
			if node.replyHandler != nil {
				node.replyHandler.HandleReply(node.reply)
			}
			continue
		}
		if len(node.leaves) > 0 {
			node.network.Send(node.message, node.leaves)
			node.leaves = nil
		}
	}
	return len(due)
}

// annotateHostLoad samples process host memory via gopsutil and records it
// on node's trace at SplitMerge level, so an operator looking at a retry
// storm's trace can correlate it with host memory pressure (spec §5's
// heartbeat thread is the only caller of ResendScheduled, so this sampling
// happens at most once per heartbeat tick, not once per resent node).
func (r *Resender) annotateHostLoad(node *RoutingNode) {
	if node.trace == nil || !node.trace.Enabled() {
		return
	}
	v, err := mem.VirtualMemory()
	if err != nil {
		log.Lvl3("sampling host memory for trace annotation:", err)
		return
	}
	node.trace.Add(SplitMerge, fmt.Sprintf("host memory at retry: %.1f%% used", v.UsedPercent))
}

// Pending returns the number of retries currently scheduled.
func (r *Resender) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue.Len()
}

// DelayPercentile returns the p-th percentile (0-100) of every retry delay
// ScheduleRetry has ever observed, using montanaflynn/stats. Exposed for
// operator diagnostics (diagserver); returns 0 if no retries occurred yet.
func (r *Resender) DelayPercentile(p float64) (float64, error) {
	r.mu.Lock()
	sample := append([]float64(nil), r.delays...)
	r.mu.Unlock()
	if len(sample) == 0 {
		return 0, nil
	}
	v, err := stats.Percentile(sample, p)
	if err != nil {
		return 0, xerrors.Errorf("computing retry delay percentile: %w", err)
	}
	return v, nil
}

// Close discards every still-queued node via notifyAbort, as if Discard
// had been called on each (spec §7's shutdown behavior), and closes the
// durable store if one was given.
func (r *Resender) Close() error {
	r.mu.Lock()
	items := []*resendItem(r.queue)
	r.queue = nil
	r.closed = true
	db := r.durable
	r.mu.Unlock()
	log.Lvl1("closing resender,", len(items), "retries discarded")

	for _, item := range items {
		item.node.notifyAbort()
		if item.node.discardHandler != nil {
			item.node.discardHandler.HandleDiscard(item.node)
		}
	}
	if db != nil {
		return db.Close()
	}
	return nil
}
