package buffer

import (
	"sync"

	"github.com/driftloom/evbuf/internal/ledger"
	"github.com/driftloom/evbuf/internal/testutil"
)

// deliveredItem records one Event handed to a consumer by Reader.Next,
// pending acknowledgement.
type deliveredItem struct {
	recordID uint64
	size     uint64
}

// deliveredQueue is the FIFO of delivered-but-unacked records shared
// between Reader (producer) and Acker (consumer). Acks are contiguous
// counts rather than per-id acks, so the hot path only needs a single
// counter add; this is backed by a mutex-guarded slice rather than a
// lock-free ring, since folding happens off the hot path.
type deliveredQueue struct {
	mu    sync.Mutex
	items []deliveredItem
}

func newDeliveredQueue() *deliveredQueue {
	return &deliveredQueue{}
}

func (q *deliveredQueue) push(recordID, size uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, deliveredItem{recordID: recordID, size: size})
}

// popN removes up to n items from the front of the queue and returns the
// id of the last one popped plus the total bytes freed. If fewer than n
// items are queued, all of them are popped; ok is false only when the
// queue is empty.
func (q *deliveredQueue) popN(n uint64) (lastID uint64, freedBytes uint64, popped uint64, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if uint64(len(q.items)) < n {
		n = uint64(len(q.items))
	}
	if n == 0 {
		return 0, 0, 0, false
	}

	for i := uint64(0); i < n; i++ {
		freedBytes += q.items[i].size
		lastID = q.items[i].recordID
	}
	q.items = q.items[n:]
	return lastID, freedBytes, n, true
}

// Acker is a cheap, clonable handle. AcknowledgeRecords adds to a pending
// counter; Fold (called after every acknowledgement here, though callers
// could batch it differently) drains the pending count from the
// delivered queue into the Ledger.
type Acker struct {
	l         *ledger.Ledger
	delivered *deliveredQueue
	w         *Writer

	mu      sync.Mutex // serialises Fold against itself
	pending pendingCounter
}

// pendingCounter is a plain counter guarded by Acker.mu; acks must be
// applied in order so a simple serialised add is enough (no need for a
// lock-free atomic here, since acknowledge_records is not the per-event
// hot path — the Reader's delivery path is).
type pendingCounter struct {
	n uint64
}

func newAcker(l *ledger.Ledger, delivered *deliveredQueue, w *Writer) *Acker {
	return &Acker{l: l, delivered: delivered, w: w}
}

// AcknowledgeRecords adds n to the pending ack counter. Out-of-order
// delivery confirmations from a sink must be serialised upstream before
// reaching the Acker; this call assumes n newly-confirmed records are the
// oldest n still-pending ones.
func (a *Acker) AcknowledgeRecords(n uint64) {
	_ = testutil.SP(testutil.SPAckerAcknowledge)
	a.mu.Lock()
	a.pending.n += n
	a.mu.Unlock()
	_ = testutil.SP(testutil.SPAckerAcknowledgeDone)

	// Folding on every call keeps the ledger's ack position and size
	// counters current, and wakes a blocked Writer, without a separate
	// background goroutine; callers that want to batch acks can call
	// AcknowledgeRecords less often instead.
	a.Fold()
}

// Fold drains as much of the pending counter as the delivered queue can
// satisfy into the Ledger, then wakes a Writer blocked under the Block
// overflow policy.
func (a *Acker) Fold() {
	a.mu.Lock()
	n := a.pending.n
	a.mu.Unlock()
	if n == 0 {
		return
	}

	testutil.MaybeKill(testutil.KPAckerFold0)
	_ = testutil.SP(testutil.SPAckerFoldIntoLedger)

	lastID, freedBytes, popped, ok := a.delivered.popN(n)
	if !ok {
		return
	}

	a.l.RecordAck(lastID, freedBytes, popped)

	a.mu.Lock()
	a.pending.n -= popped
	a.mu.Unlock()

	if a.w != nil {
		a.w.notifySpaceFreed()
	}
	_ = testutil.SP(testutil.SPAckerFoldIntoLedgerOK)
}
