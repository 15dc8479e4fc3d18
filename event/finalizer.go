package event

import "sync/atomic"

// Status is the delivery outcome reported back to a producer through a
// Finalizer.
type Status uint8

const (
	// StatusDelivered indicates the event reached its sink successfully.
	StatusDelivered Status = iota
	// StatusErrored indicates the sink failed to deliver the event and it
	// should be considered lost for accounting purposes, though it may
	// still be retried by the buffer under at-least-once semantics.
	StatusErrored
	// StatusRejected indicates the event was refused before delivery was
	// attempted (e.g. malformed, too large).
	StatusRejected
)

// merge combines two outcomes: Errored dominates Rejected dominates
// Delivered, so any failure anywhere in a batch marks the whole batch
// accordingly.
func (s Status) merge(other Status) Status {
	if s == StatusErrored || other == StatusErrored {
		return StatusErrored
	}
	if s == StatusRejected || other == StatusRejected {
		return StatusRejected
	}
	return StatusDelivered
}

// Finalizer is the opaque per-Event handle through which delivery status
// flows back to producers. A root Finalizer created by NewFinalizer is a
// leaf: exactly one Update call resolves it. NewBatchFinalizer instead
// creates a tree: N child handles, one per batched Event, whose statuses
// dominance-merge into the parent's once every child has reported.
//
// Grounded on vector's EventFinalizer / BatchNotifier design described in
// src/event and exercised indirectly by the topology's ready-array
// batching (src/topology/ready_arrays.rs).
type Finalizer struct {
	pending      atomic.Int64
	status       atomic.Uint32
	onUpdate     func(Status)
	parentUpdate func(Status)
}

// NewFinalizer returns a leaf finalizer for a single, unbatched Event.
// Exactly one call to Update resolves it.
func NewFinalizer(onUpdate func(Status)) *Finalizer {
	f := &Finalizer{onUpdate: onUpdate}
	f.pending.Store(1)
	return f
}

// NewBatchFinalizer returns a root finalizer for a batch of n Events, along
// with one child Finalizer per batch member. onUpdate fires once every
// child has been resolved, with the dominance-merged status of the batch.
func NewBatchFinalizer(n int, onUpdate func(Status)) (*Finalizer, []*Finalizer) {
	root := &Finalizer{onUpdate: onUpdate}
	root.pending.Store(int64(n))
	children := make([]*Finalizer, n)
	for i := range children {
		children[i] = &Finalizer{parentUpdate: root.childReported}
	}
	return root, children
}

// childReported merges status into f's status by dominance and, once f's
// pending count reaches zero, fires onUpdate with the merged status. Batch
// children reach it through their parentUpdate; a leaf calls it directly.
func (f *Finalizer) childReported(status Status) {
	for {
		cur := Status(f.status.Load())
		merged := cur.merge(status)
		if f.status.CompareAndSwap(uint32(cur), uint32(merged)) {
			break
		}
	}
	if f.pending.Add(-1) == 0 && f.onUpdate != nil {
		f.onUpdate(Status(f.status.Load()))
	}
}

// Update records this finalizer's outcome. For a leaf finalizer this
// resolves it immediately; for a batch child it reports into the shared
// root, which resolves once all siblings have reported.
func (f *Finalizer) Update(status Status) {
	if f.parentUpdate != nil {
		f.parentUpdate(status)
		return
	}
	f.childReported(status)
}
