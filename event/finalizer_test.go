package event

import "testing"

func TestFinalizerLeafResolvesOnce(t *testing.T) {
	var got Status
	var calls int
	f := NewFinalizer(func(s Status) {
		calls++
		got = s
	})
	f.Update(StatusDelivered)
	if calls != 1 {
		t.Fatalf("onUpdate called %d times, want 1", calls)
	}
	if got != StatusDelivered {
		t.Fatalf("got %v, want StatusDelivered", got)
	}
}

func TestBatchFinalizerAggregatesDominantStatus(t *testing.T) {
	var got Status
	var calls int
	root, children := NewBatchFinalizer(3, func(s Status) {
		calls++
		got = s
	})
	_ = root

	children[0].Update(StatusDelivered)
	if calls != 0 {
		t.Fatalf("onUpdate fired early after 1/3 children reported")
	}
	children[1].Update(StatusErrored)
	children[2].Update(StatusDelivered)

	if calls != 1 {
		t.Fatalf("onUpdate called %d times, want 1", calls)
	}
	if got != StatusErrored {
		t.Fatalf("got %v, want StatusErrored to dominate", got)
	}
}

func TestBatchFinalizerAllDeliveredStaysDelivered(t *testing.T) {
	var got Status
	_, children := NewBatchFinalizer(2, func(s Status) {
		got = s
	})
	children[0].Update(StatusDelivered)
	children[1].Update(StatusDelivered)
	if got != StatusDelivered {
		t.Fatalf("got %v, want StatusDelivered", got)
	}
}

func TestStatusMergeDominance(t *testing.T) {
	if StatusDelivered.merge(StatusRejected) != StatusRejected {
		t.Fatalf("Rejected should dominate Delivered")
	}
	if StatusRejected.merge(StatusErrored) != StatusErrored {
		t.Fatalf("Errored should dominate Rejected")
	}
	if StatusErrored.merge(StatusDelivered) != StatusErrored {
		t.Fatalf("Errored should dominate Delivered")
	}
}
