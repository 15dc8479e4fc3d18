package event

import "testing"

func TestNewLogRoundTripsFields(t *testing.T) {
	e := NewLog()
	e.Insert("message", String("hi"))
	e.Insert("host", String("localhost"))

	v, ok := e.Get("message")
	if !ok {
		t.Fatalf("expected message present")
	}
	if s, _ := v.AsBytes(); string(s) != "hi" {
		t.Errorf("got %q, want hi", s)
	}
}

func TestNewMetricFields(t *testing.T) {
	e := NewMetric("requests_total", MetricIncremental, MetricValue{Kind: MetricCounter, Value: 3})
	m, ok := e.AsMetric()
	if !ok {
		t.Fatalf("expected Metric kind")
	}
	if m.Name != "requests_total" || m.Kind != MetricIncremental {
		t.Errorf("unexpected metric: %+v", m)
	}
	if _, ok := e.AsLog(); ok {
		t.Fatalf("AsLog should miss on a Metric event")
	}
}

func TestEventInsertNoopOnMetric(t *testing.T) {
	e := NewMetric("m", MetricAbsolute, MetricValue{Kind: MetricGauge, Value: 1})
	e.Insert("a.b", Int64(1))
	if _, ok := e.Get("a.b"); ok {
		t.Fatalf("Insert/Get should be a no-op on a Metric event")
	}
}

func TestEventCloneAndEqual(t *testing.T) {
	a := NewLog()
	a.Insert("a", Int64(1))
	b := a.Clone()
	if !a.Equal(b) {
		t.Fatalf("clone should be equal to original")
	}
	b.Insert("a", Int64(2))
	if a.Equal(b) {
		t.Fatalf("mutating clone should not affect original's equality")
	}
}

func TestEventFinalizerAttachedNotPartOfEquality(t *testing.T) {
	a := NewLog()
	b := a.WithFinalizer(NewFinalizer(func(Status) {}))
	if !a.Equal(b) {
		t.Fatalf("finalizer attachment should not affect value equality")
	}
	if a.Finalizer() != nil {
		t.Fatalf("original should be unaffected by WithFinalizer")
	}
	if b.Finalizer() == nil {
		t.Fatalf("expected finalizer on b")
	}
}

func TestTraceMirrorsLogShape(t *testing.T) {
	tr := NewTrace()
	tr.Insert("span", String("root"))
	v, ok := tr.Get("span")
	if !ok {
		t.Fatalf("expected span present")
	}
	if s, _ := v.AsBytes(); string(s) != "root" {
		t.Errorf("got %q, want root", s)
	}
	if tr.Kind() != KindTrace {
		t.Errorf("expected KindTrace, got %v", tr.Kind())
	}
}
