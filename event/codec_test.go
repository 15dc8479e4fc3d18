package event

import (
	"testing"
	"time"
)

func TestCodecRoundTripLog(t *testing.T) {
	e := NewLog()
	e.Insert("message", String("hello world"))
	e.Insert("host", String("box-1"))
	e.Insert("count", Int64(-42))
	e.Insert("ratio", Float64(0.5))
	e.Insert("flag", Bool(true))
	e.Insert("ts", Timestamp(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))
	e.Insert("tags[0]", String("a"))
	e.Insert("tags[1]", String("b"))
	e.Insert("meta.nested.deep", Int64(9))

	data, err := e.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var got Event
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}

	if !e.Equal(got) {
		t.Fatalf("round trip mismatch:\n  want %+v\n  got  %+v", e, got)
	}
}

func TestCodecRoundTripTrace(t *testing.T) {
	e := NewTrace()
	e.Insert("span_id", Int64(123))
	data, err := e.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var got Event
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got.Kind() != KindTrace {
		t.Fatalf("expected KindTrace, got %v", got.Kind())
	}
	if !e.Equal(got) {
		t.Fatalf("round trip mismatch")
	}
}

func TestCodecRoundTripMetricCounter(t *testing.T) {
	e := NewMetric("http_requests", MetricIncremental, MetricValue{Kind: MetricCounter, Value: 7})
	m, _ := e.AsMetric()
	m.Tags["method"] = "GET"
	m.Tags["status"] = "200"

	data, err := e.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var got Event
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !e.Equal(got) {
		t.Fatalf("round trip mismatch:\n  want %+v\n  got  %+v", e, got)
	}
}

func TestCodecRoundTripMetricHistogram(t *testing.T) {
	e := NewMetric("latency_seconds", MetricAbsolute, MetricValue{
		Kind:  MetricAggregatedHistogram,
		Count: 10,
		Sum:   12.5,
		Buckets: []HistogramBucket{
			{UpperLimit: 0.1, Count: 3},
			{UpperLimit: 1.0, Count: 7},
		},
	})

	data, err := e.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var got Event
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !e.Equal(got) {
		t.Fatalf("round trip mismatch:\n  want %+v\n  got  %+v", e, got)
	}
}

func TestCodecRoundTripMetricDistribution(t *testing.T) {
	e := NewMetric("response_size", MetricIncremental, MetricValue{
		Kind: MetricDistribution,
		Samples: []DistributionSample{
			{Value: 1.5, Weight: 2},
			{Value: 3.0, Weight: 1},
		},
	})

	data, err := e.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var got Event
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !e.Equal(got) {
		t.Fatalf("round trip mismatch:\n  want %+v\n  got  %+v", e, got)
	}
}

func TestCodecMalformedInput(t *testing.T) {
	var e Event
	if err := e.UnmarshalBinary(nil); err != ErrMalformed {
		t.Fatalf("expected ErrMalformed on empty input, got %v", err)
	}
	if err := e.UnmarshalBinary([]byte{0xFF}); err != ErrMalformed {
		t.Fatalf("expected ErrMalformed on unknown kind tag, got %v", err)
	}
}
