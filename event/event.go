package event

// Schema holds the configurable reserved field keys used by Log events:
// the message key and the timestamp key (spec §3: "Two reserved keys
// exist by convention: a message key and a timestamp key, both
// configurable").
type Schema struct {
	MessageKey   string
	TimestampKey string
}

// DefaultSchema mirrors vector's default log schema keys.
var DefaultSchema = Schema{MessageKey: "message", TimestampKey: "timestamp"}

// Event is the discriminated union exchanged through the pipeline: a Log,
// Metric, or Trace. Exactly one of the Log/Metric/Trace accessors is valid
// for a given Kind.
type Event struct {
	kind   Kind
	log    LogEvent
	metric Metric
	trace  LogEvent

	finalizer *Finalizer
}

// NewLog returns a new, empty Log event.
func NewLog() Event {
	return Event{kind: KindLog, log: newLogFields()}
}

// NewMetric returns a new Metric event with the given name, kind, and value.
func NewMetric(name string, kind MetricKind, value MetricValue) Event {
	return Event{kind: KindMetric, metric: Metric{Name: name, Kind: kind, Tags: map[string]string{}, Value: value}}
}

// NewTrace returns a new, empty Trace event.
func NewTrace() Event {
	return Event{kind: KindTrace, trace: newLogFields()}
}

// Kind reports which variant e holds.
func (e Event) Kind() Kind { return e.kind }

// AsLog returns the Log field map and true if e is a Log event.
func (e *Event) AsLog() (*LogEvent, bool) {
	if e.kind != KindLog {
		return nil, false
	}
	return &e.log, true
}

// AsTrace returns the Trace field map and true if e is a Trace event.
func (e *Event) AsTrace() (*LogEvent, bool) {
	if e.kind != KindTrace {
		return nil, false
	}
	return &e.trace, true
}

// AsMetric returns the Metric and true if e is a Metric event.
func (e *Event) AsMetric() (*Metric, bool) {
	if e.kind != KindMetric {
		return nil, false
	}
	return &e.metric, true
}

// Insert sets a field on a Log or Trace event; it is a no-op on a Metric.
func (e *Event) Insert(path string, v Value) {
	switch e.kind {
	case KindLog:
		e.log.Insert(path, v)
	case KindTrace:
		e.trace.Insert(path, v)
	}
}

// Get reads a field from a Log or Trace event; it always misses on a Metric.
func (e Event) Get(path string) (Value, bool) {
	switch e.kind {
	case KindLog:
		return e.log.Get(path)
	case KindTrace:
		return e.trace.Get(path)
	default:
		return Value{}, false
	}
}

// Remove deletes a field from a Log or Trace event; it is a no-op on a Metric.
func (e *Event) Remove(path string) {
	switch e.kind {
	case KindLog:
		e.log.Remove(path)
	case KindTrace:
		e.trace.Remove(path)
	}
}

// AllFields enumerates a Log or Trace event's leaf fields; it returns nil
// for a Metric.
func (e Event) AllFields() []FieldPair {
	switch e.kind {
	case KindLog:
		return e.log.AllFields()
	case KindTrace:
		return e.trace.AllFields()
	default:
		return nil
	}
}

// Finalizer returns the event's finalizer handle, or nil if none was
// attached.
func (e Event) Finalizer() *Finalizer { return e.finalizer }

// WithFinalizer returns a copy of e carrying the given finalizer.
func (e Event) WithFinalizer(f *Finalizer) Event {
	e.finalizer = f
	return e
}

// Clone returns a deep copy of e. The finalizer reference, if any, is
// shared (finalizers are handles, not data).
func (e Event) Clone() Event {
	cp := Event{kind: e.kind, finalizer: e.finalizer}
	switch e.kind {
	case KindLog:
		cp.log = e.log.Clone()
	case KindTrace:
		cp.trace = e.trace.Clone()
	case KindMetric:
		cp.metric = e.metric.Clone()
	}
	return cp
}

// Equal reports whether e and other are value-equal. The finalizer is not
// part of value equality.
func (e Event) Equal(other Event) bool {
	if e.kind != other.kind {
		return false
	}
	switch e.kind {
	case KindLog:
		return e.log.Equal(other.log)
	case KindTrace:
		return e.trace.Equal(other.trace)
	case KindMetric:
		return e.metric.Equal(other.metric)
	default:
		return false
	}
}
