package event

import (
	"errors"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/driftloom/evbuf/internal/encoding"
)

// ErrMalformed indicates a byte sequence that does not parse as a valid
// Event encoding.
var ErrMalformed = errors.New("event: malformed encoding")

// value type tags, stored as a single byte preceding each encoded Value.
const (
	tagNull byte = iota
	tagBool
	tagInt64
	tagFloat64
	tagBytes
	tagTimestamp
	tagArray
	tagMap
)

// event kind tags.
const (
	tagKindLog byte = iota
	tagKindMetric
	tagKindTrace
)

// metric kind/value tags mirror the Kind/MetricValueKind enums directly.

// MarshalBinary encodes e deterministically. The encoding is self-describing
// (every value carries its own type tag) and round-trips by Event equality
// regardless of the concrete Go representation on the far end.
//
// It uses a hand-rolled tag+length framing built on internal/encoding's
// varint and length-prefixed-slice helpers rather than encoding/gob, since
// gob drops event.Value's unexported fields.
func (e Event) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 64)
	switch e.kind {
	case KindLog:
		buf = append(buf, tagKindLog)
		buf = encodeLogFields(buf, e.log)
	case KindTrace:
		buf = append(buf, tagKindTrace)
		buf = encodeLogFields(buf, e.trace)
	case KindMetric:
		buf = append(buf, tagKindMetric)
		buf = encodeMetric(buf, e.metric)
	default:
		return nil, ErrMalformed
	}
	return buf, nil
}

// UnmarshalBinary decodes e from data produced by MarshalBinary.
func (e *Event) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return ErrMalformed
	}
	s := encoding.NewSlice(data[1:])
	switch data[0] {
	case tagKindLog:
		fields, err := decodeLogFields(s)
		if err != nil {
			return err
		}
		*e = Event{kind: KindLog, log: fields}
	case tagKindTrace:
		fields, err := decodeLogFields(s)
		if err != nil {
			return err
		}
		*e = Event{kind: KindTrace, trace: fields}
	case tagKindMetric:
		m, err := decodeMetric(s)
		if err != nil {
			return err
		}
		*e = Event{kind: KindMetric, metric: m}
	default:
		return ErrMalformed
	}
	return nil
}

func encodeLogFields(buf []byte, l LogEvent) []byte {
	buf = encoding.AppendVarint32(buf, uint32(len(l.fields)))
	for _, k := range slices.Sorted(maps.Keys(l.fields)) {
		buf = encoding.AppendLengthPrefixedSlice(buf, []byte(k))
		buf = encodeValue(buf, l.fields[k])
	}
	return buf
}

func decodeLogFields(s *encoding.Slice) (LogEvent, error) {
	n, ok := s.GetVarint32()
	if !ok {
		return LogEvent{}, ErrMalformed
	}
	l := newLogFields()
	for i := uint32(0); i < n; i++ {
		keyB, ok := s.GetLengthPrefixedSlice()
		if !ok {
			return LogEvent{}, ErrMalformed
		}
		v, err := decodeValue(s)
		if err != nil {
			return LogEvent{}, err
		}
		l.fields[string(keyB)] = v
	}
	return l, nil
}

func encodeValue(buf []byte, v Value) []byte {
	switch v.kind {
	case ValueNull:
		return append(buf, tagNull)
	case ValueBool:
		b := byte(0)
		if v.b {
			b = 1
		}
		return append(buf, tagBool, b)
	case ValueInt64:
		buf = append(buf, tagInt64)
		return encoding.AppendVarsignedint64(buf, v.i)
	case ValueFloat64:
		buf = append(buf, tagFloat64)
		return encoding.AppendFixed64(buf, math.Float64bits(v.f))
	case ValueBytes:
		buf = append(buf, tagBytes)
		return encoding.AppendLengthPrefixedSlice(buf, v.bytes)
	case ValueTimestamp:
		buf = append(buf, tagTimestamp)
		return encoding.AppendVarsignedint64(buf, v.t.UnixNano())
	case ValueArray:
		buf = append(buf, tagArray)
		buf = encoding.AppendVarint32(buf, uint32(len(v.arr)))
		for _, e := range v.arr {
			buf = encodeValue(buf, e)
		}
		return buf
	case ValueMap:
		buf = append(buf, tagMap)
		buf = encoding.AppendVarint32(buf, uint32(len(v.m)))
		for _, k := range slices.Sorted(maps.Keys(v.m)) {
			buf = encoding.AppendLengthPrefixedSlice(buf, []byte(k))
			buf = encodeValue(buf, v.m[k])
		}
		return buf
	default:
		return append(buf, tagNull)
	}
}

func decodeValue(s *encoding.Slice) (Value, error) {
	tagB, ok := s.GetBytes(1)
	if !ok {
		return Value{}, ErrMalformed
	}
	switch tagB[0] {
	case tagNull:
		return Null(), nil
	case tagBool:
		b, ok := s.GetBytes(1)
		if !ok {
			return Value{}, ErrMalformed
		}
		return Bool(b[0] != 0), nil
	case tagInt64:
		i, ok := s.GetVarsignedint64()
		if !ok {
			return Value{}, ErrMalformed
		}
		return Int64(i), nil
	case tagFloat64:
		bits, ok := s.GetFixed64()
		if !ok {
			return Value{}, ErrMalformed
		}
		return Float64(math.Float64frombits(bits)), nil
	case tagBytes:
		b, ok := s.GetLengthPrefixedSlice()
		if !ok {
			return Value{}, ErrMalformed
		}
		return Bytes(b), nil
	case tagTimestamp:
		ns, ok := s.GetVarsignedint64()
		if !ok {
			return Value{}, ErrMalformed
		}
		return Timestamp(time.Unix(0, ns).UTC()), nil
	case tagArray:
		n, ok := s.GetVarint32()
		if !ok {
			return Value{}, ErrMalformed
		}
		arr := make([]Value, n)
		for i := range arr {
			v, err := decodeValue(s)
			if err != nil {
				return Value{}, err
			}
			arr[i] = v
		}
		return Value{kind: ValueArray, arr: arr}, nil
	case tagMap:
		n, ok := s.GetVarint32()
		if !ok {
			return Value{}, ErrMalformed
		}
		m := make(map[string]Value, n)
		for i := uint32(0); i < n; i++ {
			keyB, ok := s.GetLengthPrefixedSlice()
			if !ok {
				return Value{}, ErrMalformed
			}
			v, err := decodeValue(s)
			if err != nil {
				return Value{}, err
			}
			m[string(keyB)] = v
		}
		return Value{kind: ValueMap, m: m}, nil
	default:
		return Value{}, ErrMalformed
	}
}

func encodeMetric(buf []byte, m Metric) []byte {
	buf = encoding.AppendLengthPrefixedSlice(buf, []byte(m.Name))
	buf = append(buf, byte(m.Kind))
	buf = encoding.AppendVarint32(buf, uint32(len(m.Tags)))
	for _, k := range slices.Sorted(maps.Keys(m.Tags)) {
		buf = encoding.AppendLengthPrefixedSlice(buf, []byte(k))
		buf = encoding.AppendLengthPrefixedSlice(buf, []byte(m.Tags[k]))
	}
	buf = append(buf, byte(m.Value.Kind))
	buf = encoding.AppendFixed64(buf, math.Float64bits(m.Value.Value))
	buf = encoding.AppendVarint32(buf, uint32(len(m.Value.Values)))
	for _, s := range m.Value.Values {
		buf = encoding.AppendLengthPrefixedSlice(buf, []byte(s))
	}
	buf = encoding.AppendVarint32(buf, uint32(len(m.Value.Samples)))
	for _, sm := range m.Value.Samples {
		buf = encoding.AppendFixed64(buf, math.Float64bits(sm.Value))
		buf = encoding.AppendFixed32(buf, sm.Weight)
	}
	buf = encoding.AppendFixed64(buf, m.Value.Count)
	buf = encoding.AppendFixed64(buf, math.Float64bits(m.Value.Sum))
	buf = encoding.AppendVarint32(buf, uint32(len(m.Value.Buckets)))
	for _, b := range m.Value.Buckets {
		buf = encoding.AppendFixed64(buf, math.Float64bits(b.UpperLimit))
		buf = encoding.AppendFixed64(buf, b.Count)
	}
	buf = encoding.AppendVarint32(buf, uint32(len(m.Value.Quantiles)))
	for _, q := range m.Value.Quantiles {
		buf = encoding.AppendFixed64(buf, math.Float64bits(q.Quantile))
		buf = encoding.AppendFixed64(buf, math.Float64bits(q.Value))
	}
	return buf
}

func decodeMetric(s *encoding.Slice) (Metric, error) {
	var m Metric
	nameB, ok := s.GetLengthPrefixedSlice()
	if !ok {
		return m, ErrMalformed
	}
	m.Name = string(nameB)
	kindB, ok := s.GetBytes(1)
	if !ok {
		return m, ErrMalformed
	}
	m.Kind = MetricKind(kindB[0])

	nTags, ok := s.GetVarint32()
	if !ok {
		return m, ErrMalformed
	}
	m.Tags = make(map[string]string, nTags)
	for i := uint32(0); i < nTags; i++ {
		kB, ok := s.GetLengthPrefixedSlice()
		if !ok {
			return m, ErrMalformed
		}
		vB, ok := s.GetLengthPrefixedSlice()
		if !ok {
			return m, ErrMalformed
		}
		m.Tags[string(kB)] = string(vB)
	}

	vKindB, ok := s.GetBytes(1)
	if !ok {
		return m, ErrMalformed
	}
	m.Value.Kind = MetricValueKind(vKindB[0])
	valBits, ok := s.GetFixed64()
	if !ok {
		return m, ErrMalformed
	}
	m.Value.Value = math.Float64frombits(valBits)

	nValues, ok := s.GetVarint32()
	if !ok {
		return m, ErrMalformed
	}
	m.Value.Values = make([]string, nValues)
	for i := range m.Value.Values {
		vB, ok := s.GetLengthPrefixedSlice()
		if !ok {
			return m, ErrMalformed
		}
		m.Value.Values[i] = string(vB)
	}

	nSamples, ok := s.GetVarint32()
	if !ok {
		return m, ErrMalformed
	}
	m.Value.Samples = make([]DistributionSample, nSamples)
	for i := range m.Value.Samples {
		vb, ok := s.GetFixed64()
		if !ok {
			return m, ErrMalformed
		}
		w, ok := s.GetFixed32()
		if !ok {
			return m, ErrMalformed
		}
		m.Value.Samples[i] = DistributionSample{Value: math.Float64frombits(vb), Weight: w}
	}

	count, ok := s.GetFixed64()
	if !ok {
		return m, ErrMalformed
	}
	m.Value.Count = count
	sumBits, ok := s.GetFixed64()
	if !ok {
		return m, ErrMalformed
	}
	m.Value.Sum = math.Float64frombits(sumBits)

	nBuckets, ok := s.GetVarint32()
	if !ok {
		return m, ErrMalformed
	}
	m.Value.Buckets = make([]HistogramBucket, nBuckets)
	for i := range m.Value.Buckets {
		ub, ok := s.GetFixed64()
		if !ok {
			return m, ErrMalformed
		}
		c, ok := s.GetFixed64()
		if !ok {
			return m, ErrMalformed
		}
		m.Value.Buckets[i] = HistogramBucket{UpperLimit: math.Float64frombits(ub), Count: c}
	}

	nQuantiles, ok := s.GetVarint32()
	if !ok {
		return m, ErrMalformed
	}
	m.Value.Quantiles = make([]SummaryQuantile, nQuantiles)
	for i := range m.Value.Quantiles {
		qb, ok := s.GetFixed64()
		if !ok {
			return m, ErrMalformed
		}
		vb, ok := s.GetFixed64()
		if !ok {
			return m, ErrMalformed
		}
		m.Value.Quantiles[i] = SummaryQuantile{Quantile: math.Float64frombits(qb), Value: math.Float64frombits(vb)}
	}

	return m, nil
}
