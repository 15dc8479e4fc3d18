package event

// MetricKind distinguishes an absolute snapshot from an incremental delta.
type MetricKind uint8

const (
	MetricAbsolute MetricKind = iota
	MetricIncremental
)

// MetricValueKind identifies which shape of metric value is held.
type MetricValueKind uint8

const (
	MetricCounter MetricValueKind = iota
	MetricGauge
	MetricSet
	MetricDistribution
	MetricAggregatedHistogram
	MetricAggregatedSummary
)

// HistogramBucket is one bucket of an AggregatedHistogram.
type HistogramBucket struct {
	UpperLimit float64
	Count      uint64
}

// SummaryQuantile is one quantile entry of an AggregatedSummary.
type SummaryQuantile struct {
	Quantile float64
	Value    float64
}

// MetricValue is the value payload of a Metric event. Exactly one of the
// fields relevant to Kind is meaningful; the rest are zero.
//
// Spec §3: "value variant (Counter, Gauge, Set, Distribution,
// AggregatedHistogram{count,sum,buckets[]}, AggregatedSummary)".
type MetricValue struct {
	Kind MetricValueKind

	// Counter, Gauge
	Value float64

	// Set
	Values []string

	// Distribution: raw (value, weight) samples.
	Samples []DistributionSample

	// AggregatedHistogram
	Count   uint64
	Sum     float64
	Buckets []HistogramBucket

	// AggregatedSummary
	Quantiles []SummaryQuantile
}

// DistributionSample is one raw sample in a Distribution metric value.
type DistributionSample struct {
	Value  float64
	Weight uint32
}

// Clone returns a deep copy of v.
func (v MetricValue) Clone() MetricValue {
	cp := v
	cp.Values = append([]string(nil), v.Values...)
	cp.Samples = append([]DistributionSample(nil), v.Samples...)
	cp.Buckets = append([]HistogramBucket(nil), v.Buckets...)
	cp.Quantiles = append([]SummaryQuantile(nil), v.Quantiles...)
	return cp
}

// Equal reports whether v and other are value-equal.
func (v MetricValue) Equal(other MetricValue) bool {
	if v.Kind != other.Kind || v.Value != other.Value || v.Count != other.Count || v.Sum != other.Sum {
		return false
	}
	if len(v.Values) != len(other.Values) {
		return false
	}
	for i := range v.Values {
		if v.Values[i] != other.Values[i] {
			return false
		}
	}
	if len(v.Samples) != len(other.Samples) {
		return false
	}
	for i := range v.Samples {
		if v.Samples[i] != other.Samples[i] {
			return false
		}
	}
	if len(v.Buckets) != len(other.Buckets) {
		return false
	}
	for i := range v.Buckets {
		if v.Buckets[i] != other.Buckets[i] {
			return false
		}
	}
	if len(v.Quantiles) != len(other.Quantiles) {
		return false
	}
	for i := range v.Quantiles {
		if v.Quantiles[i] != other.Quantiles[i] {
			return false
		}
	}
	return true
}

// Metric is the metric Event variant: a name, kind, tag set, and value.
type Metric struct {
	Name  string
	Kind  MetricKind
	Tags  map[string]string
	Value MetricValue
}

func (m Metric) Clone() Metric {
	tags := make(map[string]string, len(m.Tags))
	for k, v := range m.Tags {
		tags[k] = v
	}
	return Metric{Name: m.Name, Kind: m.Kind, Tags: tags, Value: m.Value.Clone()}
}

func (m Metric) Equal(other Metric) bool {
	if m.Name != other.Name || m.Kind != other.Kind {
		return false
	}
	if len(m.Tags) != len(other.Tags) {
		return false
	}
	for k, v := range m.Tags {
		if other.Tags[k] != v {
			return false
		}
	}
	return m.Value.Equal(other.Value)
}
