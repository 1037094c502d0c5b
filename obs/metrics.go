package obs

import (
	"fmt"
	"sort"
)

// Label is a key/value pair attached to measurements.
type Label struct {
	Key   string
	Value string
}

// Meter is a very small interface for emitting counters/histograms.
// Implementations may no-op or bridge to a metrics system.
type Meter interface {
	Counter(name string, value float64, labels ...Label)
	Histogram(name string, value float64, labels ...Label)
}

// NopMeter is a Meter that discards all measurements.
type NopMeter struct{}

func (NopMeter) Counter(name string, value float64, labels ...Label)   {}
func (NopMeter) Histogram(name string, value float64, labels ...Label) {}

// MapMeter accumulates counters in memory, keyed by name plus sorted
// labels. It exists for tests and ad-hoc inspection; it is not safe for
// concurrent use.
type MapMeter struct {
	Counts map[string]float64
}

func (m *MapMeter) Counter(name string, value float64, labels ...Label) {
	if m.Counts == nil {
		m.Counts = make(map[string]float64)
	}
	m.Counts[metricKey(name, labels)] += value
}

func (m *MapMeter) Histogram(name string, value float64, labels ...Label) {
	// Histograms degrade to sums here; enough to assert activity.
	m.Counter(name, value, labels...)
}

func metricKey(name string, labels []Label) string {
	if len(labels) == 0 {
		return name
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s=%s", l.Key, l.Value)
	}
	sort.Strings(parts)
	key := name
	for _, p := range parts {
		key += "," + p
	}
	return key
}
