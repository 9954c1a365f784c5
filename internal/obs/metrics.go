package obs

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
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

// PromMeter bridges Meter to prometheus. Vectors are created on first use of
// a name and registered with Registerer; the label keys seen on first use
// fix the vector's label set for that name.
type PromMeter struct {
	Registerer prometheus.Registerer
	Namespace  string

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPromMeter returns a PromMeter registering into reg (DefaultRegisterer if nil).
func NewPromMeter(reg prometheus.Registerer, namespace string) *PromMeter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PromMeter{
		Registerer: reg,
		Namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (m *PromMeter) Counter(name string, value float64, labels ...Label) {
	keys, vals := split(labels)
	m.mu.Lock()
	cv, ok := m.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Name:      name,
			Help:      helpFor(name),
		}, keys)
		if err := m.Registerer.Register(cv); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				cv, _ = are.ExistingCollector.(*prometheus.CounterVec)
			}
		}
		m.counters[name] = cv
	}
	m.mu.Unlock()
	if cv == nil {
		return
	}
	if c, err := cv.GetMetricWithLabelValues(vals...); err == nil {
		c.Add(value)
	}
}

func (m *PromMeter) Histogram(name string, value float64, labels ...Label) {
	keys, vals := split(labels)
	m.mu.Lock()
	hv, ok := m.histograms[name]
	if !ok {
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.Namespace,
			Name:      name,
			Help:      helpFor(name),
			Buckets:   prometheus.DefBuckets,
		}, keys)
		if err := m.Registerer.Register(hv); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				hv, _ = are.ExistingCollector.(*prometheus.HistogramVec)
			}
		}
		m.histograms[name] = hv
	}
	m.mu.Unlock()
	if hv == nil {
		return
	}
	if h, err := hv.GetMetricWithLabelValues(vals...); err == nil {
		h.Observe(value)
	}
}

// split orders labels by key so callers may pass them in any order.
func split(labels []Label) ([]string, []string) {
	ls := append([]Label(nil), labels...)
	sort.Slice(ls, func(i, j int) bool { return ls[i].Key < ls[j].Key })
	keys := make([]string, len(ls))
	vals := make([]string, len(ls))
	for i, l := range ls {
		keys[i] = l.Key
		vals[i] = l.Value
	}
	return keys, vals
}

func helpFor(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
