// Package promtest checks the series gathered from a registry in tests.
package promtest

import (
	"sort"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Checker makes assertions about the metrics gathered from a
// prometheus.Gatherer, typically a *promregistry.Registry.
//
// Label values are given as alternating name/value pairs, the same way they
// are passed to go-kit's With.
type Checker struct {
	t testing.TB
	g prometheus.Gatherer
}

// New returns a Checker for g.
func New(t testing.TB, g prometheus.Gatherer) *Checker {
	return &Checker{t: t, g: g}
}

// CheckCounter checks that there is a counter data point with the name,
// labels and value provided.
func (c *Checker) CheckCounter(name string, v float64, labelValues ...string) {
	c.t.Helper()

	m := c.sample(name, dto.MetricType_COUNTER, labelValues...)
	if got := m.GetCounter().GetValue(); got != v {
		c.t.Fatalf("%s = %v, want %v", keyFor(name, labelValues...), got, v)
	}
}

// CheckGauge checks that there is a gauge data point with the name, labels
// and value provided.
func (c *Checker) CheckGauge(name string, v float64, labelValues ...string) {
	c.t.Helper()

	m := c.sample(name, dto.MetricType_GAUGE, labelValues...)
	if got := m.GetGauge().GetValue(); got != v {
		c.t.Fatalf("%s = %v, want %v", keyFor(name, labelValues...), got, v)
	}
}

// CheckObservationCount checks that the histogram or summary data point with
// the name and labels provided holds n observations.
func (c *Checker) CheckObservationCount(name string, n uint64, labelValues ...string) {
	c.t.Helper()

	count, _ := c.observations(name, labelValues...)
	if count != n {
		c.t.Fatalf("count(%s) = %v, want %v", keyFor(name, labelValues...), count, n)
	}
}

// CheckObservationSum checks that the observations of the histogram or
// summary data point with the name and labels provided add up to sum.
func (c *Checker) CheckObservationSum(name string, sum float64, labelValues ...string) {
	c.t.Helper()

	_, got := c.observations(name, labelValues...)
	if got != sum {
		c.t.Fatalf("sum(%s) = %v, want %v", keyFor(name, labelValues...), got, sum)
	}
}

// CheckSampleCount checks that the family with the name provided exists and
// holds n data points.
func (c *Checker) CheckSampleCount(name string, n int) {
	c.t.Helper()

	mf := c.family(name)
	if got := len(mf.GetMetric()); got != n {
		c.t.Fatalf("len(%s) = %d, want %d", name, got, n)
	}
}

// CheckNoSeries checks that nothing named name is registered.
func (c *Checker) CheckNoSeries(name string) {
	c.t.Helper()

	for _, mf := range c.gather() {
		if mf.GetName() == name {
			c.t.Fatalf("a series named %s was found", name)
		}
	}
}

// CheckNoSample checks that there is no data point with the name and labels
// provided. The series itself may exist.
func (c *Checker) CheckNoSample(name string, labelValues ...string) {
	c.t.Helper()

	for _, mf := range c.gather() {
		if mf.GetName() != name {
			continue
		}
		if m := find(mf, labelValues...); m != nil {
			c.t.Fatalf("a data point %s was found", keyFor(name, labelValues...))
		}
	}
}

func (c *Checker) observations(name string, labelValues ...string) (uint64, float64) {
	c.t.Helper()

	mf := c.family(name)
	switch mf.GetType() {
	case dto.MetricType_HISTOGRAM, dto.MetricType_SUMMARY:
	default:
		c.t.Fatalf("%s is a %s, want a histogram or summary", name, mf.GetType())
	}

	m := c.sample(name, mf.GetType(), labelValues...)
	if h := m.GetHistogram(); h != nil {
		return h.GetSampleCount(), h.GetSampleSum()
	}
	s := m.GetSummary()
	return s.GetSampleCount(), s.GetSampleSum()
}

func (c *Checker) sample(name string, typ dto.MetricType, labelValues ...string) *dto.Metric {
	c.t.Helper()

	mf := c.family(name)
	if mf.GetType() != typ {
		c.t.Fatalf("%s is a %s, want a %s", name, mf.GetType(), typ)
	}

	m := find(mf, labelValues...)
	if m == nil {
		keys := make([]string, 0, len(mf.GetMetric()))
		for _, m := range mf.GetMetric() {
			keys = append(keys, keyFor(name, pairs(m)...))
		}
		available := strings.Join(keys, "\n")
		c.t.Fatalf("no data point %s out of available data points: \n%s", keyFor(name, labelValues...), available)
	}
	return m
}

func (c *Checker) family(name string) *dto.MetricFamily {
	c.t.Helper()

	mfs := c.gather()
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}

	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	c.t.Fatalf("no series named %s out of available series: \n%s", name, strings.Join(names, "\n"))
	return nil
}

func (c *Checker) gather() []*dto.MetricFamily {
	c.t.Helper()

	mfs, err := c.g.Gather()
	if err != nil {
		c.t.Fatalf("gathering: %v", err)
	}
	return mfs
}

// find returns the data point of mf whose labels are exactly labelValues.
func find(mf *dto.MetricFamily, labelValues ...string) *dto.Metric {
	want := keyFor("", labelValues...)
	for _, m := range mf.GetMetric() {
		if keyFor("", pairs(m)...) == want {
			return m
		}
	}
	return nil
}

func pairs(m *dto.Metric) []string {
	lvs := make([]string, 0, 2*len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		lvs = append(lvs, lp.GetName(), lp.GetValue())
	}
	return lvs
}

// keyFor renders labels the way they are keyed in tests, sorted by label
// name: name{a:1,b:2}.
func keyFor(name string, labelValues ...string) string {
	kvs := make([]string, 0, len(labelValues)/2)
	for i := 0; i+1 < len(labelValues); i += 2 {
		kvs = append(kvs, labelValues[i]+":"+labelValues[i+1])
	}
	sort.Strings(kvs)
	return name + "{" + strings.Join(kvs, ",") + "}"
}
