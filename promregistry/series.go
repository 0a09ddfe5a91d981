package promregistry

import (
	kitmetrics "github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// DefObjectives are the quantiles tracked by summaries registered without
// explicit Objectives.
var DefObjectives = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}

// Descriptor describes a series to register.
type Descriptor struct {
	Name string
	Help string

	// LabelNames are the ordered label names every observation must supply.
	LabelNames []string

	// Buckets are the upper bounds of a histogram's buckets. When empty
	// prometheus.DefBuckets is used. Ignored by other kinds.
	Buckets []float64

	// Objectives maps the quantiles of a summary to their absolute error.
	// When nil DefObjectives is used. Ignored by other kinds.
	Objectives map[float64]float64
}

// A Series is a registered metric of a single Kind.
//
// Observations are recorded through the go-kit metric returned by the
// accessor matching the Kind. Label values are passed to With as alternating
// name/value pairs, e.g. With("route", "/foo").
type Series struct {
	desc Descriptor
	kind Kind

	collector prometheus.Collector
	vec       *prometheus.MetricVec

	counter   kitmetrics.Counter
	gauge     kitmetrics.Gauge
	histogram kitmetrics.Histogram
}

func newSeries(d Descriptor, k Kind) *Series {
	d.LabelNames = append([]string(nil), d.LabelNames...)
	s := &Series{desc: d, kind: k}

	switch k {
	case Gauge:
		gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: d.Name,
			Help: d.Help,
		}, d.LabelNames)
		s.collector, s.vec = gv, gv.MetricVec
		s.gauge = kitprometheus.NewGauge(gv)
	case Counter:
		cv := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: d.Name,
			Help: d.Help,
		}, d.LabelNames)
		s.collector, s.vec = cv, cv.MetricVec
		s.counter = kitprometheus.NewCounter(cv)
	case Histogram:
		hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    d.Name,
			Help:    d.Help,
			Buckets: d.Buckets,
		}, d.LabelNames)
		s.collector, s.vec = hv, hv.MetricVec
		s.histogram = kitprometheus.NewHistogram(hv)
	case Summary:
		objectives := d.Objectives
		if objectives == nil {
			objectives = DefObjectives
		}
		sv := prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       d.Name,
			Help:       d.Help,
			Objectives: objectives,
		}, d.LabelNames)
		s.collector, s.vec = sv, sv.MetricVec
		s.histogram = kitprometheus.NewSummary(sv)
	}

	return s
}

// Name returns the series name.
func (s *Series) Name() string { return s.desc.Name }

// Help returns the series help string.
func (s *Series) Help() string { return s.desc.Help }

// Kind returns the series kind.
func (s *Series) Kind() Kind { return s.kind }

// LabelNames returns a copy of the series label names.
func (s *Series) LabelNames() []string {
	return append([]string(nil), s.desc.LabelNames...)
}

// Counter returns the series as a go-kit Counter. ok is false unless the
// series is a Counter.
func (s *Series) Counter() (c kitmetrics.Counter, ok bool) {
	return s.counter, s.counter != nil
}

// Gauge returns the series as a go-kit Gauge. ok is false unless the series
// is a Gauge.
func (s *Series) Gauge() (g kitmetrics.Gauge, ok bool) {
	return s.gauge, s.gauge != nil
}

// Histogram returns the series as a go-kit Histogram. Both Histogram and
// Summary series are observed through this interface; ok is false for the
// other kinds.
func (s *Series) Histogram() (h kitmetrics.Histogram, ok bool) {
	return s.histogram, s.histogram != nil
}

// zero creates the single data point of an unlabeled series so it is
// exposed with a zero value before anything is recorded.
func (s *Series) zero() {
	if len(s.desc.LabelNames) > 0 {
		return
	}
	_, _ = s.vec.GetMetricWithLabelValues()
}

func (s *Series) reset() {
	s.vec.Reset()
	s.zero()
}

// family describes the series without any data points.
func (s *Series) family() *dto.MetricFamily {
	name, help, typ := s.desc.Name, s.desc.Help, s.kind.metricType()
	return &dto.MetricFamily{
		Name: &name,
		Help: &help,
		Type: &typ,
	}
}
