package httpmetrics

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	kitmetrics "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/reqmetrics/x/clock"
	"github.com/reqmetrics/x/go-kit/metrics"
	"github.com/reqmetrics/x/promregistry"
)

// DefaultPath is the path the scrape Endpoint is conventionally mounted on.
// It is never recorded.
const DefaultPath = "/_metrics"

const faviconPath = "/favicon.ico"

// metric names
const (
	requestsName = "numOfRequests"
	errorsName   = "numOfErrors"
	durationName = "http_request_duration_ms"
)

// Options configure a Collector. The zero value records everything.
type Options struct {
	// Ignore lists paths whose requests are not recorded. Paths are matched
	// exactly against the request's URL path. DefaultPath and /favicon.ico
	// are always ignored.
	Ignore []string

	DisableRouteCounter    bool
	DisableErrorCounter    bool
	DisableDurationCounter bool

	// DisableDefaultMetrics leaves out the process and Go runtime metrics.
	DisableDefaultMetrics bool

	// UseRoutePattern labels requests with the chi route pattern that
	// matched them, e.g. /apps/{id}, instead of their path. Requests that did
	// not go through a chi router are labeled with their path.
	UseRoutePattern bool

	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger

	// Clock is used to time requests. It defaults to clock.Default.
	Clock clock.Clock
}

// A Collector records request metrics into its own registry and renders
// them for scraping. It is safe for concurrent use.
type Collector struct {
	reg             *promregistry.Registry
	logger          logrus.FieldLogger
	clock           clock.Clock
	ignore          map[string]struct{}
	useRoutePattern bool

	// Disabled series are discarding metrics, which makes recording into
	// them a no-op.
	requests kitmetrics.Counter
	errors   kitmetrics.Counter
	duration kitmetrics.Histogram

	mu     sync.RWMutex
	custom map[string]*promregistry.Series
}

// New returns a Collector configured by o.
func New(o Options) *Collector {
	c := &Collector{
		reg:             promregistry.New(),
		logger:          o.Logger,
		clock:           o.Clock,
		ignore:          ignoreSet(o.Ignore),
		useRoutePattern: o.UseRoutePattern,
		requests:        discard.NewCounter(),
		errors:          discard.NewCounter(),
		duration:        discard.NewHistogram(),
		custom:          make(map[string]*promregistry.Series),
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	if c.clock == nil {
		c.clock = clock.Default
	}

	if !o.DisableDefaultMetrics {
		c.reg.MustRegisterCollector(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		c.reg.MustRegisterCollector(collectors.NewGoCollector())
	}

	if !o.DisableErrorCounter {
		c.errors, _ = c.reg.MustRegister(promregistry.Descriptor{
			Name:       errorsName,
			Help:       "Number of errors",
			LabelNames: []string{"error"},
		}, promregistry.Counter).Counter()
	}

	if !o.DisableRouteCounter {
		c.requests, _ = c.reg.MustRegister(promregistry.Descriptor{
			Name:       requestsName,
			Help:       "Number of requests made to a route",
			LabelNames: []string{"route"},
		}, promregistry.Counter).Counter()
	}

	if !o.DisableDurationCounter {
		c.duration, _ = c.reg.MustRegister(promregistry.Descriptor{
			Name:       durationName,
			Help:       "Duration of HTTP requests in ms",
			LabelNames: []string{"method", "route", "code"},
			Buckets:    metrics.RequestDurationDistribution(),
		}, promregistry.Histogram).Histogram()
	}

	return c
}

func ignoreSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths)+2)
	for _, p := range paths {
		set[p] = struct{}{}
	}
	set[DefaultPath] = struct{}{}
	set[faviconPath] = struct{}{}
	return set
}

// AddCustomMetric registers a series of kind k described by d. It replaces
// a custom series previously added under the same name. Kinds other than the
// ones defined by promregistry are ignored.
//
// AddCustomMetric panics if d clashes with a built-in or default series or is
// otherwise invalid.
func (c *Collector) AddCustomMetric(d promregistry.Descriptor, k promregistry.Kind) {
	if !k.Valid() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.custom[d.Name]; ok {
		c.reg.Unregister(d.Name)
		delete(c.custom, d.Name)
	}

	c.custom[d.Name] = c.reg.MustRegister(d, k)

	c.logger.WithFields(logrus.Fields{
		"at":     "register",
		"metric": d.Name,
		"kind":   k.String(),
	}).Debug()
}

func (c *Collector) customSeries(name string, k promregistry.Kind) (*promregistry.Series, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.custom[name]
	if !ok || s.Kind() != k {
		return nil, false
	}
	return s, true
}

// Counter returns the custom Counter added under name.
func (c *Collector) Counter(name string) (kitmetrics.Counter, bool) {
	s, ok := c.customSeries(name, promregistry.Counter)
	if !ok {
		return nil, false
	}
	return s.Counter()
}

// Gauge returns the custom Gauge added under name.
func (c *Collector) Gauge(name string) (kitmetrics.Gauge, bool) {
	s, ok := c.customSeries(name, promregistry.Gauge)
	if !ok {
		return nil, false
	}
	return s.Gauge()
}

// Histogram returns the custom Histogram added under name.
func (c *Collector) Histogram(name string) (kitmetrics.Histogram, bool) {
	s, ok := c.customSeries(name, promregistry.Histogram)
	if !ok {
		return nil, false
	}
	return s.Histogram()
}

// Summary returns the custom Summary added under name.
func (c *Collector) Summary(name string) (kitmetrics.Histogram, bool) {
	s, ok := c.customSeries(name, promregistry.Summary)
	if !ok {
		return nil, false
	}
	return s.Histogram()
}

// Collect is a middleware recording every request that passes through it
// once its response is complete.
func (c *Collector) Collect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww, ok := w.(middleware.WrapResponseWriter)
		if !ok {
			ww = middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		}

		start := c.clock.Now()
		next.ServeHTTP(ww, r)

		// next has returned: the response is complete and its status is
		// final. A panicking handler never gets here.
		c.finish(r, ww.Status(), start)
	})
}

func (c *Collector) finish(r *http.Request, status int, start time.Time) {
	if _, ok := c.ignore[r.URL.Path]; ok {
		return
	}

	if status == 0 {
		// Assume no Write or WriteHeader means OK.
		status = http.StatusOK
	}
	code := strconv.Itoa(status)
	route := c.route(r)

	metrics.MeasureInterval(c.duration.With("method", r.Method, "route", route, "code", code), start, c.clock.Now())
	c.requests.With("route", route).Add(1)
	if status >= http.StatusBadRequest {
		c.errors.With("error", code).Add(1)
	}
}

// route returns the route label of r. Label values must be valid UTF-8, which
// a decoded path such as /%ff is not.
func (c *Collector) route(r *http.Request) string {
	if c.useRoutePattern {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				return strings.ToValidUTF8(pattern, "\uFFFD")
			}
		}
	}
	return strings.ToValidUTF8(r.URL.Path, "\uFFFD")
}

// Endpoint renders every series in the Prometheus text exposition format.
// It always responds 200, even when some metrics could not be gathered.
func (c *Collector) Endpoint(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := c.reg.WriteText(&buf); err != nil {
		c.logger.WithField("at", "gather").WithError(err).Error()
	}

	w.Header().Set("Content-Type", promregistry.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		c.logger.WithField("at", "write").WithError(err).Warn()
	}
}

// Handler returns Endpoint as an http.Handler.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(c.Endpoint)
}

// ResetMetrics clears everything recorded so far, keeping the series
// themselves. The process and Go runtime metrics are not affected.
func (c *Collector) ResetMetrics() {
	c.reg.Reset()
}
