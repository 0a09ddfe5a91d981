// Command metrics-example serves a handful of routes instrumented with
// httpmetrics and exposes the recorded metrics on /_metrics.
package main

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/reqmetrics/x/cmdutil/service"
	"github.com/reqmetrics/x/go-kit/metrics"
	"github.com/reqmetrics/x/httpmetrics"
	"github.com/reqmetrics/x/promregistry"
	"github.com/reqmetrics/x/xmiddleware"
)

type config struct {
	// SlowRouteDelay is how long /slow takes to respond.
	SlowRouteDelay time.Duration `env:"SLOW_ROUTE_DELAY,default=250ms"`
}

const (
	testMetric = "test"
	workMetric = "work_duration_ms"
)

func main() {
	var cfg config
	svc := service.New(&cfg, service.IgnorePaths("/bar"))

	svc.Metrics.AddCustomMetric(promregistry.Descriptor{
		Name: testMetric,
		Help: "Some Test Metric",
	}, promregistry.Counter)
	svc.Metrics.AddCustomMetric(promregistry.Descriptor{
		Name:    workMetric,
		Help:    "Time spent working in /slow",
		Buckets: metrics.FiveSecondDistribution(),
	}, promregistry.Histogram)

	svc.Add(service.HTTP(svc.Logger, newRouter(svc.Logger, svc.Metrics, cfg)))
	svc.Run()
}

func newRouter(l logrus.FieldLogger, c *httpmetrics.Collector, cfg config) http.Handler {
	r := chi.NewRouter()
	r.Use(xmiddleware.RequestID)
	r.Use(xmiddleware.PostRequestLogger(l))
	r.Use(c.Collect)

	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/foo", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "foo")
	})
	r.Get("/bar", func(w http.ResponseWriter, _ *http.Request) {
		if test, ok := c.Counter(testMetric); ok {
			test.Add(1)
		}
		io.WriteString(w, "bar")
	})
	r.Get("/slow", func(w http.ResponseWriter, _ *http.Request) {
		if work, ok := c.Histogram(workMetric); ok {
			defer metrics.NewDurationTimer(work).ObserveDuration()
		}
		time.Sleep(cfg.SlowRouteDelay)
		io.WriteString(w, "slow")
	})
	r.Get("/404", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/401", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	r.Get(httpmetrics.DefaultPath, c.Endpoint)

	return r
}
