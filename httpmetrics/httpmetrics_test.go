package httpmetrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/reqmetrics/x/clock/clocktest"
	"github.com/reqmetrics/x/promregistry"
	"github.com/reqmetrics/x/promregistry/promtest"
	"github.com/reqmetrics/x/testing/testlog"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	})
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()

	w := serve(c.Handler(), http.MethodGet, DefaultPath)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != promregistry.ContentType {
		t.Fatalf("got Content-Type %q, want %q", got, promregistry.ContentType)
	}
	return w.Body.String()
}

func TestCollectDefaults(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})

	serve(c.Collect(statusHandler(http.StatusOK)), http.MethodGet, "/test")
	serve(c.Collect(statusHandler(http.StatusBadRequest)), http.MethodGet, "/test")

	p := promtest.New(t, c.reg)
	p.CheckCounter(requestsName, 2, "route", "/test")
	p.CheckCounter(errorsName, 1, "error", "400")
	p.CheckObservationCount(durationName, 1, "method", "GET", "route", "/test", "code", "200")
	p.CheckObservationCount(durationName, 1, "method", "GET", "route", "/test", "code", "400")
}

func TestCollectDisableRouteCounter(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true, DisableRouteCounter: true})

	serve(c.Collect(statusHandler(http.StatusNotFound)), http.MethodGet, "/test")

	p := promtest.New(t, c.reg)
	p.CheckNoSeries(requestsName)
	p.CheckCounter(errorsName, 1, "error", "404")
	p.CheckObservationCount(durationName, 1, "method", "GET", "route", "/test", "code", "404")
}

func TestCollectDisableErrorCounter(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true, DisableErrorCounter: true})

	serve(c.Collect(statusHandler(http.StatusInternalServerError)), http.MethodPost, "/test")

	p := promtest.New(t, c.reg)
	p.CheckNoSeries(errorsName)
	p.CheckCounter(requestsName, 1, "route", "/test")
	p.CheckObservationCount(durationName, 1, "method", "POST", "route", "/test", "code", "500")
}

func TestCollectDisableDurationCounter(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true, DisableDurationCounter: true})

	serve(c.Collect(statusHandler(http.StatusOK)), http.MethodGet, "/test")

	p := promtest.New(t, c.reg)
	p.CheckNoSeries(durationName)
	p.CheckCounter(requestsName, 1, "route", "/test")
	p.CheckSampleCount(errorsName, 0)
}

func TestCollectIgnoredPaths(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true, Ignore: []string{"/bar"}})
	h := c.Collect(statusHandler(http.StatusNotFound))

	for _, path := range []string{"/bar", DefaultPath, "/favicon.ico"} {
		serve(h, http.MethodGet, path)
	}

	p := promtest.New(t, c.reg)
	p.CheckSampleCount(requestsName, 0)
	p.CheckSampleCount(errorsName, 0)
	p.CheckSampleCount(durationName, 0)

	// Only exact matches are ignored.
	serve(h, http.MethodGet, "/bar/baz")
	p.CheckCounter(requestsName, 1, "route", "/bar/baz")
}

func TestCollectDoesNotNormalizePaths(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})
	h := c.Collect(statusHandler(http.StatusOK))

	serve(h, http.MethodGet, "/foo")
	serve(h, http.MethodGet, "/foo/")

	p := promtest.New(t, c.reg)
	p.CheckCounter(requestsName, 1, "route", "/foo")
	p.CheckCounter(requestsName, 1, "route", "/foo/")
}

func TestCollectInvalidUTF8Path(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true, Ignore: []string{"/\xfe"}})
	h := c.Collect(statusHandler(http.StatusNotFound))

	w := serve(h, http.MethodGet, "/%ff")
	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}

	p := promtest.New(t, c.reg)
	p.CheckCounter(requestsName, 1, "route", "/\uFFFD")
	p.CheckCounter(errorsName, 1, "error", "404")
	p.CheckObservationCount(durationName, 1, "method", "GET", "route", "/\uFFFD", "code", "404")

	// The ignore set matches the raw path.
	serve(h, http.MethodGet, "/%fe")
	p.CheckCounter(requestsName, 1, "route", "/\uFFFD")

	// Over a real connection the client gets its response.
	s := httptest.NewServer(h)
	defer s.Close()

	res, err := http.Get(s.URL + "/%ff")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", res.StatusCode)
	}
	p.CheckCounter(requestsName, 2, "route", "/\uFFFD")
}

func TestCollectNoStatusIsOK(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})

	serve(c.Collect(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})), http.MethodGet, "/test")

	p := promtest.New(t, c.reg)
	p.CheckObservationCount(durationName, 1, "method", "GET", "route", "/test", "code", "200")
	p.CheckSampleCount(errorsName, 0)
}

func TestCollectDuration(t *testing.T) {
	c := New(Options{
		DisableDefaultMetrics: true,
		Clock:                 clocktest.NewFromDurations(0, 42*time.Millisecond),
	})

	serve(c.Collect(statusHandler(http.StatusOK)), http.MethodGet, "/test")

	p := promtest.New(t, c.reg)
	p.CheckObservationSum(durationName, 42, "method", "GET", "route", "/test", "code", "200")
}

func TestCollectPanicRecordsNothing(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})
	h := c.Collect(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("want the handler's panic to propagate")
			}
		}()
		serve(h, http.MethodGet, "/test")
	}()

	p := promtest.New(t, c.reg)
	p.CheckSampleCount(requestsName, 0)
	p.CheckSampleCount(durationName, 0)
}

func TestCollectRoutePattern(t *testing.T) {
	for _, usePattern := range []bool{true, false} {
		c := New(Options{DisableDefaultMetrics: true, UseRoutePattern: usePattern})

		r := chi.NewRouter()
		r.Use(c.Collect)
		r.Get("/apps/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		})

		serve(r, http.MethodGet, "/apps/1234")

		want := "/apps/1234"
		if usePattern {
			want = "/apps/{id}"
		}
		promtest.New(t, c.reg).CheckCounter(requestsName, 1, "route", want)
	}
}

func TestCollectConcurrently(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})
	h := c.Collect(statusHandler(http.StatusTeapot))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				serve(h, http.MethodGet, "/test")
			}
		}()
	}
	wg.Wait()

	p := promtest.New(t, c.reg)
	p.CheckCounter(requestsName, 1000, "route", "/test")
	p.CheckCounter(errorsName, 1000, "error", "418")
	p.CheckObservationCount(durationName, 1000, "method", "GET", "route", "/test", "code", "418")
}

func TestNewKeepsIgnoreSlice(t *testing.T) {
	ignore := []string{"/bar"}
	New(Options{DisableDefaultMetrics: true, Ignore: ignore})

	if len(ignore) != 1 || ignore[0] != "/bar" {
		t.Fatalf("got %v, want [/bar]", ignore)
	}
}

func TestEndpointBeforeAnyRequest(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})

	want := `# HELP http_request_duration_ms Duration of HTTP requests in ms
# TYPE http_request_duration_ms histogram
# HELP numOfErrors Number of errors
# TYPE numOfErrors counter
# HELP numOfRequests Number of requests made to a route
# TYPE numOfRequests counter
`
	if got := scrape(t, c); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestEndpointAfterRequests(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})

	serve(c.Collect(statusHandler(http.StatusOK)), http.MethodGet, "/test")
	serve(c.Collect(statusHandler(http.StatusUnauthorized)), http.MethodGet, "/401")

	body := scrape(t, c)
	for _, want := range []string{
		`numOfRequests{route="/test"} 1`,
		`numOfRequests{route="/401"} 1`,
		`numOfErrors{error="401"} 1`,
		`http_request_duration_ms_bucket{code="200",method="GET",route="/test",le="0.1"}`,
		`http_request_duration_ms_bucket{code="200",method="GET",route="/test",le="500"}`,
		`http_request_duration_ms_count{code="401",method="GET",route="/401"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("want %q in:\n%s", want, body)
		}
	}
}

func TestEndpointDefaultMetrics(t *testing.T) {
	body := scrape(t, New(Options{}))
	for _, want := range []string{
		"# TYPE " + requestsName + " counter",
		"# TYPE " + errorsName + " counter",
		"# TYPE " + durationName + " histogram",
		"# TYPE go_goroutines gauge",
		"# TYPE process_cpu_seconds_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("want %q in:\n%s", want, body)
		}
	}

	body = scrape(t, New(Options{DisableDefaultMetrics: true}))
	for _, unwanted := range []string{"go_goroutines", "process_"} {
		if strings.Contains(body, unwanted) {
			t.Fatalf("want no %s series in:\n%s", unwanted, body)
		}
	}
	if !strings.Contains(body, "# TYPE "+requestsName+" counter") {
		t.Fatalf("want the built-in series in:\n%s", body)
	}
}

func TestEndpointIsNotRecorded(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})

	r := chi.NewRouter()
	r.Use(c.Collect)
	r.Get(DefaultPath, c.Endpoint)

	serve(r, http.MethodGet, DefaultPath)

	promtest.New(t, c.reg).CheckSampleCount(requestsName, 0)
}

func TestResetMetrics(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})
	c.AddCustomMetric(promregistry.Descriptor{Name: "test", Help: "Some Test Metric"}, promregistry.Counter)

	serve(c.Collect(statusHandler(http.StatusBadRequest)), http.MethodGet, "/test")
	counter, _ := c.Counter("test")
	counter.Add(3)

	c.ResetMetrics()

	p := promtest.New(t, c.reg)
	p.CheckSampleCount(requestsName, 0)
	p.CheckSampleCount(errorsName, 0)
	p.CheckSampleCount(durationName, 0)
	p.CheckCounter("test", 0)

	body := scrape(t, c)
	for _, name := range []string{requestsName, errorsName, durationName, "test"} {
		if !strings.Contains(body, "# TYPE "+name+" ") {
			t.Fatalf("want the %s header kept in:\n%s", name, body)
		}
	}

	serve(c.Collect(statusHandler(http.StatusOK)), http.MethodGet, "/test")
	p.CheckCounter(requestsName, 1, "route", "/test")
}

func TestAddCustomMetric(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})

	c.AddCustomMetric(promregistry.Descriptor{Name: "test", Help: "Some Test Metric"}, promregistry.Counter)
	c.AddCustomMetric(promregistry.Descriptor{Name: "queue_depth", Help: "Queue depth", LabelNames: []string{"queue"}}, promregistry.Gauge)
	c.AddCustomMetric(promregistry.Descriptor{Name: "payload_bytes", Help: "Payload size", Buckets: []float64{10, 100}}, promregistry.Histogram)
	c.AddCustomMetric(promregistry.Descriptor{Name: "render_ms", Help: "Render time"}, promregistry.Summary)

	counter, ok := c.Counter("test")
	if !ok {
		t.Fatal("want the test counter")
	}
	counter.Add(1)

	gauge, ok := c.Gauge("queue_depth")
	if !ok {
		t.Fatal("want the queue_depth gauge")
	}
	gauge.With("queue", "default").Set(5)

	histogram, ok := c.Histogram("payload_bytes")
	if !ok {
		t.Fatal("want the payload_bytes histogram")
	}
	histogram.Observe(64)

	summary, ok := c.Summary("render_ms")
	if !ok {
		t.Fatal("want the render_ms summary")
	}
	summary.Observe(12)

	p := promtest.New(t, c.reg)
	p.CheckCounter("test", 1)
	p.CheckGauge("queue_depth", 5, "queue", "default")
	p.CheckObservationSum("payload_bytes", 64)
	p.CheckObservationCount("render_ms", 1)

	if body := scrape(t, c); !strings.Contains(body, "# HELP test Some Test Metric\n# TYPE test counter\ntest 1\n") {
		t.Fatalf("want the test counter in:\n%s", body)
	}
}

func TestCustomMetricWrongKind(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})
	c.AddCustomMetric(promregistry.Descriptor{Name: "test", Help: "Some Test Metric"}, promregistry.Counter)

	if _, ok := c.Gauge("test"); ok {
		t.Fatal("want no gauge named test")
	}
	if _, ok := c.Summary("test"); ok {
		t.Fatal("want no summary named test")
	}
	if _, ok := c.Counter("missing"); ok {
		t.Fatal("want no counter named missing")
	}

	// Built-in series are not custom metrics.
	if _, ok := c.Counter(requestsName); ok {
		t.Fatalf("want no custom counter named %s", requestsName)
	}
}

func TestCustomMetricUnknownKind(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})
	c.AddCustomMetric(promregistry.Descriptor{Name: "test", Help: "Some Test Metric"}, promregistry.Kind(42))

	promtest.New(t, c.reg).CheckNoSeries("test")
}

func TestCustomMetricReplaced(t *testing.T) {
	c := New(Options{DisableDefaultMetrics: true})

	c.AddCustomMetric(promregistry.Descriptor{Name: "test", Help: "Some Test Metric"}, promregistry.Counter)
	counter, _ := c.Counter("test")
	counter.Add(7)

	c.AddCustomMetric(promregistry.Descriptor{Name: "test", Help: "Now a gauge"}, promregistry.Gauge)

	if _, ok := c.Counter("test"); ok {
		t.Fatal("want the counter replaced")
	}
	if _, ok := c.Gauge("test"); !ok {
		t.Fatal("want the test gauge")
	}

	p := promtest.New(t, c.reg)
	p.CheckGauge("test", 0)

	if body := scrape(t, c); !strings.Contains(body, "# HELP test Now a gauge\n") {
		t.Fatalf("want the new help text in:\n%s", body)
	}
}

func TestCustomMetricClash(t *testing.T) {
	for _, name := range []string{requestsName, "go_goroutines"} {
		t.Run(name, func(t *testing.T) {
			c := New(Options{})

			defer func() {
				if recover() == nil {
					t.Fatalf("want a panic adding %s", name)
				}
			}()
			c.AddCustomMetric(promregistry.Descriptor{Name: name, Help: "mine"}, promregistry.Gauge)
		})
	}
}

func TestAddCustomMetricLogs(t *testing.T) {
	l, hook := testlog.New()
	l.SetLevel(logrus.DebugLevel)

	c := New(Options{DisableDefaultMetrics: true, Logger: l})
	c.AddCustomMetric(promregistry.Descriptor{Name: "test", Help: "Some Test Metric"}, promregistry.Counter)

	hook.CheckAllContained(t, "at=register", "metric=test", "kind=counter")
}
