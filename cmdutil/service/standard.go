package service

import (
	"syscall"

	"github.com/joeshaw/envdecode"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/reqmetrics/x/cmdutil"
	"github.com/reqmetrics/x/cmdutil/signals"
	"github.com/reqmetrics/x/cmdutil/svclog"
	"github.com/reqmetrics/x/httpmetrics"
)

// Standard is a standard service.
type Standard struct {
	g run.Group

	App     string
	Deploy  string
	Logger  logrus.FieldLogger
	Metrics *httpmetrics.Collector
}

// New returns a Standard service with logging, request metrics and common
// signal handling.
//
// It calls envdecode.MustStrictDecode on the provided appConfig.
func New(appConfig interface{}, ofs ...OptionFunc) *Standard {
	var sc standardConfig
	envdecode.MustStrictDecode(&sc)
	envdecode.MustStrictDecode(appConfig)

	var o options
	for _, of := range ofs {
		of(&o)
	}
	sc.Metrics.Ignore = append(sc.Metrics.Ignore, o.ignorePaths...)

	logger := svclog.NewLogger(sc.Logger)

	s := &Standard{
		App:     sc.Logger.AppName,
		Deploy:  sc.Logger.Deploy,
		Logger:  logger,
		Metrics: newCollector(logger, sc.Metrics),
	}

	s.Add(signals.NewServer(logger, syscall.SIGINT, syscall.SIGTERM))

	return s
}

func newCollector(l logrus.FieldLogger, cfg metricsConfig) *httpmetrics.Collector {
	return httpmetrics.New(httpmetrics.Options{
		Ignore:                 cfg.Ignore,
		DisableRouteCounter:    cfg.DisableRouteCounter,
		DisableErrorCounter:    cfg.DisableErrorCounter,
		DisableDurationCounter: cfg.DisableDurationCounter,
		DisableDefaultMetrics:  cfg.DisableDefaultMetrics,
		UseRoutePattern:        cfg.UseRoutePattern,
		Logger:                 l.WithField("component", "httpmetrics"),
	})
}

type options struct {
	ignorePaths []string
}

// OptionFunc is a function that modifies internal service options.
type OptionFunc func(*options)

// IgnorePaths is an OptionFunc that keeps requests to paths out of the
// service's request metrics, in addition to the paths listed in
// METRICS_IGNORE.
func IgnorePaths(paths ...string) OptionFunc {
	return func(o *options) {
		o.ignorePaths = append(o.ignorePaths, paths...)
	}
}

// Add adds cmdutil.Servers to be managed.
func (s *Standard) Add(svs ...cmdutil.Server) {
	for _, sv := range svs {
		s.g.Add(sv.Run, sv.Stop)
	}
}

// Run runs all standard and Added cmdutil.Servers until the first of them
// returns.
//
// If the error returned by oklog/run.Run is non-nil, it is logged
// with s.Logger.Fatal.
func (s *Standard) Run() {
	if err := s.g.Run(); err != nil {
		s.Logger.WithError(err).Fatal()
	}
}
