package service

import (
	"github.com/reqmetrics/x/cmdutil/svclog"
)

// standardConfig is used when service.New is called.
type standardConfig struct {
	Logger  svclog.Config
	Metrics metricsConfig
}

// metricsConfig configures the request metrics collector of a Standard
// service.
type metricsConfig struct {
	// Ignore lists request paths that are not recorded, separated by
	// semicolons.
	Ignore []string `env:"METRICS_IGNORE"`

	DisableRouteCounter    bool `env:"METRICS_DISABLE_ROUTE_COUNTER,default=false"`
	DisableErrorCounter    bool `env:"METRICS_DISABLE_ERROR_COUNTER,default=false"`
	DisableDurationCounter bool `env:"METRICS_DISABLE_DURATION_COUNTER,default=false"`
	DisableDefaultMetrics  bool `env:"METRICS_DISABLE_DEFAULT,default=false"`
	UseRoutePattern        bool `env:"METRICS_USE_ROUTE_PATTERN,default=false"`
}

// platformConfig is used by HTTP.
type platformConfig struct {
	// Port is the port to listen on.
	Port int `env:"PORT,default=3000"`
}
