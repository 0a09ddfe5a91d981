// Package svclog provides logging facilities for standard services.
package svclog

import (
	"github.com/sirupsen/logrus"
)

// Config for logger.
type Config struct {
	AppName   string `env:"APP_NAME,default=metrics-example"`
	Deploy    string `env:"DEPLOY,default=local"`
	Dyno      string `env:"DYNO"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
}

// NewLogger returns a new logger that includes app and deploy key/value pairs
// in each log line. It writes JSON when LogFormat is "json".
func NewLogger(cfg Config) logrus.FieldLogger {
	l := logrus.New()

	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		l.SetLevel(lvl)
	}
	if cfg.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	return withDefaultFields(l, cfg)
}

func withDefaultFields(l *logrus.Logger, cfg Config) logrus.FieldLogger {
	logger := l.WithFields(logrus.Fields{
		"app":    cfg.AppName,
		"deploy": cfg.Deploy,
	})
	if cfg.Dyno != "" {
		logger = logger.WithField("dyno", cfg.Dyno)
	}
	return logger
}
