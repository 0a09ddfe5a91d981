// Package signals provides a signal handler which is usable as a cmdutil.Server.
package signals

import (
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/reqmetrics/x/cmdutil"
)

// NewServer returns a cmdutil.Server whose Run returns nil once any of
// signals is received, or once it is stopped.
func NewServer(logger logrus.FieldLogger, signals ...os.Signal) cmdutil.Server {
	ch := make(chan os.Signal, 1)

	return cmdutil.ServerFuncs{
		RunFunc: func() error {
			signal.Notify(ch, signals...)
			if sig := <-ch; sig != nil {
				logger.WithFields(logrus.Fields{
					"at":     "signal",
					"signal": sig.String(),
				}).Info()
			}
			return nil
		},
		StopFunc: func(error) {
			signal.Stop(ch)
			select {
			case ch <- nil:
			default:
			}
		},
	}
}
