package xmiddleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// PostRequestLogger is a middleware for the github.com/sirupsen/logrus to log
// requests once they are complete. It logs things similar to router logs and
// adds remote_addr, user_agent and the matched route.
func PostRequestLogger(l logrus.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww, ok := w.(middleware.WrapResponseWriter)
			if !ok {
				ww = middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			}

			t0 := time.Now()
			defer func() {
				logRequest(l, r, ww.Status(), ww.BytesWritten(), time.Since(t0))
			}()
			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

func logRequest(l logrus.FieldLogger, r *http.Request, status int, bytes int, service time.Duration) {
	requestID, _ := RequestIDFromContext(r.Context())

	log := l.WithFields(logrus.Fields{
		"request_id":  requestID,
		"method":      r.Method,
		"host":        r.Host,
		"path":        r.URL.RequestURI(),
		"remote_addr": r.RemoteAddr,
		"user_agent":  r.UserAgent(),
		"at":          "finish",
	})

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			log = log.WithField("route", pattern)
		}
	}

	if status > 0 {
		log = log.WithField("status", status)
	}

	if bytes > 0 {
		log = log.WithField("bytes", bytes)
	}

	if service > 0 {
		log = log.WithField("service", fmt.Sprintf("%dms", service/time.Millisecond))
	}

	log.Info()
}
