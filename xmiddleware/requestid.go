/* Copyright (c) 2018 Salesforce
 * All rights reserved.
 * Licensed under the BSD 3-Clause license.
 * For full license text, see LICENSE.txt file in the repo root  or https://opensource.org/licenses/BSD-3-Clause
 */

package xmiddleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is set on every response passing through RequestID.
const RequestIDHeader = "X-Request-Id"

type idkey int

var ridKey idkey

// Header lookups are canonicalized, so these also match X-Request-ID and
// request-id.
var headersToSearch = []string{"Request-Id", "X-Request-Id"}

// RequestID makes the ID of each request available to the handlers down the
// chain with RequestIDFromContext and echoes it back in the X-Request-Id
// response header. Requests without an ID get a random one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := requestIDFromHeaders(r)
		if !ok {
			id = uuid.New().String()
			r.Header.Set(RequestIDHeader, id)
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

func requestIDFromHeaders(r *http.Request) (string, bool) {
	for _, try := range headersToSearch {
		if id := r.Header.Get(try); id != "" {
			return id, true
		}
	}
	return "", false
}

// WithRequestID adds the given request ID to a context for processing later
// down the chain.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ridKey, id)
}

// RequestIDFromContext fetches a request ID from the given context if it exists.
func RequestIDFromContext(ctx context.Context) (id string, ok bool) {
	id, ok = ctx.Value(ridKey).(string)
	return
}
