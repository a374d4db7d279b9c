// Package httpmiddleware provides net/http middleware shared by the API
// server: panic recovery, CORS, rate limiting, request IDs, request logging
// and OpenTelemetry instrumentation.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Wrap applies the middlewares to h. The first middleware in the list becomes
// the outermost one, i.e. it sees the request first.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
