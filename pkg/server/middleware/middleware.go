// Package middleware provides middlewares for the HTTP server.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Middleware is a function that intercepts the execution of an HTTP handler.
type Middleware func(http.Handler) http.Handler

// Wrap is a chain of middlewares.
func Wrap(base http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// Chain chains the middlewares.
func Chain(mws ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		return Wrap(next, mws...)
	}
}

// AppInfo adds the app info to the response headers.
func AppInfo(app, author, version string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("App-Name", app)
			w.Header().Set("App-Author", author)
			w.Header().Set("App-Version", version)
			next.ServeHTTP(w, r)
		})
	}
}

// Health serves the health check requests on the given path.
func Health(path string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != path {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})
	}
}

// Recoverer is a middleware that recovers from panics, logs the panic and
// responds with a 500 carrying the given message.
func Recoverer(responseMessage string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					slog.ErrorContext(r.Context(), "request panic",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("remote", r.RemoteAddr),
						slog.Any("panic", rvr))

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": responseMessage})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Maybe is a middleware that conditionally applies the given middleware.
func Maybe(apply bool, mw Middleware) Middleware {
	if !apply {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
