package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// Log logs the HTTP requests.
func Log(debug bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := &statsWriter{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			defer func() {
				attrs := []any{
					slog.String("method", r.Method),
					slog.String("uri", r.URL.RequestURI()),
					slog.String("remote", r.RemoteAddr),
					slog.Duration("elapsed", time.Since(start)),
					slog.Int("status", ww.status),
					slog.Int64("size", ww.size),
				}

				if debug {
					attrs = append(attrs,
						slog.Any("request_header", filterHeader(r.Header)),
						slog.Any("response_header", filterHeader(ww.Header())),
					)
				}

				slog.InfoContext(r.Context(), "request", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

var hideHeaders = map[string]struct{}{
	"Authorization": {},
	"Cookie":        {},
	"Set-Cookie":    {},
}

func filterHeader(h http.Header) http.Header {
	if h == nil {
		return nil
	}

	out := make(http.Header, len(h))
	for k, v := range h {
		if _, ok := hideHeaders[http.CanonicalHeaderKey(k)]; ok {
			out[k] = []string{"***"}
			continue
		}
		out[k] = v
	}

	return out
}

type statsWriter struct {
	http.ResponseWriter

	status int
	size   int64
}

func (w *statsWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statsWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}
