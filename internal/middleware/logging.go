package middleware

import (
	"net/http"
	"time"

	"github.com/bryanwahyu/secscan/internal/logger"
)

// statusRecorder captures what the handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// AccessLog writes one key=value line per request. Health endpoints are only
// logged in verbose mode so they do not drown the scan output.
func AccessLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			line := "method=%s path=%s status=%d duration=%s bytes=%d ip=%s"
			args := []any{r.Method, r.URL.Path, rec.status, time.Since(start), rec.bytes, r.RemoteAddr}
			switch {
			case isHealthPath(r.URL.Path):
				log.Debugf(line, args...)
			case rec.status >= http.StatusInternalServerError:
				log.Errorf(line, args...)
			default:
				log.Infof(line, args...)
			}
		})
	}
}

func isHealthPath(path string) bool {
	switch path {
	case "/health", "/ready", "/live", "/metrics":
		return true
	}
	return false
}
