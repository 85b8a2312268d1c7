package logging

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// WithReq builds a log entry enriched with common HTTP request fields:
// request_id (as set by the requestid middleware), method, path, and
// remote address. Any extras passed in are merged, taking precedence on
// key conflicts.
func WithReq(r *http.Request, requestID string, extras log.Fields) *log.Entry {
	if r == nil {
		return log.WithFields(extras)
	}
	fields := log.Fields{
		"request_id": requestID,
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote":     r.RemoteAddr,
	}
	for k, v := range extras {
		fields[k] = v
	}
	return log.WithFields(fields)
}

// DurationMS converts a duration to integer milliseconds for logging.
func DurationMS(d time.Duration) int64 { return d.Milliseconds() }
