// Package poollog provides the zap-backed logger adapters shared by
// the pool's admin HTTP surface and its background workers. It mirrors
// the teacher's own logger package: a response-metadata-capturing
// ResponseWriter for middleware, and a constructor for a
// zap.SugaredLogger tuned for the deployment environment.
package poollog

import (
	"log"
	"net/http"

	"go.uber.org/zap"
)

// ResponseData accumulates HTTP response metadata for logging.
// Used together with LoggingRW to record what a handler actually sent.
type ResponseData struct {
	// Status holds the HTTP status code written to the response.
	Status int
	// Size accumulates the number of bytes written across all Write
	// calls on the wrapped ResponseWriter.
	Size int
}

// LoggingRW wraps an http.ResponseWriter to capture response metrics
// without altering behavior. A drop-in replacement for the standard
// ResponseWriter inside admin-surface middleware.
type LoggingRW struct {
	http.ResponseWriter
	ResponseData *ResponseData
}

// Write records the number of bytes written and delegates to the
// wrapped ResponseWriter.
func (r *LoggingRW) Write(b []byte) (int, error) {
	size, err := r.ResponseWriter.Write(b)
	r.ResponseData.Size += size
	return size, err
}

// WriteHeader records the status code and delegates to the wrapped
// ResponseWriter.
func (r *LoggingRW) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.ResponseData.Status = statusCode
}

// New builds a zap.SugaredLogger. dev selects the human-readable
// development encoder used by cmd/poolctl in local runs; production
// deployments should pass dev=false for the JSON encoder instead.
func New(dev bool) *zap.SugaredLogger {
	var (
		logger *zap.Logger
		err    error
	)
	if dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	return logger.Sugar()
}

// errorEvents are the pool events that represent a failure: factory
// failures (which are also returned to the caller) and destructor
// failures (suppressed, both direct and reaper-sweep-folded).
// Everything else is routine lifecycle noise.
var errorEvents = map[string]bool{
	"factory_error":       true,
	"destroy_panic":       true,
	"reap_destroy_errors": true,
}

// infoEvents are events worth surfacing above Debug in production but
// short of an error: constructing a brand-new resource.
var infoEvents = map[string]bool{
	"take_new": true,
}

// PoolAdapter turns a SugaredLogger into the (event string, fields
// ...any) callback shape pool.Config.Log expects, dispatching on the
// event name so factory/destructor failures log at Errorw instead of
// being buried at Debug alongside routine take/put/reap noise.
func PoolAdapter(sugar *zap.SugaredLogger) func(event string, fields ...any) {
	return func(event string, fields ...any) {
		switch {
		case errorEvents[event]:
			sugar.Errorw(event, fields...)
		case infoEvents[event]:
			sugar.Infow(event, fields...)
		default:
			sugar.Debugw(event, fields...)
		}
	}
}
