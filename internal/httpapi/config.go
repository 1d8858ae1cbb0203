package httpapi

import (
	"context"

	"github.com/rs/zerolog"

	"sdrelay/internal/stream"
)

// defaultMaxBodyBytes caps JSON request bodies when Options leaves it unset.
const defaultMaxBodyBytes int64 = 1 << 20

// CORSOptions configures the CORS middleware. If disabled, no CORS middleware is added.
type CORSOptions struct {
	Enabled        bool
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Options holds everything the HTTP layer needs besides the relay itself.
type Options struct {
	// Streams serves /sse, /events and the legacy status feed on /.
	Streams *stream.Service
	Logger  zerolog.Logger
	// BaseContext is cancelled on shutdown so long-lived streams end.
	// Defaults to Background if nil.
	BaseContext context.Context
	// MaxBodyBytes limits JSON bodies. Non-positive means 1 MiB.
	MaxBodyBytes int64
	// RequestLogLevel is the default per-request log level (off|error|info|debug).
	RequestLogLevel string
	CORS            CORSOptions
	// Swagger mounts the API docs under /swagger/.
	Swagger bool
}

func (o Options) normalized() Options {
	if o.BaseContext == nil {
		o.BaseContext = context.Background()
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	if o.Streams == nil {
		o.Streams = stream.New(stream.Options{Logger: o.Logger})
	}
	return o
}
