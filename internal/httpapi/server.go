package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sdrelay/internal/relay"
	"sdrelay/internal/stream"
	"sdrelay/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	GenerateImage(ctx context.Context, env types.Envelope) (types.Envelope, error)
	Txt2Img(ctx context.Context, env types.Envelope) (types.Envelope, error)
	HealthCheck(ctx context.Context, id json.RawMessage) types.Envelope
}

type server struct {
	svc      Service
	opts     Options
	log      zerolog.Logger
	defLevel LogLevel
}

// NewMux builds the router serving the relay and its streams.
func NewMux(svc Service, opts Options) http.Handler {
	opts = opts.normalized()
	s := &server{
		svc:      svc,
		opts:     opts,
		log:      opts.Logger,
		defLevel: parseLevel(opts.RequestLogLevel),
	}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if opts.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORS.AllowedOrigins,
			AllowedMethods: opts.CORS.AllowedMethods,
			AllowedHeaders: opts.CORS.AllowedHeaders,
		}))
	}
	// Compression for JSON endpoints; text/event-stream is not in the default set
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/generate", s.handleImage(relay.MethodGenerate, svc.GenerateImage))
	r.Post("/txt2img", s.handleImage(relay.MethodTxt2Img, svc.Txt2Img))
	r.Get("/health", s.handleHealth)
	r.Get("/sse", s.handleSSE)
	r.Get("/events", s.handleSSE)
	r.Get("/", s.handleStatusFeed)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	if opts.Swagger {
		MountSwagger(r)
	}
	return r
}

// handleImage serves both image endpoints; they differ only in method name
// and defaults.
//
// @Summary      Generate an image
// @Description  Accepts a JSON-RPC envelope or bare JSON parameters and relays them to the web UI.
// @Tags         image
// @Accept       json
// @Produce      json
// @Param        request  body      types.Envelope  true  "Envelope with ImageRequest params"
// @Success      200      {object}  types.Envelope
// @Failure      400      {object}  types.Envelope
// @Failure      415      {object}  types.Envelope
// @Failure      502      {object}  types.Envelope
// @Failure      503      {object}  types.Envelope
// @Failure      504      {object}  types.Envelope
// @Router       /generate [post]
// @Router       /txt2img [post]
func (s *server) handleImage(method string, call func(context.Context, types.Envelope) (types.Envelope, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rl := s.requestLogger(r)
		rl.begin(method + " start")

		ct := r.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			s.fail(w, rl, method, nil, http.StatusUnsupportedMediaType, types.CodeInvalidRequest, "Content-Type must be application/json", nil)
			return
		}
		// Limit body size (configurable, default 1MiB)
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				s.fail(w, rl, method, nil, http.StatusRequestEntityTooLarge, types.CodeInvalidRequest, "request body too large", err)
				return
			}
			s.fail(w, rl, method, nil, http.StatusBadRequest, types.CodeParseError, "Parse error: "+err.Error(), err)
			return
		}
		if !json.Valid(body) {
			s.fail(w, rl, method, nil, http.StatusBadRequest, types.CodeParseError, "Parse error: invalid JSON body", nil)
			return
		}
		env, err := relay.DecodeEnvelope(body)
		if err != nil {
			s.fail(w, rl, method, env.ID, http.StatusBadRequest, types.CodeInvalidRequest, err.Error(), err)
			return
		}
		if ev := rl.debug(); ev != nil {
			ev.RawJSON("params", rawOrNull(env.Params)).Msg("decoded request")
		}

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(s.opts.BaseContext, r.Context())
		defer cancel()
		out, err := call(ctx, env)
		if err != nil {
			// If the client went away there is no one to answer.
			if r.Context().Err() != nil {
				rl.end(method+" end", 499, err)
				return
			}
			status, code, msg := classify(err)
			s.fail(w, rl, method, env.ID, status, code, msg, err)
			return
		}
		writeEnvelope(w, http.StatusOK, out)
		rl.end(method+" end", http.StatusOK, nil)
	}
}

func (s *server) fail(w http.ResponseWriter, rl reqLogger, method string, id json.RawMessage, status, code int, msg string, err error) {
	if err == nil {
		err = errors.New(msg)
	}
	countRPCError(code)
	writeJSONError(w, status, method, id, code, msg)
	rl.end(method+" end", status, err)
}

// handleHealth probes the backend. It always answers 200.
//
// @Summary      Backend health
// @Tags         status
// @Produce      json
// @Param        id   query     string  false  "identifier echoed in the response"
// @Success      200  {object}  types.Envelope
// @Router       /health [get]
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rl := s.requestLogger(r)
	var id json.RawMessage
	if v := r.URL.Query().Get("id"); v != "" {
		id = types.StringID(v)
	}
	ctx, cancel := joinContexts(s.opts.BaseContext, r.Context())
	defer cancel()
	writeEnvelope(w, http.StatusOK, s.svc.HealthCheck(ctx, id))
	rl.end("health", http.StatusOK, nil)
}

// handleSSE runs one heartbeat session.
//
// @Summary      Event stream
// @Description  handshake, then the capability list, then a ping every interval.
// @Tags         stream
// @Produce      text/event-stream
// @Success      200
// @Router       /sse [get]
// @Router       /events [get]
func (s *server) handleSSE(w http.ResponseWriter, r *http.Request) {
	rl := s.requestLogger(r)
	sw, err := stream.NewSSEWriter(w)
	if err != nil {
		s.fail(w, rl, "", nil, http.StatusInternalServerError, types.CodeInternalError, err.Error(), err)
		return
	}
	ctx, cancel := joinContexts(s.opts.BaseContext, r.Context())
	defer cancel()
	sess := s.opts.Streams.NewSession(sw)
	rl.begin("stream open")
	if err := sess.Run(ctx); err != nil {
		rl.log.Error().Err(err).Str("session", sess.ID).Msg("stream failed")
		return
	}
	rl.log.Debug().Str("session", sess.ID).Msg("stream closed")
}

// handleStatusFeed serves the per-second status stream on /.
//
// @Summary      Status stream
// @Tags         stream
// @Produce      text/event-stream
// @Success      200
// @Router       / [get]
func (s *server) handleStatusFeed(w http.ResponseWriter, r *http.Request) {
	rl := s.requestLogger(r)
	sw, err := stream.NewSSEWriter(w)
	if err != nil {
		s.fail(w, rl, "", nil, http.StatusInternalServerError, types.CodeInternalError, err.Error(), err)
		return
	}
	ctx, cancel := joinContexts(s.opts.BaseContext, r.Context())
	defer cancel()
	rl.begin("status feed open")
	if err := s.opts.Streams.StatusFeed(ctx, sw); err != nil {
		rl.log.Error().Err(err).Msg("status feed failed")
	}
}

func rawOrNull(b json.RawMessage) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}
