package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// requestLogLevel applies per-request overrides on top of def.
func requestLogLevel(r *http.Request, def LogLevel) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return def
}

// reqLogger carries the logger and level of a single request.
type reqLogger struct {
	log   zerolog.Logger
	lvl   LogLevel
	start time.Time
}

func (s *server) requestLogger(r *http.Request) reqLogger {
	l := s.log.With().Str("path", r.URL.Path).Logger()
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		l = l.With().Str("request_id", rid).Logger()
	}
	return reqLogger{log: l, lvl: requestLogLevel(r, s.defLevel), start: time.Now()}
}

func (rl reqLogger) begin(msg string) {
	if rl.lvl >= LevelInfo {
		rl.log.Info().Msg(msg)
	}
}

// end logs the outcome. Failures are logged at LevelError and above.
func (rl reqLogger) end(msg string, status int, err error) {
	switch {
	case err != nil && rl.lvl >= LevelError:
		rl.log.Warn().Int("status", status).Dur("dur", time.Since(rl.start)).Err(err).Msg(msg)
	case err == nil && rl.lvl >= LevelInfo:
		rl.log.Info().Int("status", status).Dur("dur", time.Since(rl.start)).Msg(msg)
	}
}

func (rl reqLogger) debug() *zerolog.Event {
	if rl.lvl < LevelDebug {
		return nil
	}
	return rl.log.Debug()
}
