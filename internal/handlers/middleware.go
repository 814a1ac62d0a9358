package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/riosinforma/apiserver/internal/auth"
	"github.com/riosinforma/apiserver/internal/metrics"
	"github.com/riosinforma/apiserver/internal/services"
	"github.com/riosinforma/apiserver/types"
	"github.com/sirupsen/logrus"
)

func requestLogger(log logrus.FieldLogger, r *http.Request) logrus.FieldLogger {
	return log.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	})
}

// RequestLogger logs one line per request with status, size and latency.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := requestLogger(log, r).WithFields(logrus.Fields{
				"status":   status,
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).String(),
				"remote":   r.RemoteAddr,
			})
			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("request completed")
			case status >= http.StatusBadRequest:
				entry.Warn("request completed")
			default:
				entry.Info("request completed")
			}
		})
	}
}

// Authenticator turns bearer tokens into users for downstream handlers.
type Authenticator struct {
	authService *services.AuthService
	log         logrus.FieldLogger
	metrics     *metrics.Metrics
}

func NewAuthenticator(authService *services.AuthService, log logrus.FieldLogger, m *metrics.Metrics) *Authenticator {
	return &Authenticator{authService: authService, log: log, metrics: m}
}

// Require authenticates the request and, when role is not empty, requires
// it. The user is stored in the request context.
func (a *Authenticator) Require(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := a.authorize(w, r, role)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

func (a *Authenticator) authorize(w http.ResponseWriter, r *http.Request, role string) (types.User, bool) {
	token, err := bearerToken(r)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return types.User{}, false
	}

	user, err := a.authService.Authorize(r.Context(), token, role)
	if err != nil {
		a.logAuthFailure(r, err)
		writeServiceError(w, r, a.log, err, msgUnauthorized)
		return types.User{}, false
	}
	return user, true
}

func (a *Authenticator) logAuthFailure(r *http.Request, err error) {
	log := requestLogger(a.log, r)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		a.metrics.AuthEvent("token", "expired")
		log.Warn("auth: token is expired")
	case errors.Is(err, auth.ErrInvalidToken):
		a.metrics.AuthEvent("token", "invalid")
		log.WithError(err).Warn("auth: invalid token")
	case errors.Is(err, services.ErrForbidden):
		a.metrics.AuthEvent("token", "forbidden")
		log.Warn("auth: insufficient role")
	case errors.Is(err, services.ErrUnauthorized):
		a.metrics.AuthEvent("token", "rejected")
		log.WithError(err).Warn("auth: token rejected")
	}
}

// PeerAddr records the socket address of the connection so that later
// middleware can rely on it after RealIP rewrites r.RemoteAddr. It must run
// before middleware.RealIP.
func PeerAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextPeerKey, r.RemoteAddr)))
	})
}

// RequestCounter increments a counter that expires after window.
type RequestCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit allows limit requests per client per window. Clients are keyed by
// the connection peer address, never by forwarding headers. With a nil
// counter, or when the counter fails, requests pass through.
func RateLimit(counter RequestCounter, limit int, window time.Duration, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil || limit <= 0 || window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:auth:" + clientIP(r)
			count, err := counter.Incr(r.Context(), key, window)
			if err != nil {
				requestLogger(log, r).WithError(err).Warn("rate limit: counter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				writeError(w, http.StatusTooManyRequests, "Demasiadas solicitudes, intente más tarde")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if peer, ok := r.Context().Value(contextPeerKey).(string); ok && peer != "" {
		addr = peer
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
