package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/riosinforma/apiserver/internal/metrics"
	"github.com/riosinforma/apiserver/internal/services"
	"github.com/riosinforma/apiserver/types"
	"github.com/sirupsen/logrus"
)

// AuthHandler provides JWT authentication endpoints.
type AuthHandler struct {
	authService *services.AuthService
	log         logrus.FieldLogger
	metrics     *metrics.Metrics
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, log logrus.FieldLogger, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{authService: authService, log: log, metrics: m}
}

// AuthRouter registers auth routes on the given router. limiter throttles
// the credential endpoints and may be nil.
func AuthRouter(r chi.Router, handler *AuthHandler, authn *Authenticator, limiter func(http.Handler) http.Handler) {
	credentials := r.With()
	if limiter != nil {
		credentials = r.With(limiter)
	}
	credentials.Post("/register", handler.Register)
	credentials.Post("/login", handler.Login)

	r.With(authn.Require("")).Get("/me", handler.Me)
	r.With(authn.Require("")).Post("/logout", handler.Logout)
}

// RegisterRequest accepts the legacy "nombre" field as an alias of "name".
type RegisterRequest struct {
	Name     string `json:"name"`
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User        types.User `json:"user"`
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
}

func newAuthResponse(result services.AuthResult) AuthResponse {
	return AuthResponse{User: result.User, AccessToken: result.Token, TokenType: "bearer"}
}

// Register creates a new account and returns it with a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := req.Name
	if strings.TrimSpace(name) == "" {
		name = req.Nombre
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Nombre, email y contraseña requeridos")
		return
	}

	result, err := h.authService.Register(r.Context(), services.RegisterInput{
		Name:     name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.metrics.AuthEvent("register", "failure")
		writeServiceError(w, r, h.log, err, msgUnauthorized)
		return
	}

	h.metrics.AuthEvent("register", "success")
	requestLogger(h.log, r).WithField("user_id", result.User.ID).Info("user registered")
	writeJSON(w, http.StatusCreated, newAuthResponse(result))
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email y contraseña requeridos")
		return
	}

	result, err := h.authService.Login(r.Context(), services.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.metrics.AuthEvent("login", "failure")
		if errors.Is(err, services.ErrInvalidCredentials) {
			requestLogger(h.log, r).Warn("login rejected")
		}
		writeServiceError(w, r, h.log, err, msgUnauthorized)
		return
	}

	h.metrics.AuthEvent("login", "success")
	writeJSON(w, http.StatusOK, newAuthResponse(result))
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	if err := h.authService.Logout(r.Context(), token); err != nil {
		writeServiceError(w, r, h.log, err, msgUnauthorized)
		return
	}

	h.metrics.AuthEvent("logout", "success")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Sesión cerrada correctamente", Success: true})
}
