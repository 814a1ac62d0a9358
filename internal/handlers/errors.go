package handlers

import (
	"errors"
	"net/http"

	"github.com/riosinforma/apiserver/internal/services"
	"github.com/sirupsen/logrus"
)

const (
	msgUnauthorized       = "No autenticado"
	msgForbidden          = "No tienes permiso para realizar esta acción"
	msgInvalidCredentials = "Credenciales incorrectas"
	msgEmailTaken         = "El email ya está registrado"
	msgInternal           = "Error interno del servidor"
)

// writeServiceError maps a service error onto a status and client-safe
// message. Unexpected errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error, notFound string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, msgEmailTaken)
	case errors.Is(err, services.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, services.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, msgForbidden)
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	default:
		requestLogger(log, r).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
