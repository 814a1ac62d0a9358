package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/riosinforma/apiserver/internal/services"
	"github.com/sirupsen/logrus"
)

const (
	formFieldFile      = "file"
	maxMultipartMemory = 8 << 20
	// Multipart framing on top of the largest accepted image.
	maxUploadBodyBytes = services.MaxUploadSize + 1<<20
)

// UploadHandler accepts and serves article images.
type UploadHandler struct {
	uploadService *services.UploadService
	log           logrus.FieldLogger
}

func NewUploadHandler(uploadService *services.UploadService, log logrus.FieldLogger) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, log: log}
}

// UploadRouter registers the upload endpoint. authMiddleware may be nil when
// uploads are anonymous.
func UploadRouter(r chi.Router, handler *UploadHandler, authMiddleware func(http.Handler) http.Handler) {
	if authMiddleware != nil {
		r.With(authMiddleware).Post("/", handler.Upload)
		return
	}
	r.Post("/", handler.Upload)
}

// UploadResponse describes a stored image.
type UploadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodyBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "El archivo es demasiado grande. Máximo 5MB")
			return
		}
		writeError(w, http.StatusBadRequest, "No se envió ningún archivo")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No se envió ningún archivo")
		return
	}
	defer file.Close()

	result, err := h.uploadService.Save(r.Context(), header.Filename, header.Size, file)
	if err != nil {
		writeServiceError(w, r, h.log, err, "Archivo no encontrado")
		return
	}

	requestLogger(h.log, r).WithField("filename", result.Filename).Info("image uploaded")
	writeJSON(w, http.StatusOK, UploadResponse{
		URL:      result.URL,
		Filename: result.Filename,
		Message:  "Imagen subida exitosamente",
	})
}

// ServeFile streams a previously uploaded image.
func (h *UploadHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.uploadService.Open(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "Archivo no encontrado")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		requestLogger(h.log, r).WithError(err).Warn("upload stream interrupted")
	}
}
