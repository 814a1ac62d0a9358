package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/riosinforma/apiserver/internal/storage"
)

// MaxUploadSize is the largest accepted image, in bytes.
const MaxUploadSize = 5 << 20

// UploadPathPrefix is the public path uploaded files are served under.
const UploadPathPrefix = "/uploads/"

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// ObjectStore is the subset of storage used for uploads.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// UploadResult describes a stored image.
type UploadResult struct {
	URL      string
	Filename string
}

// UploadService validates and stores article images.
type UploadService struct {
	store   ObjectStore
	baseURL string
	now     func() time.Time
	newID   func() string
}

func NewUploadService(store ObjectStore, publicBaseURL string) *UploadService {
	return &UploadService{
		store:   store,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		now:     time.Now,
		newID: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

// imageExtension returns the lower-cased extension of name when it is an
// accepted image type.
func imageExtension(name string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	_, ok := imageContentTypes[ext]
	return ext, ok
}

// Save stores the image read from r under a generated name. size is the
// declared length; the stream is still capped at MaxUploadSize.
func (s *UploadService) Save(ctx context.Context, filename string, size int64, r io.Reader) (UploadResult, error) {
	if strings.TrimSpace(filename) == "" {
		return UploadResult{}, newValidationError("file", "no se seleccionó ningún archivo")
	}
	ext, ok := imageExtension(filename)
	if !ok {
		return UploadResult{}, newValidationError("file", "tipo de archivo no permitido, use png, jpg, jpeg, gif o webp")
	}
	if size > MaxUploadSize {
		return UploadResult{}, newValidationError("file", "el archivo excede el tamaño máximo de 5MB")
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return UploadResult{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return UploadResult{}, newValidationError("file", "el archivo excede el tamaño máximo de 5MB")
	}
	if len(data) == 0 {
		return UploadResult{}, newValidationError("file", "el archivo está vacío")
	}

	name := fmt.Sprintf("%s_%s.%s", s.newID(), s.now().Format("20060102_150405"), ext)
	if err := s.store.Put(ctx, name, bytes.NewReader(data), int64(len(data)), imageContentTypes[ext]); err != nil {
		return UploadResult{}, fmt.Errorf("store upload: %w", err)
	}

	return UploadResult{
		URL:      s.baseURL + UploadPathPrefix + name,
		Filename: name,
	}, nil
}

// Open returns a stored image and its content type. Unknown or malformed
// names yield ErrNotFound.
func (s *UploadService) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, "", ErrNotFound
	}
	ext, ok := imageExtension(name)
	if !ok {
		return nil, "", ErrNotFound
	}

	rc, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	return rc, imageContentTypes[ext], nil
}
