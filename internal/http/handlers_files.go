package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gelatohub/painel/internal/service"
)

// maxUploadSize bounds a single uploaded file.
const maxUploadSize = 20 << 20

var (
	errFileTooLarge       = errors.New("arquivo excede o tamanho máximo")
	errStorageUnavailable = errors.New("armazenamento não configurado")
)

// FileService stores files in storage buckets.
type FileService interface {
	Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, bucket, path string) error
	PublicURL(bucket, path string) string
}

var _ FileService = (*service.FileService)(nil)

// FileHandlers uploads and removes files under /api/files.
type FileHandlers struct {
	Svc FileService
}

// Upload stores the request body as bucket/path.
// PUT /api/files/{bucket}/{path...}.
func (h *FileHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxUploadSize {
		WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "file_too_large", Err: errFileTooLarge})
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxUploadSize)
	defer body.Close()

	bucket, path := r.PathValue("bucket"), r.PathValue("path")
	url, err := h.Svc.Upload(r.Context(), bucket, path, body, r.ContentLength, r.Header.Get("Content-Type"))
	if err != nil {
		WriteAppError(w, err, "upload_failed")
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]string{"bucket": bucket, "path": path, "url": url})
}

// Delete removes bucket/path.
// DELETE /api/files/{bucket}/{path...}.
func (h *FileHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), r.PathValue("bucket"), r.PathValue("path")); err != nil {
		WriteAppError(w, err, "delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// URL returns the public link of bucket/path without touching storage.
// GET /api/files/{bucket}/{path...}.
func (h *FileHandlers) URL(w http.ResponseWriter, r *http.Request) {
	url := h.Svc.PublicURL(r.PathValue("bucket"), r.PathValue("path"))
	if url == "" {
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "storage_unavailable", Err: errStorageUnavailable})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}
