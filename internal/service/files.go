package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	apperrors "github.com/gelatohub/painel/internal/errors"
	"github.com/gelatohub/painel/internal/ports"
)

var bucketPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,62}$`)

// FileServiceOptions groups dependencies for FileService.
type FileServiceOptions struct {
	Storage ports.ObjectStorage
	// BaseURL is the backend project URL used to build public links.
	BaseURL string
}

// FileService stores files in backend storage buckets.
type FileService struct {
	storage ports.ObjectStorage
	baseURL string
}

// NewFileService constructs a FileService.
func NewFileService(opts FileServiceOptions) *FileService {
	return &FileService{storage: opts.Storage, baseURL: strings.TrimRight(opts.BaseURL, "/")}
}

// Upload stores body under bucket/path and returns its public URL.
func (s *FileService) Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) (string, error) {
	if s.storage == nil {
		return "", apperrors.Unavailable("armazenamento não configurado")
	}
	key, err := validateObject(bucket, path)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.storage.Put(ctx, bucket, key, body, size, contentType); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	return s.PublicURL(bucket, key), nil
}

// Delete removes bucket/path.
func (s *FileService) Delete(ctx context.Context, bucket, path string) error {
	if s.storage == nil {
		return apperrors.Unavailable("armazenamento não configurado")
	}
	key, err := validateObject(bucket, path)
	if err != nil {
		return err
	}
	if err := s.storage.Remove(ctx, bucket, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PublicURL returns the public link of bucket/path, or "" when no backend is configured.
func (s *FileService) PublicURL(bucket, path string) string {
	if s.baseURL == "" {
		return ""
	}
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

func validateObject(bucket, path string) (string, error) {
	if !bucketPattern.MatchString(bucket) {
		return "", apperrors.ValidationField("bucket", "bucket inválido")
	}
	key := strings.TrimLeft(path, "/")
	if key == "" {
		return "", apperrors.ValidationField("path", "caminho do arquivo é obrigatório")
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", apperrors.ValidationField("path", "caminho do arquivo inválido")
		}
	}
	return key, nil
}
