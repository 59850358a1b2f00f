package s3storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = string(b)
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T, maxSize int64) (*Store, *fakeS3) {
	t.Helper()
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	fake := &fakeS3{objects: map[string]string{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := New(context.Background(), Options{
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		MaxSize:         maxSize,
	})
	require.NoError(t, err)
	return s, fake
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{Endpoint: "http://localhost"})
	assert.Error(t, err)
}

func TestStore_PutAndRemovePathStyle(t *testing.T) {
	s, fake := newTestStore(t, 0)

	err := s.Put(context.Background(), "produtos", "u-1/foto.png", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", fake.objects["/produtos/u-1/foto.png"])
	assert.Equal(t, "image/png", fake.types["/produtos/u-1/foto.png"])

	require.NoError(t, s.Remove(context.Background(), "produtos", "u-1/foto.png"))
	assert.Empty(t, fake.objects)
}

func TestStore_PutRejectsOversized(t *testing.T) {
	s, fake := newTestStore(t, 4)

	err := s.Put(context.Background(), "b", "k", strings.NewReader("too large"), -1, "text/plain")
	assert.Error(t, err)
	err = s.Put(context.Background(), "b", "k", strings.NewReader("x"), 100, "text/plain")
	assert.Error(t, err)
	assert.Empty(t, fake.objects)
	assert.Equal(t, int64(4), s.MaxSize())
}
