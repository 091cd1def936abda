// Package blob stores uploaded images on the local filesystem.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
)

// MaxSize is the largest accepted upload.
const MaxSize = 8 << 20

// ErrTooLarge is returned for uploads over MaxSize.
var ErrTooLarge = errors.New("blob too large")

// FileStore implements backend.BlobStore under a root directory.
type FileStore struct {
	root    string
	baseURL string
}

var _ backend.BlobStore = (*FileStore)(nil)

// NewFileStore stores blobs under root. With an empty baseURL retrieval URLs
// are file:// URLs; otherwise they are <baseURL>/blobs/<path>.
func NewFileStore(root, baseURL string) *FileStore {
	return &FileStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// Root returns the storage directory.
func (s *FileStore) Root() string { return s.root }

// Clean validates a blob path and returns it in canonical slash form.
func Clean(p string) (string, error) {
	if p == "" || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%w: %q", backend.ErrInvalidPath, p)
	}
	cleaned := path.Clean("/" + p)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", backend.ErrInvalidPath, p)
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." || strings.HasPrefix(part, ".") {
			return "", fmt.Errorf("%w: %q", backend.ErrInvalidPath, p)
		}
	}
	return cleaned, nil
}

// Upload writes data at p, replacing any existing blob.
func (s *FileStore) Upload(ctx context.Context, p string, data []byte) (backend.Handle, error) {
	const op = pErrors.Op("blob.Upload")

	clean, err := Clean(p)
	if err != nil {
		return backend.Handle{}, pErrors.E(op, pErrors.KindInvalid, err)
	}
	if len(data) > MaxSize {
		return backend.Handle{}, pErrors.E(op, pErrors.KindInvalid, ErrTooLarge)
	}
	if err := ctx.Err(); err != nil {
		return backend.Handle{}, pErrors.E(op, pErrors.KindTimeout, err)
	}

	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return backend.Handle{}, pErrors.WriteFailed(op, clean, err)
	}
	tmp := full + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return backend.Handle{}, pErrors.WriteFailed(op, clean, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return backend.Handle{}, pErrors.WriteFailed(op, clean, err)
	}

	return backend.Handle{
		Path:        clean,
		Size:        int64(len(data)),
		ContentType: http.DetectContentType(data),
	}, nil
}

// RetrievalURL returns the URL of an uploaded blob.
func (s *FileStore) RetrievalURL(_ context.Context, h backend.Handle) (string, error) {
	const op = pErrors.Op("blob.RetrievalURL")

	clean, err := Clean(h.Path)
	if err != nil {
		return "", pErrors.E(op, pErrors.KindInvalid, err)
	}
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", pErrors.E(op, pErrors.KindNotFound, clean, backend.ErrNotFound)
		}
		return "", pErrors.E(op, pErrors.KindIO, err)
	}

	if s.baseURL == "" {
		abs, err := filepath.Abs(full)
		if err != nil {
			return "", pErrors.E(op, pErrors.KindIO, err)
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
	}
	return s.baseURL + "/blobs/" + clean, nil
}

// Open returns the absolute file path for a blob, for serving.
func (s *FileStore) Open(p string) (string, error) {
	clean, err := Clean(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
