package documents

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extension allow-list for uploads, keyed by lower-case extension with the
// content type used when the client does not supply one.
var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
}

// ValidExtension reports whether the filename carries an allowed extension
// and returns the fallback content type for it.
func ValidExtension(fileName string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	contentType, ok := allowedExtensions[ext]
	return contentType, ok
}

// AllowedExtensions lists the accepted extensions for error messages.
func AllowedExtensions() []string {
	out := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		out = append(out, ext)
	}
	return out
}

// Store persists uploaded file contents keyed by stored name.
type Store interface {
	Save(name string, r io.Reader) (int64, error)
	Open(name string) (io.ReadCloser, error)
	Remove(name string) error
}

// DiskStore keeps uploads in a flat directory. Stored names are generated
// server-side, so path traversal through client filenames is not a concern.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("documents: create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes the contents under name and returns the byte count.
func (s *DiskStore) Save(name string, r io.Reader) (int64, error) {
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return 0, fmt.Errorf("documents: create file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return 0, fmt.Errorf("documents: write file: %w", err)
	}
	return n, nil
}

// Open returns a reader over the stored contents.
func (s *DiskStore) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("documents: open file: %w", err)
	}
	return f, nil
}

// Remove deletes the stored contents.
func (s *DiskStore) Remove(name string) error {
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("documents: remove file: %w", err)
	}
	return nil
}
