// Package upload stores image files on local disk under random names.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxSize is the largest accepted upload.
const MaxSize = 5 << 20

var ErrUnsupportedType = errors.New("only image files are allowed")

var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// LocalStore writes files to Dir and serves them under URLPrefix.
type LocalStore struct {
	Dir       string
	BaseURL   string
	URLPrefix string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), URLPrefix: "/uploads"}, nil
}

// Save copies r into a new file named after a random uuid, keeping the
// extension of filename, and returns the public URL of the file.
func (s *LocalStore) Save(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	name := uuid.NewString() + ext

	f, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, io.LimitReader(r, MaxSize)); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return s.BaseURL + s.URLPrefix + "/" + name, nil
}
