package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge   = errors.New("file exceeds the size limit")
	ErrUnsupportedExt = errors.New("unsupported file type")
)

// allowedExts is the closed set of attachment extensions.
var allowedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// DiskStore writes attachments to a local directory. Stored paths are
// relative ("uploads/<name>") so they can be served verbatim and survive
// a move of the data directory.
type DiskStore struct {
	dir     string
	maxSize int64
}

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &DiskStore{dir: dir, maxSize: maxSize}, nil
}

// Save persists one uploaded file and returns its stored relative path.
// The original filename only contributes its extension; the stored name is
// generated so uploads can never collide or traverse out of the directory.
func (s *DiskStore) Save(fh *multipart.FileHeader) (string, error) {
	if fh.Size > s.maxSize {
		return "", ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExts[ext] {
		return "", ErrUnsupportedExt
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("creating attachment file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, s.maxSize+1)); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("writing attachment: %w", err)
	}

	return path.Join(filepath.Base(s.dir), name), nil
}

// Remove deletes a stored attachment by its relative path. Paths outside
// the store directory are rejected; a missing file is not an error.
func (s *DiskStore) Remove(rel string) error {
	name := path.Base(rel)
	if name == "." || name == "/" || name == ".." {
		return fmt.Errorf("invalid attachment path %q", rel)
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing attachment: %w", err)
	}
	return nil
}

// Dir returns the absolute-or-relative directory the store writes into.
func (s *DiskStore) Dir() string {
	return s.dir
}
