package services

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const MaxResumeBytes = 10 << 20

var ErrUnsupportedFile = errors.New("unsupported file")

type StoredFile struct {
	Name string
	Path string
}

type FileStorage interface {
	EnsureDir() error
	Save(file *multipart.FileHeader, owner uuid.UUID) (StoredFile, error)
	Delete(name string) error
}

type localFileStorage struct {
	root string
}

func NewFileStorage(root string) FileStorage {
	return &localFileStorage{root: root}
}

func (s *localFileStorage) EnsureDir() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	return nil
}

// Save writes an uploaded PDF under a name derived from its owner.
func (s *localFileStorage) Save(file *multipart.FileHeader, owner uuid.UUID) (StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return StoredFile{}, fmt.Errorf("%w: extension %q", ErrUnsupportedFile, ext)
	}
	if file.Size > MaxResumeBytes {
		return StoredFile{}, fmt.Errorf("%w: %d bytes exceeds limit", ErrUnsupportedFile, file.Size)
	}

	name := fmt.Sprintf("resume_%s_%s%s", owner, uuid.NewString()[:8], ext)
	path := filepath.Join(s.root, name)

	src, err := file.Open()
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(dst, io.LimitReader(src, MaxResumeBytes+1)); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return StoredFile{}, fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return StoredFile{}, fmt.Errorf("failed to save file: %w", err)
	}

	return StoredFile{Name: name, Path: path}, nil
}

func (s *localFileStorage) Delete(name string) error {
	if err := os.Remove(filepath.Join(s.root, filepath.Base(name))); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
