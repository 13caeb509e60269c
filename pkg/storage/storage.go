package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested path does not exist in storage.
var ErrNotFound = errors.New("not found")

// Storage provides an abstraction over key-value style file storage.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Copier is implemented by backends that can duplicate an object without
// a round trip through the caller.
type Copier interface {
	Copy(ctx context.Context, src, dst string) error
}

// Locator is implemented by backends whose paths map to files on the
// local filesystem.
type Locator interface {
	Locate(path string) string
}

// Copy duplicates src to dst, using the backend's native copy when it has one.
func Copy(ctx context.Context, s Storage, src, dst string) error {
	if c, ok := s.(Copier); ok {
		return c.Copy(ctx, src, dst)
	}
	data, err := s.Read(ctx, src)
	if err != nil {
		return err
	}
	if err := s.Write(ctx, dst, data); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return nil
}
