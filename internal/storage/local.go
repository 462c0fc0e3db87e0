package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"resumescreener/internal/config"
	"resumescreener/internal/errors"
	"resumescreener/internal/types"
	"resumescreener/internal/utils"
)

// Local retains uploads under dir/<batch>/<uuid>-<name>
type Local struct {
	dir string
}

// NewLocal creates the retention directory if needed
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "storage.local.dir is required for the local policy", nil)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to create storage directory", err).
			WithContext("dir", dir)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Policy() string { return config.StoragePolicyLocal }

// Retain writes a copy of upload and returns its path
func (l *Local) Retain(ctx context.Context, batchID string, upload types.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	batchDir := filepath.Join(l.dir, utils.SanitizeFileName(batchID))
	if err := os.MkdirAll(batchDir, 0750); err != nil {
		return "", errors.NewIOError(errors.ErrCodeStorageFailed, "failed to create batch directory", err)
	}

	path := filepath.Join(batchDir, uuid.NewString()+"-"+utils.SanitizeFileName(upload.FileName))
	if err := os.WriteFile(path, upload.Data, 0640); err != nil {
		return "", errors.NewIOError(errors.ErrCodeStorageFailed, "failed to retain upload", err).
			WithContext("path", path)
	}
	return path, nil
}
