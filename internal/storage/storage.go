// Package storage stages uploaded resumes for extraction and optionally retains them.
package storage

import (
	"context"
	"fmt"
	"os"

	"resumescreener/internal/config"
	"resumescreener/internal/errors"
	"resumescreener/internal/types"
	"resumescreener/internal/utils"
)

// Staged is an upload written to a scoped temporary file
type Staged struct {
	Path string
}

// Cleanup removes the staged file. It is safe to call more than once.
func (s *Staged) Cleanup() {
	if s == nil || s.Path == "" {
		return
	}
	_ = os.Remove(s.Path)
	s.Path = ""
}

// Stage writes upload to a temporary file that keeps the original extension,
// so the extractor can pick a reader by suffix.
func Stage(upload types.Upload) (*Staged, error) {
	ext := utils.GetFileExtension(upload.FileName)
	f, err := os.CreateTemp("", "resume-*"+ext)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to create staging file", err)
	}
	staged := &Staged{Path: f.Name()}

	if _, err := f.Write(upload.Data); err != nil {
		_ = f.Close()
		staged.Cleanup()
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to write staging file", err)
	}
	if err := f.Close(); err != nil {
		staged.Cleanup()
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to close staging file", err)
	}
	return staged, nil
}

// Retainer keeps a copy of a processed upload and returns where it went.
// An empty location means nothing was retained.
type Retainer interface {
	Retain(ctx context.Context, batchID string, upload types.Upload) (string, error)
	Policy() string
}

// Discard is the temp policy: nothing outlives the staging file
type Discard struct{}

func (Discard) Retain(context.Context, string, types.Upload) (string, error) { return "", nil }
func (Discard) Policy() string                                              { return config.StoragePolicyTemp }

// New builds the retainer selected by cfg.Policy
func New(ctx context.Context, cfg config.StorageConfig, logger *errors.Logger) (Retainer, error) {
	switch cfg.Policy {
	case "", config.StoragePolicyTemp:
		return Discard{}, nil
	case config.StoragePolicyLocal:
		return NewLocal(cfg.Local.Dir)
	case config.StoragePolicyS3:
		return NewS3(ctx, cfg.S3, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown storage policy: %s", cfg.Policy), nil)
	}
}
