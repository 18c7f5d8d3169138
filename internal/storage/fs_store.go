package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

type fsStore struct {
	fs     afero.Fs
	logger zerolog.Logger
}

// NewFSStore stores artifacts beneath root on the local disk.
func NewFSStore(root string, logger zerolog.Logger) FileStore {
	return NewAferoStore(afero.NewBasePathFs(afero.NewOsFs(), root), logger)
}

// NewAferoStore stores artifacts on an arbitrary afero filesystem.
func NewAferoStore(filesystem afero.Fs, logger zerolog.Logger) FileStore {
	return &fsStore{
		fs:     filesystem,
		logger: logger.With().Str("component", "fs_store").Logger(),
	}
}

func (s *fsStore) Write(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := cleanKey(p)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, key, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	s.logger.Debug().Str("path", key).Int("bytes", len(data)).Msg("artifact written")
	return nil
}

func (s *fsStore) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := cleanKey(p)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

func (s *fsStore) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key, err := cleanKey(p)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, key)
}
