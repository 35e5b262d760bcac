package storage

import (
	"context"
	"github.com/pkg/errors"
	"io"
	"nodeconductor/internal/types"
	"os"
	"path/filepath"
	"strings"
)

type fileStorage struct {
	root string
}

func NewFileStorage(root string) Storage {
	return &fileStorage{root: root}
}

func (f fileStorage) Save(ctx context.Context, location string, file types.File) error {
	path, err := f.path(location)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	tmp := path + ".partial"
	fi, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(fi, file.Content); err != nil {
		_ = fi.Close()
		_ = os.Remove(tmp)
		return errors.Wrap(err, "failed to write "+location)
	}

	if err := fi.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func (f fileStorage) Get(ctx context.Context, location string) (*types.File, error) {
	path, err := f.path(location)
	if err != nil {
		return nil, err
	}

	fi, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrNotExist, location)
	}
	if err != nil {
		return nil, err
	}

	stat, err := fi.Stat()
	if err != nil {
		_ = fi.Close()
		return nil, err
	}

	return &types.File{
		Content: fi,
		Stat:    types.FileStat{Size: stat.Size(), Name: location},
	}, nil
}

func (f fileStorage) Delete(ctx context.Context, location string) error {
	path, err := f.path(location)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f fileStorage) Ping(ctx context.Context) error {
	return os.MkdirAll(f.root, 0700)
}

func (f fileStorage) path(location string) (string, error) {
	path := filepath.Join(f.root, filepath.FromSlash(location))
	if !strings.HasPrefix(path, filepath.Clean(f.root)+string(filepath.Separator)) {
		return "", errors.New("location escapes storage root: " + location)
	}
	return path, nil
}
