package storage

import (
	"context"
	"github.com/pkg/errors"
	"nodeconductor/internal/types"
)

type (
	Type string

	Storage interface {
		Save(ctx context.Context, location string, f types.File) error
		Get(ctx context.Context, location string) (*types.File, error)
		Delete(ctx context.Context, location string) error
		Ping(ctx context.Context) error
	}
)

const (
	TypeFS Type = "File"
	TypeS3 Type = "S3"
)

// ErrNotExist is returned by Get for a location that holds no artifact.
var ErrNotExist = errors.New("artifact does not exist")

func (t Type) String() string {
	return string(t)
}

// New returns object storage when an endpoint is configured and file storage
// rooted at dir otherwise.
func New(cred types.StorageCredentials, dir string) (Storage, Type, error) {
	if cred.Endpoint == "" {
		return NewFileStorage(dir), TypeFS, nil
	}

	st, err := NewObjectStorage(cred)
	if err != nil {
		return nil, "", errors.Wrap(err, "invalid object storage credential")
	}
	return st, TypeS3, nil
}
