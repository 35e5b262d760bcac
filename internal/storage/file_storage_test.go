package storage

import (
	"context"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"nodeconductor/internal/types"
	"strings"
	"testing"
)

func TestFileStorage(t *testing.T) {
	st := NewFileStorage(t.TempDir())
	ctx := context.Background()
	location := ArtifactLocation("instance", uuid.New(), uuid.New())

	require.NoError(t, st.Ping(ctx))
	require.NoError(t, st.Save(ctx, location, types.File{
		Content: io.NopCloser(strings.NewReader("snapshot")),
	}))

	f, err := st.Get(ctx, location)
	require.NoError(t, err)
	content, err := io.ReadAll(f.Content)
	require.NoError(t, err)
	require.NoError(t, f.Content.Close())
	assert.Equal(t, "snapshot", string(content))
	assert.Equal(t, int64(8), f.Stat.Size)

	require.NoError(t, st.Delete(ctx, location))
	_, err = st.Get(ctx, location)
	assert.True(t, errors.Is(err, ErrNotExist))

	// deleting twice is fine
	assert.NoError(t, st.Delete(ctx, location))
}

func TestFileStorageRejectsEscapingLocation(t *testing.T) {
	st := NewFileStorage(t.TempDir())
	err := st.Save(context.Background(), "../outside", types.File{
		Content: io.NopCloser(strings.NewReader("x")),
	})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	st, stType, err := New(types.StorageCredentials{}, t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, st)
	assert.Equal(t, TypeFS, stType)

	st, stType, err = New(types.StorageCredentials{Endpoint: "localhost:9000", AccessKeyID: "key", SecretKey: "secret"}, "")
	require.NoError(t, err)
	assert.NotNil(t, st)
	assert.Equal(t, TypeS3, stType)
}
