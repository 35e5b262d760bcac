package backup

import (
	"context"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"io"
	"nodeconductor/internal/storage"
	"nodeconductor/internal/tasks"
	"nodeconductor/internal/types"
	"nodeconductor/logger"
	"os"
)

// restoredSuffix is appended to the source path of restorations that keep
// the original in place.
const restoredSuffix = ".restored"

// Handlers run backup, restoration and deletion tasks against a storage.
type Handlers struct {
	store storage.Storage
}

func NewHandlers(store storage.Storage) *Handlers {
	return &Handlers{store: store}
}

// Register installs the handlers on pool.
func (h *Handlers) Register(pool *tasks.Pool) {
	pool.Handle(types.TaskKindBackup, h.Backup)
	pool.Handle(types.TaskKindRestoration, h.Restore)
	pool.Handle(types.TaskKindDeletion, h.Delete)
}

// Backup archives the source into storage and returns the artifact location.
func (h *Handlers) Backup(ctx context.Context, p tasks.Payload) (string, error) {
	location := artifactLocation(p)
	if _, err := os.Stat(p.Source.Path); err != nil {
		return "", errors.Wrapf(err, "backup source %s is not readable", p.Source.Name)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(writeArchive(p.Source.Path, pw))
	}()

	err := h.store.Save(ctx, location, types.File{
		Content: pr,
		Stat: types.FileStat{
			Size:        -1,
			Name:        p.BackupID.String() + ".tar.gz",
			ContentType: "application/gzip",
		},
	})
	// unblocks the archive writer when Save bailed out early
	pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return "", errors.Wrap(err, "failed to store backup artifact")
	}

	logger.Info("backup artifact stored",
		zap.String("backup", p.BackupID.String()),
		zap.String("source", p.Source.Name),
		zap.String("location", location))
	return location, nil
}

// Restore unpacks the artifact over the source path, or next to it when the
// original is kept.
func (h *Handlers) Restore(ctx context.Context, p tasks.Payload) (string, error) {
	file, err := h.store.Get(ctx, artifactLocation(p))
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch backup artifact")
	}
	defer file.Content.Close()

	dest := p.Source.Path
	if !p.ReplaceOriginal {
		dest += restoredSuffix
	}

	staging := dest + ".partial-" + p.BackupID.String()
	if err := os.RemoveAll(staging); err != nil {
		return "", err
	}
	if err := extractArchive(file.Content, staging); err != nil {
		_ = os.RemoveAll(staging)
		return "", errors.Wrap(err, "failed to unpack backup artifact")
	}

	if err := os.RemoveAll(dest); err != nil {
		_ = os.RemoveAll(staging)
		return "", errors.Wrapf(err, "failed to clear %s", dest)
	}
	if err := os.Rename(staging, dest); err != nil {
		return "", errors.Wrapf(err, "failed to move restored data to %s", dest)
	}

	logger.Info("backup restored",
		zap.String("backup", p.BackupID.String()),
		zap.String("destination", dest))
	return dest, nil
}

// Delete removes the artifact. An artifact that is already gone is not an error.
func (h *Handlers) Delete(ctx context.Context, p tasks.Payload) (string, error) {
	location := artifactLocation(p)
	if err := h.store.Delete(ctx, location); err != nil && !errors.Is(err, storage.ErrNotExist) {
		return "", errors.Wrap(err, "failed to delete backup artifact")
	}
	return location, nil
}

func artifactLocation(p tasks.Payload) string {
	return storage.ArtifactLocation(p.Source.Kind, p.Source.ID, p.BackupID)
}
