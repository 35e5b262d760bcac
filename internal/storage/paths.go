package storage

import (
	"fmt"
	"github.com/google/uuid"
)

const (
	Path      = "/var/nodeconductor/data"
	BackupDir = Path + "/backups"
	DBPath    = Path + "/nodeconductor.db"
)

// ArtifactLocation is the storage key of the artifact of one backup.
func ArtifactLocation(sourceKind string, sourceID, backupID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/%s", sourceKind, sourceID, backupID)
}
