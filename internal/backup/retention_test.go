package backup

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"nodeconductor/internal/types"
	"testing"
	"time"
)

func TestSelectRetired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	newBackup := func(name string, state types.BackupState, age time.Duration, keptUntil *time.Time) *types.Backup {
		return &types.Backup{
			ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)),
			State:     state,
			CreatedAt: now.Add(-age),
			KeptUntil: keptUntil,
			Message:   name,
		}
	}
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		backups  []*types.Backup
		max      int
		expected []string
	}{
		{
			name: "count cap ignores retired states",
			backups: []*types.Backup{
				newBackup("b4", types.BackupStateBackingUp, 0, nil),
				newBackup("b2", types.BackupStateReady, 2*time.Hour, nil),
				newBackup("b3", types.BackupStateDeleted, time.Hour, nil),
				newBackup("b1", types.BackupStateReady, 3*time.Hour, nil),
			},
			max:      1,
			expected: []string{"b1", "b2"},
		},
		{
			name: "no cap",
			backups: []*types.Backup{
				newBackup("b1", types.BackupStateReady, 3*time.Hour, nil),
				newBackup("b2", types.BackupStateReady, 2*time.Hour, nil),
			},
			max:      0,
			expected: []string{},
		},
		{
			name: "under cap",
			backups: []*types.Backup{
				newBackup("b1", types.BackupStateReady, 3*time.Hour, nil),
				newBackup("b2", types.BackupStateErred, 2*time.Hour, nil),
				newBackup("b3", types.BackupStateDeleting, 2*time.Hour, nil),
			},
			max:      1,
			expected: []string{},
		},
		{
			name: "expired backups go first",
			backups: []*types.Backup{
				newBackup("b1", types.BackupStateReady, 3*time.Hour, &future),
				newBackup("b2", types.BackupStateReady, 2*time.Hour, &past),
				newBackup("b3", types.BackupStateReady, time.Hour, &future),
				newBackup("b4", types.BackupStateReady, 0, &future),
			},
			max:      2,
			expected: []string{"b2", "b1"},
		},
		{
			name: "running tasks count but are never picked",
			backups: []*types.Backup{
				newBackup("b1", types.BackupStateBackingUp, 2*time.Hour, nil),
				newBackup("b2", types.BackupStateRestoring, time.Hour, nil),
				newBackup("b3", types.BackupStateBackingUp, 0, nil),
			},
			max:      1,
			expected: []string{},
		},
		{
			name: "ready backups make room for running ones",
			backups: []*types.Backup{
				newBackup("b1", types.BackupStateRestoring, 3*time.Hour, nil),
				newBackup("b2", types.BackupStateReady, 2*time.Hour, nil),
				newBackup("b3", types.BackupStateReady, time.Hour, nil),
				newBackup("b4", types.BackupStateBackingUp, 0, nil),
			},
			max:      2,
			expected: []string{"b2", "b3"},
		},
		{
			name: "only ready backups expire",
			backups: []*types.Backup{
				newBackup("b1", types.BackupStateRestoring, 3*time.Hour, &past),
				newBackup("b2", types.BackupStateErred, 2*time.Hour, &past),
				newBackup("b3", types.BackupStateReady, time.Hour, &now),
			},
			max:      0,
			expected: []string{"b3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retired := SelectRetired(tt.backups, tt.max, now)
			names := make([]string, 0, len(retired))
			for _, bk := range retired {
				names = append(names, bk.Message)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}
