package backup

import (
	"github.com/samber/lo"
	"nodeconductor/internal/types"
	"sort"
	"time"
)

// SelectRetired returns the backups a schedule no longer keeps: ready backups
// past their kept_until time, then the oldest READY backups while more than
// maxBackups remain. Backups with a running task count against maxBackups but
// are never picked. maxBackups <= 0 keeps any number of backups.
func SelectRetired(backups []*types.Backup, maxBackups int, now time.Time) []*types.Backup {
	counted := lo.Filter(backups, func(item *types.Backup, index int) bool {
		return item.State.CountsAsReady()
	})
	sort.SliceStable(counted, func(i, j int) bool {
		return counted[i].CreatedAt.Before(counted[j].CreatedAt)
	})

	retired := lo.Filter(counted, func(item *types.Backup, index int) bool {
		return item.IsExpired(now)
	})
	if maxBackups <= 0 {
		return retired
	}

	excess := len(counted) - len(retired) - maxBackups
	for _, bk := range counted {
		if excess <= 0 {
			break
		}
		if bk.State != types.BackupStateReady || bk.IsExpired(now) {
			continue
		}
		retired = append(retired, bk)
		excess--
	}
	return retired
}
