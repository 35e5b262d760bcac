package backup

import (
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/pkg/cmd/backup/create"
	"nodeconductor/cli/pkg/cmd/backup/list"
	"nodeconductor/cli/pkg/cmd/backup/poll"
	"nodeconductor/cli/pkg/cmd/backup/remove"
	"nodeconductor/cli/pkg/cmd/backup/restore"
)

func NewBackupCmd(loader *app.Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "backup <command>",
		Aliases: []string{"bc"},
		Short:   "Manage backups",
		Long:    "Start, restore and delete backups and check on the tasks behind them",
	}

	cmd.AddCommand(create.NewCreateBackupCmd(loader))
	cmd.AddCommand(restore.NewRestoreBackupCmd(loader))
	cmd.AddCommand(remove.NewDeleteBackupCmd(loader))
	cmd.AddCommand(poll.NewPollBackupsCmd(loader))
	cmd.AddCommand(list.NewListBackupsCmd(loader))
	return cmd
}
