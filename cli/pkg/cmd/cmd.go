package cmd

import (
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/pkg/cmd/backup"
	"nodeconductor/cli/pkg/cmd/schedule"
	"nodeconductor/cli/pkg/cmd/serve"
	"nodeconductor/cli/pkg/cmd/source"
	"nodeconductor/internal/config"
)

func New(cfg config.Config) *cobra.Command {
	loader := app.NewLoader(cfg)

	cmd := &cobra.Command{
		Use:   "nodeconductor",
		Short: "nodeconductor - scheduled backups of instances, volumes and databases",
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = loader.Close()
		},
	}

	cmd.AddCommand(serve.NewServeCmd(loader))
	cmd.AddCommand(source.NewSourceCmd(loader))
	cmd.AddCommand(schedule.NewScheduleCmd(loader))
	cmd.AddCommand(backup.NewBackupCmd(loader))
	return cmd
}
