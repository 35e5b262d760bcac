package create

import (
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
)

func NewCreateBackupCmd(loader *app.Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "create <source id>",
		Short: "Back up a source now",
		Long:  "Back up a source now, outside of any schedule. The backup is executed by a running 'nodeconductor serve'",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			sourceID, err := cmdutil.ParseID(args, "source")
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			ctx, cancel := cmdutil.Context()
			defer cancel()
			bk, err := a.Records.CreateBackup(ctx, sourceID, cmdutil.Actor())
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}
			cmdutil.PrintS("backup scheduled! " + bk.ID.String())
		},
	}
}
