package restore

import (
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
)

func NewRestoreBackupCmd(loader *app.Loader) *cobra.Command {
	var (
		replace bool
		yes     bool
	)
	cmd := &cobra.Command{
		Use:   "restore <backup id>",
		Short: "Restore a backup",
		Long:  "Restore a backup next to its source, or over it with --replace",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := cmdutil.ParseID(args, "backup")
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			if replace && !yes && !cmdutil.Confirm("Replace the current data of the source") {
				return
			}

			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			ctx, cancel := cmdutil.Context()
			defer cancel()
			if _, err := a.Records.Restore(ctx, id, replace, cmdutil.Actor()); err != nil {
				cmdutil.PrintE(err.Error())
				return
			}
			cmdutil.PrintS("backup restoration scheduled!")
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Replace the source data instead of restoring next to it")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
