package remove

import (
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
)

func NewDeleteBackupCmd(loader *app.Loader) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <backup id>",
		Short: "Delete a backup and its artifact",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := cmdutil.ParseID(args, "backup")
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			if !yes && !cmdutil.Confirm("Delete backup "+id.String()) {
				return
			}

			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			ctx, cancel := cmdutil.Context()
			defer cancel()
			if _, err := a.Records.Delete(ctx, id, cmdutil.Actor()); err != nil {
				cmdutil.PrintE(err.Error())
				return
			}
			cmdutil.PrintS("backup deletion scheduled!")
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
