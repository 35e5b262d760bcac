package remove

import (
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
)

func NewDeleteScheduleCmd(loader *app.Loader) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <schedule id>",
		Short: "Delete a backup schedule",
		Long:  "Delete a backup schedule. Backups it created are kept and can still be restored or deleted",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := cmdutil.ParseID(args, "schedule")
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			if !yes && !cmdutil.Confirm("Delete backup schedule "+id.String()) {
				return
			}

			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			ctx, cancel := cmdutil.Context()
			defer cancel()
			if err := a.Schedules.Delete(ctx, id, cmdutil.Actor()); err != nil {
				cmdutil.PrintE(err.Error())
				return
			}
			cmdutil.PrintS("backup schedule deleted!")
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
