package poll

import (
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
)

func NewPollBackupsCmd(loader *app.Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Check the tasks of running backups",
		Long:  "Check the tasks of every backup, restoration and deletion in progress and record the finished ones",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			cmdutil.StartLoading("Working...")
			ctx, cancel := cmdutil.Context()
			defer cancel()
			err = a.Records.Poll(ctx)
			cmdutil.StopLoading()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}
			cmdutil.PrintS("backups polled!")
		},
	}
}
