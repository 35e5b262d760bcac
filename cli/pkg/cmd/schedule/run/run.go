package run

import (
	"fmt"
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
	"time"
)

func NewRunSchedulesCmd(loader *app.Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fire every due backup schedule once",
		Long:  "Fire every due backup schedule once. Useful when the schedules are driven by an external cron instead of 'nodeconductor serve'",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			cmdutil.StartLoading("Working...")
			ctx, cancel := cmdutil.Context()
			defer cancel()
			fired, err := a.Schedules.RunDue(ctx, time.Now().UTC())
			cmdutil.StopLoading()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}
			cmdutil.PrintS(fmt.Sprintf("%d backup schedules fired", fired))
		},
	}
}
