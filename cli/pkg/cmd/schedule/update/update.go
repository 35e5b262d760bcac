package update

import (
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
	"nodeconductor/internal/types"
)

func NewUpdateScheduleCmd(loader *app.Loader) *cobra.Command {
	var (
		expression  string
		description string
		retention   int
		maxBackups  int
	)
	cmd := &cobra.Command{
		Use:     "update <schedule id>",
		Short:   "Update a backup schedule",
		Example: `nodeconductor schedule update <id> --cron "30 3 * * *" --max 10`,
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := cmdutil.ParseID(args, "schedule")
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			params := types.UpdateScheduleParams{}
			if cmd.Flags().Changed("cron") {
				params.Schedule = &expression
			}
			if cmd.Flags().Changed("description") {
				params.Description = &description
			}
			if cmd.Flags().Changed("retention") {
				params.RetentionTime = &retention
			}
			if cmd.Flags().Changed("max") {
				params.MaximalNumberOfBackups = &maxBackups
			}

			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			ctx, cancel := cmdutil.Context()
			defer cancel()
			schedule, err := a.Schedules.Update(ctx, id, params, cmdutil.Actor())
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			cmdutil.PrintS("backup schedule updated!")
			cmdutil.Print("next backup at " + cmdutil.FormatTime(schedule.NextTriggerAt))
		},
	}

	cmd.Flags().StringVarP(&expression, "cron", "c", "", "Five field cron expression")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description")
	cmd.Flags().IntVar(&retention, "retention", 0, "Days to keep each backup")
	cmd.Flags().IntVar(&maxBackups, "max", 0, "Number of backups to keep")
	return cmd
}
