package create

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
	"nodeconductor/internal/types"
)

func NewCreateScheduleCmd(loader *app.Loader) *cobra.Command {
	var sourceID string
	params := types.CreateScheduleParams{}
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a backup schedule",
		Example: `nodeconductor schedule create --source <id> --cron "0 2 * * *" --retention 7 --max 5 --active`,
		Run: func(cmd *cobra.Command, args []string) {
			id, err := uuid.Parse(sourceID)
			if err != nil {
				cmdutil.PrintE("invalid source id: " + sourceID)
				return
			}
			params.BackupSourceID = id

			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			ctx, cancel := cmdutil.Context()
			defer cancel()
			schedule, err := a.Schedules.Create(ctx, params, cmdutil.Actor())
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			cmdutil.PrintS("backup schedule created! " + schedule.ID.String())
			if schedule.NextTriggerAt != nil {
				cmdutil.Print("next backup at " + cmdutil.FormatTime(schedule.NextTriggerAt))
			}
		},
	}

	cmd.Flags().StringVarP(&sourceID, "source", "s", "", "ID of the backup source")
	cmd.Flags().StringVarP(&params.Schedule, "cron", "c", "", "Five field cron expression")
	cmd.Flags().StringVarP(&params.Description, "description", "d", "", "Description")
	cmd.Flags().BoolVar(&params.IsActive, "active", false, "Start triggering right away")
	cmd.Flags().IntVar(&params.RetentionTime, "retention", 0, "Days to keep each backup, 0 keeps them regardless of age")
	cmd.Flags().IntVar(&params.MaximalNumberOfBackups, "max", 0, "Number of backups to keep, 0 keeps any number")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("cron")
	return cmd
}
