package schedule

import (
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/pkg/cmd/schedule/activate"
	"nodeconductor/cli/pkg/cmd/schedule/create"
	"nodeconductor/cli/pkg/cmd/schedule/list"
	"nodeconductor/cli/pkg/cmd/schedule/remove"
	"nodeconductor/cli/pkg/cmd/schedule/run"
	"nodeconductor/cli/pkg/cmd/schedule/update"
)

func NewScheduleCmd(loader *app.Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule <command>",
		Aliases: []string{"sc"},
		Short:   "Manage backup schedules",
		Long:    "Create, update, (de)activate and delete the cron schedules backing up a source",
	}

	cmd.AddCommand(create.NewCreateScheduleCmd(loader))
	cmd.AddCommand(update.NewUpdateScheduleCmd(loader))
	cmd.AddCommand(activate.NewActivateScheduleCmd(loader))
	cmd.AddCommand(activate.NewDeactivateScheduleCmd(loader))
	cmd.AddCommand(remove.NewDeleteScheduleCmd(loader))
	cmd.AddCommand(list.NewListSchedulesCmd(loader))
	cmd.AddCommand(run.NewRunSchedulesCmd(loader))
	return cmd
}
