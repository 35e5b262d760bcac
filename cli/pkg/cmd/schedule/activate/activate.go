package activate

import (
	"context"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
	"nodeconductor/internal/types"
)

type toggle func(a *app.App, ctx context.Context, id uuid.UUID, actor string) (*types.BackupSchedule, error)

func NewActivateScheduleCmd(loader *app.Loader) *cobra.Command {
	return newToggleCmd(loader, "activate", "Start triggering a backup schedule",
		func(a *app.App, ctx context.Context, id uuid.UUID, actor string) (*types.BackupSchedule, error) {
			return a.Schedules.Activate(ctx, id, actor)
		})
}

func NewDeactivateScheduleCmd(loader *app.Loader) *cobra.Command {
	return newToggleCmd(loader, "deactivate", "Stop triggering a backup schedule",
		func(a *app.App, ctx context.Context, id uuid.UUID, actor string) (*types.BackupSchedule, error) {
			return a.Schedules.Deactivate(ctx, id, actor)
		})
}

func newToggleCmd(loader *app.Loader, use, short string, fn toggle) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <schedule id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := cmdutil.ParseID(args, "schedule")
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
			schedule, err := fn(a, ctx, id, cmdutil.Actor())
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			if schedule.IsActive {
				cmdutil.PrintS("backup schedule active, next backup at " + cmdutil.FormatTime(schedule.NextTriggerAt))
				return
			}
			cmdutil.PrintS("backup schedule inactive")
		},
	}
}
