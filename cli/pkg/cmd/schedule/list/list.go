package list

import (
	"fmt"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
	"strconv"
)

func NewListSchedulesCmd(loader *app.Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backup schedules",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			ctx, cancel := cmdutil.Context()
			defer cancel()
			schedules, err := a.Schedules.List(ctx)
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			rows := make([]table.Row, 0, len(schedules))
			for _, next := range schedules {
				rows = append(rows, table.Row{
					next.ID.String(),
					next.BackupSourceID.String(),
					next.Schedule,
					strconv.FormatBool(next.IsActive),
					cmdutil.FormatTime(next.NextTriggerAt),
					fmt.Sprintf("%dd", next.RetentionTime),
					next.MaximalNumberOfBackups,
				})
			}
			cmdutil.RenderTable(
				table.Row{"ID", "Source", "Cron", "Active", "Next Backup", "Retention", "Max Backups"}, rows)
		},
	}
}
