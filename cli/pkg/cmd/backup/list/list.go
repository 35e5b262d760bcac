package list

import (
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
	"nodeconductor/internal/types"
	"strings"
)

func NewListBackupsCmd(loader *app.Loader) *cobra.Command {
	var (
		scheduleID string
		sourceID   string
		states     []string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups",
		Run: func(cmd *cobra.Command, args []string) {
			filter, err := newFilter(scheduleID, sourceID, states)
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
			backups, err := a.Records.List(ctx, filter)
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			rows := make([]table.Row, 0, len(backups))
			for _, next := range backups {
				source := "-"
				if next.BackupSource != nil {
					source = next.BackupSource.Name
				}
				rows = append(rows, table.Row{
					next.ID.String(),
					source,
					next.State.String(),
					cmdutil.FormatTime(&next.CreatedAt),
					cmdutil.FormatTime(next.KeptUntil),
					next.Message,
				})
			}
			cmdutil.RenderTable(
				table.Row{"ID", "Source", "State", "Time Created", "Kept Until", "Message"}, rows)
		},
	}

	cmd.Flags().StringVar(&scheduleID, "schedule", "", "Only backups of this schedule")
	cmd.Flags().StringVar(&sourceID, "source", "", "Only backups of this source")
	cmd.Flags().StringSliceVar(&states, "state", nil, "Only backups in these states")
	return cmd
}

func newFilter(scheduleID, sourceID string, states []string) (types.BackupFilter, error) {
	filter := types.BackupFilter{}
	if scheduleID != "" {
		id, err := uuid.Parse(scheduleID)
		if err != nil {
			return filter, err
		}
		filter.BackupScheduleID = &id
	}
	if sourceID != "" {
		id, err := uuid.Parse(sourceID)
		if err != nil {
			return filter, err
		}
		filter.BackupSourceID = &id
	}
	for _, state := range states {
		filter.States = append(filter.States, types.BackupState(strings.ToUpper(state)))
	}
	return filter, nil
}
