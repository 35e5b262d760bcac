package list

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
)

func NewListSourcesCmd(loader *app.Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backup sources",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			ctx, cancel := cmdutil.Context()
			defer cancel()
			sources, err := a.Sources.List(ctx)
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			rows := make([]table.Row, 0, len(sources))
			for _, next := range sources {
				rows = append(rows, table.Row{
					next.ID.String(),
					next.Kind,
					next.Name,
					next.Path,
					cmdutil.FormatTime(&next.CreatedAt),
				})
			}
			cmdutil.RenderTable(table.Row{"ID", "Kind", "Name", "Path", "Time Created"}, rows)
		},
	}
}
