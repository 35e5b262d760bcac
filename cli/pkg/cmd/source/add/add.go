package add

import (
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
	"nodeconductor/internal/types"
)

func NewAddSourceCmd(loader *app.Loader) *cobra.Command {
	params := types.CreateSourceParams{}
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Register a backup source",
		Example: "nodeconductor source add --kind volume --name uploads --path /srv/uploads",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			ctx, cancel := cmdutil.Context()
			defer cancel()
			source, err := a.Sources.Create(ctx, params)
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}
			cmdutil.PrintS("backup source created! " + source.ID.String())
		},
	}

	cmd.Flags().StringVarP(&params.Kind, "kind", "k", "volume", "Source kind: instance, volume or database")
	cmd.Flags().StringVarP(&params.Name, "name", "n", "", "Source name")
	cmd.Flags().StringVarP(&params.Path, "path", "p", "", "File or directory holding the source data")
	return cmd
}
