package importcmd

import (
	"fmt"
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
	"os"
)

func NewImportSourcesCmd(loader *app.Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Register backup sources listed in a YAML file",
		Long: `Register every backup source listed in a YAML file:

sources:
  - kind: instance
    name: web-1
    path: /var/lib/instances/web-1`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			f, err := os.Open(args[0])
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}
			defer f.Close()

			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			ctx, cancel := cmdutil.Context()
			defer cancel()
			sources, err := a.Sources.Import(ctx, f)
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}
			cmdutil.PrintS(fmt.Sprintf("%d backup sources imported!", len(sources)))
		},
	}
}
