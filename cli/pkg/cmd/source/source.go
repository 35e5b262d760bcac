package source

import (
	"github.com/spf13/cobra"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/pkg/cmd/source/add"
	"nodeconductor/cli/pkg/cmd/source/importcmd"
	"nodeconductor/cli/pkg/cmd/source/list"
)

func NewSourceCmd(loader *app.Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "source <command>",
		Aliases: []string{"src"},
		Short:   "Manage backup sources",
		Long:    "Register the instances, volumes and databases that can be backed up",
	}

	cmd.AddCommand(add.NewAddSourceCmd(loader))
	cmd.AddCommand(importcmd.NewImportSourcesCmd(loader))
	cmd.AddCommand(list.NewListSourcesCmd(loader))
	return cmd
}
