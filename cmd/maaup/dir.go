package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/maaup/internal/dirs"
)

var dirNames = []string{"config", "data", "cache", "library", "resource", "resource-repo", "hot-update", "state"}

func newDirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "dir <name>",
		Short:     "Print a maaup directory",
		Long:      "Print one of the directories maaup uses: config, data, cache, library, resource, resource-repo, hot-update or state.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: dirNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dirs.Resolve()
			if err != nil {
				return err
			}
			dir, ok := d.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown directory %q", args[0])
			}
			fmt.Fprintln(a.stdout, dir)
			return nil
		},
	}
}
