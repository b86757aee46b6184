package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/maaup/internal/git"
	"github.com/ZebulonRouseFrantzich/maaup/internal/hotupdate"
)

func newResourceCmd(a *app) *cobra.Command {
	resource := &cobra.Command{
		Use:   "resource",
		Short: "Manage the resource repository",
	}

	var auto bool
	update := &cobra.Command{
		Use:   "update",
		Short: "Clone or pull the resource repository",
		Long: `Clone the resource repository into the data directory, or pull it when
it is already present.

With --auto the update only runs when resource.auto_update is enabled, as
after a MaaCore update.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			unlock, err := a.lock(ctx, "resource")
			if err != nil {
				return err
			}
			defer unlock()

			res, err := a.resourceSync().Run(ctx, auto)
			if err != nil {
				return err
			}
			if res != nil {
				fmt.Fprintf(a.stdout, "resource repository at %s\n", res.Head)
			}
			return nil
		},
	}
	update.Flags().BoolVar(&auto, "auto", false, "only update when automatic updates are enabled")

	resource.AddCommand(update)
	return resource
}

// resourceSync builds the resource repository sync from the config.
func (a *app) resourceSync() *hotupdate.ResourceSync {
	r := a.cfg.Resource
	return &hotupdate.ResourceSync{
		Git: git.NewClient(a.dirs.ResourceRepo()),
		Remote: git.Remote{
			URL:    r.Remote.URL,
			Branch: r.Remote.Branch,
			SSHKey: r.Remote.SSHKey,
		},
		AutoUpdate:    r.AutoUpdate,
		WarnOnFailure: r.WarnOnUpdateFailure,
		Logger:        a.logger,
	}
}
