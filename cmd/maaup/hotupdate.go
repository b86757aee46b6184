package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/maaup/internal/config"
	"github.com/ZebulonRouseFrantzich/maaup/internal/hotupdate"
)

func newHotUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hot-update",
		Short: "Refresh hot-update resource files",
		Long: `Fetch the hot-update resource files (stage activity and task
definitions) into the cache directory. Files checked within
hot_update.check_interval seconds are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			unlock, err := a.lock(ctx, "hot-update")
			if err != nil {
				return err
			}
			defer unlock()

			u := hotupdate.New(
				a.downloader(),
				a.cfg.HotUpdate.APIURL,
				a.dirs.HotUpdate(),
				config.Seconds(a.cfg.HotUpdate.CheckInterval),
				hotupdate.WithLogger(a.logger),
			)
			if err := u.Update(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "hot-update files in %s\n", a.dirs.HotUpdate())
			return nil
		},
	}
}
