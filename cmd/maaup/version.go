package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/maaup/internal/dirs"
	"github.com/ZebulonRouseFrantzich/maaup/internal/receipt"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show maaup and installed component versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.stdout, "maaup %s\n", Version)

			d, err := dirs.Resolve()
			if err != nil {
				return err
			}
			for _, c := range []struct {
				component receipt.Component
				label     string
			}{
				{receipt.ComponentCLI, "maa-cli"},
				{receipt.ComponentCore, "MaaCore"},
			} {
				r, err := receipt.Load(d.State(), c.component)
				if errors.Is(err, receipt.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				line := fmt.Sprintf("%s %s", c.label, r.Version)
				if r.State == receipt.StatePartial {
					line += " (incomplete: " + r.LastError + ")"
				}
				fmt.Fprintln(a.stdout, line)
			}
			return nil
		},
	}
}
