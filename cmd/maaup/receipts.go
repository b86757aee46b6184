package main

import (
	"github.com/ZebulonRouseFrantzich/maaup/internal/installer"
	"github.com/ZebulonRouseFrantzich/maaup/internal/receipt"
)

// saveReceipt records an installing run. Up-to-date and failed runs leave
// the previous receipt alone.
func (a *app) saveReceipt(component receipt.Component, channel string, res *installer.Result, files []string, runErr error) {
	if res == nil || res.Outcome != installer.OutcomeInstalled {
		return
	}
	r := receipt.New(component, res.RunID, res.Version, res.Asset, files)
	r.Channel = channel
	if installer.IsPartial(runErr) {
		r.MarkPartial(runErr)
	}
	if err := r.Save(a.dirs.State()); err != nil {
		a.logger.Warn("failed to save receipt", "component", component, "error", err)
	}
}
