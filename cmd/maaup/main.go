package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/ZebulonRouseFrantzich/maaup/internal/installer"
	"github.com/ZebulonRouseFrantzich/maaup/internal/platform"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, platform.NewDetector())
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code: 0 on
// success, 2 when files were installed but a post-install step failed, and
// 1 for every other error.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, detector platform.Detector) int {
	a := newApp(stdout, stderr, detector)
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if installer.IsPartial(err) {
			return 2
		}
		return 1
	}
	return 0
}
