// Package main provides the strata CLI entrypoint.
//
// Usage:
//
//	strata [--config strata.yaml] <command> [options]
//
// Exit codes for `fetch` and `run`:
//   - 0: every request created or already present
//   - 1: at least one request failed
//   - 2: invalid invocation or configuration
//   - 3: interrupted
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/cli/cmd"
	"github.com/justapithecus/strata/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

// exitUsage is the exit code of flag parsing errors.
const exitUsage = 2

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "strata",
		Usage:          "Fetch and materialize ERA-Interim reanalysis fields",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:          cmd.GlobalFlags(),
		ExitErrHandler: exitErrHandler,
		OnUsageError: func(_ *cli.Context, err error, _ bool) error {
			return cli.Exit(err.Error(), exitUsage)
		},
		Commands: []*cli.Command{
			cmd.FetchCommand(),
			cmd.RunCommand(),
			cmd.ResolveCommand(),
			cmd.ParamsCommand(),
			cmd.InventoryCommand(),
			cmd.HistoryCommand(),
			cmd.StagingCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	code, msg := exitStatus(err)
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}

// exitStatus extracts the exit code and the message worth printing.
// cli.Exit("", N) carries no message.
func exitStatus(err error) (int, string) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return code, msg
	}
	return 1, fmt.Sprintf("Error: %v", err)
}
