// Package main provides the inquire CLI entrypoint.
//
// Export and schedule are the only commands that submit queries or write
// to storage. Every other command is read-only.
//
// Usage:
//
//	inquire <command> [subcommand] [options]
//
// Exit codes of `export`:
//   - 0: every selected query exported
//   - 1: partial, some queries failed
//   - 2: the run failed as a whole or was interrupted
//   - 3: invalid configuration, nothing ran
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/inquire/cli/cmd"
	"github.com/pithecene-io/inquire/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "inquire",
		Usage:          "Export shared query results from an asynchronous query backend",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.ExportCommand(),
			cmd.ScheduleCommand(),
			cmd.CatalogCommand(),
			cmd.StatsCommand(),
			cmd.InspectCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(1)
	}
}

// exitErrHandler prints the error and exits with the code from cli.Exit,
// or 1 for any other error.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	msg, code := exitMessage(err)
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}

// exitMessage returns what to print and the process exit code for err.
// cli.Exit("", N) prints nothing.
func exitMessage(err error) (string, int) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return msg, code
	}
	return fmt.Sprintf("Error: %v", err), 1
}
