package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/inquire/cli/reader"
	"github.com/pithecene-io/inquire/cli/render"
	"github.com/pithecene-io/inquire/export"
	"github.com/pithecene-io/inquire/transcript"
)

// InspectCommand returns the inspect command with subcommands.
// Inspect returns a deep view of a single run artifact.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect a single run artifact (transcript, report)",
		Subcommands: []*cli.Command{
			inspectTranscriptCommand(),
			inspectReportCommand(),
		},
	}
}

func inspectTranscriptCommand() *cli.Command {
	return &cli.Command{
		Name:      "transcript",
		Usage:     "Summarize a protocol transcript file",
		ArgsUsage: "<path>",
		Flags: append(ReadOnlyFlags(), &cli.BoolFlag{
			Name:  "records",
			Usage: "Show every record instead of the summary",
		}),
		Action: inspectTranscriptAction,
	}
}

func inspectTranscriptAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("transcript path required", 1)
	}

	records, skipped, err := transcript.ReadFile(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("records") {
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported with --records", 1)
		}
		return r.Render(records)
	}

	summary := reader.SummarizeTranscript(records, skipped)
	if c.Bool("tui") {
		return r.RenderTUI("inspect_transcript", summary)
	}
	return r.Render(summary)
}

func inspectReportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Show a run report or stored manifest",
		ArgsUsage: "<path>",
		Flags:     ReadOnlyFlags(),
		Action:    inspectReportAction,
	}
}

func inspectReportAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("report path required", 1)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for inspect report", 1)
	}

	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	var report export.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return cli.Exit(fmt.Sprintf("invalid run report: %v", err), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(&report)
}
