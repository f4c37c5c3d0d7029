// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"toolhost-cli/internal/config"
	"toolhost-cli/internal/issue"
	"toolhost-cli/internal/report"
	"toolhost-cli/internal/runner"
	"toolhost-cli/internal/servicemsg"

	"github.com/spf13/cobra"
)

func newParseCommand(app *App) *cobra.Command {
	var (
		format   string
		exitCode int
	)

	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Build a report from captured tool output",
		Long: `Read captured tool output, one line per entry, and aggregate it as if
the tool had just run and exited with --exit-code. Use - to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := config.ReportFormat(format)
			if f == "" {
				f = app.cfg.Report.Format
			}
			if err := f.Validate(); err != nil {
				return err
			}

			in, closeIn, err := openInput(args[0], cmd.InOrStdin())
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("read service message log").
					WithResource(args[0]).
					WithIssue(issue.ServiceMessageFileId).
					Wrap(err).
					BuildError()
			}
			defer closeIn()

			h, err := app.newHost()
			if err != nil {
				return err
			}
			res, err := parseLog(in, h.Parser(), runner.ExitCode(exitCode), report.WithLogger(app.logger))
			if err != nil {
				return err
			}
			if err := renderResult(app.stdout, res, f); err != nil {
				return err
			}
			return exitErrorFor(cmd, res)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "report format: text, json, or yaml (default report.format)")
	cmd.Flags().IntVar(&exitCode, "exit-code", 0, "exit code the tool is considered to have returned")

	return cmd
}

func openInput(name string, stdin io.Reader) (io.Reader, func(), error) {
	if name == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// parseLog replays r line by line through an aggregator. Lines are tagged as
// stdout; captured logs do not keep the stream of origin.
func parseLog(r io.Reader, p *servicemsg.Parser, code runner.ExitCode, opts ...report.Option) (*report.BuildResult, error) {
	agg := report.New(opts...)
	br := bufio.NewReader(r)
	seq := 0
	for {
		text, err := br.ReadString('\n')
		if text != "" {
			seq++
			agg.ObserveLine(runner.Line{Seq: seq, Origin: runner.Stdout, Text: strings.TrimRight(text, "\r\n")}, p)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
	}
	return agg.Finish(&code, runner.CauseExited), nil
}
