// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"toolhost-cli/internal/config"
	"toolhost-cli/internal/report"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// renderResult writes res to w in the requested format.
func renderResult(w io.Writer, res *report.BuildResult, format config.ReportFormat) error {
	switch format {
	case config.FormatJSON:
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, renderText(res))
		return err
	}
}

func renderText(res *report.BuildResult) string {
	var b strings.Builder

	b.WriteString(statusLine(res))
	b.WriteString("\n")

	if len(res.Tests) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Tests"))
		b.WriteString("\n")
		b.WriteString(renderTestTable(res))
		for _, t := range res.Tests {
			if t.State != report.Failed {
				continue
			}
			fmt.Fprintf(&b, "%s %s\n", ErrorStyle.Render("✗"), t.ID)
			if t.Failure != "" {
				fmt.Fprintf(&b, "    %s\n", t.Failure)
			}
			for _, line := range strings.Split(strings.TrimRight(t.Details, "\n"), "\n") {
				if line != "" {
					fmt.Fprintf(&b, "    %s\n", SubtitleStyle.Render(line))
				}
			}
		}
	}

	writeMessages(&b, "Failures", ErrorStyle, res.MessagesOf(report.Failure))
	writeMessages(&b, "Warnings", WarningStyle, res.MessagesOf(report.Warning))

	if len(res.Parameters) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Parameters"))
		b.WriteString("\n")
		for _, name := range slices.Sorted(maps.Keys(res.Parameters)) {
			fmt.Fprintf(&b, "  %s = %s\n", CmdStyle.Render(name), res.Parameters[name])
		}
	}

	if n := len(res.MessagesOf(report.StdError)); n > 0 {
		fmt.Fprintf(&b, "\n%s\n", SubtitleStyle.Render(fmt.Sprintf("%d line(s) written to stderr", n)))
	}
	if n := len(res.Violations); n > 0 {
		fmt.Fprintf(&b, "%s\n", WarningStyle.Render(fmt.Sprintf("%d test protocol violation(s) ignored; run with --verbose for details", n)))
	}

	return b.String()
}

func statusLine(res *report.BuildResult) string {
	name := res.Command
	if name == "" {
		name = "command"
	}
	var status string
	if res.ExitCode != nil {
		status = fmt.Sprintf("%s exited with code %s", name, *res.ExitCode)
	} else {
		status = fmt.Sprintf("%s %s", name, res.Cause)
	}
	if res.Duration > 0 {
		status += " in " + res.Duration.String()
	}
	if res.Succeeded() {
		return SuccessStyle.Render("✓ " + status)
	}
	return ErrorStyle.Render("✗ " + status)
}

func renderTestTable(res *report.BuildResult) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Test", "State", "Duration"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT})

	for _, t := range res.Tests {
		table.Append([]string{t.ID, t.State.String(), t.Duration.String()})
	}

	s := res.Summary
	table.SetFooter([]string{
		fmt.Sprintf("Total %d", s.Total),
		fmt.Sprintf("%d passed / %d failed / %d ignored", s.Passed, s.Failed, s.Ignored),
		"",
	})

	table.Render()

	return buf.String()
}

func writeMessages(b *strings.Builder, title string, style lipgloss.Style, msgs []report.BuildMessage) {
	if len(msgs) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(style.Render(title))
	b.WriteString("\n")
	for _, m := range msgs {
		fmt.Fprintf(b, "  %s\n", m.Text)
	}
}
