package utils

import (
	"os"
	"strings"

	"braacket-bot/internal/rankcache"

	"github.com/jedib0t/go-pretty/v6/table"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func RenderReport(report rankcache.Report) {
	t := NewTable()
	t.AppendHeader(table.Row{"Job", "Source", "Cached", "Total", "Incomplete", "Duration"})
	t.AppendRow(table.Row{
		report.JobID,
		report.Source.Label(),
		report.Cached,
		report.Total,
		report.Incomplete,
		report.Duration().Round(1e6),
	})
	t.Render()
}

func Characters(chars []string) string {
	return strings.Join(chars, ", ")
}
