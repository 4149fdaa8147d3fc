package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"autopost/internal/store"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderSummary(s store.Summary, colorize bool) []string {
	errorsLine := fmt.Sprintf("With errors: %d", s.WithErrors)
	if s.WithErrors > 0 {
		errorsLine = colorText(errorsLine, statusError, colorize)
	}
	return []string{
		fmt.Sprintf("Rows: %d  Unscheduled: %d  Skipped: %d  Pending: %d  Posted: %d", s.Total, s.Unscheduled, s.Skipped, s.Pending, s.Posted),
		errorsLine,
	}
}

func colorText(value string, kind statusKind, colorize bool) string {
	if !colorize || value == "" {
		return value
	}
	var colors text.Colors
	switch kind {
	case statusOK:
		colors = text.Colors{text.FgGreen}
	case statusWarn:
		colors = text.Colors{text.FgYellow}
	case statusError:
		colors = text.Colors{text.FgRed}
	default:
		colors = text.Colors{text.FgBlue}
	}
	return colors.Sprint(value)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
