package main

import (
	"encoding/json"
	"io"
	"strconv"

	"fitfinder/ingest/internal/domain"

	"github.com/jedib0t/go-pretty/v6/table"
)

func renderTask(t *domain.ScrapingTask) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Task", "URL", "Status", "Progress"})
	tw.AppendRow(table.Row{strconv.FormatInt(t.ID, 10), t.SourceURL, t.Status.String(), t.Progress})
	return tw.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
