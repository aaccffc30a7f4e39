package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/pathstore"
	"github.com/teranos/kbmem/storage"
)

// Output formats accepted by --format
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

const maxValueWidth = 60

// entryRows renders entries as table rows under a header row.
func entryRows(entries []pathstore.Entry) [][]string {
	rows := [][]string{{"PATH", "VALUE", "UPDATED"}}
	for _, e := range entries {
		rows = append(rows, []string{e.Path, valueString(e.Value), timeString(e.UpdatedAt)})
	}
	return rows
}

// valueString renders a value as compact JSON, truncated to maxValueWidth
// runes for tables.
func valueString(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "<unencodable>"
	}
	r := []rune(string(b))
	if len(r) > maxValueWidth {
		return string(r[:maxValueWidth-3]) + "..."
	}
	return string(r)
}

func timeString(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// writeEntries writes entries to w in format. Tables go through pterm.
func writeEntries(w io.Writer, entries []pathstore.Entry, format string) error {
	switch format {
	case formatTable, "":
		if len(entries) == 0 {
			pterm.Info.Println("No matching entries")
			return nil
		}
		return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(entryRows(entries)).Render()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []pathstore.Entry{}
		}
		return errors.Wrap(enc.Encode(entries), "encode json")
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return errors.Wrap(enc.Encode(entries), "encode yaml")
	default:
		return errors.Newf("unknown format %q (want %s, %s or %s)", format, formatTable, formatJSON, formatYAML)
	}
}

// limitEntries keeps the first n entries; n <= 0 keeps all.
func limitEntries(entries []pathstore.Entry, n int) []pathstore.Entry {
	if n > 0 && len(entries) > n {
		return entries[:n]
	}
	return entries
}

// writeStorageMetrics renders the storage counters recorded by this process
// as a table.
func writeStorageMetrics(w io.Writer, g prometheus.Gatherer) error {
	samples, err := storage.GatherMetrics(g)
	if err != nil {
		return errors.Wrap(err, "failed to gather storage metrics")
	}
	if len(samples) == 0 {
		_, err := fmt.Fprintln(w, "No storage operations recorded")
		return err
	}
	rows := pterm.TableData{{"METRIC", "LABELS", "VALUE"}}
	for _, m := range samples {
		rows = append(rows, []string{m.Name, m.Labels, strconv.FormatFloat(m.Value, 'f', -1, 64)})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(rows).Render()
}
