package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/teranos/kbmem/pathstore"
)

func sampleEntries() []pathstore.Entry {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []pathstore.Entry{
		{Path: "kb.class.mammals", Value: map[string]any{"description": "Mammals"}, CreatedAt: &ts, UpdatedAt: &ts},
		{Path: "kb.class.mammals.species.dog", Value: nil},
	}
}

func TestEntryRows(t *testing.T) {
	rows := entryRows(sampleEntries())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"PATH", "VALUE", "UPDATED"}, rows[0])
	assert.Equal(t, []string{"kb.class.mammals", `{"description":"Mammals"}`, "2024-03-01T12:00:00Z"}, rows[1])
	assert.Equal(t, []string{"kb.class.mammals.species.dog", "null", "-"}, rows[2])
}

func TestValueStringTruncates(t *testing.T) {
	long := strings.Repeat("x", 200)
	s := valueString(long)
	assert.Len(t, s, maxValueWidth)
	assert.True(t, strings.HasSuffix(s, "..."))

	assert.Equal(t, "<unencodable>", valueString(func() {}))
	assert.Equal(t, "4", valueString(4))
}

func TestValueStringTruncatesOnRunes(t *testing.T) {
	s := valueString(strings.Repeat("é", 200))
	assert.True(t, utf8.ValidString(s))
	assert.Equal(t, maxValueWidth, utf8.RuneCountInString(s))
	assert.True(t, strings.HasSuffix(s, "..."))

	short := valueString("naïve")
	assert.Equal(t, `"naïve"`, short)
}

func TestWriteEntriesJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEntries(&buf, sampleEntries(), formatJSON))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "kb.class.mammals", got[0]["path"])

	buf.Reset()
	require.NoError(t, writeEntries(&buf, nil, formatJSON))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteEntriesYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEntries(&buf, sampleEntries(), formatYAML))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "kb.class.mammals.species.dog", got[1]["path"])
}

func TestWriteEntriesTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEntries(&buf, sampleEntries(), formatTable))
	assert.Contains(t, buf.String(), "kb.class.mammals.species.dog")
}

func TestWriteEntriesUnknownFormat(t *testing.T) {
	err := writeEntries(&bytes.Buffer{}, nil, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestLimitEntries(t *testing.T) {
	entries := sampleEntries()
	assert.Len(t, limitEntries(entries, 0), 2)
	assert.Len(t, limitEntries(entries, 1), 1)
	assert.Len(t, limitEntries(entries, 10), 2)
}

func TestWriteStorageMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kbmem_storage_rows_read_total", Help: "rows",
	}, []string{"table"})
	reg.MustRegister(rows)

	var buf bytes.Buffer
	require.NoError(t, writeStorageMetrics(&buf, reg))
	assert.Contains(t, buf.String(), "No storage operations recorded")

	rows.WithLabelValues("kb").Add(5)
	buf.Reset()
	require.NoError(t, writeStorageMetrics(&buf, reg))
	assert.Contains(t, buf.String(), "kbmem_storage_rows_read_total")
	assert.Contains(t, buf.String(), "table=kb")
	assert.Contains(t, buf.String(), "5")
}
