package storage

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/kbmem/pathstore"
)

func TestBackendMetrics(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t)
	const table = "metrics_kb"
	require.NoError(t, b.CreateTable(ctx, table))

	written := testutil.ToFloat64(rowsWritten.WithLabelValues(table))
	read := testutil.ToFloat64(rowsRead.WithLabelValues(table))
	failed := testutil.ToFloat64(operationErrors.WithLabelValues("bulk_upsert"))

	_, err := b.BulkUpsert(ctx, table, []pathstore.Row{{Path: "a"}, {Path: "a.b"}})
	require.NoError(t, err)
	_, err = b.BulkRead(ctx, table)
	require.NoError(t, err)
	_, err = b.BulkUpsert(ctx, "bad name", []pathstore.Row{{Path: "a"}})
	require.Error(t, err)

	assert.Equal(t, written+2, testutil.ToFloat64(rowsWritten.WithLabelValues(table)))
	assert.Equal(t, read+2, testutil.ToFloat64(rowsRead.WithLabelValues(table)))
	assert.Equal(t, failed+1, testutil.ToFloat64(operationErrors.WithLabelValues("bulk_upsert")))

	samples, err := GatherMetrics(prometheus.DefaultGatherer)
	require.NoError(t, err)
	assert.Contains(t, samples, MetricSample{
		Name:   "kbmem_storage_rows_written_total",
		Labels: "table=" + table,
		Value:  testutil.ToFloat64(rowsWritten.WithLabelValues(table)),
	})
}

func TestGatherMetricsFiltersAndSorts(t *testing.T) {
	reg := prometheus.NewRegistry()
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "kbmem_storage_ops_total", Help: "ops"}, []string{"op"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "kbmem_storage_latency_seconds", Help: "latency"})
	other := prometheus.NewCounter(prometheus.CounterOpts{Name: "other_total", Help: "unrelated"})
	reg.MustRegister(ops, latency, other)

	ops.WithLabelValues("write").Add(3)
	ops.WithLabelValues("read").Inc()
	latency.Observe(0.1)
	latency.Observe(0.2)
	other.Inc()

	samples, err := GatherMetrics(reg)
	require.NoError(t, err)
	assert.Equal(t, []MetricSample{
		{Name: "kbmem_storage_latency_seconds", Labels: "", Value: 2},
		{Name: "kbmem_storage_ops_total", Labels: "op=read", Value: 1},
		{Name: "kbmem_storage_ops_total", Labels: "op=write", Value: 3},
	}, samples)
}
