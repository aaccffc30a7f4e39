package storage

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const metricPrefix = "kbmem_storage_"

// Backing store metrics, labelled by table.
var (
	rowsRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kbmem_storage_rows_read_total",
		Help: "Rows read from knowledge base tables",
	}, []string{"table"})

	rowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kbmem_storage_rows_written_total",
		Help: "Rows upserted into knowledge base tables",
	}, []string{"table"})

	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kbmem_storage_errors_total",
		Help: "Failed backing store operations",
	}, []string{"operation"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kbmem_storage_operation_duration_seconds",
		Help:    "Time spent in backing store operations",
		Buckets: []float64{0.0005, 0.005, 0.05, 0.5, 5},
	}, []string{"operation"})
)

// observe records the duration of operation and counts it as failed when
// *err is non-nil. Use as: defer observe(op, newTimer(op), &err).
func observe(operation string, timer *prometheus.Timer, err *error) {
	timer.ObserveDuration()
	if err != nil && *err != nil {
		operationErrors.WithLabelValues(operation).Inc()
	}
}

func newTimer(operation string) *prometheus.Timer {
	return prometheus.NewTimer(operationDuration.WithLabelValues(operation))
}

// MetricSample is one series of a storage metric. Histograms report their
// observation count.
type MetricSample struct {
	Name   string
	Labels string
	Value  float64
}

// GatherMetrics reads the storage series from g, sorted by name then labels.
// Pass prometheus.DefaultGatherer for the process-wide registry.
func GatherMetrics(g prometheus.Gatherer) ([]MetricSample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	var out []MetricSample
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), metricPrefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			sample := MetricSample{Name: mf.GetName(), Labels: labelString(m.GetLabel())}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				sample.Value = m.GetCounter().GetValue()
			case dto.MetricType_HISTOGRAM:
				sample.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			out = append(out, sample)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}

func labelString(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	return strings.Join(parts, ",")
}
