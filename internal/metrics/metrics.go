// Package metrics exports run results as Prometheus gauges in the node
// exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xtxerr/polarwarp/internal/analyzer"
	"github.com/xtxerr/polarwarp/internal/report"
)

var groupLabels = []string{"source", "dimension", "op", "bucket", "endpoint", "client"}

// Exporter holds the gauges of one run on a private registry.
type Exporter struct {
	registry *prometheus.Registry

	filesGauge      *prometheus.GaugeVec
	rowsGauge       *prometheus.GaugeVec
	rejectsGauge    *prometheus.GaugeVec
	durationGauge   prometheus.Gauge
	overlapGauge    prometheus.Gauge
	opsGauge        *prometheus.GaugeVec
	countGauge      *prometheus.GaugeVec
	latencyGauge    *prometheus.GaugeVec
	throughputGauge *prometheus.GaugeVec
}

// NewExporter creates an exporter with every gauge registered.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		filesGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "polarwarp_files",
				Help: "Input files by outcome",
			},
			[]string{"status"},
		),
		rowsGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "polarwarp_file_rows",
				Help: "Data rows per input file by stage",
			},
			[]string{"source", "stage"},
		),
		rejectsGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "polarwarp_file_rejected_rows",
				Help: "Rejected rows per input file by reason",
			},
			[]string{"source", "reason"},
		),
		durationGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "polarwarp_run_duration_seconds",
			Help: "Wall time of the analysis",
		}),
		overlapGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "polarwarp_overlap_ratio",
			Help: "Overlap of file runtime windows over their union",
		}),
		opsGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "polarwarp_group_ops_per_second",
				Help: "Operation rate of a group over its runtime window",
			},
			groupLabels,
		),
		countGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "polarwarp_group_operations",
				Help: "Operations aggregated in a group",
			},
			groupLabels,
		),
		latencyGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "polarwarp_group_latency_microseconds",
				Help: "Latency of a group by percentile",
			},
			append(append([]string(nil), groupLabels...), "percentile"),
		),
		throughputGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "polarwarp_group_throughput_mib_per_second",
				Help: "Throughput of a group over its runtime window",
			},
			groupLabels,
		),
	}

	e.registry.MustRegister(
		e.filesGauge,
		e.rowsGauge,
		e.rejectsGauge,
		e.durationGauge,
		e.overlapGauge,
		e.opsGauge,
		e.countGauge,
		e.latencyGauge,
		e.throughputGauge,
	)
	return e
}

// Observe records a finished run.
func (e *Exporter) Observe(run *analyzer.Run) {
	var ok, failed int
	for i := range run.Files {
		f := &run.Files[i]
		if f.Failed() {
			failed++
			continue
		}
		ok++
		e.rowsGauge.WithLabelValues(f.Path, "read").Set(float64(f.Rows))
		e.rowsGauge.WithLabelValues(f.Path, "valid").Set(float64(f.Records))
		e.rowsGauge.WithLabelValues(f.Path, "kept").Set(float64(f.Kept))
		for reason, n := range f.Rejects.ByReason {
			e.rejectsGauge.WithLabelValues(f.Path, reason).Set(float64(n))
		}
	}
	e.filesGauge.WithLabelValues("ok").Set(float64(ok))
	e.filesGauge.WithLabelValues("failed").Set(float64(failed))
	e.durationGauge.Set(run.Took.Seconds())
	e.overlapGauge.Set(run.Overlap.Ratio)

	for i := range run.Tables {
		e.observeTable(&run.Tables[i])
	}
}

// observeTable records the summary rows of a table. Undefined rates are
// left out rather than exported as zero.
func (e *Exporter) observeTable(t *report.Table) {
	for i := range t.Rows {
		r := &t.Rows[i]
		if !r.Summary {
			continue
		}
		labels := []string{t.Source, string(t.Dim), r.Op, r.Bucket, r.Endpoint, r.Client}

		e.countGauge.WithLabelValues(labels...).Set(float64(r.Count))
		if r.OpsPerSec != nil {
			e.opsGauge.WithLabelValues(labels...).Set(*r.OpsPerSec)
		}
		if r.MiBPerSec != nil {
			e.throughputGauge.WithLabelValues(labels...).Set(*r.MiBPerSec)
		}

		for p, v := range map[string]float64{"p50": r.Median, "p90": r.P90, "p95": r.P95, "p99": r.P99, "max": r.Max} {
			pl := append(append([]string(nil), labels...), p)
			e.latencyGauge.WithLabelValues(pl...).Set(v)
		}
	}
}

// WriteTextfile writes the gauges to path atomically.
func (e *Exporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, e.registry)
}
