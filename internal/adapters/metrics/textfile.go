// Package metrics exports provisioning results in the Prometheus text
// format for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/felixgeelhaar/labelhost/internal/domain/execution"
)

const namespace = "labelhost"

// outcomes are pre-populated so every series exists even when zero.
var outcomes = []string{"applied", "satisfied", "pending", "failed", "skipped"}

// TextfileWriter renders a run report to a .prom file.
type TextfileWriter struct {
	path string
}

// NewTextfileWriter creates a writer targeting path.
func NewTextfileWriter(path string) *TextfileWriter {
	return &TextfileWriter{path: path}
}

// Path returns the output file.
func (w *TextfileWriter) Path() string {
	return w.path
}

// Write replaces the textfile with metrics describing report.
// Each run starts from a fresh registry, so series from steps that no
// longer exist disappear.
func (w *TextfileWriter) Write(report *execution.Report) error {
	reg := prometheus.NewRegistry()

	stepDuration := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of each provisioning step in the last run by outcome",
		},
		[]string{"step", "outcome"},
	)
	steps := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_steps",
			Help:      "Number of steps in the last run by outcome",
		},
		[]string{"outcome"},
	)
	success := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_success",
		Help:      "Whether the last run completed every step (1) or not (0)",
	})
	dryRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_dry_run",
		Help:      "Whether the last run was a dry run",
	})
	finished := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_duration_seconds",
		Help:      "Wall-clock duration of the last run",
	})

	reg.MustRegister(stepDuration, steps, success, dryRun, finished, duration)

	for _, o := range outcomes {
		steps.WithLabelValues(o).Set(0)
	}
	for _, res := range report.Results() {
		outcome := res.Outcome()
		steps.WithLabelValues(outcome).Inc()
		if res.Skipped() {
			continue
		}
		stepDuration.WithLabelValues(res.StepID().String(), outcome).Set(res.Duration().Seconds())
	}

	if report.Success() {
		success.Set(1)
	}
	if report.DryRun() {
		dryRun.Set(1)
	}
	if !report.FinishedAt().IsZero() {
		finished.Set(float64(report.FinishedAt().Unix()))
	}
	duration.Set(report.Duration().Seconds())

	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(w.path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
