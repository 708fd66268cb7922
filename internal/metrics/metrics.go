// Package metrics counts chapter work in Prometheus form.
//
// A CLI run is too short-lived to be scraped, so the registry is written once
// at the end of the run to a node_exporter textfile when metrics.textfile_path
// is configured.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bookforge"

// Recorder holds the collectors for one process. A nil Recorder is a no-op.
type Recorder struct {
	registry *prometheus.Registry

	steps         *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	completed     *prometheus.GaugeVec
	audioBytes    prometheus.Counter
	chapterChars  prometheus.Histogram
	lastRunFinish *prometheus.GaugeVec
}

// New registers the collectors on a private registry.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chapter_steps_total",
			Help:      "Chapter steps attempted, by step and outcome.",
		}, []string{"step", "status"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chapter_step_duration_seconds",
			Help:      "Wall time of chapter steps.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"step"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs finished, by outcome.",
		}, []string{"status"}),
		completed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "completed_chapters",
			Help:      "Completed chapter count per book.",
		}, []string{"book_id"}),
		audioBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrated_audio_bytes_total",
			Help:      "Encoded audio bytes written by narration.",
		}),
		chapterChars: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chapter_characters",
			Help:      "Length of generated chapter text.",
			Buckets:   []float64{2000, 5000, 10000, 15000, 20000, 30000},
		}),
		lastRunFinish: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_finished_timestamp_seconds",
			Help:      "Unix time of the last finished run per book.",
		}, []string{"book_id"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveStep records one chapter step.
func (r *Recorder) ObserveStep(step string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.steps.WithLabelValues(step, outcome(err)).Inc()
	r.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// ObserveChapter records a generated chapter's size and narration output.
func (r *Recorder) ObserveChapter(textChars int, audioBytes int64) {
	if r == nil {
		return
	}
	r.chapterChars.Observe(float64(textChars))
	if audioBytes > 0 {
		r.audioBytes.Add(float64(audioBytes))
	}
}

// ObserveRun records a finished run.
func (r *Recorder) ObserveRun(bookID string, completed int, err error) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome(err)).Inc()
	r.completed.WithLabelValues(bookID).Set(float64(completed))
	r.lastRunFinish.WithLabelValues(bookID).SetToCurrentTime()
}

// WriteTextfile writes the registry in exposition format to path. An empty
// path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "succeeded"
}
