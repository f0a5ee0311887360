package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/rootscan/internal/progress"
)

// PrometheusSink exports scan progress as Prometheus collectors.
type PrometheusSink struct {
	queueTotal    prometheus.Gauge
	domains       *prometheus.CounterVec
	responses     *prometheus.CounterVec
	storeResults  *prometheus.CounterVec
	bodyBytes     prometheus.Counter
	fetchDuration *prometheus.HistogramVec
	runsRunning   prometheus.Gauge
	runDuration   prometheus.Histogram
}

// NewPrometheusSink registers the collectors against reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		queueTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_queue_domains",
			Help: "Domains placed on the work queue for the current run.",
		}),
		domains: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_domains_processed_total",
			Help: "Domains processed partitioned by fetch outcome.",
		}, []string{"outcome"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_responses_total",
			Help: "Fetch results partitioned by HTTP status class.",
		}, []string{"status_class"}),
		storeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_store_results_total",
			Help: "Record store verdicts partitioned by result.",
		}, []string{"result"}),
		bodyBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_body_bytes_total",
			Help: "Encoded root document bytes collected.",
		}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scanner_fetch_duration_seconds",
			Help:    "Fetch latency partitioned by outcome.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 3},
		}, []string{"outcome"}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_runs_running",
			Help: "Scan runs currently in progress.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_run_duration_seconds",
			Help:    "Wall time per completed scan run.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.queueTotal,
		s.domains,
		s.responses,
		s.storeResults,
		s.bodyBytes,
		s.fetchDuration,
		s.runsRunning,
		s.runDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register scanner collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsRunning.Inc()
			s.queueTotal.Set(float64(evt.Total))
		case progress.StageRunDone:
			s.runsRunning.Dec()
			if evt.Dur > 0 {
				s.runDuration.Observe(evt.Dur.Seconds())
			}
		case progress.StageScanDone:
			s.consumeScan(evt)
		}
	}
	return nil
}

func (s *PrometheusSink) consumeScan(evt progress.Event) {
	outcome := "failure"
	if evt.Success {
		outcome = "success"
	}
	s.domains.WithLabelValues(outcome).Inc()
	s.responses.WithLabelValues(string(evt.StatusClass)).Inc()
	if evt.Store != "" {
		s.storeResults.WithLabelValues(string(evt.Store)).Inc()
	}
	if evt.Bytes > 0 {
		s.bodyBytes.Add(float64(evt.Bytes))
	}
	if evt.Dur > 0 {
		s.fetchDuration.WithLabelValues(outcome).Observe(evt.Dur.Seconds())
	}
}

// Close is a no-op.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
