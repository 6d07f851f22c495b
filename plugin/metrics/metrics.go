package metrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/nextdhcp/leasehook/core/config"
	"github.com/nextdhcp/leasehook/core/events"
	"github.com/nextdhcp/leasehook/core/replacer"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports the outcome of an invocation to a node_exporter
// textfile. Every run replaces the whole file, so the metrics describe the
// last processed event only
type Metrics struct {
	path        string
	extraLabels []extraLabel
}

type extraLabel struct {
	name  string
	value string
}

// NewMetrics creates a new Metrics that writes to path
func NewMetrics(path string) *Metrics {
	return &Metrics{
		path:        path,
		extraLabels: []extraLabel{},
	}
}

// constLabels expands the label value placeholders for the lease event
// described by s
func (m *Metrics) constLabels(s config.Summary) prometheus.Labels {
	if len(m.extraLabels) == 0 {
		return nil
	}

	l := &events.Lease{
		Result:   s.Result,
		Instance: s.Instance,
		Time:     s.Time,
	}
	if len(s.Result.Notes) > 0 {
		l.Note = s.Result.Notes[0]
	}

	rep := replacer.NewReplacer(context.Background(), l)
	labels := make(prometheus.Labels, len(m.extraLabels))
	for _, label := range m.extraLabels {
		labels[label.name] = rep.Replace(label.value)
	}

	return labels
}

// gather creates a new registry holding the metrics for s
func (m *Metrics) gather(s config.Summary) (*prometheus.Registry, error) {
	labels := m.constLabels(s)

	entries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "leasehook_table_entries",
		Help:        "Number of entries in the lease table.",
		ConstLabels: labels,
	})

	lastEvent := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "leasehook_last_event_timestamp_seconds",
		Help:        "Unix timestamp of the last processed lease event.",
		ConstLabels: labels,
	})

	lastKind := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "leasehook_last_event_info",
		Help:        "Kind of the last processed lease event, always 1.",
		ConstLabels: labels,
	}, []string{"event"})

	changed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "leasehook_table_changed",
		Help:        "Whether the last lease event changed the lease table.",
		ConstLabels: labels,
	})

	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{entries, lastEvent, lastKind, changed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	entries.Set(float64(len(s.Table)))
	lastEvent.Set(float64(s.Time.Unix()))
	lastKind.WithLabelValues(string(s.Result.Event.Kind)).Set(1)
	if s.Result.Changed {
		changed.Set(1)
	}

	return reg, nil
}

// write exports the metrics for s to the textfile
func (m *Metrics) write(ctx context.Context, s config.Summary) error {
	reg, err := m.gather(s)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	if err := prometheus.WriteToTextfile(m.path, reg); err != nil {
		return fmt.Errorf("metrics: writing %s: %w", m.path, err)
	}

	return nil
}

func validLabelName(name string) bool {
	if name == "" || name == "event" || strings.HasPrefix(name, "__") {
		return false
	}

	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
