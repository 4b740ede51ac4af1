package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "propdesk"

// Recorder exports attachment pipeline metrics. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	uploads       *prometheus.CounterVec
	uploadBytes   prometheus.Counter
	uploadLatency prometheus.Histogram
	compensations *prometheus.CounterVec
	deletions     *prometheus.CounterVec
	webhooks      *prometheus.CounterVec
}

func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachment_uploads_total",
			Help:      "Per-file object uploads by outcome.",
		}, []string{"outcome"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachment_uploaded_bytes_total",
			Help:      "Bytes written to object storage.",
		}),
		uploadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attachment_upload_duration_seconds",
			Help:      "Latency of single object uploads.",
			Buckets:   prometheus.DefBuckets,
		}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachment_compensations_total",
			Help:      "Object removals after a failed metadata commit.",
		}, []string{"outcome"}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachment_deletions_total",
			Help:      "Attachment deletions by outcome.",
		}, []string{"outcome"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_calls_total",
			Help:      "Webhook notifications by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	collectors := []prometheus.Collector{r.uploads, r.uploadBytes, r.uploadLatency, r.compensations, r.deletions, r.webhooks}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return r, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (r *Recorder) RecordUpload(d time.Duration, size int64, err error) {
	if r == nil {
		return
	}
	r.uploadLatency.Observe(d.Seconds())
	r.uploads.WithLabelValues(outcome(err)).Inc()
	if err == nil && size > 0 {
		r.uploadBytes.Add(float64(size))
	}
}

func (r *Recorder) RecordCompensation(err error) {
	if r == nil {
		return
	}
	r.compensations.WithLabelValues(outcome(err)).Inc()
}

func (r *Recorder) RecordDeletion(err error) {
	if r == nil {
		return
	}
	r.deletions.WithLabelValues(outcome(err)).Inc()
}

// RecordWebhook counts one notification attempt. outcome is one of "ok",
// "error" or "skipped".
func (r *Recorder) RecordWebhook(kind, result string) {
	if r == nil {
		return
	}
	r.webhooks.WithLabelValues(kind, result).Inc()
}
