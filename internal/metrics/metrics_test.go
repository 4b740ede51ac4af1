package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := New(reg)
	require.NoError(t, err)

	r.RecordUpload(time.Millisecond, 100, nil)
	r.RecordUpload(time.Millisecond, 50, errors.New("boom"))
	r.RecordCompensation(nil)
	r.RecordDeletion(errors.New("boom"))
	r.RecordWebhook("attachments", "ok")
	r.RecordWebhook("attachments", "ok")

	assert.Equal(t, 1.0, counterValue(t, reg, "propdesk_attachment_uploads_total", "ok"))
	assert.Equal(t, 1.0, counterValue(t, reg, "propdesk_attachment_uploads_total", "error"))
	assert.Equal(t, 100.0, counterValue(t, reg, "propdesk_attachment_uploaded_bytes_total", ""))
	assert.Equal(t, 1.0, counterValue(t, reg, "propdesk_attachment_compensations_total", "ok"))
	assert.Equal(t, 1.0, counterValue(t, reg, "propdesk_attachment_deletions_total", "error"))
	assert.Equal(t, 2.0, counterValue(t, reg, "propdesk_webhook_calls_total", "ok"))
}

// counterValue sums the counter samples of family name whose label values
// contain label; an empty label matches every sample.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := label == ""
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					matched = true
				}
			}
			if matched {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.NoError(t, err)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordUpload(time.Second, 1, nil)
		r.RecordCompensation(nil)
		r.RecordDeletion(nil)
		r.RecordWebhook("submission", "skipped")
	})
}
