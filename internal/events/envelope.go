package events

import (
	"encoding/json"
	"time"
)

type Envelope struct {
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

type AttachmentsChangedPayload struct {
	ProjectID string `json:"project_id"`
	Count     int    `json:"count"`
}

type ProjectSubmittedPayload struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
}

func NewEnvelope(eventType, projectID string, payload interface{}, at time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventType:     eventType,
		AggregateType: AggregateProject,
		AggregateID:   projectID,
		OccurredAt:    at.UTC(),
		Payload:       raw,
	}, nil
}
