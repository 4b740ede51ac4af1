package events

// Event types follow the format: domain.action
const (
	EventTypeAttachmentsChanged = "attachments.changed"
	EventTypeProjectSubmitted   = "project.submitted"
)

const AggregateProject = "project"
