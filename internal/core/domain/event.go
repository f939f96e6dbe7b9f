package domain

import "time"

type EventKind string

const (
	EventUploaded  EventKind = "uploaded"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventConfirmed EventKind = "confirmed"
	EventReset     EventKind = "reset"
)

// LifecycleEvent is published when a document crosses a lifecycle boundary.
type LifecycleEvent struct {
	Kind         EventKind    `json:"event"`
	DocumentID   string       `json:"document_id"`
	DocumentType DocumentType `json:"document_type"`
	Status       Status       `json:"status"`
	OccurredAt   time.Time    `json:"occurred_at"`
}
