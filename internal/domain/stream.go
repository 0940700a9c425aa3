package domain

import "time"

// Stream names shared with the ETL collectors.
const (
	StreamSourceChanged = "stream:sources:changed"
)

// DataChangedEvent is published by collectors after a source table is refreshed.
// An empty SourceKind means every kind changed.
type DataChangedEvent struct {
	SourceKind SourceKind `json:"source_kind,omitempty"`
	ChangedAt  time.Time  `json:"changed_at"`
	Rows       int        `json:"rows,omitempty"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
