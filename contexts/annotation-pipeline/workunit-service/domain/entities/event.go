package entities

import "time"

// Lifecycle event types recorded in the audit log.
const (
	EventWorkUnitIssued      = "workunit.issued"
	EventWorkUnitIssueFailed = "workunit.issue_failed"
	EventWorkUnitSynced      = "workunit.synced"
	EventWorkUnitIngested    = "workunit.ingested"
	EventAnnotationCreated   = "annotation.created"
)

// EventEntry is one append-only audit fact about a lifecycle transition.
// Entries are never updated or deleted.
type EventEntry struct {
	EventID    string
	EventType  string
	OccurredAt time.Time
	Actor      string
	Payload    map[string]any
}
