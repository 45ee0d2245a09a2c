package entities

import (
	"encoding/json"
	"reflect"
	"time"
)

// Backend tags which crowdsourcing marketplace a work unit was issued
// against. A single variant exists today; keeping the tag on every row
// leaves room for further marketplaces without a schema change.
type Backend string

const BackendMTurk Backend = "mturk"

type WorkUnitStatus string

const (
	WorkUnitStatusCreated   WorkUnitStatus = "created"
	WorkUnitStatusSubmitted WorkUnitStatus = "submitted"
	WorkUnitStatusApproved  WorkUnitStatus = "approved"
	WorkUnitStatusRejected  WorkUnitStatus = "rejected"
	WorkUnitStatusReturned  WorkUnitStatus = "returned"
	WorkUnitStatusExpired   WorkUnitStatus = "expired"
)

// Active reports whether the work unit still accepts remote submissions.
// A task with an active work unit must not be issued again.
func (s WorkUnitStatus) Active() bool {
	return s == WorkUnitStatusCreated || s == WorkUnitStatusSubmitted
}

// Ingestible reports whether a work unit in this status may produce an
// annotation.
func (s WorkUnitStatus) Ingestible() bool {
	return s == WorkUnitStatusSubmitted || s == WorkUnitStatusApproved
}

// CreationParams records the marketplace parameters a work unit was
// issued with.
type CreationParams struct {
	Reward          string `json:"reward"`
	MaxSubmitters   int    `json:"max_submitters"`
	LifetimeSeconds int    `json:"lifetime_seconds"`
}

// Snapshot carries raw and derived marketplace state for a work unit.
// RemoteRecord is the latest assignment record as reported by the
// marketplace, Answers the flattened answer fields parsed from it, and
// Result the canonical annotation document when the answer payload
// contained one. LatestSubmission holds the raw payload of the most
// recent annotation written through the API against this unit.
type Snapshot struct {
	Creation         *CreationParams   `json:"creation,omitempty"`
	RemoteRecord     map[string]any    `json:"remote_record,omitempty"`
	Answers          map[string]string `json:"answers,omitempty"`
	Result           map[string]any    `json:"result,omitempty"`
	LatestSubmission map[string]any    `json:"latest_submission,omitempty"`
}

// Equal treats empty and absent collections as the same value, so a
// snapshot survives a round trip through storage without reading as
// changed.
func (s Snapshot) Equal(other Snapshot) bool {
	return reflect.DeepEqual(s.normalized(), other.normalized())
}

func (s Snapshot) normalized() Snapshot {
	if len(s.RemoteRecord) == 0 {
		s.RemoteRecord = nil
	}
	if len(s.Answers) == 0 {
		s.Answers = nil
	}
	if len(s.Result) == 0 {
		s.Result = nil
	}
	if len(s.LatestSubmission) == 0 {
		s.LatestSubmission = nil
	}
	return s
}

// AsMap renders the snapshot as a generic document for audit payloads.
func (s Snapshot) AsMap() map[string]any {
	raw, err := json.Marshal(s.normalized())
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// WorkUnit is the local record of one marketplace assignment slot tied to
// a task. Units created at issue time carry only the group id; the
// assignment id and worker id arrive later through polling. Once the
// assignment id is known, (backend, assignment id) is unique.
type WorkUnit struct {
	WorkUnitID   string
	TaskID       string
	Backend      Backend
	GroupID      string
	AssignmentID string
	WorkerID     string
	Status       WorkUnitStatus
	Sandbox      bool
	Snapshot     Snapshot
	LastPolledAt *time.Time
	IngestedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ingested reports whether the unit already produced an annotation.
func (w WorkUnit) Ingested() bool {
	return w.IngestedAt != nil
}
