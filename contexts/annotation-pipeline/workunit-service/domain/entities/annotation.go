package entities

import "time"

// Annotation is the canonical, immutable result record for a task.
// (task, submission id) is unique whenever the submission id is
// non-empty; that pair is the exactly-once key for ingestion.
type Annotation struct {
	AnnotationID  string
	TaskID        string
	Result        map[string]any
	SchemaVersion string
	ToolVersion   string
	Actor         string
	SubmissionID  string
	WorkUnitID    string
	RawPayload    map[string]any
	CreatedAt     time.Time
}

// ValidateCreate reports whether the annotation carries the minimum
// canonical fields required for persistence. An empty result object is
// allowed; a missing one is not.
func (a Annotation) ValidateCreate() bool {
	return a.TaskID != "" && a.SchemaVersion != "" && a.Result != nil
}
