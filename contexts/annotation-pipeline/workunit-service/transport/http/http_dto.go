package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateAnnotationRequest struct {
	TaskID        string         `json:"task_id"`
	Result        map[string]any `json:"result"`
	SchemaVersion string         `json:"schema_version"`
	ToolVersion   string         `json:"tool_version,omitempty"`
	Actor         string         `json:"actor,omitempty"`
	SubmissionID  string         `json:"submission_id,omitempty"`
	WorkUnitID    string         `json:"work_unit_id,omitempty"`
	RawPayload    map[string]any `json:"raw_payload,omitempty"`
}

type TaskDTO struct {
	TaskID            string `json:"task_id"`
	ProjectID         string `json:"project_id"`
	Kind              string `json:"kind"`
	DefinitionVersion string `json:"definition_version"`
	Status            string `json:"status"`
	Priority          int    `json:"priority"`
	CreatedAt         string `json:"created_at"`
}

type WorkUnitDTO struct {
	WorkUnitID   string `json:"work_unit_id"`
	TaskID       string `json:"task_id"`
	Backend      string `json:"backend"`
	GroupID      string `json:"group_id"`
	AssignmentID string `json:"assignment_id,omitempty"`
	WorkerID     string `json:"worker_id,omitempty"`
	Status       string `json:"status"`
	Sandbox      bool   `json:"sandbox"`
	HasResult    bool   `json:"has_result"`
	LastPolledAt string `json:"last_polled_at,omitempty"`
	IngestedAt   string `json:"ingested_at,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type AnnotationDTO struct {
	AnnotationID  string         `json:"annotation_id"`
	TaskID        string         `json:"task_id"`
	Result        map[string]any `json:"result"`
	SchemaVersion string         `json:"schema_version"`
	ToolVersion   string         `json:"tool_version,omitempty"`
	Actor         string         `json:"actor,omitempty"`
	SubmissionID  string         `json:"submission_id"`
	WorkUnitID    string         `json:"work_unit_id,omitempty"`
	CreatedAt     string         `json:"created_at"`
}

type EventEntryDTO struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	OccurredAt string         `json:"occurred_at"`
	Actor      string         `json:"actor,omitempty"`
	Payload    map[string]any `json:"payload"`
}

type CreateAnnotationResponse struct {
	Annotation AnnotationDTO `json:"annotation"`
	Created    bool          `json:"created"`
}

type GetTaskResponse struct {
	Task TaskDTO `json:"task"`
}

type GetWorkUnitResponse struct {
	WorkUnit WorkUnitDTO `json:"work_unit"`
}

type ListWorkUnitsResponse struct {
	Items []WorkUnitDTO `json:"items"`
}

type ListAnnotationsResponse struct {
	Items []AnnotationDTO `json:"items"`
}

type ListEventsResponse struct {
	Items []EventEntryDTO `json:"items"`
}
