package ports

import (
	"context"
	"time"

	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
)

// WorkUnitRepository owns work-unit persistence. The store enforces
// uniqueness of (backend, assignment id) for units whose assignment id
// is known.
type WorkUnitRepository interface {
	CreateWorkUnit(ctx context.Context, unit entities.WorkUnit) error
	UpdateWorkUnit(ctx context.Context, unit entities.WorkUnit) error
	GetWorkUnit(ctx context.Context, workUnitID string) (entities.WorkUnit, error)
	GetWorkUnitByAssignment(ctx context.Context, backend entities.Backend, assignmentID string) (entities.WorkUnit, bool, error)
	// OldestWorkUnitForGroup returns the anchor unit for a group: the
	// earliest created row, which carries the task the group was issued
	// for.
	OldestWorkUnitForGroup(ctx context.Context, backend entities.Backend, groupID string) (entities.WorkUnit, bool, error)
	HasActiveWorkUnit(ctx context.Context, taskID string, backend entities.Backend) (bool, error)
	ListWorkUnitsForTask(ctx context.Context, taskID string) ([]entities.WorkUnit, error)
	// ListOpenGroups returns distinct group ids with at least one active
	// unit in the given sandbox universe, least recently touched first.
	ListOpenGroups(ctx context.Context, backend entities.Backend, sandbox bool, limit int) ([]string, error)
	// ListIngestible returns units eligible for ingestion: submitted or
	// approved, not yet ingested, and holding a canonical result in
	// their snapshot. Oldest updated first.
	ListIngestible(ctx context.Context, backend entities.Backend, limit int) ([]entities.WorkUnit, error)
}

// AnnotationRepository persists canonical results under the
// (task, submission id) exactly-once invariant.
type AnnotationRepository interface {
	// CreateAnnotation inserts the candidate or, when a row with the
	// same (task, submission id) already exists, including losing an
	// insert race, returns the stored row. created reports which path
	// was taken.
	CreateAnnotation(ctx context.Context, candidate entities.Annotation) (stored entities.Annotation, created bool, err error)
	ListAnnotationsForTask(ctx context.Context, taskID string) ([]entities.Annotation, error)
}

type TaskRepository interface {
	GetTask(ctx context.Context, taskID string) (entities.Task, error)
	ListTasks(ctx context.Context, taskIDs []string) ([]entities.Task, error)
}

// EventRecorder appends audit facts to the event log.
type EventRecorder interface {
	AppendEvent(ctx context.Context, entry entities.EventEntry) error
	ListRecentEvents(ctx context.Context, limit int) ([]entities.EventEntry, error)
}

// CreateWorkUnitParams carries the marketplace-facing issuance
// parameters for one work unit.
type CreateWorkUnitParams struct {
	Title              string
	Description        string
	Keywords           string
	Reward             string
	MaxSubmitters      int
	Lifetime           time.Duration
	AssignmentDuration time.Duration
	ExternalURL        string
}

// RemoteSubmission is one submitter's response as reported by the
// marketplace: identifiers plus the raw status and answer payload,
// untranslated.
type RemoteSubmission struct {
	AssignmentID string
	SubmitterID  string
	Status       string
	Answer       string
}

// MarketplaceClient is the narrow surface this context consumes from
// the external crowdsourcing marketplace. Calls are network bound and
// may fail transiently; callers isolate failures per item and rely on
// re-invocation.
type MarketplaceClient interface {
	CreateWorkUnit(ctx context.Context, params CreateWorkUnitParams) (groupID string, err error)
	ListSubmissions(ctx context.Context, groupID string, statuses []string) ([]RemoteSubmission, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
