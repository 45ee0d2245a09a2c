package workers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	application "hitloop/contexts/annotation-pipeline/workunit-service/application"
	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
	"hitloop/contexts/annotation-pipeline/workunit-service/ports"
)

// IngestReport accounts for one ingestion cycle.
type IngestReport struct {
	Ingested int           `json:"ingested"`
	Skipped  int           `json:"skipped"`
	Failures []ItemFailure `json:"failures,omitempty"`
}

type ingestOutcome int

const (
	ingestOutcomeIngested ingestOutcome = iota
	ingestOutcomeSkipped
	ingestOutcomeFailed
)

// IngestJob promotes completed work units into annotations. Exactly-once
// is carried by the (task, submission id) uniqueness of the annotation
// store, so the job may run concurrently with itself or with API writes
// and still commit each submission once.
type IngestJob struct {
	WorkUnits   ports.WorkUnitRepository
	Annotations ports.AnnotationRepository
	Events      ports.EventRecorder
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Backend     entities.Backend
	IngestLimit int
	Logger      *slog.Logger
}

func (j IngestJob) RunOnce(ctx context.Context) (IngestReport, error) {
	logger := application.ResolveLogger(j.Logger)
	limit := j.IngestLimit
	if limit <= 0 {
		limit = 20
	}

	units, err := j.WorkUnits.ListIngestible(ctx, j.Backend, limit)
	if err != nil {
		logger.Error("ingestible unit listing failed",
			"event", "workunit_ingest_list_failed",
			"module", "annotation-pipeline/workunit-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return IngestReport{}, err
	}

	report := IngestReport{}
	for _, unit := range units {
		outcome, detail, err := j.ingestOne(ctx, logger, unit)
		if err != nil {
			return report, err
		}
		switch outcome {
		case ingestOutcomeIngested:
			report.Ingested++
		case ingestOutcomeSkipped:
			report.Skipped++
		case ingestOutcomeFailed:
			report.Failures = append(report.Failures, ItemFailure{Ref: unit.WorkUnitID, Error: detail})
		}
	}

	if len(units) > 0 {
		logger.Info("ingest cycle completed",
			"event", "workunit_ingest_cycle_completed",
			"module", "annotation-pipeline/workunit-service",
			"layer", "worker",
			"ingested", report.Ingested,
			"skipped", report.Skipped,
			"failures", len(report.Failures),
		)
	}
	return report, nil
}

// ingestOne commits a single unit's canonical result. Malformed
// documents fail the item without marking it ingested, so a later
// repair of the snapshot can still land. A duplicate submission id
// marks the unit ingested and counts as skipped.
func (j IngestJob) ingestOne(ctx context.Context, logger *slog.Logger, unit entities.WorkUnit) (ingestOutcome, string, error) {
	doc := unit.Snapshot.Result
	if len(doc) == 0 {
		// Candidate listing should have filtered these; a later poll may
		// still fill the result in.
		return ingestOutcomeSkipped, "", nil
	}

	schemaVersion, _ := doc["schema_version"].(string)
	result, hasResult := doc["result"].(map[string]any)
	if !hasResult || strings.TrimSpace(schemaVersion) == "" {
		logger.Warn("canonical result rejected",
			"event", "workunit_ingest_rejected",
			"module", "annotation-pipeline/workunit-service",
			"layer", "worker",
			"work_unit_id", unit.WorkUnitID,
		)
		return ingestOutcomeFailed, "canonical document missing result or schema_version", nil
	}

	submissionID := stringField(doc, "submission_id")
	if submissionID == "" {
		submissionID = unit.AssignmentID
	}
	if submissionID == "" {
		generated, err := j.IDGen.NewID(ctx)
		if err != nil {
			return ingestOutcomeFailed, "", fmt.Errorf("generate submission id: %w", err)
		}
		submissionID = generated
	}

	actor := stringField(doc, "actor")
	if actor == "" {
		actor = unit.WorkerID
	}

	rawPayload := unit.Snapshot.AsMap()
	rawPayload["ingested_via"] = string(j.Backend)

	now := j.Clock.Now().UTC()
	annotationID, err := j.IDGen.NewID(ctx)
	if err != nil {
		return ingestOutcomeFailed, "", fmt.Errorf("generate annotation id: %w", err)
	}
	candidate := entities.Annotation{
		AnnotationID:  annotationID,
		TaskID:        unit.TaskID,
		Result:        result,
		SchemaVersion: schemaVersion,
		ToolVersion:   stringField(doc, "tool_version"),
		Actor:         actor,
		SubmissionID:  submissionID,
		WorkUnitID:    unit.WorkUnitID,
		RawPayload:    rawPayload,
		CreatedAt:     now,
	}

	stored, created, err := j.Annotations.CreateAnnotation(ctx, candidate)
	if err != nil {
		return ingestOutcomeFailed, "", fmt.Errorf("store annotation for unit %s: %w", unit.WorkUnitID, err)
	}

	ingestedAt := now
	if created {
		ingestedAt = stored.CreatedAt
	}
	unit.IngestedAt = &ingestedAt
	unit.UpdatedAt = now
	if err := j.WorkUnits.UpdateWorkUnit(ctx, unit); err != nil {
		return ingestOutcomeFailed, "", fmt.Errorf("mark unit %s ingested: %w", unit.WorkUnitID, err)
	}

	if !created {
		logger.Info("submission already ingested",
			"event", "workunit_ingest_replayed",
			"module", "annotation-pipeline/workunit-service",
			"layer", "worker",
			"work_unit_id", unit.WorkUnitID,
			"submission_id", submissionID,
			"annotation_id", stored.AnnotationID,
		)
		return ingestOutcomeSkipped, "", nil
	}

	eventID, err := j.IDGen.NewID(ctx)
	if err != nil {
		return ingestOutcomeFailed, "", err
	}
	if err := j.Events.AppendEvent(ctx, entities.EventEntry{
		EventID:    eventID,
		EventType:  entities.EventWorkUnitIngested,
		OccurredAt: now,
		Actor:      actor,
		Payload: map[string]any{
			"task_id":       unit.TaskID,
			"work_unit_id":  unit.WorkUnitID,
			"assignment_id": unit.AssignmentID,
			"annotation_id": stored.AnnotationID,
			"submission_id": submissionID,
		},
	}); err != nil {
		return ingestOutcomeFailed, "", err
	}

	logger.Info("work unit ingested",
		"event", "workunit_ingested",
		"module", "annotation-pipeline/workunit-service",
		"layer", "worker",
		"work_unit_id", unit.WorkUnitID,
		"annotation_id", stored.AnnotationID,
	)
	return ingestOutcomeIngested, "", nil
}

func stringField(doc map[string]any, key string) string {
	value, _ := doc[key].(string)
	return strings.TrimSpace(value)
}
