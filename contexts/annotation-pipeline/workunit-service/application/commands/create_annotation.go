package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "hitloop/contexts/annotation-pipeline/workunit-service/application"
	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
	domainerrors "hitloop/contexts/annotation-pipeline/workunit-service/domain/errors"
	"hitloop/contexts/annotation-pipeline/workunit-service/ports"
)

// CreateAnnotationCommand contains transport-agnostic input for an
// annotation write. SubmissionID is optional; a blank one is replaced
// with a generated id, which makes the write non-idempotent on retry.
type CreateAnnotationCommand struct {
	TaskID        string
	Result        map[string]any
	SchemaVersion string
	ToolVersion   string
	Actor         string
	SubmissionID  string
	WorkUnitID    string
	RawPayload    map[string]any
}

// CreateAnnotationResult reports the stored annotation and whether this
// call inserted it or replayed an earlier write.
type CreateAnnotationResult struct {
	Annotation entities.Annotation
	Created    bool
}

// CreateAnnotationUseCase persists a canonical result for a task. The
// write is idempotent on (task, submission id): a repeated submission,
// including one racing a concurrent insert, returns the stored row
// unchanged. A fresh insert linked to a work unit also marks that unit
// ingested so the background pipeline never double-writes it.
type CreateAnnotationUseCase struct {
	Tasks       ports.TaskRepository
	WorkUnits   ports.WorkUnitRepository
	Annotations ports.AnnotationRepository
	Events      ports.EventRecorder
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Backend     entities.Backend
	Logger      *slog.Logger
}

func (u CreateAnnotationUseCase) Execute(ctx context.Context, cmd CreateAnnotationCommand) (CreateAnnotationResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("annotation write started",
		"event", "annotation_write_started",
		"module", "annotation-pipeline/workunit-service",
		"layer", "application",
		"task_id", cmd.TaskID,
		"submission_id", cmd.SubmissionID,
	)

	taskID := strings.TrimSpace(cmd.TaskID)
	if taskID == "" {
		return CreateAnnotationResult{}, domainerrors.ErrInvalidAnnotationInput
	}
	if _, err := u.Tasks.GetTask(ctx, taskID); err != nil {
		return CreateAnnotationResult{}, err
	}

	submissionID := strings.TrimSpace(cmd.SubmissionID)
	if submissionID == "" {
		generated, err := u.IDGen.NewID(ctx)
		if err != nil {
			return CreateAnnotationResult{}, fmt.Errorf("generate submission id: %w", err)
		}
		submissionID = generated
	}

	unit, linked, err := u.resolveWorkUnit(ctx, taskID, strings.TrimSpace(cmd.WorkUnitID), submissionID)
	if err != nil {
		return CreateAnnotationResult{}, err
	}

	now := u.Clock.Now().UTC()
	annotationID, err := u.IDGen.NewID(ctx)
	if err != nil {
		return CreateAnnotationResult{}, fmt.Errorf("generate annotation id: %w", err)
	}
	rawPayload := cmd.RawPayload
	if rawPayload == nil {
		rawPayload = map[string]any{}
	}
	candidate := entities.Annotation{
		AnnotationID:  annotationID,
		TaskID:        taskID,
		Result:        cmd.Result,
		SchemaVersion: strings.TrimSpace(cmd.SchemaVersion),
		ToolVersion:   strings.TrimSpace(cmd.ToolVersion),
		Actor:         strings.TrimSpace(cmd.Actor),
		SubmissionID:  submissionID,
		RawPayload:    rawPayload,
		CreatedAt:     now,
	}
	if linked {
		candidate.WorkUnitID = unit.WorkUnitID
	}
	if !candidate.ValidateCreate() {
		return CreateAnnotationResult{}, domainerrors.ErrInvalidAnnotationInput
	}

	stored, created, err := u.Annotations.CreateAnnotation(ctx, candidate)
	if err != nil {
		return CreateAnnotationResult{}, fmt.Errorf("store annotation: %w", err)
	}
	if !created {
		logger.Info("annotation write replayed",
			"event", "annotation_write_replayed",
			"module", "annotation-pipeline/workunit-service",
			"layer", "application",
			"task_id", taskID,
			"submission_id", submissionID,
			"annotation_id", stored.AnnotationID,
		)
		return CreateAnnotationResult{Annotation: stored, Created: false}, nil
	}

	if linked {
		if err := u.markUnitSubmitted(ctx, unit, stored, now); err != nil {
			return CreateAnnotationResult{}, err
		}
	}

	eventID, err := u.IDGen.NewID(ctx)
	if err != nil {
		return CreateAnnotationResult{}, fmt.Errorf("generate event id: %w", err)
	}
	if err := u.Events.AppendEvent(ctx, entities.EventEntry{
		EventID:    eventID,
		EventType:  entities.EventAnnotationCreated,
		OccurredAt: now,
		Actor:      candidate.Actor,
		Payload: map[string]any{
			"task_id":       taskID,
			"annotation_id": stored.AnnotationID,
			"submission_id": submissionID,
			"work_unit_id":  candidate.WorkUnitID,
		},
	}); err != nil {
		return CreateAnnotationResult{}, fmt.Errorf("append annotation event: %w", err)
	}

	logger.Info("annotation created",
		"event", "annotation_created",
		"module", "annotation-pipeline/workunit-service",
		"layer", "application",
		"task_id", taskID,
		"annotation_id", stored.AnnotationID,
		"submission_id", submissionID,
	)
	return CreateAnnotationResult{Annotation: stored, Created: true}, nil
}

// resolveWorkUnit links the write to a work unit, by id when the caller
// names one, otherwise by treating the submission id as a marketplace
// assignment id. Either path may come up empty.
func (u CreateAnnotationUseCase) resolveWorkUnit(ctx context.Context, taskID, workUnitID, submissionID string) (entities.WorkUnit, bool, error) {
	if workUnitID != "" {
		unit, err := u.WorkUnits.GetWorkUnit(ctx, workUnitID)
		if err != nil {
			return entities.WorkUnit{}, false, err
		}
		if unit.TaskID != taskID {
			return entities.WorkUnit{}, false, domainerrors.ErrWorkUnitTaskMismatch
		}
		return unit, true, nil
	}

	unit, found, err := u.WorkUnits.GetWorkUnitByAssignment(ctx, u.Backend, submissionID)
	if err != nil {
		return entities.WorkUnit{}, false, err
	}
	if !found || unit.TaskID != taskID {
		return entities.WorkUnit{}, false, nil
	}
	return unit, true, nil
}

// markUnitSubmitted records the ingestion on the linked unit. The unit
// status is coerced to submitted and the annotation's raw payload is
// kept on the snapshot for audit.
func (u CreateAnnotationUseCase) markUnitSubmitted(ctx context.Context, unit entities.WorkUnit, stored entities.Annotation, now time.Time) error {
	if unit.IngestedAt == nil {
		ingestedAt := stored.CreatedAt
		unit.IngestedAt = &ingestedAt
	}
	if unit.Status != entities.WorkUnitStatusSubmitted {
		unit.Status = entities.WorkUnitStatusSubmitted
	}
	unit.Snapshot.LatestSubmission = stored.RawPayload
	unit.UpdatedAt = now
	if err := u.WorkUnits.UpdateWorkUnit(ctx, unit); err != nil {
		return fmt.Errorf("mark work unit ingested: %w", err)
	}
	return nil
}
