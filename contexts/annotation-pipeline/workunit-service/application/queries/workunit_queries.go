package queries

import (
	"context"
	"log/slog"
	"strings"

	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
	domainerrors "hitloop/contexts/annotation-pipeline/workunit-service/domain/errors"
	"hitloop/contexts/annotation-pipeline/workunit-service/ports"
)

const defaultEventLimit = 50

// UseCase serves the read side: task projections, per-task work units
// and annotations, and the recent audit trail.
type UseCase struct {
	Tasks       ports.TaskRepository
	WorkUnits   ports.WorkUnitRepository
	Annotations ports.AnnotationRepository
	Events      ports.EventRecorder
	Logger      *slog.Logger
}

func (u UseCase) GetTask(ctx context.Context, taskID string) (entities.Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return entities.Task{}, domainerrors.ErrTaskNotFound
	}
	return u.Tasks.GetTask(ctx, taskID)
}

func (u UseCase) GetWorkUnit(ctx context.Context, workUnitID string) (entities.WorkUnit, error) {
	workUnitID = strings.TrimSpace(workUnitID)
	if workUnitID == "" {
		return entities.WorkUnit{}, domainerrors.ErrWorkUnitNotFound
	}
	return u.WorkUnits.GetWorkUnit(ctx, workUnitID)
}

// ListWorkUnitsForTask returns the task's units oldest first. The task
// must exist; an unknown id is a not-found, not an empty list.
func (u UseCase) ListWorkUnitsForTask(ctx context.Context, taskID string) ([]entities.WorkUnit, error) {
	task, err := u.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return u.WorkUnits.ListWorkUnitsForTask(ctx, task.TaskID)
}

func (u UseCase) ListAnnotationsForTask(ctx context.Context, taskID string) ([]entities.Annotation, error) {
	task, err := u.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return u.Annotations.ListAnnotationsForTask(ctx, task.TaskID)
}

func (u UseCase) ListRecentEvents(ctx context.Context, limit int) ([]entities.EventEntry, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	return u.Events.ListRecentEvents(ctx, limit)
}
