package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "hitloop/contexts/annotation-pipeline/workunit-service/application"
	"hitloop/contexts/annotation-pipeline/workunit-service/application/commands"
	"hitloop/contexts/annotation-pipeline/workunit-service/application/queries"
	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
	httptransport "hitloop/contexts/annotation-pipeline/workunit-service/transport/http"
)

type Handler struct {
	CreateAnnotation commands.CreateAnnotationUseCase
	Queries          queries.UseCase
	Logger           *slog.Logger
}

// CreateAnnotationHandler godoc
// @Summary Submit an annotation
// @Description Records a canonical annotation for a task. Repeating a submission id replays the stored row instead of inserting a second one.
// @Tags annotation-pipeline
// @Accept json
// @Produce json
// @Param request body httptransport.CreateAnnotationRequest true "Annotation payload"
// @Success 201 {object} httptransport.CreateAnnotationResponse
// @Success 200 {object} httptransport.CreateAnnotationResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/annotations [post]
func (h Handler) CreateAnnotationHandler(ctx context.Context, req httptransport.CreateAnnotationRequest) (httptransport.CreateAnnotationResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("create annotation request received",
		"event", "http_create_annotation_received",
		"module", "annotation-pipeline/workunit-service",
		"layer", "transport",
		"task_id", req.TaskID,
	)

	result, err := h.CreateAnnotation.Execute(ctx, commands.CreateAnnotationCommand{
		TaskID:        req.TaskID,
		Result:        req.Result,
		SchemaVersion: req.SchemaVersion,
		ToolVersion:   req.ToolVersion,
		Actor:         req.Actor,
		SubmissionID:  req.SubmissionID,
		WorkUnitID:    req.WorkUnitID,
		RawPayload:    req.RawPayload,
	})
	if err != nil {
		return httptransport.CreateAnnotationResponse{}, err
	}
	return httptransport.CreateAnnotationResponse{
		Annotation: mapAnnotation(result.Annotation),
		Created:    result.Created,
	}, nil
}

// GetTaskHandler godoc
// @Summary Get task
// @Tags annotation-pipeline
// @Produce json
// @Param task_id path string true "Task id"
// @Success 200 {object} httptransport.GetTaskResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/tasks/{task_id} [get]
func (h Handler) GetTaskHandler(ctx context.Context, taskID string) (httptransport.GetTaskResponse, error) {
	item, err := h.Queries.GetTask(ctx, taskID)
	if err != nil {
		return httptransport.GetTaskResponse{}, err
	}
	return httptransport.GetTaskResponse{Task: mapTask(item)}, nil
}

// GetWorkUnitHandler godoc
// @Summary Get work unit
// @Tags annotation-pipeline
// @Produce json
// @Param work_unit_id path string true "Work unit id"
// @Success 200 {object} httptransport.GetWorkUnitResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/work-units/{work_unit_id} [get]
func (h Handler) GetWorkUnitHandler(ctx context.Context, workUnitID string) (httptransport.GetWorkUnitResponse, error) {
	item, err := h.Queries.GetWorkUnit(ctx, workUnitID)
	if err != nil {
		return httptransport.GetWorkUnitResponse{}, err
	}
	return httptransport.GetWorkUnitResponse{WorkUnit: mapWorkUnit(item)}, nil
}

func (h Handler) ListWorkUnitsHandler(ctx context.Context, taskID string) (httptransport.ListWorkUnitsResponse, error) {
	items, err := h.Queries.ListWorkUnitsForTask(ctx, taskID)
	if err != nil {
		return httptransport.ListWorkUnitsResponse{}, err
	}
	result := make([]httptransport.WorkUnitDTO, 0, len(items))
	for _, item := range items {
		result = append(result, mapWorkUnit(item))
	}
	return httptransport.ListWorkUnitsResponse{Items: result}, nil
}

func (h Handler) ListAnnotationsHandler(ctx context.Context, taskID string) (httptransport.ListAnnotationsResponse, error) {
	items, err := h.Queries.ListAnnotationsForTask(ctx, taskID)
	if err != nil {
		return httptransport.ListAnnotationsResponse{}, err
	}
	result := make([]httptransport.AnnotationDTO, 0, len(items))
	for _, item := range items {
		result = append(result, mapAnnotation(item))
	}
	return httptransport.ListAnnotationsResponse{Items: result}, nil
}

// ListEventsHandler godoc
// @Summary List recent lifecycle events
// @Tags annotation-pipeline
// @Produce json
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {object} httptransport.ListEventsResponse
// @Router /v1/events [get]
func (h Handler) ListEventsHandler(ctx context.Context, limit int) (httptransport.ListEventsResponse, error) {
	items, err := h.Queries.ListRecentEvents(ctx, limit)
	if err != nil {
		return httptransport.ListEventsResponse{}, err
	}
	result := make([]httptransport.EventEntryDTO, 0, len(items))
	for _, item := range items {
		result = append(result, mapEvent(item))
	}
	return httptransport.ListEventsResponse{Items: result}, nil
}

func mapTask(item entities.Task) httptransport.TaskDTO {
	return httptransport.TaskDTO{
		TaskID:            item.TaskID,
		ProjectID:         item.ProjectID,
		Kind:              item.Kind,
		DefinitionVersion: item.DefinitionVersion,
		Status:            string(item.Status),
		Priority:          item.Priority,
		CreatedAt:         item.CreatedAt.Format(time.RFC3339),
	}
}

func mapWorkUnit(item entities.WorkUnit) httptransport.WorkUnitDTO {
	dto := httptransport.WorkUnitDTO{
		WorkUnitID:   item.WorkUnitID,
		TaskID:       item.TaskID,
		Backend:      string(item.Backend),
		GroupID:      item.GroupID,
		AssignmentID: item.AssignmentID,
		WorkerID:     item.WorkerID,
		Status:       string(item.Status),
		Sandbox:      item.Sandbox,
		HasResult:    len(item.Snapshot.Result) > 0,
		CreatedAt:    item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    item.UpdatedAt.Format(time.RFC3339),
	}
	if item.LastPolledAt != nil {
		dto.LastPolledAt = item.LastPolledAt.Format(time.RFC3339)
	}
	if item.IngestedAt != nil {
		dto.IngestedAt = item.IngestedAt.Format(time.RFC3339)
	}
	return dto
}

func mapAnnotation(item entities.Annotation) httptransport.AnnotationDTO {
	return httptransport.AnnotationDTO{
		AnnotationID:  item.AnnotationID,
		TaskID:        item.TaskID,
		Result:        item.Result,
		SchemaVersion: item.SchemaVersion,
		ToolVersion:   item.ToolVersion,
		Actor:         item.Actor,
		SubmissionID:  item.SubmissionID,
		WorkUnitID:    item.WorkUnitID,
		CreatedAt:     item.CreatedAt.Format(time.RFC3339),
	}
}

func mapEvent(item entities.EventEntry) httptransport.EventEntryDTO {
	return httptransport.EventEntryDTO{
		EventID:    item.EventID,
		EventType:  item.EventType,
		OccurredAt: item.OccurredAt.Format(time.RFC3339),
		Actor:      item.Actor,
		Payload:    item.Payload,
	}
}
