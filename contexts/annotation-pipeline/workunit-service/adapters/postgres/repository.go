package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
	domainerrors "hitloop/contexts/annotation-pipeline/workunit-service/domain/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates or updates the context's tables, including the
// partial unique indexes that carry the exactly-once invariants.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&taskModel{},
		&workUnitModel{},
		&annotationModel{},
		&eventLogModel{},
	)
}

func (r *Repository) CreateWorkUnit(ctx context.Context, unit entities.WorkUnit) error {
	row, err := workUnitModelFromEntity(unit)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateWorkUnit
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateWorkUnit(ctx context.Context, unit entities.WorkUnit) error {
	updates, err := workUnitUpdatesFromEntity(unit)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&workUnitModel{}).
		Where("work_unit_id = ?", strings.TrimSpace(unit.WorkUnitID)).
		Updates(updates)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domainerrors.ErrDuplicateWorkUnit
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrWorkUnitNotFound
	}
	return nil
}

func (r *Repository) GetWorkUnit(ctx context.Context, workUnitID string) (entities.WorkUnit, error) {
	var row workUnitModel
	err := r.db.WithContext(ctx).
		Where("work_unit_id = ?", strings.TrimSpace(workUnitID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.WorkUnit{}, domainerrors.ErrWorkUnitNotFound
		}
		return entities.WorkUnit{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) GetWorkUnitByAssignment(ctx context.Context, backend entities.Backend, assignmentID string) (entities.WorkUnit, bool, error) {
	assignmentID = strings.TrimSpace(assignmentID)
	if assignmentID == "" {
		return entities.WorkUnit{}, false, nil
	}

	var row workUnitModel
	err := r.db.WithContext(ctx).
		Where("backend = ?", string(backend)).
		Where("assignment_id = ?", assignmentID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.WorkUnit{}, false, nil
		}
		return entities.WorkUnit{}, false, err
	}
	return row.toEntity(), true, nil
}

func (r *Repository) OldestWorkUnitForGroup(ctx context.Context, backend entities.Backend, groupID string) (entities.WorkUnit, bool, error) {
	var row workUnitModel
	err := r.db.WithContext(ctx).
		Where("backend = ?", string(backend)).
		Where("group_id = ?", strings.TrimSpace(groupID)).
		Order("created_at ASC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.WorkUnit{}, false, nil
		}
		return entities.WorkUnit{}, false, err
	}
	return row.toEntity(), true, nil
}

func (r *Repository) HasActiveWorkUnit(ctx context.Context, taskID string, backend entities.Backend) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&workUnitModel{}).
		Where("task_id = ?", strings.TrimSpace(taskID)).
		Where("backend = ?", string(backend)).
		Where("status IN ?", activeStatuses()).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) ListWorkUnitsForTask(ctx context.Context, taskID string) ([]entities.WorkUnit, error) {
	var rows []workUnitModel
	err := r.db.WithContext(ctx).
		Where("task_id = ?", strings.TrimSpace(taskID)).
		Order("created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	items := make([]entities.WorkUnit, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListOpenGroups(ctx context.Context, backend entities.Backend, sandbox bool, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&workUnitModel{}).
		Where("backend = ?", string(backend)).
		Where("status IN ?", activeStatuses()).
		Where("sandbox = ?", sandbox).
		Where("group_id <> ''").
		Group("group_id").
		Order("MIN(updated_at) ASC").
		Limit(limit).
		Pluck("group_id", &ids).
		Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) ListIngestible(ctx context.Context, backend entities.Backend, limit int) ([]entities.WorkUnit, error) {
	var rows []workUnitModel
	err := r.db.WithContext(ctx).
		Where("backend = ?", string(backend)).
		Where("status IN ?", ingestibleStatuses()).
		Where("ingested_at IS NULL").
		Where("snapshot -> 'result' IS NOT NULL").
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	items := make([]entities.WorkUnit, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CreateAnnotation(ctx context.Context, candidate entities.Annotation) (entities.Annotation, bool, error) {
	if candidate.SubmissionID != "" {
		existing, found, err := r.findAnnotationBySubmission(ctx, candidate.TaskID, candidate.SubmissionID)
		if err != nil {
			return entities.Annotation{}, false, err
		}
		if found {
			return existing, false, nil
		}
	}

	row, err := annotationModelFromEntity(candidate)
	if err != nil {
		return entities.Annotation{}, false, err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost an insert race; the winning row is the annotation.
			existing, found, readErr := r.findAnnotationBySubmission(ctx, candidate.TaskID, candidate.SubmissionID)
			if readErr != nil {
				return entities.Annotation{}, false, readErr
			}
			if found {
				return existing, false, nil
			}
		}
		return entities.Annotation{}, false, err
	}
	return row.toEntity(), true, nil
}

func (r *Repository) findAnnotationBySubmission(ctx context.Context, taskID, submissionID string) (entities.Annotation, bool, error) {
	var row annotationModel
	err := r.db.WithContext(ctx).
		Where("task_id = ?", strings.TrimSpace(taskID)).
		Where("submission_id = ?", strings.TrimSpace(submissionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Annotation{}, false, nil
		}
		return entities.Annotation{}, false, err
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListAnnotationsForTask(ctx context.Context, taskID string) ([]entities.Annotation, error) {
	var rows []annotationModel
	err := r.db.WithContext(ctx).
		Where("task_id = ?", strings.TrimSpace(taskID)).
		Order("created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	items := make([]entities.Annotation, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetTask(ctx context.Context, taskID string) (entities.Task, error) {
	var row taskModel
	err := r.db.WithContext(ctx).
		Where("task_id = ?", strings.TrimSpace(taskID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Task{}, domainerrors.ErrTaskNotFound
		}
		return entities.Task{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListTasks(ctx context.Context, taskIDs []string) ([]entities.Task, error) {
	trimmed := make([]string, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		if taskID = strings.TrimSpace(taskID); taskID != "" {
			trimmed = append(trimmed, taskID)
		}
	}
	if len(trimmed) == 0 {
		return nil, nil
	}

	var rows []taskModel
	err := r.db.WithContext(ctx).
		Where("task_id IN ?", trimmed).
		Order("task_id ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	items := make([]entities.Task, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendEvent(ctx context.Context, entry entities.EventEntry) error {
	row, err := eventLogModelFromEntity(entry)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) ListRecentEvents(ctx context.Context, limit int) ([]entities.EventEntry, error) {
	var rows []eventLogModel
	err := r.db.WithContext(ctx).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	items := make([]entities.EventEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func activeStatuses() []string {
	return []string{
		string(entities.WorkUnitStatusCreated),
		string(entities.WorkUnitStatusSubmitted),
	}
}

func ingestibleStatuses() []string {
	return []string{
		string(entities.WorkUnitStatusSubmitted),
		string(entities.WorkUnitStatusApproved),
	}
}

type taskModel struct {
	TaskID            string    `gorm:"column:task_id;primaryKey"`
	ProjectID         string    `gorm:"column:project_id;index:idx_tasks_project"`
	Kind              string    `gorm:"column:kind"`
	DefinitionVersion string    `gorm:"column:definition_version"`
	Status            string    `gorm:"column:status;index:idx_tasks_status"`
	Priority          int       `gorm:"column:priority"`
	CreatedAt         time.Time `gorm:"column:created_at"`
}

func (taskModel) TableName() string {
	return "tasks"
}

func (m taskModel) toEntity() entities.Task {
	return entities.Task{
		TaskID:            m.TaskID,
		ProjectID:         m.ProjectID,
		Kind:              m.Kind,
		DefinitionVersion: m.DefinitionVersion,
		Status:            entities.TaskStatus(m.Status),
		Priority:          m.Priority,
		CreatedAt:         m.CreatedAt,
	}
}

type workUnitModel struct {
	WorkUnitID   string     `gorm:"column:work_unit_id;primaryKey"`
	TaskID       string     `gorm:"column:task_id;index:idx_work_units_task"`
	Backend      string     `gorm:"column:backend;uniqueIndex:uniq_work_units_backend_assignment,priority:1;index:idx_work_units_backend_group,priority:1"`
	GroupID      string     `gorm:"column:group_id;index:idx_work_units_backend_group,priority:2"`
	AssignmentID string     `gorm:"column:assignment_id;uniqueIndex:uniq_work_units_backend_assignment,priority:2,where:assignment_id <> ''"`
	WorkerID     string     `gorm:"column:worker_id"`
	Status       string     `gorm:"column:status;index:idx_work_units_status_updated,priority:1"`
	Sandbox      bool       `gorm:"column:sandbox"`
	Snapshot     []byte     `gorm:"column:snapshot;type:jsonb"`
	LastPolledAt *time.Time `gorm:"column:last_polled_at"`
	IngestedAt   *time.Time `gorm:"column:ingested_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;index:idx_work_units_status_updated,priority:2"`
}

func (workUnitModel) TableName() string {
	return "work_units"
}

func workUnitModelFromEntity(item entities.WorkUnit) (workUnitModel, error) {
	snapshot, err := json.Marshal(item.Snapshot)
	if err != nil {
		return workUnitModel{}, err
	}
	return workUnitModel{
		WorkUnitID:   strings.TrimSpace(item.WorkUnitID),
		TaskID:       strings.TrimSpace(item.TaskID),
		Backend:      string(item.Backend),
		GroupID:      strings.TrimSpace(item.GroupID),
		AssignmentID: strings.TrimSpace(item.AssignmentID),
		WorkerID:     strings.TrimSpace(item.WorkerID),
		Status:       string(item.Status),
		Sandbox:      item.Sandbox,
		Snapshot:     snapshot,
		LastPolledAt: normalizeOptionalTime(item.LastPolledAt),
		IngestedAt:   normalizeOptionalTime(item.IngestedAt),
		CreatedAt:    item.CreatedAt.UTC(),
		UpdatedAt:    item.UpdatedAt.UTC(),
	}, nil
}

func workUnitUpdatesFromEntity(item entities.WorkUnit) (map[string]any, error) {
	snapshot, err := json.Marshal(item.Snapshot)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"task_id":        strings.TrimSpace(item.TaskID),
		"backend":        string(item.Backend),
		"group_id":       strings.TrimSpace(item.GroupID),
		"assignment_id":  strings.TrimSpace(item.AssignmentID),
		"worker_id":      strings.TrimSpace(item.WorkerID),
		"status":         string(item.Status),
		"sandbox":        item.Sandbox,
		"snapshot":       snapshot,
		"last_polled_at": normalizeOptionalTime(item.LastPolledAt),
		"ingested_at":    normalizeOptionalTime(item.IngestedAt),
		"updated_at":     item.UpdatedAt.UTC(),
	}, nil
}

func (m workUnitModel) toEntity() entities.WorkUnit {
	snapshot := entities.Snapshot{}
	if len(m.Snapshot) > 0 {
		_ = json.Unmarshal(m.Snapshot, &snapshot)
	}
	return entities.WorkUnit{
		WorkUnitID:   m.WorkUnitID,
		TaskID:       m.TaskID,
		Backend:      entities.Backend(m.Backend),
		GroupID:      m.GroupID,
		AssignmentID: m.AssignmentID,
		WorkerID:     m.WorkerID,
		Status:       entities.WorkUnitStatus(m.Status),
		Sandbox:      m.Sandbox,
		Snapshot:     snapshot,
		LastPolledAt: m.LastPolledAt,
		IngestedAt:   m.IngestedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type annotationModel struct {
	AnnotationID  string    `gorm:"column:annotation_id;primaryKey"`
	TaskID        string    `gorm:"column:task_id;uniqueIndex:uniq_annotations_task_submission,priority:1;index:idx_annotations_task_created,priority:1"`
	Result        []byte    `gorm:"column:result;type:jsonb"`
	SchemaVersion string    `gorm:"column:schema_version"`
	ToolVersion   string    `gorm:"column:tool_version"`
	Actor         string    `gorm:"column:actor"`
	SubmissionID  string    `gorm:"column:submission_id;uniqueIndex:uniq_annotations_task_submission,priority:2,where:submission_id <> ''"`
	WorkUnitID    string    `gorm:"column:work_unit_id"`
	RawPayload    []byte    `gorm:"column:raw_payload;type:jsonb"`
	CreatedAt     time.Time `gorm:"column:created_at;index:idx_annotations_task_created,priority:2"`
}

func (annotationModel) TableName() string {
	return "annotations"
}

func annotationModelFromEntity(item entities.Annotation) (annotationModel, error) {
	result, err := json.Marshal(item.Result)
	if err != nil {
		return annotationModel{}, err
	}
	rawPayload := item.RawPayload
	if rawPayload == nil {
		rawPayload = map[string]any{}
	}
	raw, err := json.Marshal(rawPayload)
	if err != nil {
		return annotationModel{}, err
	}
	return annotationModel{
		AnnotationID:  strings.TrimSpace(item.AnnotationID),
		TaskID:        strings.TrimSpace(item.TaskID),
		Result:        result,
		SchemaVersion: strings.TrimSpace(item.SchemaVersion),
		ToolVersion:   strings.TrimSpace(item.ToolVersion),
		Actor:         strings.TrimSpace(item.Actor),
		SubmissionID:  strings.TrimSpace(item.SubmissionID),
		WorkUnitID:    strings.TrimSpace(item.WorkUnitID),
		RawPayload:    raw,
		CreatedAt:     item.CreatedAt.UTC(),
	}, nil
}

func (m annotationModel) toEntity() entities.Annotation {
	result := map[string]any{}
	if len(m.Result) > 0 {
		_ = json.Unmarshal(m.Result, &result)
	}
	rawPayload := map[string]any{}
	if len(m.RawPayload) > 0 {
		_ = json.Unmarshal(m.RawPayload, &rawPayload)
	}
	return entities.Annotation{
		AnnotationID:  m.AnnotationID,
		TaskID:        m.TaskID,
		Result:        result,
		SchemaVersion: m.SchemaVersion,
		ToolVersion:   m.ToolVersion,
		Actor:         m.Actor,
		SubmissionID:  m.SubmissionID,
		WorkUnitID:    m.WorkUnitID,
		RawPayload:    rawPayload,
		CreatedAt:     m.CreatedAt,
	}
}

type eventLogModel struct {
	EventID    string    `gorm:"column:event_id;primaryKey"`
	EventType  string    `gorm:"column:event_type;index:idx_event_log_type"`
	OccurredAt time.Time `gorm:"column:occurred_at;index:idx_event_log_occurred"`
	Actor      string    `gorm:"column:actor"`
	Payload    []byte    `gorm:"column:payload;type:jsonb"`
}

func (eventLogModel) TableName() string {
	return "event_log"
}

func eventLogModelFromEntity(item entities.EventEntry) (eventLogModel, error) {
	payload := item.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return eventLogModel{}, err
	}
	return eventLogModel{
		EventID:    strings.TrimSpace(item.EventID),
		EventType:  strings.TrimSpace(item.EventType),
		OccurredAt: item.OccurredAt.UTC(),
		Actor:      strings.TrimSpace(item.Actor),
		Payload:    raw,
	}, nil
}

func (m eventLogModel) toEntity() entities.EventEntry {
	payload := map[string]any{}
	if len(m.Payload) > 0 {
		_ = json.Unmarshal(m.Payload, &payload)
	}
	return entities.EventEntry{
		EventID:    m.EventID,
		EventType:  m.EventType,
		OccurredAt: m.OccurredAt,
		Actor:      m.Actor,
		Payload:    payload,
	}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
