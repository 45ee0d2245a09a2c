package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "hitloop/contexts/annotation-pipeline/workunit-service/application"
	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
	domainerrors "hitloop/contexts/annotation-pipeline/workunit-service/domain/errors"
	"hitloop/contexts/annotation-pipeline/workunit-service/ports"
)

const (
	defaultReward        = "0.10"
	defaultMaxSubmitters = 1
	defaultLifetime      = 24 * time.Hour
	defaultIssueBatch    = 25

	workUnitDescription = "Complete the annotation task in the external UI."
	workUnitKeywords    = "image, annotation"
	assignmentDuration  = 30 * time.Minute
)

// Per-task skip reasons reported by the issuer.
const (
	SkipReasonActiveWorkUnit   = "active_work_unit_exists"
	SkipReasonTaskNotFound     = "task_not_found"
	SkipReasonMarketplaceError = "marketplace_error"
)

// IssueWorkUnitsCommand contains transport-agnostic input for batch
// work-unit issuance. Zero-valued parameters fall back to defaults.
type IssueWorkUnitsCommand struct {
	TaskIDs       []string
	Reward        string
	MaxSubmitters int
	Lifetime      time.Duration
	BatchSize     int
}

type IssuedWorkUnit struct {
	TaskID     string `json:"task_id"`
	WorkUnitID string `json:"work_unit_id"`
	GroupID    string `json:"group_id"`
}

type SkippedTask struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// IssueReport accounts for every requested task exactly once, either as
// created or as skipped with a reason.
type IssueReport struct {
	Created []IssuedWorkUnit `json:"created"`
	Skipped []SkippedTask    `json:"skipped"`
}

// IssueWorkUnitsUseCase publishes marketplace work units for a batch of
// tasks. The operation is idempotent: tasks that already have an active
// work unit are skipped, and a partially failed batch can be re-issued
// with the same task ids.
type IssueWorkUnitsUseCase struct {
	Tasks       ports.TaskRepository
	WorkUnits   ports.WorkUnitRepository
	Events      ports.EventRecorder
	Marketplace ports.MarketplaceClient
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Backend     entities.Backend
	BaseURL     string
	Sandbox     bool
	Logger      *slog.Logger
}

// Execute issues work units in marketplace-sized chunks. Marketplace
// failures are isolated per task; store failures abort the batch.
func (u IssueWorkUnitsUseCase) Execute(ctx context.Context, cmd IssueWorkUnitsCommand) (IssueReport, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("work unit issuance started",
		"event", "workunit_issue_started",
		"module", "annotation-pipeline/workunit-service",
		"layer", "application",
		"task_count", len(cmd.TaskIDs),
	)

	baseURL := strings.TrimRight(strings.TrimSpace(u.BaseURL), "/")
	if baseURL == "" {
		return IssueReport{}, domainerrors.ErrCallbackBaseURLMissing
	}

	reward := strings.TrimSpace(cmd.Reward)
	if reward == "" {
		reward = defaultReward
	}
	maxSubmitters := cmd.MaxSubmitters
	if maxSubmitters <= 0 {
		maxSubmitters = defaultMaxSubmitters
	}
	lifetime := cmd.Lifetime
	if lifetime <= 0 {
		lifetime = defaultLifetime
	}
	batchSize := cmd.BatchSize
	if batchSize <= 0 {
		batchSize = defaultIssueBatch
	}

	taskIDs := dedupeSorted(cmd.TaskIDs)
	report := IssueReport{}
	if len(taskIDs) == 0 {
		return report, nil
	}

	tasks, err := u.Tasks.ListTasks(ctx, taskIDs)
	if err != nil {
		return report, fmt.Errorf("load tasks: %w", err)
	}
	tasksByID := make(map[string]entities.Task, len(tasks))
	for _, task := range tasks {
		tasksByID[task.TaskID] = task
	}

	for start := 0; start < len(taskIDs); start += batchSize {
		end := start + batchSize
		if end > len(taskIDs) {
			end = len(taskIDs)
		}
		for _, taskID := range taskIDs[start:end] {
			if err := u.issueOne(ctx, logger, &report, tasksByID, taskID, reward, maxSubmitters, lifetime, baseURL); err != nil {
				return report, err
			}
		}
	}

	logger.Info("work unit issuance completed",
		"event", "workunit_issue_completed",
		"module", "annotation-pipeline/workunit-service",
		"layer", "application",
		"created", len(report.Created),
		"skipped", len(report.Skipped),
	)
	return report, nil
}

func (u IssueWorkUnitsUseCase) issueOne(ctx context.Context, logger *slog.Logger, report *IssueReport, tasksByID map[string]entities.Task, taskID, reward string, maxSubmitters int, lifetime time.Duration, baseURL string) error {
	task, ok := tasksByID[taskID]
	if !ok {
		report.Skipped = append(report.Skipped, SkippedTask{TaskID: taskID, Reason: SkipReasonTaskNotFound})
		return nil
	}

	active, err := u.WorkUnits.HasActiveWorkUnit(ctx, taskID, u.Backend)
	if err != nil {
		return fmt.Errorf("check active work units for task %s: %w", taskID, err)
	}
	if active {
		report.Skipped = append(report.Skipped, SkippedTask{TaskID: taskID, Reason: SkipReasonActiveWorkUnit})
		logger.Info("work unit issuance skipped",
			"event", "workunit_issue_skipped",
			"module", "annotation-pipeline/workunit-service",
			"layer", "application",
			"task_id", taskID,
			"reason", SkipReasonActiveWorkUnit,
		)
		return nil
	}

	groupID, err := u.Marketplace.CreateWorkUnit(ctx, ports.CreateWorkUnitParams{
		Title:              workUnitTitle(task),
		Description:        workUnitDescription,
		Keywords:           workUnitKeywords,
		Reward:             reward,
		MaxSubmitters:      maxSubmitters,
		Lifetime:           lifetime,
		AssignmentDuration: assignmentDuration,
		ExternalURL:        callbackURL(baseURL, taskID, u.Backend, u.Sandbox),
	})
	now := u.Clock.Now().UTC()
	if err != nil {
		if appendErr := u.appendEvent(ctx, entities.EventEntry{
			EventType:  entities.EventWorkUnitIssueFailed,
			OccurredAt: now,
			Payload:    map[string]any{"task_id": taskID, "error": err.Error()},
		}); appendErr != nil {
			return appendErr
		}
		report.Skipped = append(report.Skipped, SkippedTask{TaskID: taskID, Reason: SkipReasonMarketplaceError})
		logger.Warn("marketplace work unit creation failed",
			"event", "workunit_issue_failed",
			"module", "annotation-pipeline/workunit-service",
			"layer", "application",
			"task_id", taskID,
			"error", err.Error(),
		)
		return nil
	}

	workUnitID, err := u.IDGen.NewID(ctx)
	if err != nil {
		return fmt.Errorf("generate work unit id: %w", err)
	}
	unit := entities.WorkUnit{
		WorkUnitID: workUnitID,
		TaskID:     taskID,
		Backend:    u.Backend,
		GroupID:    groupID,
		Status:     entities.WorkUnitStatusCreated,
		Sandbox:    u.Sandbox,
		Snapshot: entities.Snapshot{
			Creation: &entities.CreationParams{
				Reward:          reward,
				MaxSubmitters:   maxSubmitters,
				LifetimeSeconds: int(lifetime.Seconds()),
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.WorkUnits.CreateWorkUnit(ctx, unit); err != nil {
		return fmt.Errorf("store work unit for task %s: %w", taskID, err)
	}

	if err := u.appendEvent(ctx, entities.EventEntry{
		EventType:  entities.EventWorkUnitIssued,
		OccurredAt: now,
		Payload: map[string]any{
			"task_id":          taskID,
			"work_unit_id":     workUnitID,
			"group_id":         groupID,
			"reward":           reward,
			"max_submitters":   maxSubmitters,
			"lifetime_seconds": int(lifetime.Seconds()),
		},
	}); err != nil {
		return err
	}

	report.Created = append(report.Created, IssuedWorkUnit{TaskID: taskID, WorkUnitID: workUnitID, GroupID: groupID})
	logger.Info("work unit issued",
		"event", "workunit_issued",
		"module", "annotation-pipeline/workunit-service",
		"layer", "application",
		"task_id", taskID,
		"group_id", groupID,
	)
	return nil
}

func (u IssueWorkUnitsUseCase) appendEvent(ctx context.Context, entry entities.EventEntry) error {
	eventID, err := u.IDGen.NewID(ctx)
	if err != nil {
		return fmt.Errorf("generate event id: %w", err)
	}
	entry.EventID = eventID
	if err := u.Events.AppendEvent(ctx, entry); err != nil {
		return fmt.Errorf("append %s event: %w", entry.EventType, err)
	}
	return nil
}

func workUnitTitle(task entities.Task) string {
	return strings.TrimSpace(fmt.Sprintf("%s annotation", task.Kind))
}

func callbackURL(baseURL, taskID string, backend entities.Backend, sandbox bool) string {
	flag := "0"
	if sandbox {
		flag = "1"
	}
	return fmt.Sprintf("%s/tasks/%s/annotate/%s/?sandbox=%s", baseURL, taskID, backend, flag)
}

func dedupeSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
