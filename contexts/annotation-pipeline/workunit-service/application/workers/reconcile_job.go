package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "hitloop/contexts/annotation-pipeline/workunit-service/application"
	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
	domainerrors "hitloop/contexts/annotation-pipeline/workunit-service/domain/errors"
	"hitloop/contexts/annotation-pipeline/workunit-service/domain/services"
	"hitloop/contexts/annotation-pipeline/workunit-service/ports"
)

// ItemFailure names one isolated failure inside a batch cycle.
type ItemFailure struct {
	Ref   string `json:"ref"`
	Error string `json:"error"`
}

// GroupPollResult accounts for one group's poll.
type GroupPollResult struct {
	AssignmentsSeen    int `json:"assignments_seen"`
	AssignmentsUpdated int `json:"assignments_updated"`
}

// PollReport accounts for one reconcile cycle across groups.
type PollReport struct {
	GroupsPolled       int           `json:"groups_polled"`
	AssignmentsSeen    int           `json:"assignments_seen"`
	AssignmentsUpdated int           `json:"assignments_updated"`
	Failures           []ItemFailure `json:"failures,omitempty"`
}

// ReconcileJob polls open marketplace groups and folds remote
// submission state into the local store. The job is the only writer of
// marketplace-derived work-unit state; one group's failure never stops
// the rest of the cycle.
type ReconcileJob struct {
	WorkUnits   ports.WorkUnitRepository
	Events      ports.EventRecorder
	Marketplace ports.MarketplaceClient
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Backend     entities.Backend
	Sandbox     bool
	PollLimit   int
	Logger      *slog.Logger
}

func (j ReconcileJob) RunOnce(ctx context.Context) (PollReport, error) {
	logger := application.ResolveLogger(j.Logger)
	limit := j.PollLimit
	if limit <= 0 {
		limit = 25
	}

	groups, err := j.WorkUnits.ListOpenGroups(ctx, j.Backend, j.Sandbox, limit)
	if err != nil {
		logger.Error("open group listing failed",
			"event", "workunit_group_list_failed",
			"module", "annotation-pipeline/workunit-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return PollReport{}, err
	}

	report := PollReport{}
	for _, groupID := range groups {
		result, err := j.PollGroup(ctx, groupID)
		report.AssignmentsSeen += result.AssignmentsSeen
		report.AssignmentsUpdated += result.AssignmentsUpdated
		if err != nil {
			report.Failures = append(report.Failures, ItemFailure{Ref: groupID, Error: err.Error()})
			logger.Warn("group poll failed",
				"event", "workunit_group_poll_failed",
				"module", "annotation-pipeline/workunit-service",
				"layer", "worker",
				"group_id", groupID,
				"error", err.Error(),
			)
			continue
		}
		report.GroupsPolled++
	}

	if report.GroupsPolled > 0 || len(report.Failures) > 0 {
		logger.Info("reconcile cycle completed",
			"event", "workunit_reconcile_cycle_completed",
			"module", "annotation-pipeline/workunit-service",
			"layer", "worker",
			"groups_polled", report.GroupsPolled,
			"assignments_seen", report.AssignmentsSeen,
			"assignments_updated", report.AssignmentsUpdated,
			"failures", len(report.Failures),
		)
	}
	return report, nil
}

// PollGroup reconciles a single group. Remote submissions are matched to
// local units by assignment id; unknown assignments are adopted under
// the group's anchor task.
func (j ReconcileJob) PollGroup(ctx context.Context, groupID string) (GroupPollResult, error) {
	logger := application.ResolveLogger(j.Logger)
	result := GroupPollResult{}

	anchor, found, err := j.WorkUnits.OldestWorkUnitForGroup(ctx, j.Backend, groupID)
	if err != nil {
		return result, fmt.Errorf("load anchor unit for group %s: %w", groupID, err)
	}
	if !found {
		logger.Warn("no work unit recorded for group",
			"event", "workunit_group_unknown",
			"module", "annotation-pipeline/workunit-service",
			"layer", "worker",
			"group_id", groupID,
		)
		return result, nil
	}

	remotes, err := j.Marketplace.ListSubmissions(ctx, groupID, services.DefaultPollStatuses)
	if err != nil {
		return result, fmt.Errorf("list submissions for group %s: %w", groupID, err)
	}

	for _, remote := range remotes {
		if strings.TrimSpace(remote.AssignmentID) == "" {
			continue
		}
		result.AssignmentsSeen++
		updated, err := j.applyRemote(ctx, logger, anchor, groupID, remote)
		if err != nil {
			return result, err
		}
		if updated {
			result.AssignmentsUpdated++
		}
	}
	return result, nil
}

// applyRemote upserts the local unit for one remote submission and
// reports whether anything material changed. LastPolledAt advances
// either way; UpdatedAt and the audit event fire only on change.
func (j ReconcileJob) applyRemote(ctx context.Context, logger *slog.Logger, anchor entities.WorkUnit, groupID string, remote ports.RemoteSubmission) (bool, error) {
	now := j.Clock.Now().UTC()

	unit, found, err := j.WorkUnits.GetWorkUnitByAssignment(ctx, j.Backend, remote.AssignmentID)
	if err != nil {
		return false, fmt.Errorf("load unit for assignment %s: %w", remote.AssignmentID, err)
	}
	if !found {
		unit, err = j.adoptAssignment(ctx, anchor, groupID, remote.AssignmentID, now)
		if err != nil {
			return false, err
		}
	}

	payload, parseErr := services.ParseAnswerPayload(remote.Answer)
	if parseErr != nil {
		logger.Warn("answer payload degraded",
			"event", "workunit_answer_parse_failed",
			"module", "annotation-pipeline/workunit-service",
			"layer", "worker",
			"assignment_id", remote.AssignmentID,
			"error", parseErr.Error(),
		)
	}

	next := unit
	changed := false
	if remote.SubmitterID != "" && unit.WorkerID != remote.SubmitterID {
		next.WorkerID = remote.SubmitterID
		changed = true
	}
	if mapped := services.MapRemoteStatus(remote.Status); unit.Status != mapped {
		next.Status = mapped
		changed = true
	}

	snapshot := unit.Snapshot
	snapshot.RemoteRecord = map[string]any{
		"assignment_id": remote.AssignmentID,
		"submitter_id":  remote.SubmitterID,
		"status":        remote.Status,
		"answer":        remote.Answer,
	}
	snapshot.Answers = payload.Fields
	if payload.Result != nil {
		snapshot.Result = payload.Result
	}
	if !snapshot.Equal(unit.Snapshot) {
		next.Snapshot = snapshot
		changed = true
	}

	next.LastPolledAt = &now
	if changed {
		next.UpdatedAt = now
	}
	if err := j.WorkUnits.UpdateWorkUnit(ctx, next); err != nil {
		return false, fmt.Errorf("store unit for assignment %s: %w", remote.AssignmentID, err)
	}
	if !changed {
		return false, nil
	}

	eventID, err := j.IDGen.NewID(ctx)
	if err != nil {
		return false, err
	}
	if err := j.Events.AppendEvent(ctx, entities.EventEntry{
		EventID:    eventID,
		EventType:  entities.EventWorkUnitSynced,
		OccurredAt: now,
		Payload: map[string]any{
			"task_id":       next.TaskID,
			"work_unit_id":  next.WorkUnitID,
			"group_id":      groupID,
			"assignment_id": remote.AssignmentID,
			"status":        string(next.Status),
		},
	}); err != nil {
		return false, err
	}
	return true, nil
}

// adoptAssignment records a remote assignment seen for the first time.
// A concurrent poller may win the insert; the loser reads the row back.
func (j ReconcileJob) adoptAssignment(ctx context.Context, anchor entities.WorkUnit, groupID, assignmentID string, now time.Time) (entities.WorkUnit, error) {
	workUnitID, err := j.IDGen.NewID(ctx)
	if err != nil {
		return entities.WorkUnit{}, err
	}
	unit := entities.WorkUnit{
		WorkUnitID:   workUnitID,
		TaskID:       anchor.TaskID,
		Backend:      j.Backend,
		GroupID:      groupID,
		AssignmentID: assignmentID,
		Status:       entities.WorkUnitStatusCreated,
		Sandbox:      j.Sandbox,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = j.WorkUnits.CreateWorkUnit(ctx, unit)
	if err == nil {
		return unit, nil
	}
	if !errors.Is(err, domainerrors.ErrDuplicateWorkUnit) {
		return entities.WorkUnit{}, fmt.Errorf("record unit for assignment %s: %w", assignmentID, err)
	}

	existing, found, err := j.WorkUnits.GetWorkUnitByAssignment(ctx, j.Backend, assignmentID)
	if err != nil {
		return entities.WorkUnit{}, err
	}
	if !found {
		return entities.WorkUnit{}, domainerrors.ErrWorkUnitNotFound
	}
	return existing, nil
}
