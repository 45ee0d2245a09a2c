package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hitloop/contexts/annotation-pipeline/workunit-service/adapters/memory"
	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
	domainerrors "hitloop/contexts/annotation-pipeline/workunit-service/domain/errors"
	"hitloop/contexts/annotation-pipeline/workunit-service/ports"
)

type scriptedMarketplace struct {
	inner    *memory.Marketplace
	failWhen func(ports.CreateWorkUnitParams) error
}

func (m *scriptedMarketplace) CreateWorkUnit(ctx context.Context, params ports.CreateWorkUnitParams) (string, error) {
	if m.failWhen != nil {
		if err := m.failWhen(params); err != nil {
			return "", err
		}
	}
	return m.inner.CreateWorkUnit(ctx, params)
}

func (m *scriptedMarketplace) ListSubmissions(ctx context.Context, groupID string, statuses []string) ([]ports.RemoteSubmission, error) {
	return m.inner.ListSubmissions(ctx, groupID, statuses)
}

func issuerTasks(ids ...string) []entities.Task {
	tasks := make([]entities.Task, 0, len(ids))
	for _, id := range ids {
		tasks = append(tasks, entities.Task{
			TaskID:    id,
			ProjectID: "project-1",
			Kind:      "bounding_box",
			Status:    entities.TaskStatusPending,
			CreatedAt: time.Now().Add(-time.Hour),
		})
	}
	return tasks
}

func newIssuer(store *memory.Store, marketplace ports.MarketplaceClient) IssueWorkUnitsUseCase {
	return IssueWorkUnitsUseCase{
		Tasks:       store,
		WorkUnits:   store,
		Events:      store,
		Marketplace: marketplace,
		Clock:       store,
		IDGen:       store,
		Backend:     entities.BackendMTurk,
		BaseURL:     "http://annotate.local",
		Sandbox:     true,
	}
}

func countEvents(store *memory.Store, eventType string) int {
	count := 0
	for _, entry := range store.Events() {
		if entry.EventType == eventType {
			count++
		}
	}
	return count
}

func TestIssueWorkUnitsSkipsTasksWithActiveUnits(t *testing.T) {
	store := memory.NewStore(issuerTasks("task-1", "task-2", "task-3"), []entities.WorkUnit{
		{
			WorkUnitID: "unit-existing",
			TaskID:     "task-2",
			Backend:    entities.BackendMTurk,
			GroupID:    "GROUP-OLD",
			Status:     entities.WorkUnitStatusSubmitted,
			Sandbox:    true,
			CreatedAt:  time.Now().Add(-2 * time.Hour),
			UpdatedAt:  time.Now().Add(-2 * time.Hour),
		},
	})
	marketplace := memory.NewMarketplace()
	issuer := newIssuer(store, marketplace)

	report, err := issuer.Execute(context.Background(), IssueWorkUnitsCommand{
		TaskIDs: []string{"task-2", "task-1", "task-3", "task-1"},
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(report.Created) != 2 {
		t.Fatalf("expected 2 created, got %#v", report.Created)
	}
	if report.Created[0].TaskID != "task-1" || report.Created[1].TaskID != "task-3" {
		t.Fatalf("expected task-1 and task-3 created, got %#v", report.Created)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].TaskID != "task-2" || report.Skipped[0].Reason != SkipReasonActiveWorkUnit {
		t.Fatalf("expected task-2 skipped as active, got %#v", report.Skipped)
	}
	if got := countEvents(store, entities.EventWorkUnitIssued); got != 2 {
		t.Fatalf("expected 2 issued events, got %d", got)
	}

	// A repeat run issues nothing: every task now has an active unit.
	again, err := issuer.Execute(context.Background(), IssueWorkUnitsCommand{
		TaskIDs: []string{"task-1", "task-2", "task-3"},
	})
	if err != nil {
		t.Fatalf("repeat issue failed: %v", err)
	}
	if len(again.Created) != 0 || len(again.Skipped) != 3 {
		t.Fatalf("expected full skip on repeat, got %#v", again)
	}
}

func TestIssueWorkUnitsDefaultsAndCallback(t *testing.T) {
	store := memory.NewStore(issuerTasks("task-1"), nil)
	marketplace := memory.NewMarketplace()
	issuer := newIssuer(store, marketplace)

	report, err := issuer.Execute(context.Background(), IssueWorkUnitsCommand{TaskIDs: []string{"task-1"}})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(report.Created) != 1 {
		t.Fatalf("expected one created unit, got %#v", report)
	}

	params, ok := marketplace.CreatedParams(report.Created[0].GroupID)
	if !ok {
		t.Fatalf("marketplace never saw group %s", report.Created[0].GroupID)
	}
	if params.Reward != "0.10" {
		t.Fatalf("expected default reward 0.10, got %s", params.Reward)
	}
	if params.MaxSubmitters != 1 {
		t.Fatalf("expected default max submitters 1, got %d", params.MaxSubmitters)
	}
	if params.Lifetime != 24*time.Hour {
		t.Fatalf("expected default lifetime 24h, got %s", params.Lifetime)
	}
	if params.Title != "bounding_box annotation" {
		t.Fatalf("unexpected title %q", params.Title)
	}
	wantURL := "http://annotate.local/tasks/task-1/annotate/mturk/?sandbox=1"
	if params.ExternalURL != wantURL {
		t.Fatalf("expected callback %q, got %q", wantURL, params.ExternalURL)
	}

	unit, err := store.GetWorkUnit(context.Background(), report.Created[0].WorkUnitID)
	if err != nil {
		t.Fatalf("stored unit missing: %v", err)
	}
	if unit.Status != entities.WorkUnitStatusCreated || !unit.Sandbox {
		t.Fatalf("unexpected stored unit %#v", unit)
	}
	if unit.Snapshot.Creation == nil || unit.Snapshot.Creation.Reward != "0.10" {
		t.Fatalf("expected creation params on snapshot, got %#v", unit.Snapshot.Creation)
	}
}

func TestIssueWorkUnitsIsolatesMarketplaceFailures(t *testing.T) {
	store := memory.NewStore(issuerTasks("task-1", "task-2", "task-3"), nil)
	marketplace := &scriptedMarketplace{
		inner: memory.NewMarketplace(),
		failWhen: func(params ports.CreateWorkUnitParams) error {
			if strings.Contains(params.ExternalURL, "/tasks/task-2/") {
				return errors.New("throttled")
			}
			return nil
		},
	}
	issuer := newIssuer(store, marketplace)

	report, err := issuer.Execute(context.Background(), IssueWorkUnitsCommand{
		TaskIDs: []string{"task-1", "task-2", "task-3"},
	})
	if err != nil {
		t.Fatalf("batch should survive a marketplace failure: %v", err)
	}
	if len(report.Created) != 2 {
		t.Fatalf("expected 2 created, got %#v", report.Created)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Reason != SkipReasonMarketplaceError {
		t.Fatalf("expected marketplace skip for task-2, got %#v", report.Skipped)
	}
	if got := countEvents(store, entities.EventWorkUnitIssueFailed); got != 1 {
		t.Fatalf("expected 1 issue_failed event, got %d", got)
	}

	// Re-issuing after the marketplace recovers picks up only the failed
	// task.
	marketplace.failWhen = nil
	retry, err := issuer.Execute(context.Background(), IssueWorkUnitsCommand{
		TaskIDs: []string{"task-1", "task-2", "task-3"},
	})
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(retry.Created) != 1 || retry.Created[0].TaskID != "task-2" {
		t.Fatalf("expected only task-2 on retry, got %#v", retry.Created)
	}
}

func TestIssueWorkUnitsUnknownTaskSkipped(t *testing.T) {
	store := memory.NewStore(issuerTasks("task-1"), nil)
	issuer := newIssuer(store, memory.NewMarketplace())

	report, err := issuer.Execute(context.Background(), IssueWorkUnitsCommand{
		TaskIDs: []string{"task-1", "task-missing"},
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(report.Created) != 1 || report.Created[0].TaskID != "task-1" {
		t.Fatalf("expected task-1 created, got %#v", report.Created)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Reason != SkipReasonTaskNotFound {
		t.Fatalf("expected task-missing skipped, got %#v", report.Skipped)
	}
}

func TestIssueWorkUnitsRequiresBaseURL(t *testing.T) {
	store := memory.NewStore(issuerTasks("task-1"), nil)
	issuer := newIssuer(store, memory.NewMarketplace())
	issuer.BaseURL = "   "

	_, err := issuer.Execute(context.Background(), IssueWorkUnitsCommand{TaskIDs: []string{"task-1"}})
	if !errors.Is(err, domainerrors.ErrCallbackBaseURLMissing) {
		t.Fatalf("expected missing base URL error, got %v", err)
	}
}
