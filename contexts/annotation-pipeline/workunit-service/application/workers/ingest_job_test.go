package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"hitloop/contexts/annotation-pipeline/workunit-service/adapters/memory"
	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
)

func ingestibleUnit(id, taskID, assignmentID string, doc map[string]any) entities.WorkUnit {
	created := time.Now().Add(-time.Hour)
	return entities.WorkUnit{
		WorkUnitID:   id,
		TaskID:       taskID,
		Backend:      entities.BackendMTurk,
		GroupID:      "GROUP-1",
		AssignmentID: assignmentID,
		WorkerID:     "worker-1",
		Status:       entities.WorkUnitStatusApproved,
		Sandbox:      true,
		Snapshot:     entities.Snapshot{Result: doc},
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func canonicalDoc(label string) map[string]any {
	return map[string]any{
		"result":         map[string]any{"label": label},
		"schema_version": "v1",
		"tool_version":   "ui-2.3",
	}
}

func newIngestJob(store *memory.Store) IngestJob {
	return IngestJob{
		WorkUnits:   store,
		Annotations: store,
		Events:      store,
		Clock:       store,
		IDGen:       store,
		Backend:     entities.BackendMTurk,
		IngestLimit: 10,
	}
}

func ingestedEventCount(store *memory.Store) int {
	count := 0
	for _, entry := range store.Events() {
		if entry.EventType == entities.EventWorkUnitIngested {
			count++
		}
	}
	return count
}

func TestIngestCreatesAnnotations(t *testing.T) {
	store := memory.NewStore(nil, []entities.WorkUnit{
		ingestibleUnit("unit-1", "task-1", "A-1", canonicalDoc("cat")),
		ingestibleUnit("unit-2", "task-2", "A-2", canonicalDoc("dog")),
	})
	job := newIngestJob(store)

	report, err := job.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if report.Ingested != 2 || report.Skipped != 0 || len(report.Failures) != 0 {
		t.Fatalf("unexpected report %#v", report)
	}

	annotations := store.Annotations()
	if len(annotations) != 2 {
		t.Fatalf("expected 2 annotations, got %d", len(annotations))
	}
	byTask := map[string]entities.Annotation{}
	for _, annotation := range annotations {
		byTask[annotation.TaskID] = annotation
	}
	first := byTask["task-1"]
	if first.SubmissionID != "A-1" {
		t.Fatalf("expected assignment id as submission id, got %q", first.SubmissionID)
	}
	if first.Actor != "worker-1" {
		t.Fatalf("expected worker as actor, got %q", first.Actor)
	}
	if first.WorkUnitID != "unit-1" {
		t.Fatalf("expected work unit link, got %q", first.WorkUnitID)
	}
	if first.SchemaVersion != "v1" || first.ToolVersion != "ui-2.3" {
		t.Fatalf("expected canonical metadata, got %#v", first)
	}
	if first.Result["label"] != "cat" {
		t.Fatalf("expected result payload, got %#v", first.Result)
	}
	if first.RawPayload["ingested_via"] != "mturk" {
		t.Fatalf("expected ingestion provenance, got %#v", first.RawPayload)
	}

	for _, id := range []string{"unit-1", "unit-2"} {
		unit, err := store.GetWorkUnit(context.Background(), id)
		if err != nil {
			t.Fatalf("unit %s missing: %v", id, err)
		}
		if !unit.Ingested() {
			t.Fatalf("unit %s should be marked ingested", id)
		}
	}
	if got := ingestedEventCount(store); got != 2 {
		t.Fatalf("expected 2 ingested events, got %d", got)
	}

	// A second cycle finds nothing left to do.
	again, err := job.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if again.Ingested != 0 || again.Skipped != 0 {
		t.Fatalf("expected idle cycle, got %#v", again)
	}
}

func TestIngestReplaysExistingSubmission(t *testing.T) {
	store := memory.NewStore(nil, []entities.WorkUnit{
		ingestibleUnit("unit-1", "task-1", "A-1", canonicalDoc("cat")),
	})
	prior := entities.Annotation{
		AnnotationID:  "annotation-prior",
		TaskID:        "task-1",
		Result:        map[string]any{"label": "cat"},
		SchemaVersion: "v1",
		SubmissionID:  "A-1",
		CreatedAt:     time.Now().Add(-30 * time.Minute),
	}
	if _, created, err := store.CreateAnnotation(context.Background(), prior); err != nil || !created {
		t.Fatalf("seeding prior annotation failed: created=%v err=%v", created, err)
	}
	job := newIngestJob(store)

	report, err := job.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if report.Ingested != 0 || report.Skipped != 1 {
		t.Fatalf("expected replay to count as skipped, got %#v", report)
	}
	if got := len(store.Annotations()); got != 1 {
		t.Fatalf("expected the prior annotation only, got %d", got)
	}

	unit, err := store.GetWorkUnit(context.Background(), "unit-1")
	if err != nil {
		t.Fatalf("unit missing: %v", err)
	}
	if !unit.Ingested() {
		t.Fatalf("replayed unit should still be marked ingested")
	}
	if got := ingestedEventCount(store); got != 0 {
		t.Fatalf("replay must not emit an ingested event, got %d", got)
	}
}

func TestIngestRejectsMalformedDocument(t *testing.T) {
	store := memory.NewStore(nil, []entities.WorkUnit{
		ingestibleUnit("unit-1", "task-1", "A-1", map[string]any{"schema_version": "v1"}),
		ingestibleUnit("unit-2", "task-2", "A-2", map[string]any{
			"result":         "not an object",
			"schema_version": "v1",
		}),
	})
	job := newIngestJob(store)

	report, err := job.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if len(report.Failures) != 2 || report.Ingested != 0 {
		t.Fatalf("expected both documents rejected, got %#v", report)
	}
	if got := len(store.Annotations()); got != 0 {
		t.Fatalf("expected no annotations, got %d", got)
	}

	// Rejected units stay eligible so a later snapshot repair can land.
	for _, id := range []string{"unit-1", "unit-2"} {
		unit, err := store.GetWorkUnit(context.Background(), id)
		if err != nil {
			t.Fatalf("unit %s missing: %v", id, err)
		}
		if unit.Ingested() {
			t.Fatalf("rejected unit %s must not be marked ingested", id)
		}
	}
}

func TestIngestConcurrentCyclesCommitOnce(t *testing.T) {
	store := memory.NewStore(nil, []entities.WorkUnit{
		ingestibleUnit("unit-1", "task-1", "A-1", canonicalDoc("cat")),
	})
	jobA := newIngestJob(store)
	jobB := newIngestJob(store)

	var wg sync.WaitGroup
	reports := make([]IngestReport, 2)
	for i, job := range []IngestJob{jobA, jobB} {
		wg.Add(1)
		go func(i int, job IngestJob) {
			defer wg.Done()
			report, err := job.RunOnce(context.Background())
			if err != nil {
				t.Errorf("concurrent ingest failed: %v", err)
				return
			}
			reports[i] = report
		}(i, job)
	}
	wg.Wait()

	if got := len(store.Annotations()); got != 1 {
		t.Fatalf("expected exactly one annotation, got %d", got)
	}
	if got := ingestedEventCount(store); got != 1 {
		t.Fatalf("expected exactly one ingested event, got %d", got)
	}
	if total := reports[0].Ingested + reports[1].Ingested; total != 1 {
		t.Fatalf("expected one winner across cycles, got %d", total)
	}
}
