package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
	domainerrors "hitloop/contexts/annotation-pipeline/workunit-service/domain/errors"
)

func storedUnit(id, groupID string, status entities.WorkUnitStatus, assignmentID string, touched time.Time) entities.WorkUnit {
	return entities.WorkUnit{
		WorkUnitID:   id,
		TaskID:       "task-1",
		Backend:      entities.BackendMTurk,
		GroupID:      groupID,
		AssignmentID: assignmentID,
		Status:       status,
		Sandbox:      true,
		CreatedAt:    touched,
		UpdatedAt:    touched,
	}
}

func TestStoreRejectsDuplicateAssignment(t *testing.T) {
	store := NewStore(nil, nil)
	now := time.Now().UTC()

	if err := store.CreateWorkUnit(context.Background(), storedUnit("unit-1", "G-1", entities.WorkUnitStatusCreated, "A-1", now)); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	err := store.CreateWorkUnit(context.Background(), storedUnit("unit-2", "G-1", entities.WorkUnitStatusCreated, "A-1", now))
	if !errors.Is(err, domainerrors.ErrDuplicateWorkUnit) {
		t.Fatalf("expected duplicate assignment rejection, got %v", err)
	}

	// Units without an assignment id never collide with each other.
	if err := store.CreateWorkUnit(context.Background(), storedUnit("unit-3", "G-1", entities.WorkUnitStatusCreated, "", now)); err != nil {
		t.Fatalf("insert without assignment failed: %v", err)
	}
	if err := store.CreateWorkUnit(context.Background(), storedUnit("unit-4", "G-1", entities.WorkUnitStatusCreated, "", now)); err != nil {
		t.Fatalf("second insert without assignment failed: %v", err)
	}
}

func TestStoreAnnotationUniquenessReturnsWinner(t *testing.T) {
	store := NewStore(nil, nil)
	first := entities.Annotation{
		AnnotationID:  "annotation-1",
		TaskID:        "task-1",
		Result:        map[string]any{"label": "cat"},
		SchemaVersion: "v1",
		SubmissionID:  "SUB-1",
		CreatedAt:     time.Now().UTC(),
	}

	stored, created, err := store.CreateAnnotation(context.Background(), first)
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	if stored.AnnotationID != "annotation-1" {
		t.Fatalf("unexpected stored row %#v", stored)
	}

	second := first
	second.AnnotationID = "annotation-2"
	stored, created, err = store.CreateAnnotation(context.Background(), second)
	if err != nil {
		t.Fatalf("duplicate insert errored: %v", err)
	}
	if created {
		t.Fatalf("duplicate (task, submission) must not insert")
	}
	if stored.AnnotationID != "annotation-1" {
		t.Fatalf("expected winning row back, got %s", stored.AnnotationID)
	}

	// A different task may reuse the submission id.
	third := first
	third.AnnotationID = "annotation-3"
	third.TaskID = "task-2"
	_, created, err = store.CreateAnnotation(context.Background(), third)
	if err != nil || !created {
		t.Fatalf("cross-task insert: created=%v err=%v", created, err)
	}
}

func TestStoreListOpenGroupsOrdersByStalest(t *testing.T) {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	store := NewStore(nil, []entities.WorkUnit{
		storedUnit("unit-1", "G-FRESH", entities.WorkUnitStatusCreated, "", base.Add(2*time.Hour)),
		storedUnit("unit-2", "G-STALE", entities.WorkUnitStatusSubmitted, "A-1", base),
		storedUnit("unit-3", "G-CLOSED", entities.WorkUnitStatusApproved, "A-2", base.Add(-time.Hour)),
		storedUnit("unit-4", "G-MID", entities.WorkUnitStatusCreated, "", base.Add(time.Hour)),
	})

	groups, err := store.ListOpenGroups(context.Background(), entities.BackendMTurk, true, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"G-STALE", "G-MID", "G-FRESH"}
	if len(groups) != len(want) {
		t.Fatalf("expected %v, got %v", want, groups)
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, groups)
		}
	}

	limited, err := store.ListOpenGroups(context.Background(), entities.BackendMTurk, true, 1)
	if err != nil {
		t.Fatalf("limited list failed: %v", err)
	}
	if len(limited) != 1 || limited[0] != "G-STALE" {
		t.Fatalf("expected stalest group only, got %v", limited)
	}

	// The other sandbox universe is empty.
	production, err := store.ListOpenGroups(context.Background(), entities.BackendMTurk, false, 10)
	if err != nil {
		t.Fatalf("production list failed: %v", err)
	}
	if len(production) != 0 {
		t.Fatalf("expected no production groups, got %v", production)
	}
}

func TestStoreListIngestibleFilters(t *testing.T) {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	doc := map[string]any{"result": map[string]any{}, "schema_version": "v1"}
	ingested := base.Add(time.Minute)

	ready := storedUnit("unit-ready", "G-1", entities.WorkUnitStatusApproved, "A-1", base.Add(time.Hour))
	ready.Snapshot.Result = doc
	older := storedUnit("unit-older", "G-1", entities.WorkUnitStatusSubmitted, "A-2", base)
	older.Snapshot.Result = doc
	done := storedUnit("unit-done", "G-1", entities.WorkUnitStatusApproved, "A-3", base)
	done.Snapshot.Result = doc
	done.IngestedAt = &ingested
	noResult := storedUnit("unit-empty", "G-1", entities.WorkUnitStatusApproved, "A-4", base)
	rejected := storedUnit("unit-rejected", "G-1", entities.WorkUnitStatusRejected, "A-5", base)
	rejected.Snapshot.Result = doc

	store := NewStore(nil, []entities.WorkUnit{ready, older, done, noResult, rejected})

	units, err := store.ListIngestible(context.Background(), entities.BackendMTurk, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 ingestible units, got %d", len(units))
	}
	if units[0].WorkUnitID != "unit-older" || units[1].WorkUnitID != "unit-ready" {
		t.Fatalf("expected oldest first, got %s then %s", units[0].WorkUnitID, units[1].WorkUnitID)
	}
}

func TestStoreUpdateRequiresExistingUnit(t *testing.T) {
	store := NewStore(nil, nil)
	err := store.UpdateWorkUnit(context.Background(), storedUnit("unit-ghost", "G-1", entities.WorkUnitStatusCreated, "", time.Now()))
	if !errors.Is(err, domainerrors.ErrWorkUnitNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
