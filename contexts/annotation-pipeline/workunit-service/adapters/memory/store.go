package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
	domainerrors "hitloop/contexts/annotation-pipeline/workunit-service/domain/errors"

	"github.com/google/uuid"
)

// Store is the in-memory implementation of every persistence port plus
// Clock and IDGenerator. It backs tests and local development; the
// mutex gives it the same atomicity the database store gets from its
// unique indexes.
type Store struct {
	mu sync.RWMutex

	tasks       map[string]entities.Task
	workUnits   map[string]entities.WorkUnit
	annotations map[string]entities.Annotation
	events      []entities.EventEntry
}

func NewStore(tasks []entities.Task, units []entities.WorkUnit) *Store {
	taskMap := make(map[string]entities.Task, len(tasks))
	for _, task := range tasks {
		taskMap[task.TaskID] = task
	}
	unitMap := make(map[string]entities.WorkUnit, len(units))
	for _, unit := range units {
		unitMap[unit.WorkUnitID] = unit
	}
	return &Store{
		tasks:       taskMap,
		workUnits:   unitMap,
		annotations: make(map[string]entities.Annotation),
	}
}

func (s *Store) CreateWorkUnit(_ context.Context, unit entities.WorkUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workUnits[unit.WorkUnitID]; exists {
		return domainerrors.ErrDuplicateWorkUnit
	}
	if unit.AssignmentID != "" {
		for _, existing := range s.workUnits {
			if existing.Backend == unit.Backend && existing.AssignmentID == unit.AssignmentID {
				return domainerrors.ErrDuplicateWorkUnit
			}
		}
	}
	s.workUnits[unit.WorkUnitID] = unit
	return nil
}

func (s *Store) UpdateWorkUnit(_ context.Context, unit entities.WorkUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workUnits[unit.WorkUnitID]; !exists {
		return domainerrors.ErrWorkUnitNotFound
	}
	s.workUnits[unit.WorkUnitID] = unit
	return nil
}

func (s *Store) GetWorkUnit(_ context.Context, workUnitID string) (entities.WorkUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, exists := s.workUnits[strings.TrimSpace(workUnitID)]
	if !exists {
		return entities.WorkUnit{}, domainerrors.ErrWorkUnitNotFound
	}
	return unit, nil
}

func (s *Store) GetWorkUnitByAssignment(_ context.Context, backend entities.Backend, assignmentID string) (entities.WorkUnit, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if strings.TrimSpace(assignmentID) == "" {
		return entities.WorkUnit{}, false, nil
	}
	for _, unit := range s.workUnits {
		if unit.Backend == backend && unit.AssignmentID == assignmentID {
			return unit, true, nil
		}
	}
	return entities.WorkUnit{}, false, nil
}

func (s *Store) OldestWorkUnitForGroup(_ context.Context, backend entities.Backend, groupID string) (entities.WorkUnit, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var oldest entities.WorkUnit
	found := false
	for _, unit := range s.workUnits {
		if unit.Backend != backend || unit.GroupID != groupID {
			continue
		}
		if !found || unit.CreatedAt.Before(oldest.CreatedAt) ||
			(unit.CreatedAt.Equal(oldest.CreatedAt) && unit.WorkUnitID < oldest.WorkUnitID) {
			oldest = unit
			found = true
		}
	}
	return oldest, found, nil
}

func (s *Store) HasActiveWorkUnit(_ context.Context, taskID string, backend entities.Backend) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, unit := range s.workUnits {
		if unit.TaskID == taskID && unit.Backend == backend && unit.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListWorkUnitsForTask(_ context.Context, taskID string) ([]entities.WorkUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.WorkUnit, 0)
	for _, unit := range s.workUnits {
		if unit.TaskID == taskID {
			items = append(items, unit)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].WorkUnitID < items[j].WorkUnitID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) ListOpenGroups(_ context.Context, backend entities.Backend, sandbox bool, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type groupAge struct {
		groupID string
		touched time.Time
	}
	ages := map[string]time.Time{}
	for _, unit := range s.workUnits {
		if unit.Backend != backend || unit.Sandbox != sandbox || unit.GroupID == "" {
			continue
		}
		if !unit.Status.Active() {
			continue
		}
		if current, ok := ages[unit.GroupID]; !ok || unit.UpdatedAt.Before(current) {
			ages[unit.GroupID] = unit.UpdatedAt
		}
	}

	groups := make([]groupAge, 0, len(ages))
	for groupID, touched := range ages {
		groups = append(groups, groupAge{groupID: groupID, touched: touched})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].touched.Equal(groups[j].touched) {
			return groups[i].groupID < groups[j].groupID
		}
		return groups[i].touched.Before(groups[j].touched)
	})

	ids := make([]string, 0, len(groups))
	for _, group := range groups {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, group.groupID)
	}
	return ids, nil
}

func (s *Store) ListIngestible(_ context.Context, backend entities.Backend, limit int) ([]entities.WorkUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.WorkUnit, 0)
	for _, unit := range s.workUnits {
		if unit.Backend != backend || unit.Ingested() || !unit.Status.Ingestible() {
			continue
		}
		if len(unit.Snapshot.Result) == 0 {
			continue
		}
		items = append(items, unit)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].WorkUnitID < items[j].WorkUnitID
		}
		return items[i].UpdatedAt.Before(items[j].UpdatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) CreateAnnotation(_ context.Context, candidate entities.Annotation) (entities.Annotation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if candidate.SubmissionID != "" {
		for _, existing := range s.annotations {
			if existing.TaskID == candidate.TaskID && existing.SubmissionID == candidate.SubmissionID {
				return existing, false, nil
			}
		}
	}
	s.annotations[candidate.AnnotationID] = candidate
	return candidate, true, nil
}

func (s *Store) ListAnnotationsForTask(_ context.Context, taskID string) ([]entities.Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Annotation, 0)
	for _, annotation := range s.annotations {
		if annotation.TaskID == taskID {
			items = append(items, annotation)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].AnnotationID < items[j].AnnotationID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) GetTask(_ context.Context, taskID string) (entities.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[strings.TrimSpace(taskID)]
	if !exists {
		return entities.Task{}, domainerrors.ErrTaskNotFound
	}
	return task, nil
}

func (s *Store) ListTasks(_ context.Context, taskIDs []string) ([]entities.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Task, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		if task, exists := s.tasks[strings.TrimSpace(taskID)]; exists {
			items = append(items, task)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].TaskID < items[j].TaskID })
	return items, nil
}

func (s *Store) AppendEvent(_ context.Context, entry entities.EventEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, entry)
	return nil
}

func (s *Store) ListRecentEvents(_ context.Context, limit int) ([]entities.EventEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.EventEntry, len(s.events))
	copy(items, s.events)
	sort.SliceStable(items, func(i, j int) bool { return items[i].OccurredAt.After(items[j].OccurredAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Events returns a copy of the full log in append order, for tests.
func (s *Store) Events() []entities.EventEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.EventEntry, len(s.events))
	copy(items, s.events)
	return items
}

// Annotations returns every stored annotation, for tests.
func (s *Store) Annotations() []entities.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Annotation, 0, len(s.annotations))
	for _, annotation := range s.annotations {
		items = append(items, annotation)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AnnotationID < items[j].AnnotationID })
	return items
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
