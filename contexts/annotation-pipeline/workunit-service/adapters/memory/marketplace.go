package memory

import (
	"context"
	"fmt"
	"sync"

	"hitloop/contexts/annotation-pipeline/workunit-service/ports"
)

// Marketplace is an in-memory stand-in for the external crowdsourcing
// marketplace. Tests script remote submissions per group; local
// development gets a backend that accepts every issue call.
type Marketplace struct {
	mu          sync.Mutex
	nextGroup   int
	created     map[string]ports.CreateWorkUnitParams
	submissions map[string][]ports.RemoteSubmission
}

func NewMarketplace() *Marketplace {
	return &Marketplace{
		created:     make(map[string]ports.CreateWorkUnitParams),
		submissions: make(map[string][]ports.RemoteSubmission),
	}
}

func (m *Marketplace) CreateWorkUnit(_ context.Context, params ports.CreateWorkUnitParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextGroup++
	groupID := fmt.Sprintf("GROUP-%04d", m.nextGroup)
	m.created[groupID] = params
	return groupID, nil
}

func (m *Marketplace) ListSubmissions(_ context.Context, groupID string, _ []string) ([]ports.RemoteSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]ports.RemoteSubmission, len(m.submissions[groupID]))
	copy(items, m.submissions[groupID])
	return items, nil
}

// AddSubmission scripts a remote submission that later polls of the
// group will report.
func (m *Marketplace) AddSubmission(groupID string, submission ports.RemoteSubmission) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.submissions[groupID] = append(m.submissions[groupID], submission)
}

// CreatedParams returns the parameters a group was issued with.
func (m *Marketplace) CreatedParams(groupID string) (ports.CreateWorkUnitParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	params, ok := m.created[groupID]
	return params, ok
}
