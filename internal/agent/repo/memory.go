package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

// MemoryWorkflowStateStore is an in-process store for tests and local runs.
type MemoryWorkflowStateStore struct {
	mu     sync.Mutex
	states map[string]*model.ChannelWorkflowState
	now    func() time.Time
}

func NewMemoryWorkflowStateStore() *MemoryWorkflowStateStore {
	return &MemoryWorkflowStateStore{states: map[string]*model.ChannelWorkflowState{}, now: time.Now}
}

func (m *MemoryWorkflowStateStore) Load(_ context.Context, conversationID string) (*model.ChannelWorkflowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[conversationID]; ok {
		return st.Clone(), nil
	}
	return model.NewWorkflowState(conversationID), nil
}

func (m *MemoryWorkflowStateStore) Save(_ context.Context, conversationID string, state *model.ChannelWorkflowState) error {
	if state == nil {
		return fmt.Errorf("workflow state is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st := state.Clone()
	st.ConversationID = conversationID
	st.LastUpdated = m.now().UTC()
	m.states[conversationID] = st
	return nil
}

func (m *MemoryWorkflowStateStore) Update(_ context.Context, conversationID string, patch *model.StatePatch) (*model.ChannelWorkflowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[conversationID]
	if !ok {
		st = model.NewWorkflowState(conversationID)
	}
	st = st.Clone()
	patch.Apply(st, m.now())
	m.states[conversationID] = st
	return st.Clone(), nil
}

func (m *MemoryWorkflowStateStore) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, conversationID)
	return nil
}

var _ model.WorkflowStateStore = (*MemoryWorkflowStateStore)(nil)
