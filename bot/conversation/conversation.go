// Package conversation tracks per-user multi-step dialog state.
package conversation

import (
	"log/slog"
	"sync"
	"time"
)

// Flow names the multi-step dialogs the bot runs over direct messages.
type Flow string

const (
	FlowAnnouncement     Flow = "announcement"
	FlowTriviaSubmission Flow = "trivia_submission"
	FlowApproval         Flow = "approval"
)

// DefaultIdleTTL is how long a flow may sit idle before the sweep abandons it.
const DefaultIdleTTL = time.Hour

// CancelKeyword ends any active flow when received as a message.
const CancelKeyword = "cancel"

// State is one user's position in a flow. Data accumulates the step inputs.
type State struct {
	UserID       string
	Flow         Flow
	Step         string
	Data         map[string]string
	LastActivity time.Time
}

// Manager owns all conversation state. A user has at most one active flow;
// starting a new one replaces the old.
type Manager struct {
	mu      sync.Mutex
	states  map[string]*State
	idleTTL time.Duration
	now     func() time.Time
}

// NewManager creates a manager with the default idle TTL.
func NewManager() *Manager {
	return &Manager{
		states:  make(map[string]*State),
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
	}
}

// Start begins a flow for the user at the given step, replacing any active
// flow.
func (m *Manager) Start(userID string, flow Flow, step string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.states[userID]; ok {
		slog.Info("conversation: replacing active flow",
			"user_id", userID, "old_flow", prev.Flow, "new_flow", flow)
	}
	s := &State{
		UserID:       userID,
		Flow:         flow,
		Step:         step,
		Data:         make(map[string]string),
		LastActivity: m.now(),
	}
	m.states[userID] = s
	return s
}

// Get returns a copy of the user's active state, or nil.
func (m *Manager) Get(userID string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[userID]
	if !ok {
		return nil
	}
	c := *s
	c.Data = copyData(s.Data)
	return &c
}

// Advance moves the user's flow to the next step and merges data. Returns
// false when the user has no active flow.
func (m *Manager) Advance(userID, step string, data map[string]string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[userID]
	if !ok {
		return false
	}
	s.Step = step
	for k, v := range data {
		s.Data[k] = v
	}
	s.LastActivity = m.now()
	return true
}

// Touch refreshes the idle clock without changing the step.
func (m *Manager) Touch(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[userID]; ok {
		s.LastActivity = m.now()
	}
}

// End removes the user's active flow.
func (m *Manager) End(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
}

// Sweep removes flows idle past the TTL and returns how many were expired.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.idleTTL)
	expired := 0
	for userID, s := range m.states {
		if s.LastActivity.Before(cutoff) {
			delete(m.states, userID)
			expired++
			slog.Info("conversation: flow expired", "user_id", userID, "flow", s.Flow, "step", s.Step)
		}
	}
	return expired
}

// Active returns the number of live flows.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

func copyData(data map[string]string) map[string]string {
	c := make(map[string]string, len(data))
	for k, v := range data {
		c[k] = v
	}
	return c
}
