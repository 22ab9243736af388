package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_StartAdvanceEnd(t *testing.T) {
	m := NewManager()

	m.Start("u1", FlowTriviaSubmission, "initial")
	s := m.Get("u1")
	require.NotNil(t, s)
	assert.Equal(t, FlowTriviaSubmission, s.Flow)
	assert.Equal(t, "initial", s.Step)

	require.True(t, m.Advance("u1", "question_input", map[string]string{"type": "single_answer"}))
	s = m.Get("u1")
	assert.Equal(t, "question_input", s.Step)
	assert.Equal(t, "single_answer", s.Data["type"])

	m.End("u1")
	assert.Nil(t, m.Get("u1"))
	assert.False(t, m.Advance("u1", "answer_input", nil))
}

func TestManager_StartReplacesActiveFlow(t *testing.T) {
	m := NewManager()
	m.Start("u1", FlowTriviaSubmission, "initial")
	m.Advance("u1", "question_input", map[string]string{"type": "single_answer"})

	m.Start("u1", FlowAnnouncement, "initial")
	s := m.Get("u1")
	require.NotNil(t, s)
	assert.Equal(t, FlowAnnouncement, s.Flow)
	assert.Empty(t, s.Data, "replaced flow starts with fresh data")
}

func TestManager_GetReturnsCopy(t *testing.T) {
	m := NewManager()
	m.Start("u1", FlowAnnouncement, "initial")

	s := m.Get("u1")
	s.Data["injected"] = "x"
	s.Step = "mutated"

	fresh := m.Get("u1")
	assert.Equal(t, "initial", fresh.Step)
	assert.Empty(t, fresh.Data)
}

func TestManager_SweepExpiresIdleFlows(t *testing.T) {
	m := NewManager()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	m.Start("stale", FlowTriviaSubmission, "initial")

	current = current.Add(30 * time.Minute)
	m.Start("fresh", FlowAnnouncement, "initial")

	// Past the stale flow's TTL, inside the fresh flow's.
	current = current.Add(45 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Nil(t, m.Get("stale"))
	assert.NotNil(t, m.Get("fresh"))
	assert.Equal(t, 1, m.Active())
}

func TestManager_TouchDefersExpiry(t *testing.T) {
	m := NewManager()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	m.Start("u1", FlowApproval, "initial")
	current = current.Add(50 * time.Minute)
	m.Touch("u1")
	current = current.Add(30 * time.Minute)

	assert.Zero(t, m.Sweep())
	assert.NotNil(t, m.Get("u1"))
}
