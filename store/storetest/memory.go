// Package storetest provides an in-memory Driver for package tests.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/store"
)

// Memory implements store.Driver entirely in memory.
type Memory struct {
	mu sync.Mutex

	strikes   map[string]*store.Strike
	recs      map[int32]*store.Recommendation
	games     map[int32]*store.PlayedGame
	reminders map[int32]*store.Reminder
	questions map[int32]*store.TriviaQuestion
	sessions  map[int32]*store.TriviaSession
	answers   []*store.TriviaAnswer
	config    map[string]string

	nextID int32
}

// NewMemory creates an empty in-memory driver.
func NewMemory() *Memory {
	return &Memory{
		strikes:   make(map[string]*store.Strike),
		recs:      make(map[int32]*store.Recommendation),
		games:     make(map[int32]*store.PlayedGame),
		reminders: make(map[int32]*store.Reminder),
		questions: make(map[int32]*store.TriviaQuestion),
		sessions:  make(map[int32]*store.TriviaSession),
		config:    make(map[string]string),
	}
}

func (m *Memory) id() int32 {
	m.nextID++
	return m.nextID
}

func (m *Memory) GetDB() any { return nil }

func (m *Memory) Close() error { return nil }

func (m *Memory) Migrate(_ context.Context) error { return nil }

// --- Strikes ---

func (m *Memory) GetStrike(_ context.Context, userID string) (*store.Strike, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.strikes[userID]; ok {
		c := *s
		return &c, nil
	}
	return &store.Strike{UserID: userID}, nil
}

func (m *Memory) SetStrike(_ context.Context, userID string, count int) (*store.Strike, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &store.Strike{UserID: userID, Count: count}
	m.strikes[userID] = s
	c := *s
	return &c, nil
}

func (m *Memory) IncrementStrike(_ context.Context, userID string) (*store.Strike, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.strikes[userID]
	if !ok {
		s = &store.Strike{UserID: userID}
		m.strikes[userID] = s
	}
	s.Count++
	c := *s
	return &c, nil
}

func (m *Memory) ListStrikes(_ context.Context, find *store.FindStrike) ([]*store.Strike, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Strike
	for _, s := range m.strikes {
		if find != nil && find.UserID != nil && s.UserID != *find.UserID {
			continue
		}
		if find != nil && find.NonZero && s.Count == 0 {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// --- Recommendations ---

func (m *Memory) CreateRecommendation(_ context.Context, create *store.Recommendation) (*store.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	create.ID = m.id()
	c := *create
	m.recs[create.ID] = &c
	return create, nil
}

func (m *Memory) ListRecommendations(_ context.Context, find *store.FindRecommendation) ([]*store.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Recommendation
	for _, r := range m.recs {
		if find != nil && find.ID != nil && r.ID != *find.ID {
			continue
		}
		if find != nil && find.Name != nil && !strings.EqualFold(r.Name, *find.Name) {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteRecommendation(_ context.Context, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, id)
	return nil
}

// --- Played games ---

func (m *Memory) CreatePlayedGame(_ context.Context, create *store.PlayedGame) (*store.PlayedGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if strings.EqualFold(g.CanonicalName, create.CanonicalName) {
			return nil, errors.Errorf("duplicate canonical name %q", create.CanonicalName)
		}
	}
	create.ID = m.id()
	c := *create
	m.games[create.ID] = &c
	return create, nil
}

func (m *Memory) ListPlayedGames(_ context.Context, find *store.FindPlayedGame) ([]*store.PlayedGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.PlayedGame
	for _, g := range m.games {
		if !matchPlayedGame(g, find) {
			continue
		}
		c := *g
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].CanonicalName) < strings.ToLower(out[j].CanonicalName)
	})
	return out, nil
}

func matchPlayedGame(g *store.PlayedGame, find *store.FindPlayedGame) bool {
	if find == nil {
		return true
	}
	if find.ID != nil && g.ID != *find.ID {
		return false
	}
	if find.CanonicalName != nil && !strings.EqualFold(g.CanonicalName, *find.CanonicalName) {
		return false
	}
	if find.AlternativeName != nil {
		found := false
		for _, alt := range g.AlternativeNames {
			if strings.EqualFold(alt, *find.AlternativeName) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if find.ExternalID != nil && (g.ExternalID == nil || *g.ExternalID != *find.ExternalID) {
		return false
	}
	if find.CompletionStatus != nil && g.CompletionStatus != *find.CompletionStatus {
		return false
	}
	if find.Genre != nil && !strings.EqualFold(g.Genre, *find.Genre) {
		return false
	}
	if find.ReleaseYear != nil && (g.ReleaseYear == nil || *g.ReleaseYear != *find.ReleaseYear) {
		return false
	}
	if find.NeedsReview != nil && g.NeedsReview != *find.NeedsReview {
		return false
	}
	return true
}

func (m *Memory) UpdatePlayedGame(_ context.Context, update *store.UpdatePlayedGame) (*store.PlayedGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[update.ID]
	if !ok {
		return nil, errors.Errorf("played game %d not found", update.ID)
	}
	if update.CanonicalName != nil {
		g.CanonicalName = *update.CanonicalName
	}
	if update.AlternativeNames != nil {
		g.AlternativeNames = append([]string{}, (*update.AlternativeNames)...)
	}
	if update.SeriesName != nil {
		g.SeriesName = *update.SeriesName
	}
	if update.Genre != nil {
		g.Genre = *update.Genre
	}
	if update.ReleaseYear != nil {
		g.ReleaseYear = update.ReleaseYear
	}
	if update.CompletionStatus != nil {
		g.CompletionStatus = *update.CompletionStatus
	}
	if update.TotalEpisodes != nil {
		g.TotalEpisodes = *update.TotalEpisodes
	}
	if update.TotalPlaytimeMinutes != nil {
		g.TotalPlaytimeMinutes = *update.TotalPlaytimeMinutes
	}
	if update.ExternalID != nil {
		g.ExternalID = update.ExternalID
	}
	if update.Confidence != nil {
		g.Confidence = *update.Confidence
	}
	if update.NeedsReview != nil {
		g.NeedsReview = *update.NeedsReview
	}
	if update.LastValidatedTs != nil {
		g.LastValidatedTs = *update.LastValidatedTs
	}
	if update.PlaylistURL != nil {
		g.PlaylistURL = *update.PlaylistURL
	}
	if update.StreamURLs != nil {
		g.StreamURLs = append([]string{}, (*update.StreamURLs)...)
	}
	if update.FirstPlayedTs != nil {
		g.FirstPlayedTs = *update.FirstPlayedTs
	}
	if update.UpdatedTs != nil {
		g.UpdatedTs = *update.UpdatedTs
	}
	c := *g
	return &c, nil
}

func (m *Memory) DeletePlayedGame(_ context.Context, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	return nil
}

// --- Reminders ---

func (m *Memory) CreateReminder(_ context.Context, create *store.Reminder) (*store.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	create.ID = m.id()
	c := *create
	m.reminders[create.ID] = &c
	return create, nil
}

func (m *Memory) ListReminders(_ context.Context, find *store.FindReminder) ([]*store.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Reminder
	for _, r := range m.reminders {
		if find != nil {
			if find.ID != nil && r.ID != *find.ID {
				continue
			}
			if find.UserID != nil && r.UserID != *find.UserID {
				continue
			}
			if find.Status != nil && r.Status != *find.Status {
				continue
			}
			if find.DueBefore != nil && r.ScheduledTs > *find.DueBefore {
				continue
			}
		}
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledTs != out[j].ScheduledTs {
			return out[i].ScheduledTs < out[j].ScheduledTs
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) TransitionReminder(_ context.Context, id int32, to store.ReminderStatus, ts int64, failReason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok || r.Status != store.ReminderPending {
		return false, nil
	}
	switch to {
	case store.ReminderDelivered, store.ReminderFailed:
		r.DeliveredTs = &ts
	case store.ReminderCancelled:
		r.CancelledTs = &ts
	default:
		return false, errors.Errorf("invalid reminder transition to %q", to)
	}
	r.Status = to
	r.FailReason = failReason
	return true, nil
}

// --- Trivia ---

func (m *Memory) CreateTriviaQuestion(_ context.Context, create *store.TriviaQuestion) (*store.TriviaQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	create.ID = m.id()
	c := *create
	m.questions[create.ID] = &c
	return create, nil
}

func (m *Memory) ListTriviaQuestions(_ context.Context, find *store.FindTriviaQuestion) ([]*store.TriviaQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.TriviaQuestion
	for _, q := range m.questions {
		if find != nil {
			if find.ID != nil && q.ID != *find.ID {
				continue
			}
			if find.Status != nil && q.Status != *find.Status {
				continue
			}
		}
		c := *q
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateTriviaQuestion(_ context.Context, update *store.UpdateTriviaQuestion) (*store.TriviaQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[update.ID]
	if !ok {
		return nil, errors.Errorf("trivia question %d not found", update.ID)
	}
	if update.Text != nil {
		q.Text = *update.Text
	}
	if update.CorrectAnswer != nil {
		q.CorrectAnswer = *update.CorrectAnswer
	}
	if update.Choices != nil {
		q.Choices = append([]string{}, (*update.Choices)...)
	}
	if update.Status != nil {
		q.Status = *update.Status
	}
	if update.Category != nil {
		q.Category = *update.Category
	}
	c := *q
	return &c, nil
}

func (m *Memory) CreateTriviaSession(_ context.Context, create *store.TriviaSession) (*store.TriviaSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	create.ID = m.id()
	c := *create
	m.sessions[create.ID] = &c
	return create, nil
}

func (m *Memory) ListTriviaSessions(_ context.Context, find *store.FindTriviaSession) ([]*store.TriviaSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.TriviaSession
	for _, s := range m.sessions {
		if find != nil {
			if find.ID != nil && s.ID != *find.ID {
				continue
			}
			if find.State != nil && s.State != *find.State {
				continue
			}
			if find.QuestionMessageID != nil && s.QuestionMessageID != *find.QuestionMessageID {
				continue
			}
		}
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateTriviaSession(_ context.Context, update *store.UpdateTriviaSession) (*store.TriviaSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[update.ID]
	if !ok {
		return nil, errors.Errorf("trivia session %d not found", update.ID)
	}
	if update.State != nil {
		s.State = *update.State
	}
	if update.QuestionMessageID != nil {
		s.QuestionMessageID = *update.QuestionMessageID
	}
	if update.EndedTs != nil {
		s.EndedTs = update.EndedTs
	}
	c := *s
	return &c, nil
}

func (m *Memory) CreateTriviaAnswer(_ context.Context, create *store.TriviaAnswer) (*store.TriviaAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *create
	m.answers = append(m.answers, &c)
	return create, nil
}

func (m *Memory) ListTriviaAnswers(_ context.Context, sessionID int32) ([]*store.TriviaAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.TriviaAnswer
	for _, a := range m.answers {
		if a.SessionID != sessionID {
			continue
		}
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

// --- Config ---

func (m *Memory) GetConfig(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.config[key]
	return v, ok, nil
}

func (m *Memory) UpsertConfig(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[key] = value
	return nil
}
