package trivia

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/store"
)

// answerReaction acknowledges a scored reply.
const answerReaction = "\U0001F4DD"

// Sender is the outbound surface the session manager needs.
type Sender interface {
	SendMessage(ctx context.Context, channelID, content string) (messageID string, err error)
	React(ctx context.Context, channelID, messageID, emoji string) error
}

// Reply is an inbound message that replies to another message.
type Reply struct {
	ChannelID           string
	MessageID           string
	ReferencedMessageID string
	UserID              string
	Content             string
}

// Manager starts sessions, scores replies, and completes rounds.
type Manager struct {
	store  *store.Store
	sender Sender

	mu       sync.Mutex
	ordinals map[int32]int // session id -> answers seen this process
}

// NewManager creates a session manager.
func NewManager(st *store.Store, sender Sender) *Manager {
	return &Manager{
		store:    st,
		sender:   sender,
		ordinals: make(map[int32]int),
	}
}

// StartSession posts an approved question to the channel and opens a session
// bound to the posted message.
func (m *Manager) StartSession(ctx context.Context, questionID int32, channelID string) (*store.TriviaSession, error) {
	questions, err := m.store.ListTriviaQuestions(ctx, &store.FindTriviaQuestion{ID: &questionID})
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, errors.Errorf("trivia question %d not found", questionID)
	}
	q := questions[0]
	if q.Status != store.TriviaApproved {
		return nil, errors.Errorf("trivia question %d is not approved", questionID)
	}

	messageID, err := m.sender.SendMessage(ctx, channelID, formatQuestion(q))
	if err != nil {
		return nil, errors.Wrap(err, "post trivia question")
	}

	return m.store.CreateTriviaSession(ctx, &store.TriviaSession{
		UID:               shortuuid.New(),
		QuestionID:        q.ID,
		State:             store.TriviaSessionActive,
		ChannelID:         channelID,
		QuestionMessageID: messageID,
	})
}

// HandleReply scores a reply when it targets an active session's question
// message. Returns false when the reply belongs to no session.
func (m *Manager) HandleReply(ctx context.Context, reply Reply) (bool, error) {
	if reply.ReferencedMessageID == "" {
		return false, nil
	}

	active := store.TriviaSessionActive
	sessions, err := m.store.ListTriviaSessions(ctx, &store.FindTriviaSession{
		State:             &active,
		QuestionMessageID: &reply.ReferencedMessageID,
	})
	if err != nil {
		return false, err
	}
	if len(sessions) == 0 {
		return false, nil
	}
	session := sessions[0]

	questions, err := m.store.ListTriviaQuestions(ctx, &store.FindTriviaQuestion{ID: &session.QuestionID})
	if err != nil {
		return true, err
	}
	if len(questions) == 0 {
		return true, errors.Errorf("session %d references missing question %d", session.ID, session.QuestionID)
	}

	score, kind := Evaluate(reply.Content, questions[0].CorrectAnswer)
	ordinal, err := m.nextOrdinal(ctx, session.ID)
	if err != nil {
		return true, err
	}

	if _, err := m.store.CreateTriviaAnswer(ctx, &store.TriviaAnswer{
		SessionID: session.ID,
		UserID:    reply.UserID,
		Text:      reply.Content,
		Score:     score,
		MatchKind: kind,
		Ordinal:   ordinal,
	}); err != nil {
		return true, err
	}

	if err := m.sender.React(ctx, reply.ChannelID, reply.MessageID, answerReaction); err != nil {
		return true, errors.Wrap(err, "acknowledge answer")
	}
	return true, nil
}

// CompleteSession closes a session, announces the winner, and returns the
// winning answer, or nil when no answer scored full marks.
func (m *Manager) CompleteSession(ctx context.Context, sessionID int32) (*store.TriviaAnswer, error) {
	sessions, err := m.store.ListTriviaSessions(ctx, &store.FindTriviaSession{ID: &sessionID})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, errors.Errorf("trivia session %d not found", sessionID)
	}
	session := sessions[0]
	if session.State != store.TriviaSessionActive {
		return nil, errors.Errorf("trivia session %d already %s", sessionID, session.State)
	}

	winner, err := m.Winner(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	completed := store.TriviaSessionCompleted
	ended := time.Now().Unix()
	if _, err := m.store.UpdateTriviaSession(ctx, &store.UpdateTriviaSession{
		ID:      sessionID,
		State:   &completed,
		EndedTs: &ended,
	}); err != nil {
		return nil, err
	}

	m.mu.Lock()
	delete(m.ordinals, sessionID)
	m.mu.Unlock()

	if _, err := m.sender.SendMessage(ctx, session.ChannelID, formatCompletion(winner)); err != nil {
		return winner, errors.Wrap(err, "announce session result")
	}
	return winner, nil
}

// Winner returns the full-score answer with the lowest ordinal, or nil.
func (m *Manager) Winner(ctx context.Context, sessionID int32) (*store.TriviaAnswer, error) {
	answers, err := m.store.ListTriviaAnswers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// Answers arrive ordered by ordinal; the first full score wins.
	for _, a := range answers {
		if FullScore(a.Score) {
			return a, nil
		}
	}
	return nil, nil
}

// nextOrdinal hands out arrival-order ordinals. On the first answer after a
// restart the counter is seeded from the stored answers.
func (m *Manager) nextOrdinal(ctx context.Context, sessionID int32) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ordinals[sessionID]; !ok {
		answers, err := m.store.ListTriviaAnswers(ctx, sessionID)
		if err != nil {
			return 0, err
		}
		m.ordinals[sessionID] = len(answers)
	}
	m.ordinals[sessionID]++
	return m.ordinals[sessionID], nil
}

func formatQuestion(q *store.TriviaQuestion) string {
	if q.Type == store.TriviaMultipleChoice && len(q.Choices) > 0 {
		text := fmt.Sprintf("**Trivia.** %s\n", q.Text)
		for i, choice := range q.Choices {
			text += fmt.Sprintf("%d. %s\n", i+1, choice)
		}
		return text + "\nReply to this message with your answer."
	}
	return fmt.Sprintf("**Trivia.** %s\n\nReply to this message with your answer.", q.Text)
}

func formatCompletion(winner *store.TriviaAnswer) string {
	if winner == nil {
		return "Analysis complete. No submitted answer met the accuracy threshold. The round closes unclaimed."
	}
	return fmt.Sprintf("Analysis complete. First correct response: <@%s>. Efficiency noted.", winner.UserID)
}
