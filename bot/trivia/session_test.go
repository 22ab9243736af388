package trivia

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesycrew/ashbot/internal/profile"
	"github.com/jonesycrew/ashbot/store"
	"github.com/jonesycrew/ashbot/store/storetest"
)

type fakeSender struct {
	sent      []string
	reactions []string
	nextID    int
}

func (f *fakeSender) SendMessage(_ context.Context, channelID, content string) (string, error) {
	f.sent = append(f.sent, content)
	f.nextID++
	return fmt.Sprintf("msg-%d", f.nextID), nil
}

func (f *fakeSender) React(_ context.Context, channelID, messageID, emoji string) error {
	f.reactions = append(f.reactions, messageID+":"+emoji)
	return nil
}

func newTestManager(t *testing.T) (*Manager, *store.Store, *fakeSender) {
	t.Helper()
	st := store.New(storetest.NewMemory(), &profile.Profile{})
	sender := &fakeSender{}
	return NewManager(st, sender), st, sender
}

func approvedQuestion(t *testing.T, st *store.Store, text, answer string) *store.TriviaQuestion {
	t.Helper()
	q, err := st.CreateTriviaQuestion(context.Background(), &store.TriviaQuestion{
		Text:          text,
		Type:          store.TriviaSingleAnswer,
		CorrectAnswer: answer,
		SubmittedBy:   "submitter",
		Status:        store.TriviaApproved,
	})
	require.NoError(t, err)
	return q
}

func TestStartSession_PostsQuestionAndBindsMessage(t *testing.T) {
	m, st, sender := newTestManager(t)
	q := approvedQuestion(t, st, "What color is the sky?", "blue")

	session, err := m.StartSession(context.Background(), q.ID, "chan-1")
	require.NoError(t, err)
	assert.Equal(t, store.TriviaSessionActive, session.State)
	assert.Equal(t, "msg-1", session.QuestionMessageID)
	assert.NotEmpty(t, session.UID)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "What color is the sky?")
}

func TestStartSession_RejectsUnapprovedQuestion(t *testing.T) {
	m, st, _ := newTestManager(t)
	q, err := st.CreateTriviaQuestion(context.Background(), &store.TriviaQuestion{
		Text:          "pending?",
		CorrectAnswer: "yes",
		Status:        store.TriviaPending,
	})
	require.NoError(t, err)

	_, err = m.StartSession(context.Background(), q.ID, "chan-1")
	assert.Error(t, err)
}

func TestHandleReply_ScoresAndAcknowledges(t *testing.T) {
	m, st, sender := newTestManager(t)
	q := approvedQuestion(t, st, "What color is the sky?", "blue")
	session, err := m.StartSession(context.Background(), q.ID, "chan-1")
	require.NoError(t, err)

	handled, err := m.HandleReply(context.Background(), Reply{
		ChannelID:           "chan-1",
		MessageID:           "reply-1",
		ReferencedMessageID: session.QuestionMessageID,
		UserID:              "alice",
		Content:             "Blue",
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"reply-1:" + answerReaction}, sender.reactions)

	answers, err := st.ListTriviaAnswers(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, 1.0, answers[0].Score)
	assert.Equal(t, MatchCaseInsensitive, answers[0].MatchKind)
	assert.Equal(t, 1, answers[0].Ordinal)
}

func TestHandleReply_IgnoresUnrelatedReplies(t *testing.T) {
	m, st, _ := newTestManager(t)
	q := approvedQuestion(t, st, "What color is the sky?", "blue")
	_, err := m.StartSession(context.Background(), q.ID, "chan-1")
	require.NoError(t, err)

	handled, err := m.HandleReply(context.Background(), Reply{
		ChannelID:           "chan-1",
		MessageID:           "reply-1",
		ReferencedMessageID: "some-other-message",
		UserID:              "alice",
		Content:             "blue",
	})
	require.NoError(t, err)
	assert.False(t, handled)

	handled, err = m.HandleReply(context.Background(), Reply{Content: "not a reply at all"})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestCompleteSession_FirstCorrectWins(t *testing.T) {
	m, st, sender := newTestManager(t)
	q := approvedQuestion(t, st, "What color is the sky?", "blue")
	session, err := m.StartSession(context.Background(), q.ID, "chan-1")
	require.NoError(t, err)

	for i, reply := range []struct{ user, text string }{
		{"alice", "Blue"},
		{"bob", "BLUE"},
		{"carol", "green"},
	} {
		_, err := m.HandleReply(context.Background(), Reply{
			ChannelID:           "chan-1",
			MessageID:           fmt.Sprintf("reply-%d", i+1),
			ReferencedMessageID: session.QuestionMessageID,
			UserID:              reply.user,
			Content:             reply.text,
		})
		require.NoError(t, err)
	}

	winner, err := m.CompleteSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, "alice", winner.UserID)
	assert.Equal(t, 1, winner.Ordinal)
	assert.Contains(t, sender.sent[len(sender.sent)-1], "alice")

	sessions, err := st.ListTriviaSessions(context.Background(), &store.FindTriviaSession{ID: &session.ID})
	require.NoError(t, err)
	assert.Equal(t, store.TriviaSessionCompleted, sessions[0].State)
	assert.NotNil(t, sessions[0].EndedTs)
}

func TestCompleteSession_PartialCreditDoesNotWin(t *testing.T) {
	m, st, _ := newTestManager(t)
	q := approvedQuestion(t, st, "Name the game", "grand theft auto")
	session, err := m.StartSession(context.Background(), q.ID, "chan-1")
	require.NoError(t, err)

	_, err = m.HandleReply(context.Background(), Reply{
		ChannelID:           "chan-1",
		MessageID:           "reply-1",
		ReferencedMessageID: session.QuestionMessageID,
		UserID:              "dave",
		Content:             "grand auto",
	})
	require.NoError(t, err)

	winner, err := m.CompleteSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Nil(t, winner, "a 0.5 answer never claims the winner slot")
}

func TestCompleteSession_NoAnswersUnclaimed(t *testing.T) {
	m, st, sender := newTestManager(t)
	q := approvedQuestion(t, st, "What color is the sky?", "blue")
	session, err := m.StartSession(context.Background(), q.ID, "chan-1")
	require.NoError(t, err)

	winner, err := m.CompleteSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Nil(t, winner)
	assert.Contains(t, sender.sent[len(sender.sent)-1], "unclaimed")

	_, err = m.CompleteSession(context.Background(), session.ID)
	assert.Error(t, err, "completing twice is rejected")
}
