package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesycrew/ashbot/bot/conversation"
	"github.com/jonesycrew/ashbot/bot/discord"
	"github.com/jonesycrew/ashbot/bot/trivia"
	"github.com/jonesycrew/ashbot/internal/profile"
	"github.com/jonesycrew/ashbot/store"
	"github.com/jonesycrew/ashbot/store/storetest"
)

const (
	streamerID = "100"
	creatorID  = "200"
	memberID   = "300"
	modID      = "400"
)

type sent struct {
	channelID string
	content   string
}

type fakeSender struct {
	mu       sync.Mutex
	messages []sent
	dms      map[string][]string
	nextID   int
}

func newFakeSender() *fakeSender {
	return &fakeSender{dms: make(map[string][]string)}
}

func (f *fakeSender) SendMessage(_ context.Context, channelID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.messages = append(f.messages, sent{channelID, content})
	return fmt.Sprintf("m%d", f.nextID), nil
}

func (f *fakeSender) SendDM(_ context.Context, userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms[userID] = append(f.dms[userID], content)
	return nil
}

func (f *fakeSender) React(context.Context, string, string, string) error { return nil }

func (f *fakeSender) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1].content
}

type fakeModerator struct {
	mu     sync.Mutex
	muted  []string
	kicked []string
	banned []string
}

func (f *fakeModerator) MuteUser(_ context.Context, _, userID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = append(f.muted, userID)
	return nil
}

func (f *fakeModerator) KickUser(_ context.Context, _, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicked = append(f.kicked, userID)
	return nil
}

func (f *fakeModerator) BanUser(_ context.Context, _, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banned = append(f.banned, userID)
	return nil
}

type testRig struct {
	handlers  *Handlers
	store     *store.Store
	sender    *fakeSender
	moderator *fakeModerator
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	prof := &profile.Profile{
		StreamerUserID:        streamerID,
		CreatorUserID:         creatorID,
		AnnouncementChannelID: "announce-ch",
		TriviaChannelID:       "trivia-ch",
		Version:               "test",
	}
	st := store.New(storetest.NewMemory(), prof)
	sender := newFakeSender()
	moderator := &fakeModerator{}
	h := New(Config{
		Store:         st,
		Profile:       prof,
		Sender:        sender,
		Moderator:     moderator,
		Conversations: conversation.NewManager(),
		Trivia:        trivia.NewManager(st, sender),
	})
	return &testRig{handlers: h, store: st, sender: sender, moderator: moderator}
}

func guildMsg(authorID, content string, mentions ...string) *discord.Message {
	return &discord.Message{
		ID:               "msg1",
		ChannelID:        "chan1",
		GuildID:          "guild1",
		AuthorID:         authorID,
		Content:          content,
		MentionedUserIDs: mentions,
	}
}

func dmMsg(authorID, content string) *discord.Message {
	return &discord.Message{
		ID:        "msg1",
		ChannelID: "dm1",
		AuthorID:  authorID,
		Content:   content,
	}
}

func TestHandleCommand_UnknownCommand(t *testing.T) {
	rig := newTestRig(t)
	err := rig.handlers.HandleCommand(context.Background(), guildMsg(memberID, "!frobnicate"))
	require.NoError(t, err)
	assert.Contains(t, rig.sender.last(), "Unrecognized directive")
}

func TestHandleCommand_OperatorGate(t *testing.T) {
	rig := newTestRig(t)
	err := rig.handlers.HandleCommand(context.Background(), guildMsg(memberID, "!allstrikes"))
	require.NoError(t, err)
	assert.Contains(t, rig.sender.last(), "Access denied")
}

func TestHandleCommand_StreamerIsOperator(t *testing.T) {
	rig := newTestRig(t)
	err := rig.handlers.HandleCommand(context.Background(), guildMsg(streamerID, "!allstrikes"))
	require.NoError(t, err)
	assert.Contains(t, rig.sender.last(), "No strikes on record")
}

func TestHandleViolationMentions(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	msg := guildMsg(modID, "warning", memberID)
	require.NoError(t, rig.handlers.HandleViolationMentions(ctx, msg))
	assert.Contains(t, rig.sender.last(), "1 strikes recorded")

	strike, err := rig.store.GetStrike(ctx, memberID)
	require.NoError(t, err)
	assert.Equal(t, 1, strike.Count)
}

func TestHandleViolationMentions_StreamerImmune(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	msg := guildMsg(modID, "warning", streamerID)
	require.NoError(t, rig.handlers.HandleViolationMentions(ctx, msg))
	assert.Empty(t, rig.sender.messages)

	strike, err := rig.store.GetStrike(ctx, streamerID)
	require.NoError(t, err)
	assert.Zero(t, strike.Count)
}

func TestCmdAddGame_RejectsFuzzyDuplicate(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	require.NoError(t, rig.handlers.HandleCommand(ctx,
		guildMsg(memberID, "!addgame Hollow Knight - tight platforming")))
	assert.Contains(t, rig.sender.last(), "Recommendation logged")

	require.NoError(t, rig.handlers.HandleCommand(ctx,
		guildMsg(memberID, "!recommend hollow knight - already said")))
	assert.Contains(t, rig.sender.last(), "already on the recommendation list")

	recs, err := rig.store.ListRecommendations(ctx, &store.FindRecommendation{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestCmdRemoveGame_ByIndex(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	require.NoError(t, rig.handlers.HandleCommand(ctx,
		guildMsg(memberID, "!addgame Outer Wilds - exploration")))
	require.NoError(t, rig.handlers.HandleCommand(ctx,
		guildMsg(streamerID, "!removegame 1")))
	assert.Contains(t, rig.sender.last(), `Removed "Outer Wilds"`)
}

func TestCmdRemind_MentionFormat(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	msg := guildMsg(streamerID, fmt.Sprintf("!remind <@%s> 2m Stand up", memberID))
	require.NoError(t, rig.handlers.HandleCommand(ctx, msg))

	reply := rig.sender.last()
	assert.Contains(t, reply, "✅ Reminder set in 2 minutes at")
	assert.True(t, strings.HasSuffix(reply, "\nStand up"), reply)

	pending := store.ReminderPending
	reminders, err := rig.store.ListReminders(ctx, &store.FindReminder{Status: &pending})
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, memberID, reminders[0].UserID)
	assert.Equal(t, store.DeliverChannel, reminders[0].DeliveryKind)
}

func TestCmdRemind_ForOtherUserRequiresOperator(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	msg := guildMsg(memberID, fmt.Sprintf("!remind <@%s> 5m do the thing", modID))
	require.NoError(t, rig.handlers.HandleCommand(ctx, msg))
	assert.Contains(t, rig.sender.last(), "Access denied")
}

func TestCmdRemind_NaturalLanguage(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	require.NoError(t, rig.handlers.HandleCommand(ctx,
		guildMsg(memberID, "!remind me in 10 minutes to stretch")))
	assert.Contains(t, rig.sender.last(), "✅ Reminder set in 10 minutes at")

	pending := store.ReminderPending
	reminders, err := rig.store.ListReminders(ctx, &store.FindReminder{Status: &pending})
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "stretch", reminders[0].Text)
	assert.Equal(t, memberID, reminders[0].UserID)
}

func TestCmdRemind_Unparseable(t *testing.T) {
	rig := newTestRig(t)
	require.NoError(t, rig.handlers.HandleCommand(context.Background(),
		guildMsg(memberID, "!remind me about the thing")))
	assert.Contains(t, rig.sender.last(), "could not find a time")
}

func TestCancelReminder(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	created, err := rig.store.CreateReminder(ctx, &store.Reminder{
		UserID:       memberID,
		Text:         "check the oven",
		ScheduledTs:  time.Now().Add(time.Hour).Unix(),
		DeliveryKind: store.DeliverDirectMessage,
	})
	require.NoError(t, err)

	require.NoError(t, rig.handlers.HandleCommand(ctx,
		guildMsg(streamerID, fmt.Sprintf("!cancelreminder %d", created.ID))))
	assert.Contains(t, rig.sender.last(), "cancelled")

	got, err := rig.store.GetReminder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ReminderCancelled, got.Status)
}

func TestDeliverDueReminders(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	now := time.Now()

	_, err := rig.store.CreateReminder(ctx, &store.Reminder{
		UserID:       memberID,
		Text:         "hydrate",
		ScheduledTs:  now.Add(-time.Minute).Unix(),
		DeliveryKind: store.DeliverChannel,
		ChannelID:    "chan1",
	})
	require.NoError(t, err)
	_, err = rig.store.CreateReminder(ctx, &store.Reminder{
		UserID:       memberID,
		Text:         "future task",
		ScheduledTs:  now.Add(time.Hour).Unix(),
		DeliveryKind: store.DeliverChannel,
		ChannelID:    "chan1",
	})
	require.NoError(t, err)

	require.NoError(t, rig.handlers.DeliverDueReminders(ctx, now))

	require.Len(t, rig.sender.messages, 1)
	assert.Contains(t, rig.sender.messages[0].content, "hydrate")

	pending := store.ReminderPending
	remaining, err := rig.store.ListReminders(ctx, &store.FindReminder{Status: &pending})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "future task", remaining[0].Text)
}

func TestAutoActionExecutesAfterGrace(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	now := time.Now()

	msg := guildMsg(streamerID, fmt.Sprintf("!remind <@%s> 1s final warning | auto:mute 30m", memberID))
	require.NoError(t, rig.handlers.HandleCommand(ctx, msg))

	require.NoError(t, rig.handlers.DeliverDueReminders(ctx, now.Add(2*time.Second)))

	// Grace period not yet elapsed.
	rig.handlers.RunPendingActions(ctx, now.Add(2*time.Second))
	assert.Empty(t, rig.moderator.muted)

	rig.handlers.RunPendingActions(ctx, now.Add(2*time.Second).Add(autoActionGrace))
	assert.Equal(t, []string{memberID}, rig.moderator.muted)
}

func TestCmdAddPlayedGame_PipeOptions(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	require.NoError(t, rig.handlers.HandleCommand(ctx,
		guildMsg(streamerID, "!addplayedgame Dark Souls | series:Dark Souls | year:2011 | status:completed | episodes:42 | playtime:2500")))
	assert.Contains(t, rig.sender.last(), "Catalog entry #")

	name := "Dark Souls"
	game, err := rig.store.GetPlayedGame(ctx, &store.FindPlayedGame{CanonicalName: &name})
	require.NoError(t, err)
	require.NotNil(t, game)
	assert.Equal(t, store.CompletionCompleted, game.CompletionStatus)
	assert.Equal(t, 42, game.TotalEpisodes)
	assert.Equal(t, 2500, game.TotalPlaytimeMinutes)
	require.NotNil(t, game.ReleaseYear)
	assert.Equal(t, 2011, *game.ReleaseYear)
}

func TestCmdAddPlayedGame_UnknownKeyRejected(t *testing.T) {
	rig := newTestRig(t)
	require.NoError(t, rig.handlers.HandleCommand(context.Background(),
		guildMsg(streamerID, "!addplayedgame Dark Souls | publisher:FromSoftware")))
	assert.Contains(t, rig.sender.last(), `unknown key "publisher"`)
}

func TestCmdUpdatePlayedGame(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	_, err := rig.store.CreatePlayedGame(ctx, &store.PlayedGame{
		CanonicalName:    "Bloodborne",
		CompletionStatus: store.CompletionInProgress,
		Confidence:       1.0,
	})
	require.NoError(t, err)

	require.NoError(t, rig.handlers.HandleCommand(ctx,
		guildMsg(streamerID, "!updateplayedgame Bloodborne | status:completed | episodes:30")))
	assert.Contains(t, rig.sender.last(), "updated")

	name := "Bloodborne"
	game, err := rig.store.GetPlayedGame(ctx, &store.FindPlayedGame{CanonicalName: &name})
	require.NoError(t, err)
	assert.Equal(t, store.CompletionCompleted, game.CompletionStatus)
	assert.Equal(t, 30, game.TotalEpisodes)
}

func TestCmdGameInfo_ByAlternativeName(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	_, err := rig.store.CreatePlayedGame(ctx, &store.PlayedGame{
		CanonicalName:    "The Legend of Zelda: Breath of the Wild",
		AlternativeNames: []string{"botw"},
		CompletionStatus: store.CompletionCompleted,
		Confidence:       1.0,
	})
	require.NoError(t, err)

	require.NoError(t, rig.handlers.HandleCommand(ctx, guildMsg(memberID, "!gameinfo botw")))
	assert.Contains(t, rig.sender.last(), "Breath of the Wild")
}

func TestTriviaSubmissionFlow(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	h := rig.handlers

	handled, err := h.HandleNaturalCommand(ctx, dmMsg(memberID, "I want to submit a trivia question"), "I want to submit a trivia question")
	require.NoError(t, err)
	require.True(t, handled)
	assert.Contains(t, rig.sender.last(), "Question type?")

	require.NoError(t, h.HandleConversationMessage(ctx, dmMsg(memberID, "1")))
	assert.Contains(t, rig.sender.last(), "Transmit the question text")

	require.NoError(t, h.HandleConversationMessage(ctx, dmMsg(memberID, "What color is the Vault-Tec jumpsuit?")))
	assert.Contains(t, rig.sender.last(), "Transmit the correct answer")

	require.NoError(t, h.HandleConversationMessage(ctx, dmMsg(memberID, "blue")))
	assert.Contains(t, rig.sender.last(), "Preview:")

	require.NoError(t, h.HandleConversationMessage(ctx, dmMsg(memberID, "confirm")))
	assert.Contains(t, rig.sender.last(), "queued for moderator approval")

	// The creator received the approval request over DM.
	require.Len(t, rig.sender.dms[creatorID], 1)
	assert.Contains(t, rig.sender.dms[creatorID][0], "awaits review")

	pending := store.TriviaPending
	questions, err := rig.store.ListTriviaQuestions(ctx, &store.FindTriviaQuestion{Status: &pending})
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, memberID, questions[0].SubmittedBy)
}

func TestTriviaSubmissionFlow_Cancel(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	h := rig.handlers

	_, err := h.HandleNaturalCommand(ctx, dmMsg(memberID, "submit a trivia question"), "submit a trivia question")
	require.NoError(t, err)
	require.NoError(t, h.HandleConversationMessage(ctx, dmMsg(memberID, "cancel")))
	assert.Contains(t, rig.sender.last(), "Dialog terminated")
	assert.Nil(t, h.conversations.Get(memberID))
}

func TestApprovalFlow_Approve(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	h := rig.handlers

	created, err := rig.store.CreateTriviaQuestion(ctx, &store.TriviaQuestion{
		Text:          "What year did the first stream air?",
		Type:          store.TriviaSingleAnswer,
		CorrectAnswer: "2019",
		SubmittedBy:   memberID,
		Status:        store.TriviaPending,
	})
	require.NoError(t, err)

	h.requestApproval(ctx, created)
	require.NoError(t, h.HandleConversationMessage(ctx, dmMsg(creatorID, "1")))
	assert.Contains(t, rig.sender.last(), "recorded as approved")

	approved := store.TriviaApproved
	questions, err := rig.store.ListTriviaQuestions(ctx, &store.FindTriviaQuestion{Status: &approved})
	require.NoError(t, err)
	assert.Len(t, questions, 1)

	// Submitter was notified of the verdict.
	require.NotEmpty(t, rig.sender.dms[memberID])
	assert.Contains(t, rig.sender.dms[memberID][0], "approved")
}

func TestApprovalFlow_Reject(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	h := rig.handlers

	created, err := rig.store.CreateTriviaQuestion(ctx, &store.TriviaQuestion{
		Text:          "Filler question for rejection?",
		Type:          store.TriviaSingleAnswer,
		CorrectAnswer: "no",
		SubmittedBy:   memberID,
		Status:        store.TriviaPending,
	})
	require.NoError(t, err)

	h.requestApproval(ctx, created)
	require.NoError(t, h.HandleConversationMessage(ctx, dmMsg(creatorID, "3")))

	rejected := store.TriviaRejected
	questions, err := rig.store.ListTriviaQuestions(ctx, &store.FindTriviaQuestion{Status: &rejected})
	require.NoError(t, err)
	assert.Len(t, questions, 1)
}

func TestAnnouncementFlow(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	h := rig.handlers

	handled, err := h.HandleNaturalCommand(ctx, dmMsg(streamerID, "make an announcement"), "make an announcement")
	require.NoError(t, err)
	require.True(t, handled)

	require.NoError(t, h.HandleConversationMessage(ctx, dmMsg(streamerID, "Stream moves to 8pm this week.")))
	assert.Contains(t, rig.sender.last(), "Preview:")

	require.NoError(t, h.HandleConversationMessage(ctx, dmMsg(streamerID, "confirm")))

	var posted bool
	for _, m := range rig.sender.messages {
		if m.channelID == "announce-ch" && strings.Contains(m.content, "8pm") {
			posted = true
		}
	}
	assert.True(t, posted)
}

func TestAnnouncementFlow_RequiresOperator(t *testing.T) {
	rig := newTestRig(t)
	handled, err := rig.handlers.HandleNaturalCommand(context.Background(),
		dmMsg(memberID, "make an announcement"), "make an announcement")
	require.NoError(t, err)
	require.True(t, handled)
	assert.Contains(t, rig.sender.last(), "Access denied")
}

func TestHandleQuery_GameStatus(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	_, err := rig.store.CreatePlayedGame(ctx, &store.PlayedGame{
		CanonicalName:    "Alien: Isolation",
		CompletionStatus: store.CompletionCompleted,
		TotalEpisodes:    18,
		Confidence:       1.0,
	})
	require.NoError(t, err)

	handled, err := rig.handlers.HandleQuery(ctx, guildMsg(memberID, ""), "has jonesy played alien: isolation?")
	require.NoError(t, err)
	require.True(t, handled)
	assert.Contains(t, rig.sender.last(), "Affirmative")
	assert.Contains(t, rig.sender.last(), "completed")

	handled, err = rig.handlers.HandleQuery(ctx, guildMsg(memberID, ""), "has jonesy played tetris?")
	require.NoError(t, err)
	require.True(t, handled)
	assert.Contains(t, rig.sender.last(), "Negative")
}

func TestHandleQuery_Statistical(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	for name, playtime := range map[string]int{"Short Game": 120, "Long Game": 4000} {
		_, err := rig.store.CreatePlayedGame(ctx, &store.PlayedGame{
			CanonicalName:        name,
			CompletionStatus:     store.CompletionCompleted,
			TotalPlaytimeMinutes: playtime,
			Confidence:           1.0,
		})
		require.NoError(t, err)
	}

	handled, err := rig.handlers.HandleQuery(ctx, guildMsg(memberID, ""), "what game has the most playtime?")
	require.NoError(t, err)
	require.True(t, handled)
	assert.Contains(t, rig.sender.last(), "Long Game")
}

func TestHandleQuery_UnknownFallsThrough(t *testing.T) {
	rig := newTestRig(t)
	handled, err := rig.handlers.HandleQuery(context.Background(),
		guildMsg(memberID, ""), "how are you doing today")
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, rig.sender.messages)
}

func TestCmdStatus_PublicVsOperator(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	require.NoError(t, rig.handlers.HandleCommand(ctx, guildMsg(memberID, "!ashstatus")))
	assert.Contains(t, rig.sender.last(), "All systems functional")

	require.NoError(t, rig.handlers.HandleCommand(ctx, guildMsg(streamerID, "!ashstatus")))
	assert.Contains(t, rig.sender.last(), "Status report")
	assert.Contains(t, rig.sender.last(), "Catalog entries")
}

func TestPostWeeklyAnnouncement(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	_, err := rig.store.CreatePlayedGame(ctx, &store.PlayedGame{
		CanonicalName:    "Subnautica",
		CompletionStatus: store.CompletionCompleted,
		Confidence:       1.0,
	})
	require.NoError(t, err)

	require.NoError(t, rig.handlers.PostWeeklyAnnouncement(ctx, time.Now()))
	require.NotEmpty(t, rig.sender.messages)
	last := rig.sender.messages[len(rig.sender.messages)-1]
	assert.Equal(t, "announce-ch", last.channelID)
	assert.Contains(t, last.content, "Subnautica")
}
