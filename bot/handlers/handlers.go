// Package handlers implements the business logic behind every routed
// message: commands, catalog queries, dialogs, reminders, and chat.
package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jonesycrew/ashbot/ai"
	"github.com/jonesycrew/ashbot/ai/metrics"
	"github.com/jonesycrew/ashbot/bot/conversation"
	"github.com/jonesycrew/ashbot/bot/discord"
	"github.com/jonesycrew/ashbot/bot/trivia"
	"github.com/jonesycrew/ashbot/catalog/ingest"
	"github.com/jonesycrew/ashbot/internal/profile"
	"github.com/jonesycrew/ashbot/store"
)

// accessDenied is the persona-voice permission refusal.
const accessDenied = "Access denied. That operation requires moderator clearance."

// IngestRunner triggers a full catalog import.
type IngestRunner func(ctx context.Context) (ingest.Summary, error)

// ViewsLookup resolves accumulated view counts for a catalog entry.
type ViewsLookup func(ctx context.Context, game *store.PlayedGame) (int64, error)

// Config wires the handlers' collaborators. AI, Moderator, Metrics, and
// Ingest may be nil when the deployment lacks them.
type Config struct {
	Store         *store.Store
	Profile       *profile.Profile
	Sender        discord.Sender
	Moderator     discord.Moderator
	AI            *ai.Dispatcher
	Conversations *conversation.Manager
	Trivia        *trivia.Manager
	Metrics       *metrics.Exporter
	Ingest        IngestRunner
	Views         ViewsLookup
}

// Handlers carries the per-route business logic.
type Handlers struct {
	store         *store.Store
	profile       *profile.Profile
	sender        discord.Sender
	moderator     discord.Moderator
	ai            *ai.Dispatcher
	conversations *conversation.Manager
	trivia        *trivia.Manager
	metrics       *metrics.Exporter
	ingest        IngestRunner
	views         ViewsLookup

	commands map[string]command
	pending  *pendingActions
}

type command struct {
	handler      func(ctx context.Context, msg *discord.Message, args string) error
	operatorOnly bool
}

// New creates the handler set and its command table.
func New(cfg Config) *Handlers {
	h := &Handlers{
		store:         cfg.Store,
		profile:       cfg.Profile,
		sender:        cfg.Sender,
		moderator:     cfg.Moderator,
		ai:            cfg.AI,
		conversations: cfg.Conversations,
		trivia:        cfg.Trivia,
		metrics:       cfg.Metrics,
		ingest:        cfg.Ingest,
		views:         cfg.Views,
		pending:       newPendingActions(),
	}
	h.commands = map[string]command{
		"strikes":               {h.cmdStrikes, true},
		"resetstrikes":          {h.cmdResetStrikes, true},
		"allstrikes":            {h.cmdAllStrikes, true},
		"addgame":               {h.cmdAddGame, false},
		"recommend":             {h.cmdAddGame, false},
		"listgames":             {h.cmdListGames, false},
		"removegame":            {h.cmdRemoveGame, true},
		"remind":                {h.cmdRemind, false},
		"listreminders":         {h.cmdListReminders, true},
		"cancelreminder":        {h.cmdCancelReminder, true},
		"addplayedgame":         {h.cmdAddPlayedGame, true},
		"gameinfo":              {h.cmdGameInfo, false},
		"updateplayedgame":      {h.cmdUpdatePlayedGame, true},
		"bulkimportplayedgames": {h.cmdBulkImport, true},
		"ashstatus":             {h.cmdStatus, false},
		"toggleai":              {h.cmdToggleAI, true},
		"setpersona":            {h.cmdSetPersona, true},
	}
	return h
}

// HandleCommand dispatches a sigil-prefixed command. Unknown commands get a
// corrective reply rather than silence, since the author clearly intended a
// command.
func (h *Handlers) HandleCommand(ctx context.Context, msg *discord.Message) error {
	text := strings.TrimSpace(msg.Content)
	text = strings.TrimPrefix(text, "!")
	name, args, _ := strings.Cut(text, " ")
	name = strings.ToLower(strings.TrimSpace(name))
	args = strings.TrimSpace(args)

	cmd, ok := h.commands[name]
	if !ok {
		h.reply(ctx, msg, "Unrecognized directive. Consult the command listing.")
		return nil
	}
	if cmd.operatorOnly && !h.IsOperator(msg) {
		slog.Info("command denied", "command", name, "user_id", msg.AuthorID)
		h.reply(ctx, msg, accessDenied)
		return nil
	}
	return cmd.handler(ctx, msg, args)
}

// IsOperator reports whether the author holds operator authority: the
// manage-messages permission or one of the privileged identities.
func (h *Handlers) IsOperator(msg *discord.Message) bool {
	if msg.AuthorIsOperator {
		return true
	}
	return msg.AuthorID == h.profile.StreamerUserID || msg.AuthorID == h.profile.CreatorUserID
}

// TierFor maps an author to the persona tier.
func (h *Handlers) TierFor(msg *discord.Message) ai.Tier {
	switch {
	case msg.AuthorID == h.profile.StreamerUserID && msg.AuthorID != "":
		return ai.TierStreamer
	case msg.AuthorID == h.profile.CreatorUserID && msg.AuthorID != "":
		return ai.TierCreator
	case msg.AuthorIsOperator:
		return ai.TierModerator
	default:
		return ai.TierStandard
	}
}

// reply sends to the message's channel, logging rather than propagating the
// failure: outbound errors must not look like handler errors to the router.
func (h *Handlers) reply(ctx context.Context, msg *discord.Message, content string) {
	if _, err := h.sender.SendMessage(ctx, msg.ChannelID, content); err != nil {
		slog.Error("reply failed", "channel_id", msg.ChannelID, "error", err)
	}
}

// singleMention extracts the one mentioned user a command expects.
func singleMention(msg *discord.Message) (string, bool) {
	if len(msg.MentionedUserIDs) != 1 {
		return "", false
	}
	return msg.MentionedUserIDs[0], true
}
