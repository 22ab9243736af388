// Package bot routes inbound messages to the correct handler with a fixed
// priority order.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/ai/metrics"
	"github.com/jonesycrew/ashbot/bot/conversation"
	"github.com/jonesycrew/ashbot/bot/discord"
	"github.com/jonesycrew/ashbot/bot/handlers"
	"github.com/jonesycrew/ashbot/bot/query"
	"github.com/jonesycrew/ashbot/bot/trivia"
	"github.com/jonesycrew/ashbot/internal/profile"
)

// systemErrorLine is the single generic response for any handler failure.
const systemErrorLine = "System error — try again."

// Backpressure: after this many same-kind failures for one user inside the
// window, further failures are swallowed silently.
const (
	errorBurstLimit  = 3
	errorBurstWindow = time.Minute
)

// Routed rule labels, recorded per message.
const (
	RuleCommand        = "command"
	RuleDialog         = "dialog"
	RuleTriviaAnswer   = "trivia_answer"
	RuleStrikes        = "strikes"
	RuleNaturalCommand = "natural_command"
	RuleQuery          = "query"
	RuleChat           = "chat"
	RuleIgnored        = "ignored"
)

// Router classifies each inbound message exactly once and dispatches it.
// Handler failures are logged and answered with a generic line; the router
// itself never dies.
type Router struct {
	handlers      *handlers.Handlers
	trivia        *trivia.Manager
	conversations *conversation.Manager
	profile       *profile.Profile
	sender        discord.Sender
	metrics       *metrics.Exporter

	// botID is resolved lazily since the gateway learns its own id on open.
	botID func() string

	mu     sync.Mutex
	bursts map[string][]time.Time
}

// RouterConfig wires the router's collaborators.
type RouterConfig struct {
	Handlers      *handlers.Handlers
	Trivia        *trivia.Manager
	Conversations *conversation.Manager
	Profile       *profile.Profile
	Sender        discord.Sender
	Metrics       *metrics.Exporter
	BotID         func() string
}

// NewRouter creates a router.
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		handlers:      cfg.Handlers,
		trivia:        cfg.Trivia,
		conversations: cfg.Conversations,
		profile:       cfg.Profile,
		sender:        cfg.Sender,
		metrics:       cfg.Metrics,
		botID:         cfg.BotID,
		bursts:        make(map[string][]time.Time),
	}
}

// Handle implements discord.Handler.
func (r *Router) Handle(ctx context.Context, msg *discord.Message) {
	if msg.AuthorBot {
		return
	}
	rule, err := r.route(ctx, msg)
	r.record(rule)
	if err != nil {
		r.fail(ctx, msg, rule, err)
	}
}

// route applies the priority rules top to bottom; the first match wins.
func (r *Router) route(ctx context.Context, msg *discord.Message) (string, error) {
	text := strings.TrimSpace(msg.Content)
	botID := r.botID()

	// Rule 1: explicit command, fires everywhere regardless of addressing.
	if strings.HasPrefix(text, "!") {
		return RuleCommand, r.handlers.HandleCommand(ctx, msg)
	}

	// Rule 2: active multi-step dialog, direct message only.
	if msg.IsDM() && r.conversations.Get(msg.AuthorID) != nil {
		return RuleDialog, r.handlers.HandleConversationMessage(ctx, msg)
	}

	// Trivia answers arrive as replies to a session's question message and
	// outrank the addressed rules.
	if msg.ReferencedMessageID != "" {
		handled, err := r.trivia.HandleReply(ctx, trivia.Reply{
			ChannelID:           msg.ChannelID,
			MessageID:           msg.ID,
			ReferencedMessageID: msg.ReferencedMessageID,
			UserID:              msg.AuthorID,
			Content:             text,
		})
		if err != nil {
			return RuleTriviaAnswer, err
		}
		if handled {
			return RuleTriviaAnswer, nil
		}
	}

	// Rule 3: violation-channel mentions increment strikes; everything else
	// in that channel is ignored.
	if msg.ChannelID == r.profile.ViolationChannelID && r.profile.ViolationChannelID != "" {
		if len(msg.MentionedUserIDs) > 0 {
			return RuleStrikes, r.handlers.HandleViolationMentions(ctx, msg)
		}
		return RuleIgnored, nil
	}

	addressed := discord.IsAddressed(msg, botID)

	// Moderator channels require explicit addressing for rules 4-6 so
	// background lookups do not interrupt operator traffic.
	if r.isModChannel(msg.ChannelID) && !addressed {
		return RuleIgnored, nil
	}

	stripped := discord.StripBotAddress(text, botID)

	// Rule 4: addressed natural-language command.
	if addressed {
		handled, err := r.handlers.HandleNaturalCommand(ctx, msg, stripped)
		if err != nil {
			return RuleNaturalCommand, err
		}
		if handled {
			return RuleNaturalCommand, nil
		}
	}

	// Rule 5: catalog query, addressed or implicit, guarded against casual
	// third-party narration.
	queryText := text
	if addressed {
		queryText = stripped
	}
	if !query.CasualSpeech(queryText) {
		handled, err := r.handlers.HandleQuery(ctx, msg, queryText)
		if err != nil {
			return RuleQuery, err
		}
		if handled {
			return RuleQuery, nil
		}
	}

	// Rule 6: general conversation, direct message or mention.
	if msg.IsDM() || msg.MentionsBot {
		return RuleChat, r.handlers.HandleChat(ctx, msg, stripped)
	}

	return RuleIgnored, nil
}

func (r *Router) record(rule string) {
	if r.metrics != nil {
		r.metrics.RecordRoutedMessage(rule)
	}
}

// fail logs the error and answers with the generic line unless this user has
// already seen the same failure kind repeatedly inside the window.
func (r *Router) fail(ctx context.Context, msg *discord.Message, rule string, err error) {
	slog.Error("handler failed",
		"rule", rule,
		"user_id", msg.AuthorID,
		"channel_id", msg.ChannelID,
		"error", err,
	)
	if r.silenced(msg.AuthorID, err) {
		return
	}
	if _, sendErr := r.sender.SendMessage(ctx, msg.ChannelID, systemErrorLine); sendErr != nil {
		slog.Error("error response failed", "channel_id", msg.ChannelID, "error", sendErr)
	}
}

// silenced records one failure occurrence and reports whether the user has
// exceeded the burst limit for this failure kind.
func (r *Router) silenced(userID string, err error) bool {
	key := userID + "/" + errorKind(err)
	now := time.Now()
	cutoff := now.Add(-errorBurstWindow)

	r.mu.Lock()
	defer r.mu.Unlock()
	recent := r.bursts[key][:0]
	for _, t := range r.bursts[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	r.bursts[key] = recent
	return len(recent) > errorBurstLimit
}

// errorKind buckets an error by its root cause type so distinct failures do
// not share a backpressure budget.
func errorKind(err error) string {
	return fmt.Sprintf("%T", errors.Cause(err))
}

func (r *Router) isModChannel(channelID string) bool {
	for _, id := range r.profile.ModChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}
