// Package discord adapts the gateway library to the bot's inbound and
// outbound surfaces.
package discord

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/internal/strutil"
)

// Send retry policy: transient failures retry with exponential backoff,
// client errors do not.
const (
	sendAttempts  = 3
	sendBaseDelay = time.Second
)

// maxMessageLen is the platform cap on message content. Longer content is
// truncated rather than rejected.
const maxMessageLen = 2000

// Message is a normalized inbound message.
type Message struct {
	ID                  string
	ChannelID           string
	GuildID             string
	AuthorID            string
	AuthorName          string
	AuthorBot           bool
	Content             string
	MentionedUserIDs    []string
	MentionsBot         bool
	ReferencedMessageID string
	AuthorIsOperator    bool
}

// IsDM reports whether the message arrived outside any guild.
func (m *Message) IsDM() bool { return m.GuildID == "" }

// Sender is the outbound message surface handlers depend on.
type Sender interface {
	SendMessage(ctx context.Context, channelID, content string) (messageID string, err error)
	SendDM(ctx context.Context, userID, content string) error
	React(ctx context.Context, channelID, messageID, emoji string) error
}

// Moderator exposes the guild moderation actions reminders can trigger.
type Moderator interface {
	MuteUser(ctx context.Context, guildID, userID string, d time.Duration) error
	KickUser(ctx context.Context, guildID, userID string) error
	BanUser(ctx context.Context, guildID, userID string) error
}

// Handler consumes normalized inbound messages.
type Handler interface {
	Handle(ctx context.Context, msg *Message)
}

// Gateway owns the discordgo session. Inbound messages are serialized per
// author so one user's messages are handled in arrival order.
type Gateway struct {
	session *discordgo.Session
	handler Handler

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queues map[string][]*Message
	wg     sync.WaitGroup
}

// NewGateway creates a gateway over a bot token. A handler must be attached
// with SetHandler before Open.
func NewGateway(token string) (*Gateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Wrap(err, "create gateway session")
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	g := &Gateway{
		session: session,
		queues:  make(map[string][]*Message),
	}
	session.AddHandler(g.onMessageCreate)
	return g, nil
}

// SetHandler attaches the inbound message consumer. The router is built after
// the gateway because it sends through the gateway's session.
func (g *Gateway) SetHandler(handler Handler) {
	g.handler = handler
}

// Open connects to the gateway.
func (g *Gateway) Open(ctx context.Context) error {
	g.ctx, g.cancel = context.WithCancel(ctx)
	if err := g.session.Open(); err != nil {
		return errors.Wrap(err, "open gateway connection")
	}
	slog.Info("gateway connected", "bot_id", g.BotID(), "bot_name", g.BotName())
	return nil
}

// Close stops dispatch and disconnects. In-flight handlers get a grace
// period before the connection drops.
func (g *Gateway) Close() error {
	if g.cancel != nil {
		g.cancel()
	}
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		slog.Warn("gateway close: handler grace period expired")
	}
	return g.session.Close()
}

// BotID returns the bot's own user id, empty before Open.
func (g *Gateway) BotID() string {
	if g.session.State == nil || g.session.State.User == nil {
		return ""
	}
	return g.session.State.User.ID
}

// BotName returns the bot's username, empty before Open.
func (g *Gateway) BotName() string {
	if g.session.State == nil || g.session.State.User == nil {
		return ""
	}
	return g.session.State.User.Username
}

// Session exposes the raw session for the sender adapter.
func (g *Gateway) Session() *discordgo.Session { return g.session }

func (g *Gateway) onMessageCreate(s *discordgo.Session, e *discordgo.MessageCreate) {
	if g.handler == nil || e.Author == nil || e.Author.ID == g.BotID() {
		return
	}
	msg := g.normalize(e)

	// Per-author FIFO: the first message starts a drain goroutine, later
	// ones append to its queue.
	g.mu.Lock()
	queue, draining := g.queues[msg.AuthorID]
	g.queues[msg.AuthorID] = append(queue, msg)
	if !draining {
		g.wg.Add(1)
		go g.drain(msg.AuthorID)
	}
	g.mu.Unlock()
}

func (g *Gateway) drain(authorID string) {
	defer g.wg.Done()
	for {
		g.mu.Lock()
		queue := g.queues[authorID]
		if len(queue) == 0 {
			delete(g.queues, authorID)
			g.mu.Unlock()
			return
		}
		msg := queue[0]
		g.queues[authorID] = queue[1:]
		g.mu.Unlock()

		if g.ctx.Err() != nil {
			return
		}
		g.handler.Handle(g.ctx, msg)
	}
}

func (g *Gateway) normalize(e *discordgo.MessageCreate) *Message {
	msg := &Message{
		ID:         e.ID,
		ChannelID:  e.ChannelID,
		GuildID:    e.GuildID,
		AuthorID:   e.Author.ID,
		AuthorName: e.Author.Username,
		AuthorBot:  e.Author.Bot,
		Content:    e.Content,
	}
	botID := g.BotID()
	for _, u := range e.Mentions {
		if u.ID == botID {
			msg.MentionsBot = true
			continue
		}
		msg.MentionedUserIDs = append(msg.MentionedUserIDs, u.ID)
	}
	if e.MessageReference != nil {
		msg.ReferencedMessageID = e.MessageReference.MessageID
	}
	if e.Member != nil {
		msg.AuthorIsOperator = hasManageMessages(e.Member.Permissions)
	}
	return msg
}

func hasManageMessages(permissions int64) bool {
	return permissions&discordgo.PermissionManageMessages != 0
}

// Client implements Sender and Moderator over a discordgo session with the
// bounded retry policy.
type Client struct {
	session *discordgo.Session
}

// NewClient wraps a session.
func NewClient(session *discordgo.Session) *Client {
	return &Client{session: session}
}

func (c *Client) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	content = strutil.Truncate(content, maxMessageLen)
	var messageID string
	err := c.withRetry(ctx, "send message", func() error {
		m, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
		if err == nil {
			messageID = m.ID
		}
		return err
	})
	return messageID, err
}

func (c *Client) SendDM(ctx context.Context, userID, content string) error {
	channel, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, "open dm channel")
	}
	_, err = c.SendMessage(ctx, channel.ID, content)
	return err
}

func (c *Client) React(ctx context.Context, channelID, messageID, emoji string) error {
	return c.withRetry(ctx, "add reaction", func() error {
		return c.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
	})
}

func (c *Client) MuteUser(ctx context.Context, guildID, userID string, d time.Duration) error {
	until := time.Now().Add(d)
	return c.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx))
}

func (c *Client) KickUser(ctx context.Context, guildID, userID string) error {
	return c.session.GuildMemberDelete(guildID, userID, discordgo.WithContext(ctx))
}

func (c *Client) BanUser(ctx context.Context, guildID, userID string) error {
	return c.session.GuildBanCreate(guildID, userID, 0, discordgo.WithContext(ctx))
}

// withRetry runs fn up to sendAttempts times with exponential backoff.
// Client errors (4xx) fail immediately.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	delay := sendBaseDelay
	var err error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if isClientError(err) {
			return errors.Wrap(err, op)
		}
		if attempt == sendAttempts {
			break
		}
		slog.Warn("platform call failed, retrying",
			"op", op, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return errors.Wrapf(err, "%s: %d attempts", op, sendAttempts)
}

func isClientError(err error) bool {
	var restErr *discordgo.RESTError
	if stderrors.As(err, &restErr) && restErr.Response != nil {
		code := restErr.Response.StatusCode
		return code >= 400 && code < 500
	}
	return false
}

// MentionUser renders a user mention.
func MentionUser(userID string) string {
	return "<@" + userID + ">"
}

// StripBotAddress removes a leading bot mention or "ash " prefix so the
// remaining text can be classified.
func StripBotAddress(content, botID string) string {
	trimmed := strings.TrimSpace(content)
	for _, prefix := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
		if rest, ok := strings.CutPrefix(trimmed, prefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	lower := strings.ToLower(trimmed)
	for _, prefix := range []string{"ash ", "ash, "} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(trimmed[len(prefix):])
		}
	}
	return trimmed
}

// IsAddressed reports whether the message is directed at the bot: a DM, a
// mention, a reply to the bot, or an "ash " prefix.
func IsAddressed(m *Message, botID string) bool {
	if m.IsDM() || m.MentionsBot {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(m.Content))
	return strings.HasPrefix(lower, "ash ") || strings.HasPrefix(lower, "ash, ")
}
