package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/bot/discord"
	"github.com/jonesycrew/ashbot/bot/remind"
	"github.com/jonesycrew/ashbot/store"
)

// autoActionGrace is the delay between reminder delivery and its attached
// automatic action, giving operators a window to intervene.
const autoActionGrace = 5 * time.Minute

// defaultMuteDuration applies when a mute action carries no payload duration.
const defaultMuteDuration = 10 * time.Minute

func (h *Handlers) cmdRemind(ctx context.Context, msg *discord.Message, args string) error {
	if args == "" {
		h.reply(ctx, msg, "Format: `!remind @user <duration> <text>` or `!remind me in 10 minutes to ...`.")
		return nil
	}

	if strings.HasPrefix(args, "<@") {
		return h.remindMention(ctx, msg, args)
	}
	return h.remindNatural(ctx, msg, args)
}

func (h *Handlers) remindMention(ctx context.Context, msg *discord.Message, args string) error {
	parsed, err := remind.ParseMention(args)
	if err != nil {
		h.reply(ctx, msg, "I could not parse that. Format: `!remind @user <duration> <text>`.")
		return nil
	}
	if parsed.TargetUserID != msg.AuthorID && !h.IsOperator(msg) {
		h.reply(ctx, msg, accessDenied)
		return nil
	}
	if parsed.AutoAction != store.AutoActionNone && !h.IsOperator(msg) {
		h.reply(ctx, msg, accessDenied)
		return nil
	}

	now := time.Now()
	reminder := &store.Reminder{
		UserID:            parsed.TargetUserID,
		Text:              parsed.Text,
		ScheduledTs:       now.Add(parsed.Duration).Unix(),
		DeliveryKind:      store.DeliverChannel,
		ChannelID:         msg.ChannelID,
		AutoAction:        parsed.AutoAction,
		AutoActionPayload: parsed.AutoPayload,
		CreatedBy:         msg.AuthorID,
	}
	if msg.IsDM() {
		reminder.DeliveryKind = store.DeliverDirectMessage
		reminder.ChannelID = ""
	}

	created, err := h.store.CreateReminder(ctx, reminder)
	if errors.Is(err, store.ErrInvalidReminder) {
		h.reply(ctx, msg, fmt.Sprintf("Reminder rejected: %v.", err))
		return nil
	}
	if err != nil {
		return err
	}
	if created.AutoAction != store.AutoActionNone {
		h.pending.rememberGuild(created.ID, msg.GuildID)
	}

	h.reply(ctx, msg, confirmReminder(created, now))
	return nil
}

func (h *Handlers) remindNatural(ctx context.Context, msg *discord.Message, args string) error {
	now := time.Now()
	parsed, err := remind.ParseNatural(args, now)
	if errors.Is(err, remind.ErrUnparseable) {
		h.reply(ctx, msg, "I could not find a time in that request. Try `!remind me in 10 minutes to stand up`.")
		return nil
	}
	if err != nil {
		return err
	}

	reminder := &store.Reminder{
		UserID:       msg.AuthorID,
		Text:         parsed.Text,
		ScheduledTs:  parsed.At.Unix(),
		DeliveryKind: store.DeliverChannel,
		ChannelID:    msg.ChannelID,
		CreatedBy:    msg.AuthorID,
	}
	if msg.IsDM() {
		reminder.DeliveryKind = store.DeliverDirectMessage
		reminder.ChannelID = ""
	}

	created, err := h.store.CreateReminder(ctx, reminder)
	if errors.Is(err, store.ErrInvalidReminder) {
		h.reply(ctx, msg, fmt.Sprintf("Reminder rejected: %v.", err))
		return nil
	}
	if err != nil {
		return err
	}

	h.reply(ctx, msg, confirmReminder(created, now))
	return nil
}

// confirmReminder renders the set confirmation, for example:
//
//	✅ Reminder set in 2 minutes at 10:02 AM GMT
//	Stand up
func confirmReminder(r *store.Reminder, now time.Time) string {
	at := time.Unix(r.ScheduledTs, 0)
	return fmt.Sprintf("✅ Reminder set in %s at %s\n%s",
		remind.FormatDuration(at.Sub(now)), remind.FormatTime(at), r.Text)
}

func (h *Handlers) cmdListReminders(ctx context.Context, msg *discord.Message, _ string) error {
	find := &store.FindReminder{Status: statusPtr(store.ReminderPending)}
	if userID, ok := singleMention(msg); ok {
		find.UserID = &userID
	}
	reminders, err := h.store.ListReminders(ctx, find)
	if err != nil {
		return err
	}
	if len(reminders) == 0 {
		h.reply(ctx, msg, "No pending reminders.")
		return nil
	}

	lines := make([]string, 0, len(reminders)+1)
	lines = append(lines, "Pending reminders:")
	for _, r := range reminders {
		line := fmt.Sprintf("#%d %s at %s: %s",
			r.ID, discord.MentionUser(r.UserID), remind.FormatTime(time.Unix(r.ScheduledTs, 0)), r.Text)
		if r.AutoAction != store.AutoActionNone {
			line += fmt.Sprintf(" [auto: %s]", r.AutoAction)
		}
		lines = append(lines, line)
	}
	h.reply(ctx, msg, strings.Join(lines, "\n"))
	return nil
}

func (h *Handlers) cmdCancelReminder(ctx context.Context, msg *discord.Message, args string) error {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(args), "#"))
	if err != nil {
		h.reply(ctx, msg, "Format: `!cancelreminder <id>`.")
		return nil
	}
	cancelled, err := h.store.CancelReminder(ctx, int32(id))
	if err != nil {
		return err
	}
	if !cancelled {
		h.reply(ctx, msg, fmt.Sprintf("Reminder #%d is not pending; nothing to cancel.", id))
		return nil
	}
	h.pending.forget(int32(id))
	h.reply(ctx, msg, fmt.Sprintf("Reminder #%d cancelled.", id))
	return nil
}

// DeliverDueReminders delivers every pending reminder whose time has come,
// marking each delivered or failed. Auto actions are queued for the grace
// period rather than executed inline.
func (h *Handlers) DeliverDueReminders(ctx context.Context, now time.Time) error {
	due, err := h.store.ListDueReminders(ctx, now)
	if err != nil {
		return errors.Wrap(err, "list due reminders")
	}
	for _, r := range due {
		h.deliverReminder(ctx, r, now)
	}
	return nil
}

func (h *Handlers) deliverReminder(ctx context.Context, r *store.Reminder, now time.Time) {
	// Send happens before the status transition. A crash between the two
	// leaves the reminder pending and it is re-sent next sweep; the duplicate
	// is tolerated. An outbox table would close the window if it ever matters.
	var err error
	switch r.DeliveryKind {
	case store.DeliverDirectMessage:
		err = h.sender.SendDM(ctx, r.UserID, fmt.Sprintf("⏰ Reminder: %s", r.Text))
	default:
		_, err = h.sender.SendMessage(ctx, r.ChannelID,
			fmt.Sprintf("⏰ %s Reminder: %s", discord.MentionUser(r.UserID), r.Text))
	}

	if err != nil {
		slog.Error("reminder delivery failed", "reminder_id", r.ID, "user_id", r.UserID, "error", err)
		if _, markErr := h.store.MarkReminderFailed(ctx, r.ID, err.Error()); markErr != nil {
			slog.Error("mark reminder failed", "reminder_id", r.ID, "error", markErr)
		}
		h.recordReminder("failed")
		return
	}

	if _, err := h.store.MarkReminderDelivered(ctx, r.ID); err != nil {
		slog.Error("mark reminder delivered", "reminder_id", r.ID, "error", err)
	}
	h.recordReminder("delivered")

	if r.AutoAction != store.AutoActionNone {
		h.pending.schedule(r, now.Add(autoActionGrace))
		slog.Info("auto action queued",
			"reminder_id", r.ID, "action", r.AutoAction, "run_at", now.Add(autoActionGrace))
	}
}

// RunPendingActions executes queued auto actions whose grace period elapsed.
func (h *Handlers) RunPendingActions(ctx context.Context, now time.Time) {
	for _, action := range h.pending.collectDue(now) {
		if err := h.executeAutoAction(ctx, action); err != nil {
			slog.Error("auto action failed",
				"reminder_id", action.reminder.ID,
				"action", action.reminder.AutoAction,
				"error", err,
			)
		}
	}
}

func (h *Handlers) executeAutoAction(ctx context.Context, action scheduledAction) error {
	r := action.reminder
	switch r.AutoAction {
	case store.AutoActionMute, store.AutoActionKick, store.AutoActionBan:
		if h.moderator == nil {
			return errors.New("no moderator surface configured")
		}
		if action.guildID == "" {
			return errors.New("guild unknown, skipping moderation action")
		}
		switch r.AutoAction {
		case store.AutoActionMute:
			d := defaultMuteDuration
			if r.AutoActionPayload != "" {
				if parsed, err := remind.ParseDuration(r.AutoActionPayload); err == nil {
					d = parsed
				}
			}
			return h.moderator.MuteUser(ctx, action.guildID, r.UserID, d)
		case store.AutoActionKick:
			return h.moderator.KickUser(ctx, action.guildID, r.UserID)
		default:
			return h.moderator.BanUser(ctx, action.guildID, r.UserID)
		}
	case store.AutoActionYouTubePost:
		if h.profile.YouTubePostChannelID == "" {
			return errors.New("no video post channel configured")
		}
		content := r.AutoActionPayload
		if content == "" {
			content = r.Text
		}
		_, err := h.sender.SendMessage(ctx, h.profile.YouTubePostChannelID, content)
		return err
	}
	return nil
}

func (h *Handlers) recordReminder(status string) {
	if h.metrics != nil {
		h.metrics.RecordReminderDelivery(status)
	}
}

// pendingActions tracks auto actions between delivery and execution, plus the
// guild each action applies to. State is in-memory only; a restart drops the
// guild association and the action is skipped with a log line.
type pendingActions struct {
	mu     sync.Mutex
	guilds map[int32]string
	queue  []scheduledAction
}

type scheduledAction struct {
	reminder *store.Reminder
	guildID  string
	runAt    time.Time
}

func newPendingActions() *pendingActions {
	return &pendingActions{guilds: make(map[int32]string)}
}

func (p *pendingActions) rememberGuild(reminderID int32, guildID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guilds[reminderID] = guildID
}

func (p *pendingActions) forget(reminderID int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.guilds, reminderID)
}

func (p *pendingActions) schedule(r *store.Reminder, runAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, scheduledAction{
		reminder: r,
		guildID:  p.guilds[r.ID],
		runAt:    runAt,
	})
	delete(p.guilds, r.ID)
}

func (p *pendingActions) collectDue(now time.Time) []scheduledAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	var due []scheduledAction
	var rest []scheduledAction
	for _, a := range p.queue {
		if !a.runAt.After(now) {
			due = append(due, a)
		} else {
			rest = append(rest, a)
		}
	}
	p.queue = rest
	return due
}

func statusPtr(s store.ReminderStatus) *store.ReminderStatus { return &s }
