package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonesycrew/ashbot/ai"
	"github.com/jonesycrew/ashbot/ai/cache"
	"github.com/jonesycrew/ashbot/ai/ratelimit"
	"github.com/jonesycrew/ashbot/bot/discord"
	"github.com/jonesycrew/ashbot/bot/query"
	"github.com/jonesycrew/ashbot/internal/fuzzy"
	"github.com/jonesycrew/ashbot/store"
)

// aiBusyLine is the generic deferral shown for any non-ok dispatch status.
const aiBusyLine = "My cognitive systems are occupied at present. Repeat your query shortly."

// aiOfflineLine is shown when dispatching is disabled.
const aiOfflineLine = "Conversational systems are offline by operator directive."

// HandleQuery answers a classified catalog question. It reports whether the
// text was consumed; unknown classifications fall through to conversation.
func (h *Handlers) HandleQuery(ctx context.Context, msg *discord.Message, text string) (bool, error) {
	q := query.Classify(text)
	if q.Kind == query.KindUnknown {
		return false, nil
	}

	switch q.Kind {
	case query.KindStatistical:
		return true, h.answerStatistical(ctx, msg, q.Metric)
	case query.KindGenre:
		return true, h.answerGenre(ctx, msg, q.Argument)
	case query.KindYear:
		return true, h.answerYear(ctx, msg, q.Argument)
	case query.KindGameStatus:
		return true, h.answerGameStatus(ctx, msg, q.Argument)
	case query.KindGameDetails:
		return true, h.answerGameDetails(ctx, msg, q.Argument)
	case query.KindRecommendation:
		return true, h.answerRecommendation(ctx, msg, q.Argument)
	case query.KindYouTubeViews:
		return true, h.answerViews(ctx, msg, q.Argument)
	}
	return false, nil
}

func (h *Handlers) answerStatistical(ctx context.Context, msg *discord.Message, metric string) error {
	games, err := h.store.ListPlayedGames(ctx, &store.FindPlayedGame{})
	if err != nil {
		return err
	}
	if len(games) == 0 {
		h.reply(ctx, msg, "The catalog holds no entries yet. Analysis unavailable.")
		return nil
	}

	var best *store.PlayedGame
	for _, g := range games {
		switch metric {
		case "episodes":
			if best == nil || g.TotalEpisodes > best.TotalEpisodes {
				best = g
			}
		case "longest_completion":
			if g.CompletionStatus != store.CompletionCompleted {
				continue
			}
			if best == nil || g.TotalPlaytimeMinutes > best.TotalPlaytimeMinutes {
				best = g
			}
		default: // playtime
			if best == nil || g.TotalPlaytimeMinutes > best.TotalPlaytimeMinutes {
				best = g
			}
		}
	}
	if best == nil {
		h.reply(ctx, msg, "No completed playthroughs on record yet.")
		return nil
	}

	switch metric {
	case "episodes":
		h.reply(ctx, msg, fmt.Sprintf("Analysis: %s leads with %d episodes.", best.CanonicalName, best.TotalEpisodes))
	case "longest_completion":
		h.reply(ctx, msg, fmt.Sprintf("Analysis: the longest completed playthrough is %s at %s.",
			best.CanonicalName, formatPlaytime(best.TotalPlaytimeMinutes)))
	default:
		h.reply(ctx, msg, fmt.Sprintf("Analysis: %s holds the most recorded playtime at %s.",
			best.CanonicalName, formatPlaytime(best.TotalPlaytimeMinutes)))
	}
	return nil
}

func (h *Handlers) answerGenre(ctx context.Context, msg *discord.Message, genre string) error {
	games, err := h.store.ListPlayedGames(ctx, &store.FindPlayedGame{Genre: &genre})
	if err != nil {
		return err
	}
	if len(games) == 0 {
		h.reply(ctx, msg, fmt.Sprintf("No %s games on record.", genre))
		return nil
	}
	h.reply(ctx, msg, fmt.Sprintf("Captain Jonesy has played %d %s %s: %s.",
		len(games), genre, pluralGames(len(games)), joinNames(games, 15)))
	return nil
}

func (h *Handlers) answerYear(ctx context.Context, msg *discord.Message, yearArg string) error {
	year, err := strconv.Atoi(yearArg)
	if err != nil {
		h.reply(ctx, msg, "That year does not parse.")
		return nil
	}
	games, err := h.store.ListPlayedGames(ctx, &store.FindPlayedGame{ReleaseYear: &year})
	if err != nil {
		return err
	}
	if len(games) == 0 {
		h.reply(ctx, msg, fmt.Sprintf("No games from %d on record.", year))
		return nil
	}
	h.reply(ctx, msg, fmt.Sprintf("From %d the catalog records: %s.", year, joinNames(games, 15)))
	return nil
}

func (h *Handlers) answerGameStatus(ctx context.Context, msg *discord.Message, name string) error {
	game, err := h.lookupPlayedGame(ctx, name)
	if err != nil {
		return err
	}
	if game == nil {
		h.reply(ctx, msg, fmt.Sprintf("Negative. The catalog holds no record of Captain Jonesy playing %s.", name))
		return nil
	}

	var status string
	switch game.CompletionStatus {
	case store.CompletionCompleted:
		status = "and completed it"
	case store.CompletionInProgress:
		status = "and the playthrough is ongoing"
	case store.CompletionDropped:
		status = "but the playthrough was shelved"
	default:
		status = "though completion status is unconfirmed"
	}
	detail := ""
	if game.TotalEpisodes > 0 {
		detail = fmt.Sprintf(" %d episodes are on record.", game.TotalEpisodes)
	}
	h.reply(ctx, msg, fmt.Sprintf("Affirmative. Captain Jonesy has played %s %s.%s",
		game.CanonicalName, status, detail))
	return nil
}

func (h *Handlers) answerGameDetails(ctx context.Context, msg *discord.Message, name string) error {
	game, err := h.lookupPlayedGame(ctx, name)
	if err != nil {
		return err
	}
	if game == nil {
		h.reply(ctx, msg, fmt.Sprintf("No catalog entry matches %q.", name))
		return nil
	}
	h.reply(ctx, msg, formatGameInfo(game))
	return nil
}

func (h *Handlers) answerRecommendation(ctx context.Context, msg *discord.Message, name string) error {
	recs, err := h.store.ListRecommendations(ctx, &store.FindRecommendation{})
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if fuzzy.RatioFold(rec.Name, name) >= recommendationDupThreshold {
			h.reply(ctx, msg, fmt.Sprintf("Affirmative. %s was recommended by %s: %s",
				rec.Name, discord.MentionUser(rec.AddedBy), rec.Reason))
			return nil
		}
	}
	h.reply(ctx, msg, fmt.Sprintf("Negative. %s is not on the recommendation list.", name))
	return nil
}

func (h *Handlers) answerViews(ctx context.Context, msg *discord.Message, name string) error {
	if h.views == nil {
		h.reply(ctx, msg, "Viewing telemetry is not configured on this deployment.")
		return nil
	}
	game, err := h.lookupPlayedGame(ctx, name)
	if err != nil {
		return err
	}
	if game == nil {
		h.reply(ctx, msg, fmt.Sprintf("No catalog entry matches %q.", name))
		return nil
	}
	views, err := h.views(ctx, game)
	if err != nil {
		h.reply(ctx, msg, "The video service is not responding. Try again later.")
		return nil
	}
	h.reply(ctx, msg, fmt.Sprintf("%s has accumulated %d views across its playlist.", game.CanonicalName, views))
	return nil
}

// HandleChat routes free conversation through the AI dispatcher. Catalog
// facts are injected only when the prompt reads as gaming-adjacent.
func (h *Handlers) HandleChat(ctx context.Context, msg *discord.Message, text string) error {
	if h.ai == nil {
		h.reply(ctx, msg, aiOfflineLine)
		return nil
	}

	req := ai.Request{
		UserID:   msg.AuthorID,
		Prompt:   text,
		Tier:     h.TierFor(msg),
		Priority: ratelimit.PriorityMedium,
	}
	if h.IsOperator(msg) {
		req.Priority = ratelimit.PriorityHigh
	}
	if cache.DetectQueryType(text) == cache.QueryGaming {
		if facts, err := h.catalogContext(ctx); err == nil && facts != "" {
			req.Context = facts
		}
	}

	result := h.ai.Respond(ctx, req)
	switch result.Status {
	case ai.StatusOK:
		h.reply(ctx, msg, result.Text)
	case ai.StatusDisabled:
		h.reply(ctx, msg, aiOfflineLine)
	default:
		h.reply(ctx, msg, aiBusyLine)
	}
	return nil
}

// catalogContext renders a compact factual block for prompt injection.
func (h *Handlers) catalogContext(ctx context.Context) (string, error) {
	games, err := h.store.ListPlayedGames(ctx, &store.FindPlayedGame{})
	if err != nil {
		return "", err
	}
	if len(games) == 0 {
		return "", nil
	}

	completed := 0
	var top *store.PlayedGame
	for _, g := range games {
		if g.CompletionStatus == store.CompletionCompleted {
			completed++
		}
		if top == nil || g.TotalPlaytimeMinutes > top.TotalPlaytimeMinutes {
			top = g
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "The catalog records %d games, %d completed.", len(games), completed)
	if top != nil && top.TotalPlaytimeMinutes > 0 {
		fmt.Fprintf(&b, " Most playtime: %s (%s).", top.CanonicalName, formatPlaytime(top.TotalPlaytimeMinutes))
	}
	return b.String(), nil
}

func (h *Handlers) cmdStatus(ctx context.Context, msg *discord.Message, _ string) error {
	if !h.IsOperator(msg) {
		h.reply(ctx, msg, "All systems functional. Science officer Ash reporting: operations proceed within expected parameters.")
		return nil
	}

	lines := []string{fmt.Sprintf("Status report (v%s):", h.profile.Version)}
	if h.ai != nil {
		primary, backup := h.ai.Providers()
		providers := primary
		if backup != "" {
			providers += ", backup " + backup
		}
		stats := h.ai.CacheStats()
		limiter := h.ai.LimiterStats()
		lines = append(lines,
			fmt.Sprintf("AI: enabled=%t (%s)", h.ai.Enabled(), providers),
			fmt.Sprintf("Response cache: %d entries, %.1f%% hit rate, %d calls saved",
				stats.CacheSize, stats.HitRate*100, stats.APICallsSaved),
			fmt.Sprintf("Rate limiter: %d users tracked, %d in cooldown",
				limiter.TrackedUsers, limiter.ActiveCooldowns),
		)
	} else {
		lines = append(lines, "AI: not configured")
	}
	if h.conversations != nil {
		lines = append(lines, fmt.Sprintf("Active dialogs: %d", h.conversations.Active()))
	}
	pending := store.ReminderPending
	reminders, err := h.store.ListReminders(ctx, &store.FindReminder{Status: &pending})
	if err == nil {
		lines = append(lines, fmt.Sprintf("Pending reminders: %d", len(reminders)))
	}
	games, err := h.store.ListPlayedGames(ctx, &store.FindPlayedGame{})
	if err == nil {
		lines = append(lines, fmt.Sprintf("Catalog entries: %d", len(games)))
	}
	if at, ok := h.configTime(ctx, store.ConfigKeyLastRefreshTs); ok {
		lines = append(lines, "Last catalog refresh: "+at.Format("2006-01-02 15:04 MST"))
	}
	if at, ok := h.configTime(ctx, store.ConfigKeyLastAnnouncedTs); ok {
		lines = append(lines, "Last announcement: "+at.Format("2006-01-02 15:04 MST"))
	}
	h.reply(ctx, msg, strings.Join(lines, "\n"))
	return nil
}

// configTime reads a unix-seconds config value in the community timezone.
func (h *Handlers) configTime(ctx context.Context, key string) (time.Time, bool) {
	raw, ok, err := h.store.GetConfig(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0).In(h.profile.Location()), true
}

func (h *Handlers) cmdToggleAI(ctx context.Context, msg *discord.Message, _ string) error {
	if h.ai == nil {
		h.reply(ctx, msg, "AI is not configured on this deployment.")
		return nil
	}
	enabled := !h.ai.Enabled()
	h.ai.SetEnabled(enabled)
	if err := h.store.SetConfig(ctx, store.ConfigKeyAIEnabled, strconv.FormatBool(enabled)); err != nil {
		return err
	}
	if enabled {
		h.reply(ctx, msg, "Conversational systems restored.")
	} else {
		h.reply(ctx, msg, "Conversational systems suspended.")
	}
	return nil
}

func (h *Handlers) cmdSetPersona(ctx context.Context, msg *discord.Message, args string) error {
	if h.ai == nil {
		h.reply(ctx, msg, "AI is not configured on this deployment.")
		return nil
	}
	args = strings.TrimSpace(args)
	h.ai.SetPersonaOverride(args)
	if err := h.store.SetConfig(ctx, store.ConfigKeyPersona, args); err != nil {
		return err
	}
	if args == "" {
		h.reply(ctx, msg, "Persona override cleared. Default behavioral parameters restored.")
	} else {
		h.reply(ctx, msg, "Persona parameters updated.")
	}
	return nil
}

// LoadRuntimeConfig restores operator-set toggles persisted across restarts.
func (h *Handlers) LoadRuntimeConfig(ctx context.Context) error {
	if h.ai == nil {
		return nil
	}
	enabled, err := h.store.GetConfigBool(ctx, store.ConfigKeyAIEnabled, true)
	if err != nil {
		return err
	}
	h.ai.SetEnabled(enabled)

	persona, ok, err := h.store.GetConfig(ctx, store.ConfigKeyPersona)
	if err != nil {
		return err
	}
	if ok {
		h.ai.SetPersonaOverride(persona)
	}
	return nil
}

func joinNames(games []*store.PlayedGame, limit int) string {
	names := make([]string, 0, len(games))
	for i, g := range games {
		if i == limit {
			names = append(names, fmt.Sprintf("and %d more", len(games)-limit))
			break
		}
		names = append(names, g.CanonicalName)
	}
	return strings.Join(names, ", ")
}

func pluralGames(n int) string {
	if n == 1 {
		return "game"
	}
	return "games"
}
