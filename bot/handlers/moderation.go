package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/bot/discord"
	"github.com/jonesycrew/ashbot/internal/fuzzy"
	"github.com/jonesycrew/ashbot/store"
)

// recommendationDupThreshold rejects near-identical recommendation names.
const recommendationDupThreshold = 0.9

// listPageSize bounds each recommendation listing message.
const listPageSize = 10

// HandleViolationMentions increments one strike per mentioned user. The
// streamer identity is immune and skipped without failing the rest.
func (h *Handlers) HandleViolationMentions(ctx context.Context, msg *discord.Message) error {
	if len(msg.MentionedUserIDs) == 0 {
		return nil
	}
	var lines []string
	for _, userID := range msg.MentionedUserIDs {
		strike, err := h.store.IncrementStrike(ctx, userID)
		if errors.Is(err, store.ErrStreamerImmune) {
			continue
		}
		if err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("%s: %d strikes recorded.", discord.MentionUser(userID), strike.Count))
	}
	if len(lines) > 0 {
		h.reply(ctx, msg, strings.Join(lines, "\n"))
	}
	return nil
}

func (h *Handlers) cmdStrikes(ctx context.Context, msg *discord.Message, _ string) error {
	userID, ok := singleMention(msg)
	if !ok {
		h.reply(ctx, msg, "Specify exactly one user: `!strikes @user`.")
		return nil
	}
	strike, err := h.store.GetStrike(ctx, userID)
	if err != nil {
		return err
	}
	h.reply(ctx, msg, fmt.Sprintf("%s has %d %s on record.",
		discord.MentionUser(userID), strike.Count, pluralStrikes(strike.Count)))
	return nil
}

func (h *Handlers) cmdResetStrikes(ctx context.Context, msg *discord.Message, _ string) error {
	userID, ok := singleMention(msg)
	if !ok {
		h.reply(ctx, msg, "Specify exactly one user: `!resetstrikes @user`.")
		return nil
	}
	if _, err := h.store.ResetStrikes(ctx, userID); err != nil {
		return err
	}
	slog.Info("strikes reset", "user_id", userID, "by", msg.AuthorID)
	h.reply(ctx, msg, fmt.Sprintf("Strike record for %s cleared.", discord.MentionUser(userID)))
	return nil
}

func (h *Handlers) cmdAllStrikes(ctx context.Context, msg *discord.Message, _ string) error {
	strikes, err := h.store.ListStrikes(ctx, &store.FindStrike{NonZero: true})
	if err != nil {
		return err
	}
	if len(strikes) == 0 {
		h.reply(ctx, msg, "No strikes on record. Crew discipline is satisfactory.")
		return nil
	}
	lines := make([]string, 0, len(strikes)+1)
	lines = append(lines, "Current strike ledger:")
	for _, s := range strikes {
		lines = append(lines, fmt.Sprintf("%s: %d", discord.MentionUser(s.UserID), s.Count))
	}
	h.reply(ctx, msg, strings.Join(lines, "\n"))
	return nil
}

func (h *Handlers) cmdAddGame(ctx context.Context, msg *discord.Message, args string) error {
	name, reason, ok := strings.Cut(args, " - ")
	if !ok {
		h.reply(ctx, msg, "Format: `!addgame <name> - <reason>`.")
		return nil
	}
	name = strings.TrimSpace(name)
	reason = strings.TrimSpace(reason)
	if name == "" {
		h.reply(ctx, msg, "A game name is required.")
		return nil
	}

	existing, err := h.store.ListRecommendations(ctx, &store.FindRecommendation{})
	if err != nil {
		return err
	}
	for _, rec := range existing {
		if fuzzy.RatioFold(rec.Name, name) >= recommendationDupThreshold {
			h.reply(ctx, msg, fmt.Sprintf("%q is already on the recommendation list as %q.", name, rec.Name))
			return nil
		}
	}

	if _, err := h.store.CreateRecommendation(ctx, &store.Recommendation{
		Name:    name,
		Reason:  reason,
		AddedBy: msg.AuthorID,
	}); err != nil {
		return err
	}
	h.reply(ctx, msg, fmt.Sprintf("Recommendation logged: %s. I will append it to the captain's consideration queue.", name))
	return nil
}

func (h *Handlers) cmdListGames(ctx context.Context, msg *discord.Message, args string) error {
	recs, err := h.store.ListRecommendations(ctx, &store.FindRecommendation{})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		h.reply(ctx, msg, "The recommendation list is empty.")
		return nil
	}

	page := 1
	if args != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(args)); err == nil && n > 0 {
			page = n
		}
	}
	totalPages := (len(recs) + listPageSize - 1) / listPageSize
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * listPageSize
	end := start + listPageSize
	if end > len(recs) {
		end = len(recs)
	}

	lines := make([]string, 0, listPageSize+1)
	lines = append(lines, fmt.Sprintf("Game recommendations (page %d of %d):", page, totalPages))
	for i, rec := range recs[start:end] {
		lines = append(lines, fmt.Sprintf("%d. %s - %s", start+i+1, rec.Name, rec.Reason))
	}
	h.reply(ctx, msg, strings.Join(lines, "\n"))
	return nil
}

func (h *Handlers) cmdRemoveGame(ctx context.Context, msg *discord.Message, args string) error {
	args = strings.TrimSpace(args)
	if args == "" {
		h.reply(ctx, msg, "Format: `!removegame <name or index>`.")
		return nil
	}
	recs, err := h.store.ListRecommendations(ctx, &store.FindRecommendation{})
	if err != nil {
		return err
	}

	var target *store.Recommendation
	if index, err := strconv.Atoi(args); err == nil {
		if index >= 1 && index <= len(recs) {
			target = recs[index-1]
		}
	} else {
		for _, rec := range recs {
			if strings.EqualFold(rec.Name, args) {
				target = rec
				break
			}
		}
	}
	if target == nil {
		h.reply(ctx, msg, fmt.Sprintf("No recommendation matches %q.", args))
		return nil
	}

	if err := h.store.DeleteRecommendation(ctx, target.ID); err != nil {
		return err
	}
	h.reply(ctx, msg, fmt.Sprintf("Removed %q from the recommendation list.", target.Name))
	return nil
}

func pluralStrikes(n int) string {
	if n == 1 {
		return "strike"
	}
	return "strikes"
}
