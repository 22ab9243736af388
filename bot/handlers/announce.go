package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/store"
)

// PostWeeklyAnnouncement posts the Monday summary: catalog activity over the
// trailing seven days, in the persona voice. Nothing is posted when no
// announcement channel is configured, or when a summary already went out in
// the last day (a restarted process must not post twice).
func (h *Handlers) PostWeeklyAnnouncement(ctx context.Context, now time.Time) error {
	target := h.announcementTarget(ctx)
	if target == "" {
		return nil
	}
	if last, ok, err := h.store.GetConfig(ctx, store.ConfigKeyLastAnnouncedTs); err == nil && ok {
		if ts, err := strconv.ParseInt(last, 10, 64); err == nil && now.Unix()-ts < 24*60*60 {
			return nil
		}
	}

	games, err := h.store.ListPlayedGames(ctx, &store.FindPlayedGame{})
	if err != nil {
		return errors.Wrap(err, "load catalog for announcement")
	}

	cutoff := now.AddDate(0, 0, -7).Unix()
	var touched []*store.PlayedGame
	completed := 0
	for _, g := range games {
		if g.UpdatedTs >= cutoff {
			touched = append(touched, g)
			if g.CompletionStatus == store.CompletionCompleted {
				completed++
			}
		}
	}

	var b strings.Builder
	b.WriteString("Weekly operations report. ")
	if len(touched) == 0 {
		b.WriteString("No catalog activity recorded this cycle. The archive stands at ")
		fmt.Fprintf(&b, "%d games. Efficiency is maintained.", len(games))
	} else {
		fmt.Fprintf(&b, "Catalog activity touched %d %s", len(touched), pluralGames(len(touched)))
		if completed > 0 {
			fmt.Fprintf(&b, ", %d now completed", completed)
		}
		b.WriteString(": ")
		b.WriteString(joinNames(touched, 10))
		b.WriteString(". Analysis continues.")
	}

	if _, err := h.sender.SendMessage(ctx, target, b.String()); err != nil {
		return errors.Wrap(err, "post weekly announcement")
	}
	return h.store.SetConfig(ctx, store.ConfigKeyLastAnnouncedTs, strconv.FormatInt(now.Unix(), 10))
}
