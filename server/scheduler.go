package server

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonesycrew/ashbot/ai/cache"
	"github.com/jonesycrew/ashbot/bot/conversation"
	"github.com/jonesycrew/ashbot/bot/handlers"
	"github.com/jonesycrew/ashbot/internal/profile"
)

// Sweep cadences. The weekly sweeps are clock-aligned to the community
// timezone; the rest are fixed intervals from process start.
const (
	reminderSweepEvery     = 30 * time.Second
	cacheSweepEvery        = time.Hour
	conversationSweepEvery = 15 * time.Minute
)

// Scheduler runs the periodic sweeps. Each sweep runs in its own goroutine
// and is serialized with itself; sweeps never block one another.
type Scheduler struct {
	handlers      *handlers.Handlers
	conversations *conversation.Manager
	cache         *cache.ResponseCache
	ingest        handlers.IngestRunner
	profile       *profile.Profile

	group  *errgroup.Group
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. cache and ingest may be nil.
func NewScheduler(h *handlers.Handlers, conversations *conversation.Manager, responseCache *cache.ResponseCache, ingest handlers.IngestRunner, prof *profile.Profile) *Scheduler {
	return &Scheduler{
		handlers:      h,
		conversations: conversations,
		cache:         responseCache,
		ingest:        ingest,
		profile:       prof,
	}
}

// Start launches all sweep loops.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)

	s.group.Go(func() error {
		s.runEvery(ctx, "reminders", reminderSweepEvery, s.sweepReminders)
		return nil
	})
	s.group.Go(func() error {
		s.runEvery(ctx, "cache", cacheSweepEvery, s.sweepCache)
		return nil
	})
	s.group.Go(func() error {
		s.runEvery(ctx, "conversations", conversationSweepEvery, s.sweepConversations)
		return nil
	})
	s.group.Go(func() error {
		s.runWeekly(ctx, "catalog refresh", time.Sunday, 12, s.refreshCatalog)
		return nil
	})
	s.group.Go(func() error {
		s.runWeekly(ctx, "weekly announcement", time.Monday, 9, s.postAnnouncement)
		return nil
	})
	slog.Info("scheduler started")
}

// Stop cancels the sweep loops and waits for in-flight work, bounded by the
// shutdown grace period.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		slog.Warn("scheduler stop: grace period expired")
	}
}

func (s *Scheduler) runEvery(ctx context.Context, name string, every time.Duration, sweep func(context.Context)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx)
		}
	}
}

// runWeekly wakes at the given weekday and hour in the community timezone.
func (s *Scheduler) runWeekly(ctx context.Context, name string, day time.Weekday, hour int, sweep func(context.Context)) {
	loc := s.profile.Location()
	for {
		wait := time.Until(nextWeekly(time.Now().In(loc), day, hour))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			slog.Info("weekly sweep firing", "sweep", name)
			sweep(ctx)
		}
	}
}

// nextWeekly returns the next instant matching the weekday and hour strictly
// after now.
func nextWeekly(now time.Time, day time.Weekday, hour int) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	days := (int(day) - int(now.Weekday()) + 7) % 7
	at = at.AddDate(0, 0, days)
	if !at.After(now) {
		at = at.AddDate(0, 0, 7)
	}
	return at
}

func (s *Scheduler) sweepReminders(ctx context.Context) {
	now := time.Now()
	if err := s.handlers.DeliverDueReminders(ctx, now); err != nil {
		slog.Error("reminder sweep failed", "error", err)
	}
	s.handlers.RunPendingActions(ctx, now)
}

func (s *Scheduler) sweepCache(_ context.Context) {
	if s.cache == nil {
		return
	}
	removed := s.cache.Sweep()
	if removed > 0 {
		slog.Debug("cache sweep", "removed", removed)
	}
}

func (s *Scheduler) sweepConversations(_ context.Context) {
	if expired := s.conversations.Sweep(); expired > 0 {
		slog.Info("conversation sweep", "expired", expired)
	}
}

func (s *Scheduler) refreshCatalog(ctx context.Context) {
	if s.ingest == nil {
		return
	}
	summary, err := s.ingest(ctx)
	if err != nil {
		slog.Error("catalog refresh failed", "error", err)
		return
	}
	slog.Info("catalog refreshed",
		"processed", summary.Processed,
		"created", summary.Created,
		"updated", summary.Updated,
		"flagged", summary.Flagged,
		"failed", summary.Failed,
	)
}

func (s *Scheduler) postAnnouncement(ctx context.Context) {
	if err := s.handlers.PostWeeklyAnnouncement(ctx, time.Now()); err != nil {
		slog.Error("weekly announcement failed", "error", err)
	}
}
