// Package store provides database access to all durable bot state.
package store

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/internal/profile"
)

// Reminder text bounds.
const (
	MinReminderTextLen = 3
	MaxReminderTextLen = 2000
)

// Sentinel errors surfaced to handlers.
var (
	// ErrStreamerImmune is returned when a strike write targets the
	// streamer identity.
	ErrStreamerImmune = errors.New("streamer identity cannot accrue strikes")
	// ErrInvalidReminder is returned for reminders failing validation.
	ErrInvalidReminder = errors.New("invalid reminder")
	// ErrInvalidGame is returned for catalog entries failing validation.
	ErrInvalidGame = errors.New("invalid catalog entry")
)

// Store provides typed access to all raw objects. It is the only arbiter of
// durable state; every mutation funnels through it so the data invariants
// are enforced in one place.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// --- Strikes ---

func (s *Store) GetStrike(ctx context.Context, userID string) (*Strike, error) {
	return s.driver.GetStrike(ctx, userID)
}

// IncrementStrike adds one strike to the user. The streamer identity is
// immune; attempts are rejected and logged so moderators can spot misfires.
func (s *Store) IncrementStrike(ctx context.Context, userID string) (*Strike, error) {
	if s.profile.StreamerUserID != "" && userID == s.profile.StreamerUserID {
		slog.Warn("strike attempt on streamer identity rejected", "user_id", userID)
		return nil, ErrStreamerImmune
	}
	return s.driver.IncrementStrike(ctx, userID)
}

func (s *Store) ResetStrikes(ctx context.Context, userID string) (*Strike, error) {
	return s.driver.SetStrike(ctx, userID, 0)
}

func (s *Store) ListStrikes(ctx context.Context, find *FindStrike) ([]*Strike, error) {
	return s.driver.ListStrikes(ctx, find)
}

// --- Recommendations ---

func (s *Store) CreateRecommendation(ctx context.Context, create *Recommendation) (*Recommendation, error) {
	if strings.TrimSpace(create.Name) == "" {
		return nil, errors.Wrap(ErrInvalidGame, "recommendation name is empty")
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	return s.driver.CreateRecommendation(ctx, create)
}

func (s *Store) ListRecommendations(ctx context.Context, find *FindRecommendation) ([]*Recommendation, error) {
	return s.driver.ListRecommendations(ctx, find)
}

func (s *Store) DeleteRecommendation(ctx context.Context, id int32) error {
	return s.driver.DeleteRecommendation(ctx, id)
}

// --- Played games ---

func (s *Store) CreatePlayedGame(ctx context.Context, create *PlayedGame) (*PlayedGame, error) {
	if err := normalizePlayedGame(create); err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	create.UpdatedTs = now
	return s.driver.CreatePlayedGame(ctx, create)
}

func (s *Store) GetPlayedGame(ctx context.Context, find *FindPlayedGame) (*PlayedGame, error) {
	list, err := s.driver.ListPlayedGames(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) ListPlayedGames(ctx context.Context, find *FindPlayedGame) ([]*PlayedGame, error) {
	return s.driver.ListPlayedGames(ctx, find)
}

func (s *Store) UpdatePlayedGame(ctx context.Context, update *UpdatePlayedGame) (*PlayedGame, error) {
	if update.CanonicalName != nil && strings.TrimSpace(*update.CanonicalName) == "" {
		return nil, errors.Wrap(ErrInvalidGame, "canonical name cannot be emptied")
	}
	if update.CompletionStatus != nil && !update.CompletionStatus.Valid() {
		return nil, errors.Wrapf(ErrInvalidGame, "unknown completion status %q", *update.CompletionStatus)
	}
	if update.TotalEpisodes != nil && *update.TotalEpisodes < 0 {
		return nil, errors.Wrap(ErrInvalidGame, "episode count cannot be negative")
	}
	if update.TotalPlaytimeMinutes != nil && *update.TotalPlaytimeMinutes < 0 {
		return nil, errors.Wrap(ErrInvalidGame, "playtime cannot be negative")
	}
	if update.AlternativeNames != nil {
		clean := SanitizeAltNames(*update.AlternativeNames)
		update.AlternativeNames = &clean
	}
	if update.Confidence != nil {
		c := clampConfidence(*update.Confidence)
		update.Confidence = &c
	}
	if update.UpdatedTs == nil {
		now := time.Now().Unix()
		update.UpdatedTs = &now
	}
	return s.driver.UpdatePlayedGame(ctx, update)
}

func (s *Store) DeletePlayedGame(ctx context.Context, id int32) error {
	return s.driver.DeletePlayedGame(ctx, id)
}

func normalizePlayedGame(g *PlayedGame) error {
	g.CanonicalName = strings.TrimSpace(g.CanonicalName)
	if g.CanonicalName == "" {
		return errors.Wrap(ErrInvalidGame, "canonical name is empty")
	}
	if g.CompletionStatus == "" {
		g.CompletionStatus = CompletionUnknown
	}
	if !g.CompletionStatus.Valid() {
		return errors.Wrapf(ErrInvalidGame, "unknown completion status %q", g.CompletionStatus)
	}
	if g.TotalEpisodes < 0 || g.TotalPlaytimeMinutes < 0 {
		return errors.Wrap(ErrInvalidGame, "episode and playtime counters must be nonnegative")
	}
	g.AlternativeNames = SanitizeAltNames(g.AlternativeNames)
	g.Confidence = clampConfidence(g.Confidence)
	// High confidence without a metadata identifier is contradictory; demote
	// below the accept threshold and flag for review instead of persisting a
	// record that claims validation it never had.
	if g.Confidence >= 0.8 && g.ExternalID == nil {
		slog.Warn("demoting unvalidated high-confidence entry", "name", g.CanonicalName, "confidence", g.Confidence)
		g.Confidence = 0.75
		g.NeedsReview = true
	}
	return nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// --- Reminders ---

func (s *Store) CreateReminder(ctx context.Context, create *Reminder) (*Reminder, error) {
	if err := ValidateReminderText(create.Text); err != nil {
		return nil, err
	}
	if create.ScheduledTs <= time.Now().Unix() {
		return nil, errors.Wrap(ErrInvalidReminder, "scheduled time is in the past")
	}
	switch create.DeliveryKind {
	case DeliverChannel:
		if create.ChannelID == "" {
			return nil, errors.Wrap(ErrInvalidReminder, "channel delivery requires a channel id")
		}
	case DeliverDirectMessage:
	default:
		return nil, errors.Wrapf(ErrInvalidReminder, "unknown delivery kind %q", create.DeliveryKind)
	}
	create.Status = ReminderPending
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	return s.driver.CreateReminder(ctx, create)
}

func (s *Store) GetReminder(ctx context.Context, id int32) (*Reminder, error) {
	list, err := s.driver.ListReminders(ctx, &FindReminder{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) ListReminders(ctx context.Context, find *FindReminder) ([]*Reminder, error) {
	return s.driver.ListReminders(ctx, find)
}

// ListDueReminders returns pending reminders scheduled at or before now,
// ordered by scheduled instant then identifier.
func (s *Store) ListDueReminders(ctx context.Context, now time.Time) ([]*Reminder, error) {
	pending := ReminderPending
	due := now.Unix()
	return s.driver.ListReminders(ctx, &FindReminder{Status: &pending, DueBefore: &due})
}

// MarkReminderDelivered transitions pending → delivered. Returns false when
// another worker already transitioned the record.
func (s *Store) MarkReminderDelivered(ctx context.Context, id int32) (bool, error) {
	return s.driver.TransitionReminder(ctx, id, ReminderDelivered, time.Now().Unix(), "")
}

// MarkReminderFailed transitions pending → failed, recording the cause.
func (s *Store) MarkReminderFailed(ctx context.Context, id int32, reason string) (bool, error) {
	return s.driver.TransitionReminder(ctx, id, ReminderFailed, time.Now().Unix(), reason)
}

// CancelReminder transitions pending → cancelled.
func (s *Store) CancelReminder(ctx context.Context, id int32) (bool, error) {
	return s.driver.TransitionReminder(ctx, id, ReminderCancelled, time.Now().Unix(), "")
}

// ValidateReminderText rejects text that is too short, too long, purely
// whitespace or punctuation, a single repeated letter, or purely numeric.
func ValidateReminderText(text string) error {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < MinReminderTextLen {
		return errors.Wrapf(ErrInvalidReminder, "reminder text must be at least %d characters", MinReminderTextLen)
	}
	if len(trimmed) > MaxReminderTextLen {
		return errors.Wrapf(ErrInvalidReminder, "reminder text must be at most %d characters", MaxReminderTextLen)
	}
	hasLetter := false
	allDigits := true
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			allDigits = false
		}
	}
	if !hasLetter && allDigits {
		return errors.Wrap(ErrInvalidReminder, "reminder text cannot be purely numeric")
	}
	onlyPunct := true
	for _, r := range trimmed {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			onlyPunct = false
			break
		}
	}
	if onlyPunct {
		return errors.Wrap(ErrInvalidReminder, "reminder text cannot be punctuation only")
	}
	letters := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, trimmed)
	if len(letters) > 0 && strings.Count(letters, letters[:1]) == len(letters) && len(trimmed) < 5 {
		return errors.Wrap(ErrInvalidReminder, "reminder text is a single repeated letter")
	}
	return nil
}

// --- Trivia ---

func (s *Store) CreateTriviaQuestion(ctx context.Context, create *TriviaQuestion) (*TriviaQuestion, error) {
	if strings.TrimSpace(create.Text) == "" || strings.TrimSpace(create.CorrectAnswer) == "" {
		return nil, errors.New("trivia question requires text and a correct answer")
	}
	if create.Status == "" {
		create.Status = TriviaPending
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	return s.driver.CreateTriviaQuestion(ctx, create)
}

func (s *Store) ListTriviaQuestions(ctx context.Context, find *FindTriviaQuestion) ([]*TriviaQuestion, error) {
	return s.driver.ListTriviaQuestions(ctx, find)
}

func (s *Store) UpdateTriviaQuestion(ctx context.Context, update *UpdateTriviaQuestion) (*TriviaQuestion, error) {
	return s.driver.UpdateTriviaQuestion(ctx, update)
}

func (s *Store) CreateTriviaSession(ctx context.Context, create *TriviaSession) (*TriviaSession, error) {
	if create.StartedTs == 0 {
		create.StartedTs = time.Now().Unix()
	}
	if create.State == "" {
		create.State = TriviaSessionActive
	}
	return s.driver.CreateTriviaSession(ctx, create)
}

func (s *Store) ListTriviaSessions(ctx context.Context, find *FindTriviaSession) ([]*TriviaSession, error) {
	return s.driver.ListTriviaSessions(ctx, find)
}

func (s *Store) UpdateTriviaSession(ctx context.Context, update *UpdateTriviaSession) (*TriviaSession, error) {
	return s.driver.UpdateTriviaSession(ctx, update)
}

func (s *Store) CreateTriviaAnswer(ctx context.Context, create *TriviaAnswer) (*TriviaAnswer, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	return s.driver.CreateTriviaAnswer(ctx, create)
}

func (s *Store) ListTriviaAnswers(ctx context.Context, sessionID int32) ([]*TriviaAnswer, error) {
	return s.driver.ListTriviaAnswers(ctx, sessionID)
}

// --- Config ---

func (s *Store) GetConfig(ctx context.Context, key string) (string, bool, error) {
	return s.driver.GetConfig(ctx, key)
}

func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	return s.driver.UpsertConfig(ctx, key, value)
}

// GetConfigBool reads a boolean config entry, returning fallback when unset.
func (s *Store) GetConfigBool(ctx context.Context, key string, fallback bool) (bool, error) {
	v, ok, err := s.driver.GetConfig(ctx, key)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	return v == "true" || v == "1", nil
}
