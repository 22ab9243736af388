package store

import "context"

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() any
	Close() error
	Migrate(ctx context.Context) error

	// Strike ledger
	GetStrike(ctx context.Context, userID string) (*Strike, error)
	SetStrike(ctx context.Context, userID string, count int) (*Strike, error)
	IncrementStrike(ctx context.Context, userID string) (*Strike, error)
	ListStrikes(ctx context.Context, find *FindStrike) ([]*Strike, error)

	// Game recommendations
	CreateRecommendation(ctx context.Context, create *Recommendation) (*Recommendation, error)
	ListRecommendations(ctx context.Context, find *FindRecommendation) ([]*Recommendation, error)
	DeleteRecommendation(ctx context.Context, id int32) error

	// Played-game catalog
	CreatePlayedGame(ctx context.Context, create *PlayedGame) (*PlayedGame, error)
	ListPlayedGames(ctx context.Context, find *FindPlayedGame) ([]*PlayedGame, error)
	UpdatePlayedGame(ctx context.Context, update *UpdatePlayedGame) (*PlayedGame, error)
	DeletePlayedGame(ctx context.Context, id int32) error

	// Reminders
	CreateReminder(ctx context.Context, create *Reminder) (*Reminder, error)
	ListReminders(ctx context.Context, find *FindReminder) ([]*Reminder, error)
	// TransitionReminder moves a reminder out of the pending state. The
	// update is guarded by a compare-and-set on the current status; it
	// returns false when the reminder was already transitioned.
	TransitionReminder(ctx context.Context, id int32, to ReminderStatus, ts int64, failReason string) (bool, error)

	// Trivia
	CreateTriviaQuestion(ctx context.Context, create *TriviaQuestion) (*TriviaQuestion, error)
	ListTriviaQuestions(ctx context.Context, find *FindTriviaQuestion) ([]*TriviaQuestion, error)
	UpdateTriviaQuestion(ctx context.Context, update *UpdateTriviaQuestion) (*TriviaQuestion, error)
	CreateTriviaSession(ctx context.Context, create *TriviaSession) (*TriviaSession, error)
	ListTriviaSessions(ctx context.Context, find *FindTriviaSession) ([]*TriviaSession, error)
	UpdateTriviaSession(ctx context.Context, update *UpdateTriviaSession) (*TriviaSession, error)
	CreateTriviaAnswer(ctx context.Context, create *TriviaAnswer) (*TriviaAnswer, error)
	ListTriviaAnswers(ctx context.Context, sessionID int32) ([]*TriviaAnswer, error)

	// Config
	GetConfig(ctx context.Context, key string) (string, bool, error)
	UpsertConfig(ctx context.Context, key, value string) error
}
