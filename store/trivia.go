package store

// TriviaQuestionType distinguishes free-text from multiple-choice questions.
type TriviaQuestionType string

const (
	TriviaSingleAnswer   TriviaQuestionType = "single_answer"
	TriviaMultipleChoice TriviaQuestionType = "multiple_choice"
)

// TriviaApproval is the moderation state of a submitted question.
type TriviaApproval string

const (
	TriviaPending  TriviaApproval = "pending"
	TriviaApproved TriviaApproval = "approved"
	TriviaRejected TriviaApproval = "rejected"
)

// TriviaSessionState is the lifecycle state of a trivia round.
type TriviaSessionState string

const (
	TriviaSessionActive    TriviaSessionState = "active"
	TriviaSessionCompleted TriviaSessionState = "completed"
	TriviaSessionCancelled TriviaSessionState = "cancelled"
)

// TriviaQuestion is a community-submitted question.
type TriviaQuestion struct {
	ID            int32
	Text          string
	Type          TriviaQuestionType
	CorrectAnswer string
	Choices       []string
	SubmittedBy   string
	Status        TriviaApproval
	Category      string
	CreatedTs     int64
}

// FindTriviaQuestion filters question lookups.
type FindTriviaQuestion struct {
	ID     *int32
	Status *TriviaApproval
}

// UpdateTriviaQuestion carries mutable question fields; nil means unchanged.
type UpdateTriviaQuestion struct {
	ID            int32
	Text          *string
	CorrectAnswer *string
	Choices       *[]string
	Status        *TriviaApproval
	Category      *string
}

// TriviaSession is one active round bound to a posted question message.
type TriviaSession struct {
	ID                int32
	UID               string
	QuestionID        int32
	State             TriviaSessionState
	ChannelID         string
	QuestionMessageID string
	StartedTs         int64
	EndedTs           *int64
}

// FindTriviaSession filters session lookups.
type FindTriviaSession struct {
	ID                *int32
	State             *TriviaSessionState
	QuestionMessageID *string
}

// UpdateTriviaSession carries mutable session fields; nil means unchanged.
type UpdateTriviaSession struct {
	ID                int32
	State             *TriviaSessionState
	QuestionMessageID *string
	EndedTs           *int64
}

// TriviaAnswer is one submitted answer within a session.
type TriviaAnswer struct {
	SessionID int32
	UserID    string
	Text      string
	Score     float64
	MatchKind string
	Ordinal   int
	CreatedTs int64
}
