package store

// CompletionStatus describes how far the streamer got with a game.
type CompletionStatus string

const (
	CompletionUnknown    CompletionStatus = "unknown"
	CompletionInProgress CompletionStatus = "in_progress"
	CompletionCompleted  CompletionStatus = "completed"
	CompletionDropped    CompletionStatus = "dropped"
)

// Valid reports whether s is one of the enumerated completion statuses.
func (s CompletionStatus) Valid() bool {
	switch s {
	case CompletionUnknown, CompletionInProgress, CompletionCompleted, CompletionDropped:
		return true
	}
	return false
}

// PlayedGame is the canonical catalog record of a game the streamer played.
type PlayedGame struct {
	ID                   int32
	CanonicalName        string
	AlternativeNames     []string
	SeriesName           string
	Genre                string
	ReleaseYear          *int
	CompletionStatus     CompletionStatus
	TotalEpisodes        int
	TotalPlaytimeMinutes int
	ExternalID           *int64 // metadata-service identifier
	Confidence           float64
	NeedsReview          bool
	LastValidatedTs      int64
	PlaylistURL          string
	StreamURLs           []string
	FirstPlayedTs        int64
	CreatedTs            int64
	UpdatedTs            int64
}

// FindPlayedGame filters catalog lookups.
type FindPlayedGame struct {
	ID               *int32
	CanonicalName    *string // case-insensitive exact match
	AlternativeName  *string // case-insensitive membership in alternative_names
	ExternalID       *int64
	CompletionStatus *CompletionStatus
	Genre            *string // case-insensitive exact match
	ReleaseYear      *int
	NeedsReview      *bool
}

// UpdatePlayedGame carries the mutable fields of a catalog entry.
// Nil fields are left untouched.
type UpdatePlayedGame struct {
	ID                   int32
	CanonicalName        *string
	AlternativeNames     *[]string
	SeriesName           *string
	Genre                *string
	ReleaseYear          *int
	CompletionStatus     *CompletionStatus
	TotalEpisodes        *int
	TotalPlaytimeMinutes *int
	ExternalID           *int64
	Confidence           *float64
	NeedsReview          *bool
	LastValidatedTs      *int64
	PlaylistURL          *string
	StreamURLs           *[]string
	FirstPlayedTs        *int64
	UpdatedTs            *int64
}
