package store

// Strike is the moderation strike ledger entry for a single user.
type Strike struct {
	UserID    string
	Count     int
	UpdatedTs int64
}

// FindStrike filters strike lookups.
type FindStrike struct {
	UserID  *string
	NonZero bool
}
