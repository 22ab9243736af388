package store

// Recommendation is a community game recommendation.
type Recommendation struct {
	ID        int32
	Name      string
	Reason    string
	AddedBy   string
	CreatedTs int64
}

// FindRecommendation filters recommendation lookups.
type FindRecommendation struct {
	ID   *int32
	Name *string // case-insensitive exact match
}
