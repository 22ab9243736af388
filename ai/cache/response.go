// Package cache provides the prompt/response cache that fronts the AI
// dispatcher, plus a generic LRU used by metadata lookups.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jonesycrew/ashbot/internal/fuzzy"
)

// QueryType classifies a prompt for TTL selection.
type QueryType string

const (
	QueryFAQ         QueryType = "faq"
	QueryGaming      QueryType = "gaming_query"
	QueryPersonality QueryType = "personality"
	QueryTrivia      QueryType = "trivia"
	QueryGeneral     QueryType = "general"
)

// TTL returns how long a cached response of this type stays valid.
func (t QueryType) TTL() time.Duration {
	switch t {
	case QueryFAQ:
		return 86400 * time.Second
	case QueryGaming:
		return 21600 * time.Second
	case QueryPersonality:
		return 43200 * time.Second
	case QueryTrivia:
		return 604800 * time.Second
	default:
		return 10800 * time.Second
	}
}

var queryTypePatterns = []struct {
	queryType QueryType
	pattern   *regexp.Regexp
}{
	{QueryTrivia, regexp.MustCompile(`\btrivia\b`)},
	{QueryGaming, regexp.MustCompile(`\b(game|games|play|played|genre|episode|episodes|playthrough|stream)\b`)},
	{QueryFAQ, regexp.MustCompile(`^(what|how|when|where|who|why)\b`)},
	{QueryPersonality, regexp.MustCompile(`\b(you|your|yourself)\b`)},
}

// DetectQueryType maps a prompt to a query type via the pattern table.
// First match wins; unmatched prompts are general.
func DetectQueryType(prompt string) QueryType {
	normalized := strings.ToLower(strings.TrimSpace(prompt))
	for _, p := range queryTypePatterns {
		if p.pattern.MatchString(normalized) {
			return p.queryType
		}
	}
	return QueryGeneral
}

var (
	fillerPattern        = regexp.MustCompile(`\b(please|can you|could you|would you)\b`)
	trailingPunctPattern = regexp.MustCompile(`[.!?]+$`)
)

// Normalize canonicalizes a prompt before fingerprinting: lowercase, filler
// removal, whitespace collapse, trailing punctuation strip.
func Normalize(query string) string {
	s := strings.ToLower(strings.TrimSpace(query))
	s = fillerPattern.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	s = trailingPunctPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Fingerprint hashes a normalized prompt into the exact-match key.
func Fingerprint(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

const (
	defaultSimilarityThreshold = 0.85

	// Similarity search scans at most this many entries per lookup.
	similaritySampleLimit = 1000

	// Expired entries are swept on write once the cache passes this size,
	// every sweepStride writes.
	sweepMinSize = 500
	sweepStride  = 50
)

type responseEntry struct {
	normalized string
	response   string
	queryType  QueryType
	createdAt  time.Time
	expiresAt  time.Time
	hits       int64
}

// ResponseStats is a point-in-time snapshot of cache effectiveness.
type ResponseStats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	TotalQueries  int64   `json:"total_queries"`
	HitRate       float64 `json:"hit_rate"`
	CacheSize     int     `json:"cache_size"`
	APICallsSaved int64   `json:"api_calls_saved"`
}

// ResponseCache keeps short-lived prompt-to-response answers to reduce
// provider calls. Lookups try an exact fingerprint first, then a bounded
// similarity scan over normalized prompts.
type ResponseCache struct {
	mu        sync.Mutex
	entries   map[string]*responseEntry
	threshold float64
	hits      int64
	misses    int64
	queries   int64
}

// NewResponseCache creates a response cache. A non-positive threshold falls
// back to 0.85.
func NewResponseCache(threshold float64) *ResponseCache {
	if threshold <= 0 || threshold > 1 {
		threshold = defaultSimilarityThreshold
	}
	return &ResponseCache{
		entries:   make(map[string]*responseEntry),
		threshold: threshold,
	}
}

// Get returns a cached response for the query, if any.
func (c *ResponseCache) Get(query string) (string, bool) {
	now := time.Now()
	normalized := Normalize(query)
	fp := Fingerprint(normalized)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.queries++

	if e, ok := c.entries[fp]; ok {
		if now.After(e.expiresAt) {
			delete(c.entries, fp)
		} else {
			e.hits++
			c.hits++
			return e.response, true
		}
	}

	// Similarity fallback. Map iteration order is randomized, so breaking
	// after the sample limit approximates a uniform sample on large caches.
	var best *responseEntry
	bestRatio := 0.0
	scanned := 0
	sampled := len(c.entries) > similaritySampleLimit
	for _, e := range c.entries {
		if sampled && scanned >= similaritySampleLimit {
			break
		}
		scanned++
		if now.After(e.expiresAt) {
			continue
		}
		r := fuzzy.Ratio(normalized, e.normalized)
		if r >= c.threshold && r > bestRatio {
			best, bestRatio = e, r
		}
	}
	if best != nil {
		best.hits++
		c.hits++
		return best.response, true
	}

	c.misses++
	return "", false
}

// Set stores a response. An empty queryType is auto-detected from the query.
func (c *ResponseCache) Set(query, response string, queryType QueryType) {
	if queryType == "" {
		queryType = DetectQueryType(query)
	}
	now := time.Now()
	normalized := Normalize(query)
	fp := Fingerprint(normalized)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) > sweepMinSize && len(c.entries)%sweepStride == 0 {
		c.sweepLocked(now)
	}

	c.entries[fp] = &responseEntry{
		normalized: normalized,
		response:   response,
		queryType:  queryType,
		createdAt:  now,
		expiresAt:  now.Add(queryType.TTL()),
	}
}

// Sweep purges expired entries and returns how many were removed.
func (c *ResponseCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(time.Now())
}

func (c *ResponseCache) sweepLocked(now time.Time) int {
	removed := 0
	for fp, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, fp)
			removed++
		}
	}
	return removed
}

// Size returns the number of entries, expired included.
func (c *ResponseCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of cache effectiveness counters.
func (c *ResponseCache) Stats() ResponseStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := ResponseStats{
		Hits:          c.hits,
		Misses:        c.misses,
		TotalQueries:  c.queries,
		CacheSize:     len(c.entries),
		APICallsSaved: c.hits,
	}
	if c.queries > 0 {
		stats.HitRate = float64(c.hits) / float64(c.queries)
	}
	return stats
}
