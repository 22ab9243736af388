// Package igdb looks up game metadata from the IGDB v4 API.
package igdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/jonesycrew/ashbot/ai/cache"
	"github.com/jonesycrew/ashbot/store"
)

const (
	defaultBaseURL = "https://api.igdb.com/v4"
	tokenURL       = "https://id.twitch.tv/oauth2/token"

	callTimeout = 10 * time.Second

	// IGDB allows 4 requests per second per client.
	requestsPerSecond = 4

	cacheTTL      = time.Hour
	cacheCapacity = 2000
)

// ErrNotFound is returned when a search yields no usable match.
var ErrNotFound = errors.New("igdb: no matching game")

// Game is a metadata record for one game.
type Game struct {
	ID               int64
	Name             string
	AlternativeNames []string
	Genres           []string
	Series           string
	ReleaseYear      int
}

// Client is a rate-limited, cached IGDB client.
type Client struct {
	httpClient *http.Client
	clientID   string
	baseURL    string
	limiter    *rate.Limiter
	cache      *cache.LRUCache[string, *Game]
}

// NewClient creates a client. Credentials are exchanged for an app token via
// the Twitch OAuth endpoint on first use.
func NewClient(clientID, clientSecret string) *Client {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	return &Client{
		httpClient: cfg.Client(context.Background()),
		clientID:   clientID,
		baseURL:    defaultBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		cache:      cache.NewLRUCache[string, *Game](cacheCapacity, cacheTTL),
	}
}

type apiGame struct {
	ID               int64 `json:"id"`
	Name             string `json:"name"`
	AlternativeNames []struct {
		Name string `json:"name"`
	} `json:"alternative_names"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Collection struct {
		Name string `json:"name"`
	} `json:"collection"`
	FirstReleaseDate int64 `json:"first_release_date"`
}

// SearchGame finds the best metadata match for a title. Results are cached
// for an hour, misses included.
func (c *Client) SearchGame(ctx context.Context, title string) (*Game, error) {
	key := strings.ToLower(strings.TrimSpace(title))
	if key == "" {
		return nil, ErrNotFound
	}
	if g, ok := c.cache.Get(key); ok {
		if g == nil {
			return nil, ErrNotFound
		}
		return g, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "igdb rate wait")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	query := fmt.Sprintf(
		`search %q; fields id,name,alternative_names.name,genres.name,collection.name,first_release_date; limit 5;`,
		title,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/games", bytes.NewBufferString(query))
	if err != nil {
		return nil, errors.Wrap(err, "igdb request")
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "igdb search")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("igdb search: status %d: %s", resp.StatusCode, string(body))
	}

	var results []apiGame
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, errors.Wrap(err, "igdb decode")
	}

	if len(results) == 0 {
		c.cache.Set(key, nil, cacheTTL)
		slog.Debug("IGDB: no results", "title", title)
		return nil, ErrNotFound
	}

	// IGDB ranks search results itself; take the first.
	g := convertGame(&results[0])
	c.cache.Set(key, g, cacheTTL)

	slog.Debug("IGDB: matched",
		"title", title,
		"canonical", g.Name,
		"external_id", g.ID,
		"alt_names", len(g.AlternativeNames),
	)
	return g, nil
}

func convertGame(a *apiGame) *Game {
	g := &Game{
		ID:     a.ID,
		Name:   a.Name,
		Series: a.Collection.Name,
	}
	names := make([]string, 0, len(a.AlternativeNames))
	for _, n := range a.AlternativeNames {
		names = append(names, n.Name)
	}
	g.AlternativeNames = store.SanitizeAltNames(names)
	for _, genre := range a.Genres {
		g.Genres = append(g.Genres, genre.Name)
	}
	if a.FirstReleaseDate > 0 {
		g.ReleaseYear = time.Unix(a.FirstReleaseDate, 0).UTC().Year()
	}
	return g
}

// PrimaryGenre returns the first genre, or empty.
func (g *Game) PrimaryGenre() string {
	if len(g.Genres) == 0 {
		return ""
	}
	return g.Genres[0]
}
