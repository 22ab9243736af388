// Package twitch fetches VOD archives and game names from the Helix API.
package twitch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/jonesycrew/ashbot/ai/cache"
)

const (
	defaultBaseURL = "https://api.twitch.tv/helix"
	tokenURL       = "https://id.twitch.tv/oauth2/token"

	// Per-page fetch budget.
	pageTimeout = 30 * time.Second

	gameNameTTL = 24 * time.Hour
)

// Video is one archived broadcast.
type Video struct {
	ID        string
	Title     string
	URL       string
	Duration  time.Duration
	ViewCount int64

	// GameID is the platform-native classification, when Twitch provides one.
	GameID string
}

// Client is an app-token Helix client.
type Client struct {
	httpClient *http.Client
	clientID   string
	baseURL    string
	gameNames  *cache.LRUCache[string, string]
}

// NewClient creates a Helix client using the client-credentials grant.
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
		gameNames:  cache.NewLRUCache[string, string](500, gameNameTTL),
	}
}

type videosResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		URL       string `json:"url"`
		Duration  string `json:"duration"`
		ViewCount int64  `json:"view_count"`
		GameID    string `json:"game_id"`
	} `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

// ListArchives returns up to maxVideos archived broadcasts for a user,
// newest first.
func (c *Client) ListArchives(ctx context.Context, userID string, maxVideos int) ([]Video, error) {
	if maxVideos <= 0 {
		maxVideos = 100
	}

	var videos []Video
	cursor := ""
	for len(videos) < maxVideos {
		page, next, err := c.fetchVideoPage(ctx, userID, cursor)
		if err != nil {
			return nil, err
		}
		videos = append(videos, page...)
		if next == "" || len(page) == 0 {
			break
		}
		cursor = next
	}

	if len(videos) > maxVideos {
		videos = videos[:maxVideos]
	}
	slog.Debug("Twitch: archives fetched", "user_id", userID, "count", len(videos))
	return videos, nil
}

func (c *Client) fetchVideoPage(ctx context.Context, userID, cursor string) ([]Video, string, error) {
	ctx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("type", "archive")
	params.Set("first", "100")
	if cursor != "" {
		params.Set("after", cursor)
	}

	var body videosResponse
	if err := c.getJSON(ctx, "/videos?"+params.Encode(), &body); err != nil {
		return nil, "", err
	}

	videos := make([]Video, 0, len(body.Data))
	for _, v := range body.Data {
		d, err := parseTwitchDuration(v.Duration)
		if err != nil {
			slog.Warn("Twitch: unparseable duration", "video_id", v.ID, "duration", v.Duration)
			d = 0
		}
		videos = append(videos, Video{
			ID:        v.ID,
			Title:     v.Title,
			URL:       v.URL,
			Duration:  d,
			ViewCount: v.ViewCount,
			GameID:    v.GameID,
		})
	}
	return videos, body.Pagination.Cursor, nil
}

type gamesResponse struct {
	Data []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

// GameName resolves a platform game identifier to its display name.
func (c *Client) GameName(ctx context.Context, gameID string) (string, error) {
	if name, ok := c.gameNames.Get(gameID); ok {
		return name, nil
	}

	ctx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()

	var body gamesResponse
	if err := c.getJSON(ctx, "/games?id="+url.QueryEscape(gameID), &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", errors.Errorf("twitch: unknown game id %s", gameID)
	}

	name := body.Data[0].Name
	c.gameNames.Set(gameID, name, gameNameTTL)
	return name, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "twitch request")
	}
	req.Header.Set("Client-Id", c.clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "twitch fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("twitch fetch: status %d: %s", resp.StatusCode, string(snippet))
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "twitch decode")
}

// parseTwitchDuration parses Helix duration strings like "3h20m10s".
// time.ParseDuration accepts the format directly.
func parseTwitchDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
