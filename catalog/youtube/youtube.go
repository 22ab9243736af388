// Package youtube fetches playlists, playlist items, and video details from
// the YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"

	pageTimeout = 30 * time.Second
	pageSize    = 50
)

// Playlist is one channel playlist.
type Playlist struct {
	ID        string
	Title     string
	ItemCount int
}

// Completed reports whether the playlist title carries the completion tag.
func (p Playlist) Completed() bool {
	return strings.Contains(strings.ToUpper(p.Title), "[COMPLETED]")
}

// URL returns the public playlist URL.
func (p Playlist) URL() string {
	return "https://www.youtube.com/playlist?list=" + p.ID
}

// PlaylistIDFromURL extracts the playlist id from a public playlist URL.
// Returns empty when the URL carries no list parameter.
func PlaylistIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("list")
}

// Item is one playlist entry.
type Item struct {
	VideoID string
	Title   string
}

// VideoDetail carries per-video duration and view statistics.
type VideoDetail struct {
	ID        string
	Duration  time.Duration
	ViewCount int64
}

// Client is an API-key YouTube Data client.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewClient creates a client.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: pageTimeout},
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
	}
}

type playlistsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
		ContentDetails struct {
			ItemCount int `json:"itemCount"`
		} `json:"contentDetails"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// ListPlaylists returns all playlists on a channel.
func (c *Client) ListPlaylists(ctx context.Context, channelID string) ([]Playlist, error) {
	var playlists []Playlist
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("part", "snippet,contentDetails")
		params.Set("channelId", channelID)
		params.Set("maxResults", strconv.Itoa(pageSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var body playlistsResponse
		if err := c.getJSON(ctx, "/playlists", params, &body); err != nil {
			return nil, err
		}
		for _, it := range body.Items {
			playlists = append(playlists, Playlist{
				ID:        it.ID,
				Title:     it.Snippet.Title,
				ItemCount: it.ContentDetails.ItemCount,
			})
		}
		if body.NextPageToken == "" {
			break
		}
		pageToken = body.NextPageToken
	}

	slog.Debug("YouTube: playlists fetched", "channel_id", channelID, "count", len(playlists))
	return playlists, nil
}

type playlistItemsResponse struct {
	Items []struct {
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// ListItems returns all entries of a playlist.
func (c *Client) ListItems(ctx context.Context, playlistID string) ([]Item, error) {
	var items []Item
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("part", "snippet,contentDetails")
		params.Set("playlistId", playlistID)
		params.Set("maxResults", strconv.Itoa(pageSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var body playlistItemsResponse
		if err := c.getJSON(ctx, "/playlistItems", params, &body); err != nil {
			return nil, err
		}
		for _, it := range body.Items {
			items = append(items, Item{
				VideoID: it.ContentDetails.VideoID,
				Title:   it.Snippet.Title,
			})
		}
		if body.NextPageToken == "" {
			break
		}
		pageToken = body.NextPageToken
	}
	return items, nil
}

type videosResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// VideoDetails returns duration and view counts for up to 50 video ids per
// underlying request.
func (c *Client) VideoDetails(ctx context.Context, videoIDs []string) ([]VideoDetail, error) {
	var details []VideoDetail
	for start := 0; start < len(videoIDs); start += pageSize {
		end := start + pageSize
		if end > len(videoIDs) {
			end = len(videoIDs)
		}

		params := url.Values{}
		params.Set("part", "contentDetails,statistics")
		params.Set("id", strings.Join(videoIDs[start:end], ","))

		var body videosResponse
		if err := c.getJSON(ctx, "/videos", params, &body); err != nil {
			return nil, err
		}
		for _, it := range body.Items {
			d, err := ParseISODuration(it.ContentDetails.Duration)
			if err != nil {
				slog.Warn("YouTube: unparseable duration", "video_id", it.ID, "duration", it.ContentDetails.Duration)
			}
			views, _ := strconv.ParseInt(it.Statistics.ViewCount, 10, 64)
			details = append(details, VideoDetail{ID: it.ID, Duration: d, ViewCount: views})
		}
	}
	return details, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "youtube request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "youtube fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("youtube fetch: status %d: %s", resp.StatusCode, string(snippet))
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "youtube decode")
}

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration parses the ISO 8601 durations the API returns, e.g.
// "PT1H23M45S" or "P1DT2H".
func ParseISODuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.Errorf("invalid ISO 8601 duration %q", s)
	}
	part := func(idx int) int64 {
		if m[idx] == "" {
			return 0
		}
		n, _ := strconv.ParseInt(m[idx], 10, 64)
		return n
	}
	d := time.Duration(part(1))*24*time.Hour +
		time.Duration(part(2))*time.Hour +
		time.Duration(part(3))*time.Minute +
		time.Duration(part(4))*time.Second
	return d, nil
}
