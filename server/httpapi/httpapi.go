// Package httpapi serves the operational HTTP surface: liveness, Prometheus
// metrics, and an RSS feed of recent catalog activity for the community site.
package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"

	"github.com/jonesycrew/ashbot/ai/metrics"
	"github.com/jonesycrew/ashbot/internal/profile"
	"github.com/jonesycrew/ashbot/store"
)

// feedEntryLimit caps the games feed at the most recently touched entries.
const feedEntryLimit = 20

// Service mounts the bot's HTTP routes on an echo server.
type Service struct {
	profile  *profile.Profile
	store    *store.Store
	metrics  *metrics.Exporter
	markdown goldmark.Markdown
	started  time.Time
}

// NewService creates the HTTP surface. exporter may be nil, in which case no
// metrics route is mounted.
func NewService(prof *profile.Profile, st *store.Store, exporter *metrics.Exporter) *Service {
	return &Service{
		profile:  prof,
		store:    st,
		metrics:  exporter,
		markdown: goldmark.New(),
		started:  time.Now(),
	}
}

// Register mounts the routes.
func (s *Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.healthz)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
	e.GET("/feed/games.rss", s.gamesFeed)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

func (s *Service) healthz(c echo.Context) error {
	resp := healthResponse{
		Status:  "ok",
		Version: s.profile.Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}
	// A config read doubles as the repository probe.
	if _, _, err := s.store.GetConfig(c.Request().Context(), store.ConfigKeyAIEnabled); err != nil {
		resp.Status = "degraded"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Service) gamesFeed(c echo.Context) error {
	games, err := s.store.ListPlayedGames(c.Request().Context(), &store.FindPlayedGame{})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "catalog unavailable")
	}

	sort.Slice(games, func(i, j int) bool { return games[i].UpdatedTs > games[j].UpdatedTs })
	if len(games) > feedEntryLimit {
		games = games[:feedEntryLimit]
	}

	feed := &feeds.Feed{
		Title:       "Captain Jonesy: played games",
		Link:        &feeds.Link{Href: "https://www.youtube.com/@CaptainJonesy"},
		Description: "Recent catalog activity from the stream archive, compiled by Ash.",
		Created:     s.started,
	}
	if len(games) > 0 {
		feed.Updated = time.Unix(games[0].UpdatedTs, 0)
	}

	for _, g := range games {
		item := &feeds.Item{
			Id:          fmt.Sprintf("ashbot:game:%d", g.ID),
			Title:       g.CanonicalName,
			Description: s.entryBody(g),
			Created:     time.Unix(g.CreatedTs, 0),
			Updated:     time.Unix(g.UpdatedTs, 0),
		}
		if g.PlaylistURL != "" {
			item.Link = &feeds.Link{Href: g.PlaylistURL}
		} else if len(g.StreamURLs) > 0 {
			item.Link = &feeds.Link{Href: g.StreamURLs[0]}
		} else {
			item.Link = &feeds.Link{Href: feed.Link.Href}
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "feed rendering failed")
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

// entryBody renders one catalog entry as a markdown fact sheet and converts
// it to HTML for the feed body.
func (s *Service) entryBody(g *store.PlayedGame) string {
	var md bytes.Buffer
	fmt.Fprintf(&md, "**%s**\n\n", g.CanonicalName)
	fmt.Fprintf(&md, "- Status: %s\n", completionLabel(g.CompletionStatus))
	if g.TotalEpisodes > 0 {
		fmt.Fprintf(&md, "- Episodes: %d\n", g.TotalEpisodes)
	}
	if g.TotalPlaytimeMinutes > 0 {
		fmt.Fprintf(&md, "- Playtime: %dh %dm\n", g.TotalPlaytimeMinutes/60, g.TotalPlaytimeMinutes%60)
	}
	if g.SeriesName != "" {
		fmt.Fprintf(&md, "- Series: %s\n", g.SeriesName)
	}
	if g.Genre != "" {
		fmt.Fprintf(&md, "- Genre: %s\n", g.Genre)
	}
	if g.ReleaseYear != nil {
		fmt.Fprintf(&md, "- Released: %d\n", *g.ReleaseYear)
	}

	var html bytes.Buffer
	if err := s.markdown.Convert(md.Bytes(), &html); err != nil {
		return md.String()
	}
	return html.String()
}

func completionLabel(status store.CompletionStatus) string {
	switch status {
	case store.CompletionInProgress:
		return "in progress"
	case store.CompletionCompleted:
		return "completed"
	case store.CompletionDropped:
		return "dropped"
	default:
		return "unknown"
	}
}
