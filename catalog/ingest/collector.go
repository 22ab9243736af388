package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonesycrew/ashbot/catalog/twitch"
	"github.com/jonesycrew/ashbot/catalog/youtube"
)

// playlistFetchers bounds concurrent playlist-item fetches.
const playlistFetchers = 4

// Collector assembles ingestion records from the video and stream services.
type Collector struct {
	youtube       *youtube.Client
	twitch        *twitch.Client
	channelID     string
	twitchUserID  string
	maxTwitchVODs int
}

// NewCollector creates a collector. Either client may be nil, in which case
// that source is skipped.
func NewCollector(yt *youtube.Client, tw *twitch.Client, channelID, twitchUserID string) *Collector {
	return &Collector{
		youtube:       yt,
		twitch:        tw,
		channelID:     channelID,
		twitchUserID:  twitchUserID,
		maxTwitchVODs: 100,
	}
}

// Collect gathers records from both sources. Per-source failures are logged
// and the other source still contributes.
func (c *Collector) Collect(ctx context.Context) ([]Record, error) {
	var records []Record

	if c.youtube != nil && c.channelID != "" {
		ytRecords, err := c.collectYouTube(ctx)
		if err != nil {
			slog.Warn("catalog collect: youtube failed", "error", err)
		} else {
			records = append(records, ytRecords...)
		}
	}

	if c.twitch != nil && c.twitchUserID != "" {
		twRecords, err := c.collectTwitch(ctx)
		if err != nil {
			slog.Warn("catalog collect: twitch failed", "error", err)
		} else {
			records = append(records, twRecords...)
		}
	}

	slog.Info("catalog collect: records assembled", "count", len(records))
	return records, ctx.Err()
}

// collectYouTube turns each playlist into one record: the playlist title is
// the extraction source, item count is the episode count, and playtime sums
// the per-item durations.
func (c *Collector) collectYouTube(ctx context.Context) ([]Record, error) {
	playlists, err := c.youtube.ListPlaylists(ctx, c.channelID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var records []Record

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(playlistFetchers)
	for _, pl := range playlists {
		pl := pl
		g.Go(func() error {
			rec, err := c.playlistRecord(gctx, pl)
			if err != nil {
				slog.Warn("catalog collect: playlist skipped", "playlist_id", pl.ID, "error", err)
				return nil
			}
			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Collector) playlistRecord(ctx context.Context, pl youtube.Playlist) (Record, error) {
	items, err := c.youtube.ListItems(ctx, pl.ID)
	if err != nil {
		return Record{}, err
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.VideoID)
	}
	details, err := c.youtube.VideoDetails(ctx, ids)
	if err != nil {
		return Record{}, err
	}

	var playtime time.Duration
	var views int64
	for _, d := range details {
		playtime += d.Duration
		views += d.ViewCount
	}

	return Record{
		Title:           pl.Title,
		PlaylistID:      pl.ID,
		PlaylistURL:     pl.URL(),
		PlaylistTitle:   pl.Title,
		Episodes:        pl.ItemCount,
		PlaytimeMinutes: int(playtime.Minutes()),
		ViewCount:       views,
	}, nil
}

func (c *Collector) collectTwitch(ctx context.Context) ([]Record, error) {
	videos, err := c.twitch.ListArchives(ctx, c.twitchUserID, c.maxTwitchVODs)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(videos))
	for _, v := range videos {
		records = append(records, Record{
			Title:           v.Title,
			StreamURL:       v.URL,
			Episodes:        1,
			PlaytimeMinutes: int(v.Duration.Minutes()),
			ViewCount:       v.ViewCount,
			PlatformGameID:  v.GameID,
		})
	}
	return records, nil
}
