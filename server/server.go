// Package server assembles the bot process: the Discord gateway and router,
// the AI dispatch stack, catalog ingestion, the sweep scheduler, and the HTTP
// status surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/ai"
	"github.com/jonesycrew/ashbot/ai/cache"
	"github.com/jonesycrew/ashbot/ai/llm"
	"github.com/jonesycrew/ashbot/ai/metrics"
	"github.com/jonesycrew/ashbot/ai/ratelimit"
	"github.com/jonesycrew/ashbot/bot"
	"github.com/jonesycrew/ashbot/bot/conversation"
	"github.com/jonesycrew/ashbot/bot/discord"
	"github.com/jonesycrew/ashbot/bot/handlers"
	"github.com/jonesycrew/ashbot/bot/trivia"
	"github.com/jonesycrew/ashbot/catalog/igdb"
	"github.com/jonesycrew/ashbot/catalog/ingest"
	"github.com/jonesycrew/ashbot/catalog/titleextract"
	"github.com/jonesycrew/ashbot/catalog/twitch"
	"github.com/jonesycrew/ashbot/catalog/youtube"
	"github.com/jonesycrew/ashbot/internal/profile"
	"github.com/jonesycrew/ashbot/server/httpapi"
	"github.com/jonesycrew/ashbot/store"
)

// Server is the assembled bot process.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	gateway    *discord.Gateway
	handlers   *handlers.Handlers
	scheduler  *Scheduler
	echoServer *echo.Echo

	// warmups are pinged asynchronously after the gateway connects.
	warmups []llm.Service
}

// NewServer wires every component. Optional integrations (AI providers,
// catalog sources) are left nil when their credentials are absent; the
// handlers degrade to canned responses for those paths.
func NewServer(ctx context.Context, prof *profile.Profile, st *store.Store) (*Server, error) {
	gateway, err := discord.NewGateway(prof.DiscordToken)
	if err != nil {
		return nil, errors.Wrap(err, "create discord gateway")
	}
	client := discord.NewClient(gateway.Session())

	exporter := metrics.NewExporter(metrics.Config{})

	var dispatcher *ai.Dispatcher
	var responseCache *cache.ResponseCache
	var warmups []llm.Service
	if providers := providerConfigs(prof); len(providers) > 0 {
		responseCache = cache.NewResponseCache(0)
		primary := llm.NewService(providers[0])
		warmups = append(warmups, primary)
		var backup llm.Service
		if len(providers) > 1 {
			backup = llm.NewService(providers[1])
			warmups = append(warmups, backup)
		}
		dispatcher = ai.NewDispatcher(primary, backup, responseCache, ratelimit.NewLimiter(ratelimit.Config{}), exporter)
	}

	var ytClient *youtube.Client
	if prof.YouTubeAPIKey != "" {
		ytClient = youtube.NewClient(prof.YouTubeAPIKey)
	}
	var twClient *twitch.Client
	if prof.TwitchClientID != "" && prof.TwitchClientSecret != "" {
		twClient = twitch.NewClient(prof.TwitchClientID, prof.TwitchClientSecret)
	}
	var igdbClient *igdb.Client
	if prof.IGDBClientID != "" && prof.IGDBClientSecret != "" {
		igdbClient = igdb.NewClient(prof.IGDBClientID, prof.IGDBClientSecret)
	}

	runIngest := ingestRunner(st, prof, exporter, ytClient, twClient, igdbClient)

	var views handlers.ViewsLookup
	if ytClient != nil {
		views = playlistViews(ytClient)
	}

	conversations := conversation.NewManager()
	triviaManager := trivia.NewManager(st, client)

	h := handlers.New(handlers.Config{
		Store:         st,
		Profile:       prof,
		Sender:        client,
		Moderator:     client,
		AI:            dispatcher,
		Conversations: conversations,
		Trivia:        triviaManager,
		Metrics:       exporter,
		Ingest:        runIngest,
		Views:         views,
	})

	router := bot.NewRouter(bot.RouterConfig{
		Handlers:      h,
		Trivia:        triviaManager,
		Conversations: conversations,
		Profile:       prof,
		Sender:        client,
		Metrics:       exporter,
		BotID:         gateway.BotID,
	})
	gateway.SetHandler(router)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	httpapi.NewService(prof, st, exporter).Register(e)

	return &Server{
		Profile:    prof,
		Store:      st,
		gateway:    gateway,
		handlers:   h,
		scheduler:  NewScheduler(h, conversations, responseCache, runIngest, prof),
		echoServer: e,
		warmups:    warmups,
	}, nil
}

// Start restores persisted toggles, connects the gateway, and launches the
// background loops. The status server runs on its own goroutine; a bind
// failure is logged but does not stop the bot.
func (s *Server) Start(ctx context.Context) error {
	if err := s.handlers.LoadRuntimeConfig(ctx); err != nil {
		return errors.Wrap(err, "load runtime config")
	}
	if err := s.gateway.Open(ctx); err != nil {
		return errors.Wrap(err, "open discord gateway")
	}
	for _, svc := range s.warmups {
		go svc.Warmup(ctx)
	}
	s.scheduler.Start(ctx)

	go func() {
		addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
		if err := s.echoServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("status server failed", "error", err)
		}
	}()

	slog.Info("bot started",
		"bot", s.gateway.BotName(),
		"mode", s.Profile.Mode,
		"version", s.Profile.Version,
	)
	return nil
}

// Shutdown stops the components in reverse start order and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	s.scheduler.Stop()
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown status server", "error", err)
	}
	if err := s.gateway.Close(); err != nil {
		slog.Error("failed to close discord gateway", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}

	slog.Info("bot stopped properly")
}

// providerConfigs orders the configured AI providers: primary first, backup
// second. A lone backup credential is promoted to primary.
func providerConfigs(prof *profile.Profile) []*llm.Config {
	var configs []*llm.Config
	if prof.PrimaryAIAPIKey != "" {
		configs = append(configs, &llm.Config{
			Name:    "primary",
			APIKey:  prof.PrimaryAIAPIKey,
			BaseURL: prof.PrimaryAIBaseURL,
			Model:   prof.PrimaryAIModel,
			Timeout: prof.AITimeoutSeconds,
		})
	}
	if prof.BackupAIAPIKey != "" {
		configs = append(configs, &llm.Config{
			Name:    "backup",
			APIKey:  prof.BackupAIAPIKey,
			BaseURL: prof.BackupAIBaseURL,
			Model:   prof.BackupAIModel,
			Timeout: prof.AITimeoutSeconds,
		})
	}
	return configs
}

// ingestRunner builds the catalog refresh closure, or nil when the metadata
// service or both sources are unconfigured. Each run collects from the
// sources, merges into the catalog, dedups, and records the refresh time.
func ingestRunner(st *store.Store, prof *profile.Profile, exporter *metrics.Exporter, ytClient *youtube.Client, twClient *twitch.Client, igdbClient *igdb.Client) handlers.IngestRunner {
	if igdbClient == nil || (ytClient == nil && twClient == nil) {
		return nil
	}

	extractor := titleextract.New(igdbClient)
	collector := ingest.NewCollector(ytClient, twClient, prof.YouTubeChannelID, prof.TwitchUserID)
	var namer ingest.GameNamer
	if twClient != nil {
		namer = twClient
	}
	ingestor := ingest.New(st, extractor, namer, igdbClient, exporter)

	return func(ctx context.Context) (ingest.Summary, error) {
		records, err := collector.Collect(ctx)
		if err != nil {
			return ingest.Summary{}, err
		}
		summary, err := ingestor.Run(ctx, records)
		if err != nil {
			return summary, err
		}
		if merged, err := ingestor.DedupSweep(ctx); err != nil {
			slog.Warn("catalog dedup sweep failed", "error", err)
		} else if merged > 0 {
			slog.Info("catalog dedup sweep merged entries", "merged", merged)
		}
		if err := st.SetConfig(ctx, store.ConfigKeyLastRefreshTs, strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
			slog.Warn("catalog refresh time not recorded", "error", err)
		}
		return summary, nil
	}
}

// playlistViews sums view counts across a game's playlist.
func playlistViews(yt *youtube.Client) handlers.ViewsLookup {
	return func(ctx context.Context, game *store.PlayedGame) (int64, error) {
		playlistID := youtube.PlaylistIDFromURL(game.PlaylistURL)
		if playlistID == "" {
			return 0, errors.Errorf("game %q has no playlist", game.CanonicalName)
		}
		items, err := yt.ListItems(ctx, playlistID)
		if err != nil {
			return 0, err
		}
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.VideoID)
		}
		details, err := yt.VideoDetails(ctx, ids)
		if err != nil {
			return 0, err
		}
		var views int64
		for _, d := range details {
			views += d.ViewCount
		}
		return views, nil
	}
}
