// Package profile holds the runtime configuration of a bot instance.
package profile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config errors map to process exit codes in cmd/ashbot.
var (
	// ErrMissingConfig indicates a required non-credential setting is absent.
	ErrMissingConfig = errors.New("missing required configuration")
	// ErrMissingCredentials indicates a required credential is absent or malformed.
	ErrMissingCredentials = errors.New("missing required credentials")
)

// Profile is the configuration used to start the bot process.
type Profile struct {
	// Process settings
	Mode    string // "prod", "dev" or "demo"
	Addr    string // HTTP status server bind address
	Port    int    // HTTP status server port
	Data    string // data directory (sqlite driver)
	Driver  string // "postgres" or "sqlite"
	DSN     string // database source name
	Version string

	// Platform credentials
	DiscordToken string

	// AI provider configuration. Both providers speak the OpenAI-compatible
	// chat protocol; the backup is used only on primary failure.
	PrimaryAIAPIKey  string
	PrimaryAIBaseURL string
	PrimaryAIModel   string
	BackupAIAPIKey   string
	BackupAIBaseURL  string
	BackupAIModel    string
	AITimeoutSeconds int

	// External media sources
	YouTubeAPIKey    string
	YouTubeChannelID string
	TwitchClientID   string
	TwitchClientSecret string
	TwitchUserID     string

	// IGDB shares the Twitch developer portal; its credentials fall back to
	// the Twitch ones when not set separately.
	IGDBClientID     string
	IGDBClientSecret string

	// Community wiring
	Timezone              string // IANA name, the community's home timezone
	StreamerUserID        string
	CreatorUserID         string
	ViolationChannelID    string
	AnnouncementChannelID string
	TriviaChannelID       string
	YouTubePostChannelID  string
	ModChannelIDs         []string

	AIEnabled bool
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.DiscordToken = os.Getenv("DISCORD_TOKEN")
	if p.DSN == "" {
		p.DSN = os.Getenv("DATABASE_URL")
	}

	p.PrimaryAIAPIKey = os.Getenv("PRIMARY_AI_API_KEY")
	p.PrimaryAIBaseURL = getEnvOrDefault("PRIMARY_AI_BASE_URL", "")
	p.PrimaryAIModel = getEnvOrDefault("PRIMARY_AI_MODEL", "gpt-4o-mini")
	p.BackupAIAPIKey = os.Getenv("BACKUP_AI_API_KEY")
	p.BackupAIBaseURL = getEnvOrDefault("BACKUP_AI_BASE_URL", "")
	p.BackupAIModel = getEnvOrDefault("BACKUP_AI_MODEL", "gpt-4o-mini")
	p.AITimeoutSeconds = getEnvOrDefaultInt("AI_TIMEOUT_SECONDS", 30)
	p.AIEnabled = p.PrimaryAIAPIKey != "" || p.BackupAIAPIKey != ""

	p.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")
	p.YouTubeChannelID = os.Getenv("YOUTUBE_CHANNEL_ID")
	p.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	p.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	p.TwitchUserID = os.Getenv("TWITCH_USER_ID")

	p.IGDBClientID = getEnvOrDefault("IGDB_CLIENT_ID", p.TwitchClientID)
	p.IGDBClientSecret = getEnvOrDefault("IGDB_CLIENT_SECRET", p.TwitchClientSecret)

	p.Timezone = getEnvOrDefault("ASHBOT_TIMEZONE", "Europe/London")
	p.StreamerUserID = os.Getenv("ASHBOT_STREAMER_USER_ID")
	p.CreatorUserID = os.Getenv("ASHBOT_CREATOR_USER_ID")
	p.ViolationChannelID = os.Getenv("ASHBOT_VIOLATION_CHANNEL_ID")
	p.AnnouncementChannelID = os.Getenv("ASHBOT_ANNOUNCEMENT_CHANNEL_ID")
	p.TriviaChannelID = os.Getenv("ASHBOT_TRIVIA_CHANNEL_ID")
	p.YouTubePostChannelID = os.Getenv("ASHBOT_YOUTUBE_POST_CHANNEL_ID")
	if raw := os.Getenv("ASHBOT_MOD_CHANNEL_IDS"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				p.ModChannelIDs = append(p.ModChannelIDs, id)
			}
		}
	}
}

// Validate checks that the profile is complete enough to start.
func (p *Profile) Validate() error {
	if p.DiscordToken == "" {
		return errors.Wrap(ErrMissingCredentials, "DISCORD_TOKEN is not set")
	}
	switch p.Driver {
	case "postgres":
		if p.DSN == "" {
			return errors.Wrap(ErrMissingConfig, "DATABASE_URL is not set")
		}
	case "sqlite":
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return errors.Wrap(ErrMissingConfig, err.Error())
		}
		p.Data = dataDir
		if p.DSN == "" {
			p.DSN = filepath.Join(p.Data, "ashbot_"+p.Mode+".db")
		}
	default:
		return errors.Wrapf(ErrMissingConfig, "unknown database driver %q", p.Driver)
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return errors.Wrapf(ErrMissingConfig, "invalid timezone %q", p.Timezone)
	}
	return nil
}

// IsDev returns true when running in a non-production mode.
func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Location resolves the configured community timezone. Validate must have
// succeeded before calling.
func (p *Profile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func checkDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}
	dataDir = strings.TrimRight(dataDir, "\\/")
	if fi, err := os.Stat(dataDir); err != nil || !fi.IsDir() {
		return "", errors.Errorf("unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
