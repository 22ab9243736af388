package store

// Runtime-mutable settings stored in the config table.
const (
	ConfigKeyAIEnabled       = "ai_enabled"
	ConfigKeyPersona         = "persona_override"
	ConfigKeyAnnounceTarget  = "announcement_channel_id"
	ConfigKeyLastAnnouncedTs = "last_announced_ts"
	ConfigKeyLastRefreshTs   = "last_catalog_refresh_ts"
)

// ConfigEntry is one key/value row of the config table.
type ConfigEntry struct {
	Key   string
	Value string
}
