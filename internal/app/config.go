package app

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"braacket-bot/internal/components/telemetry"
	"braacket-bot/internal/ranking"
	"braacket-bot/internal/scrapers/braacket"
	"braacket-bot/pkg/configutil"

	"github.com/joho/godotenv"
)

type DiscordConfig struct {
	// Token is usually given through the BOT_TOKEN environment variable instead.
	Token  string   `json:"token"`
	Prefix string   `json:"prefix"`
	Admins []string `json:"admins"`
}

type ScraperConfig struct {
	TimeoutSeconds    int     `json:"timeout_seconds"`
	Retries           int     `json:"retries"`
	RetryUnitMs       int     `json:"retry_unit_ms"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	UserAgent         string  `json:"user_agent"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
	// Selectors only needs the fields that differ from the defaults.
	Selectors braacket.Selectors `json:"selectors"`
}

type RankingConfig struct {
	Source       string            `json:"source"`
	Regions      map[string]string `json:"regions"`
	PageSize     int               `json:"page_size"`
	MaxList      int               `json:"max_list"`
	DefaultCount int               `json:"default_count"`
}

type CacheConfig struct {
	File          string `json:"file"`
	ExpiryMinutes int    `json:"expiry_minutes"`
}

type PagesConfig struct {
	// Database is a sqlite file path or a libsql url.
	Database        string `json:"database"`
	AuthToken       string `json:"auth_token"`
	// MemoTTLSeconds defaults to the cache expiry window.
	MemoTTLSeconds  int    `json:"memo_ttl_seconds"`
	OfflineFallback bool   `json:"offline_fallback"`
}

type BatchConfig struct {
	RequestDelayMs int `json:"request_delay_ms"`
	// RefreshCron schedules PopulateAllRanks in the bot daemon, disabled when empty.
	RefreshCron string `json:"refresh_cron"`
	// RefreshLosses also refreshes every loss history after the scheduled rank refresh.
	RefreshLosses bool `json:"refresh_losses"`
}

type Config struct {
	Discord   DiscordConfig    `json:"discord"`
	Scraper   ScraperConfig    `json:"scraper"`
	Ranking   RankingConfig    `json:"ranking"`
	Cache     CacheConfig      `json:"cache"`
	Pages     PagesConfig      `json:"pages"`
	Batch     BatchConfig      `json:"batch"`
	Telemetry telemetry.Config `json:"telemetry"`
	// Icons is an optional json file of character emojis merged over the built-in table.
	Icons   string `json:"icons"`
	Verbose bool   `json:"verbose"`
}

func DefaultConfig() Config {
	return Config{
		Discord: DiscordConfig{Prefix: "$"},
		Scraper: ScraperConfig{
			TimeoutSeconds: 10,
			Retries:        3,
			RetryUnitMs:    1000,
			Selectors:      braacket.DefaultSelectors(),
		},
		Ranking: RankingConfig{
			Source:       "DFW",
			Regions:      ranking.DefaultRegions,
			PageSize:     200,
			MaxList:      200,
			DefaultCount: 15,
		},
		Cache: CacheConfig{
			File:          "playerCache.json",
			ExpiryMinutes: 60,
		},
		Pages: PagesConfig{
			Database: "pages.db",
		},
		Batch: BatchConfig{
			RequestDelayMs: 1000,
		},
	}
}

func (c Config) Expiry() time.Duration {
	return time.Duration(c.Cache.ExpiryMinutes) * time.Minute
}

// MemoTTL is how long a parsed ranking page is reused before it is fetched again.
func (c Config) MemoTTL() time.Duration {
	if c.Pages.MemoTTLSeconds > 0 {
		return time.Duration(c.Pages.MemoTTLSeconds) * time.Second
	}
	return c.Expiry()
}

// LoadConfig reads `path` (and its .local variant) over the defaults. Variables in .env
// are loaded into the environment first, BOT_TOKEN replaces the configured token.
func LoadConfig(path string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	cfg, err := configutil.ReadConfigWithDefaults(path, DefaultConfig())
	if err != nil {
		return Config{}, err
	}
	token := os.Getenv("BOT_TOKEN")
	if token != "" {
		cfg.Discord.Token = token
	}
	return cfg, nil
}
