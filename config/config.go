package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Youtube YoutubeConfig
	Cache   CacheConfig
	Store   StoreConfig
	Gemini  GeminiConfig
	Spotify SpotifyConfig
	Lyrics  LyricsConfig
	Options Options
}

type YoutubeConfig struct {
	APIKeys    []string
	Endpoint   string
	RegionCode string
}

type CacheConfig struct {
	SearchTTL  time.Duration
	ChartTTL   time.Duration
	DefaultTTL time.Duration
}

type StoreConfig struct {
	Backend  string
	DBPath   string
	RedisURL string
}

type GeminiConfig struct {
	Enabled bool
	APIKey  string
	Model   string
}

// SpotifyConfig holds app credentials for resolving Spotify track links.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

func (s *SpotifyConfig) IsEnabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

type LyricsConfig struct {
	LRCLibEnabled bool
	LRCLibURL     string
}

type Options struct {
	Port           string
	LogLevel       string
	LogFormat      string
	SentryDSN      string
	ProgressPoll   time.Duration
	NoticeDuration time.Duration
}

func (g *GeminiConfig) IsEnabled() bool {
	return g.Enabled && g.APIKey != ""
}

// Load reads the process environment. Call godotenv.Load first if a .env
// file should be honored.
func Load() *Config {
	return &Config{
		Youtube: YoutubeConfig{
			APIKeys:    getAPIKeys(),
			Endpoint:   os.Getenv("YOUTUBE_ENDPOINT"),
			RegionCode: getString("YOUTUBE_REGION_CODE", "US"),
		},
		Cache: CacheConfig{
			SearchTTL:  time.Duration(getHours("SEARCH_CACHE_TTL_HOURS", 6)) * time.Hour,
			ChartTTL:   time.Duration(getHours("CHART_CACHE_TTL_HOURS", 24)) * time.Hour,
			DefaultTTL: time.Duration(getHours("DEFAULT_CACHE_TTL_HOURS", 24)) * time.Hour,
		},
		Store: StoreConfig{
			Backend:  getStoreBackend(),
			DBPath:   getString("DB_PATH", "./data/songbird.db"),
			RedisURL: getString("REDIS_URL", "redis://localhost:6379/0"),
		},
		Gemini: GeminiConfig{
			Enabled: os.Getenv("GEMINI_ENABLED") == "true",
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			Model:   getString("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Spotify: SpotifyConfig{
			ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
			ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		},
		Lyrics: LyricsConfig{
			LRCLibEnabled: os.Getenv("LYRICS_LRCLIB_ENABLED") != "false",
			LRCLibURL:     getString("LRCLIB_URL", "https://lrclib.net"),
		},
		Options: Options{
			Port:           getString("PORT", "8080"),
			LogLevel:       getString("LOG_LEVEL", "info"),
			LogFormat:      getString("LOG_FORMAT", "text"),
			SentryDSN:      os.Getenv("SENTRY_DSN"),
			ProgressPoll:   time.Duration(getProgressPollMs()) * time.Millisecond,
			NoticeDuration: time.Duration(getNoticeSeconds()) * time.Second,
		},
	}
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// getAPIKeys reads the comma separated YOUTUBE_API_KEYS list, falling back
// to the single YOUTUBE_API_KEY.
func getAPIKeys() []string {
	raw := os.Getenv("YOUTUBE_API_KEYS")
	if strings.TrimSpace(raw) == "" {
		raw = os.Getenv("YOUTUBE_API_KEY")
	}
	keys := make([]string, 0)
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func getHours(key string, fallback int) int {
	hoursStr := os.Getenv(key)
	if hoursStr == "" {
		return fallback
	}
	hours, err := strconv.Atoi(hoursStr)
	if err != nil || hours <= 0 {
		return fallback
	}
	if hours > 168 {
		return 168 // a week
	}
	return hours
}

func getStoreBackend() string {
	switch backend := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))); backend {
	case "memory", "sqlite", "redis":
		return backend
	default:
		return "sqlite"
	}
}

func getProgressPollMs() int {
	msStr := os.Getenv("PROGRESS_POLL_MS")
	if msStr == "" {
		return 500
	}
	ms, err := strconv.Atoi(msStr)
	if err != nil || ms <= 0 {
		return 500
	}
	if ms < 100 {
		return 100
	}
	if ms > 5000 {
		return 5000
	}
	return ms
}

func getNoticeSeconds() int {
	secondsStr := os.Getenv("NOTICE_TTL_SECONDS")
	if secondsStr == "" {
		return 5
	}
	seconds, err := strconv.Atoi(secondsStr)
	if err != nil || seconds <= 0 {
		return 5
	}
	if seconds > 60 {
		return 60
	}
	return seconds
}
