package core

import (
	"strings"
	"time"
)

const (
	// DefaultMaxConcurrentDownloads bounds how many acquisitions run at once
	DefaultMaxConcurrentDownloads = 3
	// DefaultFuzzyThreshold is the minimum two-part (0-200) score for fuzzy-ranked sources
	DefaultFuzzyThreshold = 120
	// DefaultMinConvertBytes is the smallest non-mp3 download worth converting
	DefaultMinConvertBytes = 10000
	// DefaultMinOutputBytes is the smallest acceptable converted mp3
	DefaultMinOutputBytes = 1000
	// DefaultConvertTimeout caps a single ffmpeg conversion
	DefaultConvertTimeout = 60 * time.Second
	// DefaultMaxCollectionTracks caps playlist and album fan-out
	DefaultMaxCollectionTracks = 50
	// DefaultTrackDelay is the pause between tracks of a playlist or album
	DefaultTrackDelay = 2 * time.Second
	// DefaultFloodLimitPerMinute is the default per-user message limit
	DefaultFloodLimitPerMinute = 6
	// DefaultMetadataCacheSize is the number of resolved links kept in memory
	DefaultMetadataCacheSize = 512
	// DefaultMetadataCacheTTL is how long a resolved link stays cached
	DefaultMetadataCacheTTL = 6 * time.Hour
	// DefaultBlocklistCapacity is the number of bad source URLs remembered
	DefaultBlocklistCapacity = 10000
	// DefaultServerPort is the port of the health and metrics server
	DefaultServerPort = 8080
)

type Config struct {
	Telegram  TelegramConfig
	Spotify   SpotifyConfig
	Download  DownloadConfig
	Providers ProvidersConfig
	Server    ServerConfig
	Log       LogConfig
	App       AppConfig
}

type TelegramConfig struct {
	Enabled  bool
	BotToken string
	// AllowedChatIDs restricts the bot to these chats; empty allows all.
	AllowedChatIDs []int64
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	CacheSize    int
	CacheTTL     time.Duration
}

type DownloadConfig struct {
	OutputDir       string
	MaxConcurrent   int
	FuzzyThreshold  int
	MinConvertBytes int64
	MinOutputBytes  int64
	ConvertTimeout  time.Duration
	YtDlpPath       string
	FFmpegPath      string
	UserAgent       string
}

type ProvidersConfig struct {
	Disabled         []string
	LastFMAPIKey     string
	GeniusToken      string
	DiscogsToken     string
	JamendoClientID  string
	MusicBrainzAgent string
	// BlocklistCapacity sizes the bad-source filter.
	BlocklistCapacity int
}

type ServerConfig struct {
	Enabled      bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	MaxCollectionTracks int
	TrackDelay          time.Duration
	FloodLimitPerMinute int
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Enabled: true,
		},
		Spotify: SpotifyConfig{
			CacheSize: DefaultMetadataCacheSize,
			CacheTTL:  DefaultMetadataCacheTTL,
		},
		Download: DownloadConfig{
			OutputDir:       "./downloads",
			MaxConcurrent:   DefaultMaxConcurrentDownloads,
			FuzzyThreshold:  DefaultFuzzyThreshold,
			MinConvertBytes: DefaultMinConvertBytes,
			MinOutputBytes:  DefaultMinOutputBytes,
			ConvertTimeout:  DefaultConvertTimeout,
			YtDlpPath:       "yt-dlp",
			FFmpegPath:      "ffmpeg",
		},
		Providers: ProvidersConfig{
			JamendoClientID:   "jamendotest",
			MusicBrainzAgent:  "trackhound/1.0 ( https://github.com/trackhound/trackhound )",
			BlocklistCapacity: DefaultBlocklistCapacity,
		},
		Server: ServerConfig{
			Enabled:      true,
			Host:         "0.0.0.0",
			Port:         DefaultServerPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			MaxCollectionTracks: DefaultMaxCollectionTracks,
			TrackDelay:          DefaultTrackDelay,
			FloodLimitPerMinute: DefaultFloodLimitPerMinute,
		},
	}
}

// IsProviderDisabled reports whether name is listed in Providers.Disabled (case-insensitive).
func (c *Config) IsProviderDisabled(name string) bool {
	for _, d := range c.Providers.Disabled {
		if strings.EqualFold(strings.TrimSpace(d), name) {
			return true
		}
	}
	return false
}
