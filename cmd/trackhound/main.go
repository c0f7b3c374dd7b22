// Package main provides the trackhound CLI application entry point.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"trackhound/internal/core"
)

const envPrefix = "TRACKHOUND"

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "trackhound",
	Short: "trackhound - Telegram bot that hunts down audio files",
	Long: `trackhound listens to Telegram messages containing Spotify, YouTube, SoundCloud and other
music links or plain search text, walks an ordered cascade of audio sources until one of them
yields a file, and sends the mp3 back to the chat.`,
	RunE: runTrackhound,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, text)")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	flags.Bool("telegram-enabled", true, "Enable Telegram integration")
	flags.String("telegram-bot-token", "", "Telegram bot token")
	flags.StringSlice("telegram-allowed-chat-ids", nil, "Chat IDs the bot answers in (empty allows all)")

	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.Int("spotify-cache-size", defaults.Spotify.CacheSize, "Number of resolved Spotify links kept in memory")
	flags.Duration("spotify-cache-ttl", defaults.Spotify.CacheTTL, "How long a resolved Spotify link stays cached")

	flags.String("download-output-dir", defaults.Download.OutputDir, "Directory holding per-request workspaces")
	flags.Int("download-max-concurrent", defaults.Download.MaxConcurrent, "Maximum concurrent acquisitions")
	flags.Int("download-fuzzy-threshold", defaults.Download.FuzzyThreshold, "Minimum two-part match score (0-200) for fuzzy-ranked sources")
	flags.Int64("download-min-convert-bytes", defaults.Download.MinConvertBytes, "Smallest non-mp3 download worth converting")
	flags.Int64("download-min-output-bytes", defaults.Download.MinOutputBytes, "Smallest acceptable converted mp3")
	flags.Duration("download-convert-timeout", defaults.Download.ConvertTimeout, "Timeout for one ffmpeg conversion")
	flags.String("download-ytdlp-path", defaults.Download.YtDlpPath, "Path to the yt-dlp binary")
	flags.String("download-ffmpeg-path", defaults.Download.FFmpegPath, "Path to the ffmpeg binary")
	flags.String("download-user-agent", "", "User-Agent sent to audio sources (default is a desktop browser)")

	flags.StringSlice("providers-disabled", nil, "Provider names to leave out of the cascade")
	flags.String("providers-lastfm-api-key", "", "Last.fm API key for the AlternativeMusic source")
	flags.String("providers-genius-token", "", "Genius API token for the Genius source")
	flags.String("providers-discogs-token", "", "Discogs token for the Discogs source")
	flags.String("providers-jamendo-client-id", defaults.Providers.JamendoClientID, "Jamendo API client ID")
	flags.String("providers-musicbrainz-agent", defaults.Providers.MusicBrainzAgent, "User-Agent sent to MusicBrainz")
	flags.Int("providers-blocklist-capacity", defaults.Providers.BlocklistCapacity, "Number of bad source URLs remembered")

	flags.Bool("server-enabled", defaults.Server.Enabled, "Serve health, metrics and stats over HTTP")
	flags.String("server-host", defaults.Server.Host, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")

	flags.Int("max-collection-tracks", defaults.App.MaxCollectionTracks, "Maximum tracks sent for one playlist or album")
	flags.Duration("track-delay", defaults.App.TrackDelay, "Pause between tracks of a playlist or album")
	flags.Int("flood-limit-per-minute", defaults.App.FloodLimitPerMinute, "Maximum messages per user per minute")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(fetchCmd)
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		// A missing .env is fine; everything can come from flags or the environment.
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureTelegram(cfg)
	configureSpotify(cfg)
	configureDownload(cfg)
	configureProviders(cfg)
	configureServer(cfg)
	configureApp(cfg)

	return cfg
}

func configureTelegram(cfg *core.Config) {
	cfg.Telegram.Enabled = viper.GetBool("telegram-enabled")
	cfg.Telegram.BotToken = viper.GetString("telegram-bot-token")

	for _, raw := range splitList(viper.GetStringSlice("telegram-allowed-chat-ids")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ignoring invalid chat ID %q\n", raw)
			continue
		}
		cfg.Telegram.AllowedChatIDs = append(cfg.Telegram.AllowedChatIDs, id)
	}
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.CacheSize = positiveOr(viper.GetInt("spotify-cache-size"), core.DefaultMetadataCacheSize)
	if ttl := viper.GetDuration("spotify-cache-ttl"); ttl > 0 {
		cfg.Spotify.CacheTTL = ttl
	}
}

func configureDownload(cfg *core.Config) {
	d := &cfg.Download
	if dir := viper.GetString("download-output-dir"); dir != "" {
		d.OutputDir = dir
	}
	d.MaxConcurrent = positiveOr(viper.GetInt("download-max-concurrent"), core.DefaultMaxConcurrentDownloads)
	d.FuzzyThreshold = positiveOr(viper.GetInt("download-fuzzy-threshold"), core.DefaultFuzzyThreshold)
	if n := viper.GetInt64("download-min-convert-bytes"); n > 0 {
		d.MinConvertBytes = n
	}
	if n := viper.GetInt64("download-min-output-bytes"); n > 0 {
		d.MinOutputBytes = n
	}
	if timeout := viper.GetDuration("download-convert-timeout"); timeout > 0 {
		d.ConvertTimeout = timeout
	}
	if p := viper.GetString("download-ytdlp-path"); p != "" {
		d.YtDlpPath = p
	}
	if p := viper.GetString("download-ffmpeg-path"); p != "" {
		d.FFmpegPath = p
	}
	d.UserAgent = viper.GetString("download-user-agent")
}

func configureProviders(cfg *core.Config) {
	p := &cfg.Providers
	p.Disabled = splitList(viper.GetStringSlice("providers-disabled"))
	p.LastFMAPIKey = viper.GetString("providers-lastfm-api-key")
	p.GeniusToken = viper.GetString("providers-genius-token")
	p.DiscogsToken = viper.GetString("providers-discogs-token")
	p.JamendoClientID = viper.GetString("providers-jamendo-client-id")
	if agent := viper.GetString("providers-musicbrainz-agent"); agent != "" {
		p.MusicBrainzAgent = agent
	}
	p.BlocklistCapacity = positiveOr(viper.GetInt("providers-blocklist-capacity"), core.DefaultBlocklistCapacity)
}

func configureServer(cfg *core.Config) {
	cfg.Server.Enabled = viper.GetBool("server-enabled")
	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	cfg.Server.Port = positiveOr(viper.GetInt("server-port"), core.DefaultServerPort)
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureApp(cfg *core.Config) {
	cfg.App.MaxCollectionTracks = positiveOr(viper.GetInt("max-collection-tracks"), core.DefaultMaxCollectionTracks)
	if delay := viper.GetDuration("track-delay"); delay >= 0 {
		cfg.App.TrackDelay = delay
	}
	cfg.App.FloodLimitPerMinute = positiveOr(viper.GetInt("flood-limit-per-minute"), core.DefaultFloodLimitPerMinute)
}

// splitList flattens list values that arrive comma separated from the
// environment or from .env files.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "text") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func validateConfig(cfg *core.Config) error {
	if !cfg.Telegram.Enabled {
		return fmt.Errorf("the Telegram frontend must be enabled to run the bot")
	}
	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required when Telegram is enabled")
	}
	if (cfg.Spotify.ClientID == "") != (cfg.Spotify.ClientSecret == "") {
		return fmt.Errorf("spotify client ID and secret must be set together")
	}
	if cfg.Server.Enabled && (cfg.Server.Port <= 0 || cfg.Server.Port > 65535) {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return nil
}
