package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trackhound/internal/acquire"
	"trackhound/internal/chat/telegram"
	"trackhound/internal/core"
	"trackhound/internal/flood"
	httpserver "trackhound/internal/http"
	"trackhound/internal/provider"
	"trackhound/internal/spotify"
	"trackhound/internal/store"
	"trackhound/pkg/musiclink"
	"trackhound/pkg/text"
)

const (
	blocklistFalsePositiveRate = 0.001
	providerHTTPTimeout        = 30 * time.Second
	stopTimeout                = 30 * time.Second
)

// pipeline is the acquisition stack shared by the bot and the fetch command.
type pipeline struct {
	orchestrator *acquire.Orchestrator
	admission    *acquire.Admission
	blocklist    *store.SourceBlocklist
	spotify      core.MetadataResolver
	musicLinks   core.MetadataResolver
	parser       *text.Parser
}

func buildPipeline(ctx context.Context, cfg *core.Config, metrics *httpserver.Metrics) *pipeline {
	blocklist := store.NewSourceBlocklist(cfg.Providers.BlocklistCapacity, blocklistFalsePositiveRate)
	ffmpeg := acquire.NewFFmpeg(cfg.Download.FFmpegPath)
	ytdlp := provider.NewYtDlp(cfg.Download.YtDlpPath, cfg.Download.FFmpegPath)

	if !ffmpeg.Available() {
		logger.Warn("ffmpeg not found, non-mp3 downloads will be rejected",
			zap.String("path", cfg.Download.FFmpegPath))
	}
	if !ytdlp.Available() {
		logger.Warn("yt-dlp not found, extractor-based sources will fail",
			zap.String("path", cfg.Download.YtDlpPath))
	}

	httpClient := &http.Client{Timeout: providerHTTPTimeout}
	deps := &provider.Deps{
		HTTP:           httpClient,
		Runner:         ytdlp,
		YouTube:        &youtube.Client{HTTPClient: httpClient},
		Blocklist:      blocklist,
		Logger:         logger.Named("provider"),
		FuzzyThreshold: cfg.Download.FuzzyThreshold,
		UserAgent:      cfg.Download.UserAgent,
	}

	orchestrator := acquire.NewOrchestrator(&cfg.Download, provider.Catalog(cfg, deps), ffmpeg,
		acquire.TaglibTagger{}, logger.Named("acquire"))
	orchestrator.SetBlocklist(blocklist)

	admission := acquire.NewAdmission(cfg.Download.MaxConcurrent, orchestrator, acquire.NewStats(nil),
		logger.Named("admission"))

	if metrics != nil {
		orchestrator.SetRecorder(metrics)
		admission.SetRecorder(metrics)
	}

	p := &pipeline{
		orchestrator: orchestrator,
		admission:    admission,
		blocklist:    blocklist,
		musicLinks:   musiclink.NewManager(nil),
		parser:       text.NewParser(),
	}

	if cfg.Spotify.ClientID != "" {
		client := spotify.NewClient(&cfg.Spotify, cfg.App.MaxCollectionTracks, logger.Named("spotify"))
		if err := client.Authenticate(ctx); err != nil {
			logger.Error("Spotify authentication failed, Spotify links are disabled", zap.Error(err))
		} else {
			p.spotify = client
		}
	} else {
		logger.Warn("Spotify credentials not set, Spotify links are disabled")
	}

	logger.Info("Acquisition cascade ready",
		zap.Strings("providers", orchestrator.Providers()),
		zap.Int("max_concurrent", admission.Limit()))

	return p
}

// statsDocument is served at /stats.
type statsDocument struct {
	Acquisitions    acquire.StatsSnapshot `json:"acquisitions"`
	ActiveDownloads int64                 `json:"active_downloads"`
	DownloadSlots   int                   `json:"download_slots"`
	BlockedSources  int                   `json:"blocked_sources"`
	Flood           flood.Stats           `json:"flood"`
	Providers       []string              `json:"providers"`
}

func runTrackhound(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting trackhound",
		zap.Bool("telegram_enabled", config.Telegram.Enabled),
		zap.Bool("spotify_configured", config.Spotify.ClientID != ""),
		zap.String("output_dir", config.Download.OutputDir))

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	metrics := httpserver.NewMetrics()
	p := buildPipeline(ctx, config, metrics)

	frontend := telegram.NewFrontend(&telegram.Config{
		BotToken:            config.Telegram.BotToken,
		AllowedChatIDs:      config.Telegram.AllowedChatIDs,
		Enabled:             config.Telegram.Enabled,
		FloodLimitPerMinute: config.App.FloodLimitPerMinute,
	}, logger.Named("telegram"))

	dispatcher := core.NewDispatcher(config, frontend, p.parser, p.spotify, p.musicLinks,
		p.admission, logger.Named("dispatcher"))
	dispatcher.SetRecorder(metrics)

	var ready atomic.Bool
	g, gCtx := errgroup.WithContext(ctx)

	if config.Server.Enabled {
		stats := func() any {
			return statsDocument{
				Acquisitions:    p.admission.Stats(),
				ActiveDownloads: p.admission.Active(),
				DownloadSlots:   p.admission.Limit(),
				BlockedSources:  p.blocklist.Size(),
				Flood:           frontend.FloodStats(),
				Providers:       p.orchestrator.Providers(),
			}
		}
		server := httpserver.NewServer(&config.Server, metrics, stats, ready.Load, logger.Named("http"))
		g.Go(func() error {
			return server.Start(gCtx)
		})
	}

	g.Go(func() error {
		ready.Store(true)
		return dispatcher.Start(gCtx)
	})

	logger.Info("trackhound started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	err := g.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if stopErr := dispatcher.Stop(stopCtx); stopErr != nil {
		logger.Warn("Failed to stop dispatcher gracefully", zap.Error(stopErr))
	}

	if err != nil {
		logger.Error("trackhound stopped with error", zap.Error(err))
		return err
	}

	logger.Info("trackhound stopped gracefully")
	return nil
}
