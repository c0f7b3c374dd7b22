package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"trackhound/internal/core"
	"trackhound/pkg/filename"
)

var fetchOutDir string

var fetchCmd = &cobra.Command{
	Use:   "fetch <query or link>",
	Short: "Run the acquisition cascade once and save the result",
	Long: `fetch resolves a Spotify or music service link (or takes plain "title artist" text),
walks the source cascade for every track and moves the resulting mp3 files into --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutDir, "out", "o", ".", "directory the mp3 files are moved to")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(fetchOutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	p := buildPipeline(ctx, config, nil)
	out := cmd.OutOrStdout()

	tracks, err := fetchTargets(ctx, p, args[0])
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	delivered := 0
	for i, target := range tracks {
		cyan.Fprintf(out, "[%d/%d] %s\n", i+1, len(tracks), target.label)

		result := p.admission.Run(ctx, target.query, target.meta)
		if !result.Success {
			red.Fprintf(out, "  ✗ not found: %v\n", result.Err)
			continue
		}

		dest, err := keepResult(result, fetchOutDir, target.label)
		if err != nil {
			red.Fprintf(out, "  ✗ %v\n", err)
			continue
		}
		delivered++
		green.Fprintf(out, "  ✓ %s (via %s, %d bytes)\n", dest, result.ProviderName, result.Size)
	}

	if delivered == 0 {
		return errors.New("no track could be downloaded")
	}
	fmt.Fprintf(out, "%d of %d tracks saved to %s\n", delivered, len(tracks), fetchOutDir)
	return nil
}

type fetchTarget struct {
	query string
	label string
	meta  *core.TrackMetadata
}

// fetchTargets expands the argument into the tracks to acquire.
func fetchTargets(ctx context.Context, p *pipeline, arg string) ([]fetchTarget, error) {
	input := p.parser.ParseMessage(arg)

	var resolver core.MetadataResolver
	switch input.Type {
	case core.MessageTypeFreeText:
		return []fetchTarget{{query: input.Text, label: input.Text}}, nil
	case core.MessageTypeSpotifyLink:
		resolver = p.spotify
	case core.MessageTypeNonSpotifyLink:
		resolver = p.musicLinks
	}
	if resolver == nil {
		return nil, fmt.Errorf("%s links are not configured", input.Type)
	}

	for _, link := range input.URLs {
		if !resolver.CanResolve(link) {
			continue
		}
		metas, err := resolver.Resolve(ctx, link)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", link, err)
		}
		targets := make([]fetchTarget, 0, len(metas))
		for i := range metas {
			targets = append(targets, fetchTarget{query: metas[i].Query(), label: metas[i].DisplayName(), meta: &metas[i]})
		}
		if len(targets) > config.App.MaxCollectionTracks {
			targets = targets[:config.App.MaxCollectionTracks]
		}
		return targets, nil
	}
	return nil, fmt.Errorf("no resolver accepts %q", arg)
}

// keepResult moves the delivered file out of its workspace and releases the workspace.
func keepResult(result core.Result, dir, label string) (string, error) {
	defer func() {
		if err := result.Discard(); err != nil {
			logger.Sugar().Warnw("Failed to remove workspace", "error", err)
		}
	}()

	dest := filepath.Join(dir, filename.Clean(label)+filepath.Ext(result.FilePath))
	if err := os.Rename(result.FilePath, dest); err == nil {
		return dest, nil
	}
	if err := copyFile(result.FilePath, dest); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", dest, err)
	}
	return dest, nil
}

// copyFile covers moves across filesystems, where rename fails.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
