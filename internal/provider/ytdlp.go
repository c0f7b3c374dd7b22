package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"trackhound/internal/core"
)

const stderrTail = 512

// ErrNoOutput is returned when the extractor exits cleanly without leaving a file.
var ErrNoOutput = errors.New("extractor produced no file")

// Runner lists and downloads media through an external extractor.
type Runner interface {
	// List returns the entries of a search target ("ytsearch5:...") or page URL
	// without downloading anything.
	List(ctx context.Context, target string) ([]core.Candidate, error)
	// Download fetches one source into dir and returns the written path.
	Download(ctx context.Context, sourceURL, dir string, opts DownloadOptions) (string, error)
}

// DownloadOptions tunes a single extractor download.
type DownloadOptions struct {
	Format        string
	PlayerClients []string
	UserAgent     string
	// UserAgents is a rotation used when UserAgent is empty; each download takes the next one.
	UserAgents []string
	// GeoBypassCountry is a two-letter code the extractor pretends to be in.
	GeoBypassCountry string
	// SleepInterval and MaxSleepInterval bound the random pause before each download.
	SleepInterval    time.Duration
	MaxSleepInterval time.Duration
}

// YtDlp runs the yt-dlp binary.
type YtDlp struct {
	Path       string
	FFmpegPath string

	rotation atomic.Uint64
}

// NewYtDlp returns a runner for the binary at path ("yt-dlp" when empty).
func NewYtDlp(path, ffmpegPath string) *YtDlp {
	if path == "" {
		path = "yt-dlp"
	}
	return &YtDlp{Path: path, FFmpegPath: ffmpegPath}
}

// Available reports whether the binary can be found.
func (y *YtDlp) Available() bool {
	_, err := exec.LookPath(y.Path)
	return err == nil
}

func (y *YtDlp) List(ctx context.Context, target string) ([]core.Candidate, error) {
	out, err := y.run(ctx, "--flat-playlist", "--dump-single-json", "--no-warnings", "--skip-download", target)
	if err != nil {
		return nil, err
	}
	return parseListing(out), nil
}

func (y *YtDlp) Download(ctx context.Context, sourceURL, dir string, opts DownloadOptions) (string, error) {
	started := time.Now()
	out, err := y.run(ctx, y.downloadArgs(sourceURL, dir, opts)...)
	if err != nil {
		return "", err
	}

	if p := lastLine(out); p != "" && within(dir, p) {
		if _, statErr := os.Stat(p); statErr == nil {
			return p, nil
		}
	}
	if p, ok := freshAudio(dir, started.Add(-time.Second)); ok {
		return p, nil
	}
	return "", ErrNoOutput
}

func (y *YtDlp) downloadArgs(sourceURL, dir string, opts DownloadOptions) []string {
	format := opts.Format
	if format == "" {
		format = "bestaudio/best"
	}

	args := []string{
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"--windows-filenames",
		"--max-filesize", "50M",
		"-f", format,
		"-o", filepath.Join(dir, "%(title).120B [%(id)s].%(ext)s"),
		"--print", "after_move:filepath",
	}
	if y.FFmpegPath != "" {
		args = append(args, "--ffmpeg-location", y.FFmpegPath)
	}
	if ua := y.userAgent(opts); ua != "" {
		args = append(args, "--user-agent", ua)
	}
	if len(opts.PlayerClients) > 0 {
		args = append(args, "--extractor-args", "youtube:player_client="+strings.Join(opts.PlayerClients, ","))
	}
	if opts.GeoBypassCountry != "" {
		args = append(args, "--geo-bypass-country", opts.GeoBypassCountry)
	}
	if opts.SleepInterval > 0 {
		args = append(args, "--sleep-interval", seconds(opts.SleepInterval))
		if opts.MaxSleepInterval > opts.SleepInterval {
			args = append(args, "--max-sleep-interval", seconds(opts.MaxSleepInterval))
		}
	}
	return append(args, sourceURL)
}

func (y *YtDlp) userAgent(opts DownloadOptions) string {
	if opts.UserAgent != "" || len(opts.UserAgents) == 0 {
		return opts.UserAgent
	}
	n := y.rotation.Add(1) - 1
	return opts.UserAgents[n%uint64(len(opts.UserAgents))]
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func (y *YtDlp) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, y.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := stderr.String()
		if len(msg) > stderrTail {
			msg = msg[len(msg)-stderrTail:]
		}
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(msg))
	}
	return stdout.Bytes(), nil
}

// parseListing turns a --dump-single-json document into candidates. A
// document without entries is treated as a single item.
func parseListing(doc []byte) []core.Candidate {
	root := gjson.ParseBytes(doc)
	entries := root.Get("entries")
	if !entries.Exists() {
		if c, ok := candidateFromJSON(root); ok {
			return []core.Candidate{c}
		}
		return nil
	}

	var out []core.Candidate
	for _, e := range entries.Array() {
		if c, ok := candidateFromJSON(e); ok {
			out = append(out, c)
		}
	}
	return out
}

func candidateFromJSON(e gjson.Result) (core.Candidate, bool) {
	link := e.Get("webpage_url").String()
	if link == "" {
		link = e.Get("url").String()
	}
	if link == "" {
		return core.Candidate{}, false
	}
	return core.Candidate{
		SourceURL:       link,
		Title:           e.Get("title").String(),
		DurationSeconds: int(e.Get("duration").Float()),
		Popularity:      e.Get("view_count").Int(),
	}, true
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && !strings.HasPrefix(rel, "..")
}

// freshAudio returns the newest non-trivial audio file in dir modified after since.
func freshAudio(dir string, since time.Time) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	var (
		best     string
		bestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !isAudioName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() <= 1000 || info.ModTime().Before(since) {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = filepath.Join(dir, entry.Name())
			bestTime = info.ModTime()
		}
	}
	return best, best != ""
}

func isAudioName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3", ".m4a", ".aac", ".ogg", ".wav", ".webm":
		return true
	}
	return false
}
