package acquire

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const stderrTailBytes = 512

// Transcoder converts an audio file to mp3.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

// FFmpeg transcodes with the ffmpeg binary.
type FFmpeg struct {
	Path string
}

// NewFFmpeg returns an FFmpeg transcoder; an empty path means "ffmpeg" on PATH.
func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path}
}

// Available reports whether the ffmpeg binary can be found.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.Path)
	return err == nil
}

func (f *FFmpeg) Transcode(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, f.Path, transcodeArgs(src, dst)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.String(), stderrTailBytes))
	}
	return nil
}

func transcodeArgs(src, dst string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-acodec", "mp3",
		"-ab", "192k",
		"-ar", "44100",
		"-ac", "2",
		"-avoid_negative_ts", "make_zero",
		"-fflags", "+genpts",
		"-y",
		dst,
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
