package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"trackhound/internal/core"
	"trackhound/pkg/filename"
)

// ErrNoAudioFormat is returned when a video offers no audio-only stream.
var ErrNoAudioFormat = errors.New("no audio-only format")

// Stream lists YouTube through the extractor, keeps the best original
// version and saves its audio stream with the pure-Go client, without
// running the extractor for the download itself.
type Stream struct {
	Label   string
	Target  string
	Timeout time.Duration
	Deps    *Deps
}

func (s *Stream) Name() string { return s.Label }

func (s *Stream) SearchAndDownload(ctx context.Context, req *core.Request) core.Outcome {
	if s.Deps.Runner == nil {
		return core.Transient(ErrNoRunner)
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOr(s.Timeout))
	defer cancel()

	listing, err := s.Deps.Runner.List(ctx, expandTarget(s.Target, req.Query))
	if err != nil {
		return core.Transient(err)
	}
	var usable []core.Candidate
	for _, c := range listing {
		if !s.Deps.blocked(c.SourceURL) {
			usable = append(usable, c)
		}
	}
	ranked := order(RankVersion, usable, req.Metadata)
	if len(ranked) == 0 {
		return core.NotFound()
	}

	source := ranked[0].SourceURL
	path, err := s.download(ctx, source, ranked[0].Title, req)
	if err != nil {
		if errors.Is(err, youtube.ErrVideoPrivate) || errors.Is(err, youtube.ErrLoginRequired) ||
			errors.Is(err, ErrNoAudioFormat) {
			return core.NotFound()
		}
		return core.Transient(fmt.Errorf("failed to stream %s: %w", source, err))
	}
	return core.FoundPath(path, source)
}

func (s *Stream) download(ctx context.Context, source, title string, req *core.Request) (string, error) {
	client := s.Deps.YouTube
	if client == nil {
		client = &youtube.Client{}
	}

	video, err := client.GetVideoContext(ctx, source)
	if err != nil {
		return "", err
	}
	format := bestAudioFormat(video)
	if format == nil {
		return "", ErrNoAudioFormat
	}

	stream, _, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = stream.Close()
	}()

	if title == "" {
		title = video.Title
	}
	dest := filepath.Join(req.Dir, filename.WithExt(fileTitle(title, req), streamExt(format)))
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, io.LimitReader(stream, maxAudioBytes+1))
	closeErr := f.Close()
	switch {
	case err != nil:
	case closeErr != nil:
		err = closeErr
	case n > maxAudioBytes:
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	return dest, nil
}

// bestAudioFormat picks the audio-only format with the highest bitrate,
// preferring mp4 audio over webm on ties.
func bestAudioFormat(video *youtube.Video) *youtube.Format {
	var best *youtube.Format
	for i := range video.Formats {
		f := &video.Formats[i]
		if f.AudioChannels == 0 || f.Width != 0 || f.Height != 0 {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate ||
			(f.Bitrate == best.Bitrate && strings.Contains(f.MimeType, "mp4") && !strings.Contains(best.MimeType, "mp4")) {
			best = f
		}
	}
	return best
}

func streamExt(f *youtube.Format) string {
	if strings.Contains(f.MimeType, "webm") {
		return ".webm"
	}
	return ".m4a"
}
