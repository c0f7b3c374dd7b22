package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"trackhound/internal/core"
)

var (
	// ErrUnsupportedFormat means the provider delivered a file with an unknown extension
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrUndersized means the delivered file is too small to be a real track
	ErrUndersized = errors.New("audio file too small")
	// ErrConversionFailed means the file could not be turned into a usable mp3
	ErrConversionFailed = errors.New("audio conversion failed")
)

var acceptedExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".wav":  true,
	".webm": true,
}

// finalize validates a provider file, converts it to mp3 when needed and tags
// it. Every error is fatal for the request and leaves no output behind.
func (o *Orchestrator) finalize(ctx context.Context, file *core.AudioFile, meta *core.TrackMetadata) (*core.AudioFile, error) {
	ext := file.Ext()
	if !acceptedExtensions[ext] {
		removeQuietly(file.Path)
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if ext != ".mp3" {
		converted, err := o.convert(ctx, file)
		if err != nil {
			return nil, err
		}
		file = converted
	}

	if o.tagger != nil && meta != nil {
		if err := o.tagger.Tag(file.Path, meta); err != nil {
			o.logger.Warn("Failed to tag file", zap.String("file", filepath.Base(file.Path)), zap.Error(err))
		} else if info, err := os.Stat(file.Path); err == nil {
			file.Size = info.Size()
		}
	}

	return file, nil
}

func (o *Orchestrator) convert(ctx context.Context, file *core.AudioFile) (*core.AudioFile, error) {
	if file.Size < o.config.MinConvertBytes {
		removeQuietly(file.Path)
		return nil, fmt.Errorf("%w: %d bytes", ErrUndersized, file.Size)
	}

	out := strings.TrimSuffix(file.Path, filepath.Ext(file.Path)) + ".mp3"

	convCtx, cancel := context.WithTimeout(ctx, o.config.ConvertTimeout)
	defer cancel()

	if err := o.transcoder.Transcode(convCtx, file.Path, out); err != nil {
		removeQuietly(out)
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	info, err := os.Stat(out)
	if err != nil {
		return nil, fmt.Errorf("%w: output missing: %w", ErrConversionFailed, err)
	}
	if info.Size() <= o.config.MinOutputBytes {
		removeQuietly(out)
		return nil, fmt.Errorf("%w: output is only %d bytes", ErrConversionFailed, info.Size())
	}

	removeQuietly(file.Path)

	o.logger.Debug("Converted download to mp3",
		zap.String("from", filepath.Ext(file.Path)),
		zap.Int64("size", info.Size()))

	return &core.AudioFile{Path: out, Size: info.Size(), SourceURL: file.SourceURL}, nil
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		_ = os.RemoveAll(path)
	}
}
