package acquire

import (
	"fmt"
	"strings"

	"go.senan.xyz/taglib"

	"trackhound/internal/core"
)

// Tagger writes track metadata into a delivered file.
type Tagger interface {
	Tag(path string, meta *core.TrackMetadata) error
}

// TaglibTagger writes ID3 tags through taglib.
type TaglibTagger struct{}

func (TaglibTagger) Tag(path string, meta *core.TrackMetadata) error {
	tags := make(map[string][]string)

	if meta.Name != "" {
		tags[taglib.Title] = []string{meta.Name}
	}
	if len(meta.Artists) > 0 {
		tags[taglib.Artist] = []string{strings.Join(meta.Artists, ", ")}
		tags[taglib.AlbumArtist] = []string{meta.Artists[0]}
	} else if meta.Artist != "" {
		tags[taglib.Artist] = []string{meta.Artist}
	}
	if meta.Album != "" {
		tags[taglib.Album] = []string{meta.Album}
	}
	if len(tags) == 0 {
		return nil
	}

	if err := taglib.WriteTags(path, tags, 0); err != nil {
		return fmt.Errorf("failed to write tags: %w", err)
	}
	return nil
}
