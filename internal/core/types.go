package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type MessageType int

const (
	// MessageTypeSpotifyLink represents a message containing a Spotify track, album or playlist URL
	MessageTypeSpotifyLink MessageType = iota
	// MessageTypeNonSpotifyLink represents a message containing a link to another music service
	MessageTypeNonSpotifyLink
	// MessageTypeFreeText represents a plain search query
	MessageTypeFreeText
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeSpotifyLink:
		return "spotify_link"
	case MessageTypeNonSpotifyLink:
		return "music_link"
	case MessageTypeFreeText:
		return "free_text"
	default:
		return "unknown"
	}
}

type InputMessage struct {
	Type      MessageType
	Text      string
	URLs      []string
	ChatID    string
	SenderID  string
	MessageID string
	Timestamp time.Time
}

// TrackMetadata describes a track as reported by a metadata service.
type TrackMetadata struct {
	Name            string
	Artist          string
	Artists         []string
	Album           string
	DurationSeconds int
	ExternalURL     string
}

// Query returns the canonical search string "{name} {artist}".
func (m TrackMetadata) Query() string {
	return strings.TrimSpace(m.Name + " " + m.Artist)
}

// DisplayName returns "Artist - Name", or just the name when the artist is unknown.
func (m TrackMetadata) DisplayName() string {
	if m.Artist == "" {
		return m.Name
	}
	return m.Artist + " - " + m.Name
}

// FormattedDuration renders the duration as m:ss.
func (m TrackMetadata) FormattedDuration() string {
	if m.DurationSeconds <= 0 {
		return "?:??"
	}
	return fmt.Sprintf("%d:%02d", m.DurationSeconds/60, m.DurationSeconds%60)
}

// SearchQuery is a canonical query plus alternates, tried in order.
type SearchQuery struct {
	Canonical  string
	Alternates []string
}

// All returns the canonical query followed by the alternates with duplicates
// and blanks removed, preserving first-seen order.
func (q SearchQuery) All() []string {
	seen := make(map[string]struct{}, len(q.Alternates)+1)
	out := make([]string, 0, len(q.Alternates)+1)
	for _, s := range append([]string{q.Canonical}, q.Alternates...) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Candidate is a search hit from a source before it is ranked.
type Candidate struct {
	SourceURL       string
	Title           string
	DurationSeconds int
	Popularity      int64
}

type ScoredCandidate struct {
	Candidate
	Score int
}

// AudioFile is a file that a provider wrote and confirmed on disk.
type AudioFile struct {
	Path      string
	Size      int64
	SourceURL string
}

// Ext returns the lower-case file extension including the dot.
func (f *AudioFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Path))
}

// Request is what a provider receives for a single cascade step.
type Request struct {
	Query    string
	Metadata *TrackMetadata
	// Dir is the per-request workspace; providers write only here.
	Dir string
}

// Title returns the best available title for naming files.
func (r *Request) Title() string {
	if r.Metadata != nil && r.Metadata.Name != "" {
		return r.Metadata.DisplayName()
	}
	return r.Query
}

// Status is the kind of a provider outcome.
type Status int

const (
	// StatusNotFound means the provider worked but had nothing suitable
	StatusNotFound Status = iota
	// StatusFound means the provider produced a verified audio file
	StatusFound
	// StatusTransient means the provider failed (network, parsing, tool error)
	StatusTransient
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Outcome is the result of one provider attempt.
type Outcome struct {
	Status Status
	File   *AudioFile
	Err    error
}

func Found(file *AudioFile) Outcome {
	return Outcome{Status: StatusFound, File: file}
}

func NotFound() Outcome {
	return Outcome{Status: StatusNotFound}
}

func Transient(err error) Outcome {
	return Outcome{Status: StatusTransient, Err: err}
}

// FoundPath stats path and returns Found when it is a non-empty regular file.
func FoundPath(path, sourceURL string) Outcome {
	info, err := os.Stat(path)
	if err != nil {
		return Transient(fmt.Errorf("failed to stat downloaded file: %w", err))
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		_ = os.Remove(path)
		return NotFound()
	}
	return Found(&AudioFile{Path: path, Size: info.Size(), SourceURL: sourceURL})
}

// Result is the terminal value of one acquisition run. The caller owns the
// file and must call Discard once it is delivered.
type Result struct {
	Success      bool
	FilePath     string
	ProviderName string
	Size         int64
	SourceURL    string
	Err          error

	workspace string
}

// NewResult builds a successful result rooted in workspace.
func NewResult(file *AudioFile, provider, workspace string) Result {
	return Result{
		Success:      true,
		FilePath:     file.Path,
		ProviderName: provider,
		Size:         file.Size,
		SourceURL:    file.SourceURL,
		workspace:    workspace,
	}
}

// Failed builds an unsuccessful result.
func Failed(err error) Result {
	return Result{Err: err}
}

// Discard removes the delivered file together with its workspace.
func (r Result) Discard() error {
	if r.workspace != "" {
		return os.RemoveAll(r.workspace)
	}
	if r.FilePath != "" {
		if err := os.Remove(r.FilePath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Provider searches one source and downloads the best match into req.Dir.
// Implementations report every failure through the Outcome.
type Provider interface {
	Name() string
	SearchAndDownload(ctx context.Context, req *Request) Outcome
}

// MetadataResolver turns a link into one or more tracks.
type MetadataResolver interface {
	CanResolve(link string) bool
	Resolve(ctx context.Context, link string) ([]TrackMetadata, error)
}

// Acquirer runs one bounded acquisition.
type Acquirer interface {
	Run(ctx context.Context, query string, meta *TrackMetadata) Result
}

// SourceFilter remembers source URLs that produced unusable audio.
type SourceFilter interface {
	Has(sourceURL string) bool
	Add(sourceURL string)
}
