package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"trackhound/internal/chat"
)

// MessageParser classifies raw chat text.
type MessageParser interface {
	ParseMessage(text string) InputMessage
}

// EventRecorder receives dispatcher events for metrics.
type EventRecorder interface {
	Message(msgType, status string)
	Error(component, errType string)
}

type nopEventRecorder struct{}

func (nopEventRecorder) Message(string, string) {}
func (nopEventRecorder) Error(string, string)   {}

var (
	// ErrNoResolver is returned when no configured resolver accepts a link.
	ErrNoResolver = errors.New("no resolver for link")
	// ErrNoTracks is returned when a link resolves to an empty collection.
	ErrNoTracks = errors.New("link contains no tracks")
)

// Dispatcher turns chat messages into acquisitions and delivers the results.
type Dispatcher struct {
	config     *Config
	frontend   chat.Frontend
	parser     MessageParser
	spotify    MetadataResolver
	musicLinks MetadataResolver
	acquirer   Acquirer
	recorder   EventRecorder
	logger     *zap.Logger

	// sleep waits between collection tracks; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewDispatcher creates a new dispatcher with the provided chat frontend.
// spotify and musicLinks may be nil when the corresponding links are unsupported.
func NewDispatcher(
	config *Config,
	frontend chat.Frontend,
	parser MessageParser,
	spotify MetadataResolver,
	musicLinks MetadataResolver,
	acquirer Acquirer,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		config:     config,
		frontend:   frontend,
		parser:     parser,
		spotify:    spotify,
		musicLinks: musicLinks,
		acquirer:   acquirer,
		recorder:   nopEventRecorder{},
		logger:     logger,
		sleep:      sleepContext,
		baseCtx:    context.Background(),
	}
}

// SetRecorder installs a metrics recorder.
func (d *Dispatcher) SetRecorder(r EventRecorder) {
	if r != nil {
		d.recorder = r
	}
}

// Start starts the chat frontend and processes messages until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info("Starting message dispatcher")
	d.baseCtx = ctx

	if err := d.frontend.Start(ctx); err != nil {
		return fmt.Errorf("failed to start chat frontend: %w", err)
	}

	return d.frontend.Listen(ctx, d.handleMessage)
}

// Stop waits for in-flight messages to finish or for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.logger.Info("Stopping message dispatcher")

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher did not drain: %w", ctx.Err())
	}
}

// handleMessage processes incoming chat messages.
func (d *Dispatcher) handleMessage(msg *chat.Message) {
	d.logger.Debug("Received message",
		zap.String("messageID", msg.ID),
		zap.String("sender", msg.SenderName),
		zap.String("text", msg.Text),
	)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.processMessage(d.baseCtx, msg)
	}()
}

// processMessage handles the main message processing logic.
func (d *Dispatcher) processMessage(ctx context.Context, msg *chat.Message) {
	if isCommand(msg.Text) {
		if isHelpCommand(msg.Text) {
			d.replyHelp(ctx, msg)
		}
		return
	}

	input := d.convertToInputMessage(msg)
	if input.Type == MessageTypeFreeText && len([]rune(input.Text)) < minQueryLength {
		d.recorder.Message(input.Type.String(), "ignored")
		return
	}

	d.reactProcessing(ctx, msg)

	var (
		tracks []TrackMetadata
		err    error
	)
	switch input.Type {
	case MessageTypeSpotifyLink:
		tracks, err = d.resolve(ctx, d.spotify, input.URLs)
	case MessageTypeNonSpotifyLink:
		tracks, err = d.resolve(ctx, d.musicLinks, input.URLs)
	case MessageTypeFreeText:
		delivered := d.deliver(ctx, msg, input.Text, nil)
		d.recordOutcome(input.Type, delivered)
		return
	}

	if err != nil {
		d.logger.Warn("Failed to resolve link",
			zap.String("type", input.Type.String()),
			zap.Strings("urls", input.URLs),
			zap.Error(err))
		d.recorder.Error("resolver", input.Type.String())
		d.recorder.Message(input.Type.String(), "unresolved")
		d.replyError(ctx, msg, msgResolveFailed)
		return
	}

	if len(tracks) == 1 {
		delivered := d.deliver(ctx, msg, tracks[0].Query(), &tracks[0])
		d.recordOutcome(input.Type, delivered)
		return
	}

	delivered := d.deliverCollection(ctx, msg, tracks)
	d.recordOutcome(input.Type, delivered > 0)
}

// resolve asks resolver for the tracks behind the first link it accepts.
func (d *Dispatcher) resolve(ctx context.Context, resolver MetadataResolver, urls []string) ([]TrackMetadata, error) {
	if resolver == nil {
		return nil, ErrNoResolver
	}
	for _, link := range urls {
		if !resolver.CanResolve(link) {
			continue
		}
		tracks, err := resolver.Resolve(ctx, link)
		if err != nil {
			return nil, err
		}
		if len(tracks) == 0 {
			return nil, ErrNoTracks
		}
		return tracks, nil
	}
	return nil, ErrNoResolver
}

// deliverCollection acquires and sends the tracks of a playlist or album one
// after another, pausing between them. It returns how many were delivered.
func (d *Dispatcher) deliverCollection(ctx context.Context, msg *chat.Message, tracks []TrackMetadata) int {
	limit := d.config.App.MaxCollectionTracks
	if limit <= 0 {
		limit = DefaultMaxCollectionTracks
	}
	total := len(tracks)
	if total > limit {
		tracks = tracks[:limit]
	}

	d.reply(ctx, msg, fmt.Sprintf(msgCollectionStart, total, len(tracks)))

	delivered := 0
	for i := range tracks {
		if i > 0 {
			if err := d.sleep(ctx, d.config.App.TrackDelay); err != nil {
				d.logger.Info("Collection delivery cancelled",
					zap.Int("delivered", delivered),
					zap.Int("remaining", len(tracks)-i))
				return delivered
			}
		}
		if d.deliver(ctx, msg, tracks[i].Query(), &tracks[i]) {
			delivered++
		}
	}

	d.reply(ctx, msg, fmt.Sprintf(msgCollectionDone, delivered, len(tracks)))
	return delivered
}

// deliver runs one acquisition and uploads the file. The status message it
// posts is edited to report the outcome.
func (d *Dispatcher) deliver(ctx context.Context, msg *chat.Message, query string, meta *TrackMetadata) bool {
	label := query
	if meta != nil {
		label = meta.DisplayName()
	}

	statusID, err := d.frontend.SendText(ctx, msg.ChatID, msg.ID, fmt.Sprintf(msgSearching, label))
	if err != nil {
		d.logger.Debug("Failed to send status message", zap.Error(err))
	}

	started := time.Now()
	result := d.acquirer.Run(ctx, query, meta)
	if !result.Success {
		d.logger.Info("Track not found",
			zap.String("query", query),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(result.Err))
		d.updateStatus(ctx, msg, statusID, fmt.Sprintf(msgNotFound, label))
		d.react(ctx, msg, chat.ReactionThumbsDown)
		return false
	}
	defer func() {
		if err := result.Discard(); err != nil {
			d.logger.Warn("Failed to remove delivered file",
				zap.String("path", result.FilePath),
				zap.Error(err))
		}
	}()

	audio := &chat.Audio{Path: result.FilePath, Title: query}
	if meta != nil {
		audio.Title = meta.Name
		audio.Performer = meta.Artist
		audio.DurationSeconds = meta.DurationSeconds
	}

	if _, err := d.frontend.SendAudio(ctx, msg.ChatID, msg.ID, audio); err != nil {
		d.logger.Error("Failed to send audio",
			zap.String("path", result.FilePath),
			zap.Error(err))
		d.recorder.Error("frontend", "send_audio")
		d.updateStatus(ctx, msg, statusID, fmt.Sprintf(msgUploadFailed, label))
		return false
	}

	d.logger.Info("Track delivered",
		zap.String("query", query),
		zap.String("provider", result.ProviderName),
		zap.Int64("size", result.Size),
		zap.Duration("elapsed", time.Since(started)))
	d.updateStatus(ctx, msg, statusID, fmt.Sprintf(msgDelivered, label, result.ProviderName))
	d.react(ctx, msg, chat.ReactionThumbsUp)
	return true
}

func (d *Dispatcher) recordOutcome(t MessageType, delivered bool) {
	status := "failed"
	if delivered {
		status = "delivered"
	}
	d.recorder.Message(t.String(), status)
}

// convertToInputMessage classifies a chat message. Entity links missing from
// the visible text, such as hidden text links, are appended before parsing.
func (d *Dispatcher) convertToInputMessage(msg *chat.Message) InputMessage {
	text := msg.Text
	for _, u := range msg.URLs {
		if !strings.Contains(text, u) {
			text += " " + u
		}
	}

	input := d.parser.ParseMessage(text)
	input.ChatID = msg.ChatID
	input.SenderID = msg.SenderID
	input.MessageID = msg.ID
	input.Timestamp = time.Now()
	return input
}

func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

func isHelpCommand(text string) bool {
	cmd, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd == "/start" || cmd == "/help"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
