package core

import (
	"context"

	"go.uber.org/zap"

	"trackhound/internal/chat"
)

// minQueryLength is the shortest free-text message treated as a search.
const minQueryLength = 3

const (
	msgHelp = "Send me a Spotify track, album or playlist link, a YouTube, SoundCloud, " +
		"Apple Music, Tidal, Beatport or Amazon Music link, or just \"artist title\", " +
		"and I will look for an mp3."
	msgSearching       = "🔎 Searching for %s..."
	msgNotFound        = "❌ Could not find %s on any source."
	msgUploadFailed    = "⚠️ Found %s but the upload failed."
	msgDelivered       = "✅ %s (via %s)"
	msgResolveFailed   = "❌ Could not read track information from that link."
	msgCollectionStart = "📀 Found %d tracks, sending %d of them one by one."
	msgCollectionDone  = "📀 Done: %d of %d tracks delivered."
)

// reply sends text as a reply to the original message.
func (d *Dispatcher) reply(ctx context.Context, originalMsg *chat.Message, text string) {
	if _, err := d.frontend.SendText(ctx, originalMsg.ChatID, originalMsg.ID, text); err != nil {
		d.logger.Error("Failed to send reply", zap.Error(err))
	}
}

// replyError sends error messages.
func (d *Dispatcher) replyError(ctx context.Context, originalMsg *chat.Message, message string) {
	d.react(ctx, originalMsg, chat.ReactionThumbsDown)
	d.reply(ctx, originalMsg, message)
}

// replyHelp sends a help message to the user explaining how to use the bot.
func (d *Dispatcher) replyHelp(ctx context.Context, originalMsg *chat.Message) {
	d.reply(ctx, originalMsg, msgHelp)
}

// reactProcessing adds a processing reaction to show the message is being handled.
func (d *Dispatcher) reactProcessing(ctx context.Context, msg *chat.Message) {
	d.react(ctx, msg, chat.ReactionWorking)
}

func (d *Dispatcher) react(ctx context.Context, msg *chat.Message, r chat.Reaction) {
	if err := d.frontend.React(ctx, msg.ChatID, msg.ID, r); err != nil {
		d.logger.Debug("Failed to add reaction", zap.String("reaction", string(r)), zap.Error(err))
	}
}

// updateStatus edits the status message, or replies when none was sent.
func (d *Dispatcher) updateStatus(ctx context.Context, originalMsg *chat.Message, statusID, text string) {
	if statusID != "" {
		if err := d.frontend.EditMessage(ctx, originalMsg.ChatID, statusID, text); err == nil {
			return
		}
	}
	d.reply(ctx, originalMsg, text)
}
