// Package chat provides the interface the dispatcher uses to talk to a chat network.
package chat

import (
	"context"
)

// Message represents a normalized chat message from any frontend
type Message struct {
	ID         string
	ChatID     string
	SenderID   string
	SenderName string
	Text       string
	// URLs holds links carried by message entities, including hidden text links.
	URLs    []string
	IsGroup bool
	Raw     any // underlying library message struct
}

// Reaction represents standard emoji reactions
type Reaction string

const (
	ReactionWorking    Reaction = "👀"
	ReactionThumbsUp   Reaction = "👍"
	ReactionThumbsDown Reaction = "👎"
)

// Audio is a file delivered back to the chat.
type Audio struct {
	Path            string
	Title           string
	Performer       string
	DurationSeconds int
}

// Frontend defines the interface for chat integrations
type Frontend interface {
	// Start connects to the chat network
	Start(ctx context.Context) error

	// Listen blocks and calls handler for every accepted message until ctx is done
	Listen(ctx context.Context, handler func(*Message)) error

	// SendText sends a text message to the specified chat, optionally as a reply
	SendText(ctx context.Context, chatID string, replyToID string, text string) (string, error)

	// EditMessage replaces the text of a message the bot sent earlier
	EditMessage(ctx context.Context, chatID, messageID, newText string) error

	// React adds an emoji reaction to a message
	React(ctx context.Context, chatID string, msgID string, r Reaction) error

	// SendAudio uploads a local audio file, optionally as a reply
	SendAudio(ctx context.Context, chatID string, replyToID string, audio *Audio) (string, error)
}
