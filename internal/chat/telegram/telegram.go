// Package telegram provides Telegram Bot API integration using go-telegram/bot library.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"unicode/utf16"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"trackhound/internal/chat"
	"trackhound/internal/flood"
)

const (
	entityTypeURL      = "url"
	entityTypeTextLink = "text_link"
	chatTypeGroup      = "group"
	chatTypeSuperGroup = "supergroup"
)

// ErrDisabled is returned by outbound calls when the frontend is disabled.
var ErrDisabled = errors.New("telegram frontend is disabled")

// Config holds Telegram-specific configuration
type Config struct {
	BotToken string
	// AllowedChatIDs restricts the bot to these chats; empty allows all.
	AllowedChatIDs      []int64
	Enabled             bool
	FloodLimitPerMinute int
}

// Frontend implements the chat.Frontend interface for Telegram
type Frontend struct {
	config    *Config
	logger    *zap.Logger
	bot       *bot.Bot
	floodgate *flood.Floodgate

	messageHandler func(*chat.Message)
}

// NewFrontend creates a new Telegram frontend
func NewFrontend(config *Config, logger *zap.Logger) *Frontend {
	return &Frontend{
		config:    config,
		logger:    logger,
		floodgate: flood.New(config.FloodLimitPerMinute),
	}
}

// Start creates the bot client and checks the token against the API.
func (f *Frontend) Start(ctx context.Context) error {
	if !f.config.Enabled {
		f.logger.Info("Telegram frontend is disabled, skipping initialization")
		return nil
	}

	b, err := bot.New(f.config.BotToken, bot.WithDefaultHandler(f.handleUpdate))
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	f.bot = b

	me, err := f.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify bot token: %w", err)
	}

	f.logger.Info("Telegram frontend started successfully",
		zap.String("username", me.Username),
		zap.Int("allowed_chats", len(f.config.AllowedChatIDs)))
	return nil
}

// Listen starts long polling and blocks until ctx is done.
func (f *Frontend) Listen(ctx context.Context, handler func(*chat.Message)) error {
	defer f.floodgate.Stop()
	if !f.config.Enabled {
		return nil
	}

	f.messageHandler = handler
	f.bot.Start(ctx)

	return nil
}

// FloodStats reports the per-user limiter state.
func (f *Frontend) FloodStats() flood.Stats {
	return f.floodgate.Stats()
}

// SendText sends a text message to the specified chat, optionally as a reply
func (f *Frontend) SendText(ctx context.Context, chatID, replyToID, text string) (string, error) {
	if !f.config.Enabled {
		return "", ErrDisabled
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat ID: %w", err)
	}

	disabled := true
	params := &bot.SendMessageParams{
		ChatID:             chatIDInt,
		Text:               text,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disabled},
	}

	reply, err := replyParameters(replyToID)
	if err != nil {
		return "", err
	}
	params.ReplyParameters = reply

	msg, err := f.bot.SendMessage(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return strconv.Itoa(msg.ID), nil
}

// EditMessage replaces the text of a message sent by the bot
func (f *Frontend) EditMessage(ctx context.Context, chatID, messageID, newText string) error {
	if !f.config.Enabled {
		return ErrDisabled
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("invalid message ID: %w", err)
	}

	if _, err := f.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatIDInt,
		MessageID: msgID,
		Text:      newText,
	}); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// React adds an emoji reaction to a message
func (f *Frontend) React(ctx context.Context, chatID, msgID string, r chat.Reaction) error {
	if !f.config.Enabled {
		return ErrDisabled
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	messageID, err := strconv.Atoi(msgID)
	if err != nil {
		return fmt.Errorf("invalid message ID: %w", err)
	}

	_, err = f.bot.SetMessageReaction(ctx, &bot.SetMessageReactionParams{
		ChatID:    chatIDInt,
		MessageID: messageID,
		Reaction: []models.ReactionType{
			{
				Type: models.ReactionTypeTypeEmoji,
				ReactionTypeEmoji: &models.ReactionTypeEmoji{
					Emoji: string(r),
				},
			},
		},
	})
	if err != nil {
		// Some chats disable reactions.
		f.logger.Debug("Failed to set reaction", zap.Error(err))
	}

	return nil
}

// SendAudio uploads audio.Path as an audio message. Files Telegram refuses as
// audio are retried as a plain document.
func (f *Frontend) SendAudio(ctx context.Context, chatID, replyToID string, audio *chat.Audio) (string, error) {
	if !f.config.Enabled {
		return "", ErrDisabled
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat ID: %w", err)
	}

	reply, err := replyParameters(replyToID)
	if err != nil {
		return "", err
	}

	file, err := os.Open(audio.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	filename := filepath.Base(audio.Path)
	msg, err := f.bot.SendAudio(ctx, &bot.SendAudioParams{
		ChatID:          chatIDInt,
		Audio:           &models.InputFileUpload{Filename: filename, Data: file},
		Title:           audio.Title,
		Performer:       audio.Performer,
		Duration:        audio.DurationSeconds,
		ReplyParameters: reply,
	})
	if err == nil {
		return strconv.Itoa(msg.ID), nil
	}

	f.logger.Warn("Failed to send audio, retrying as document",
		zap.String("file", filename),
		zap.Error(err))

	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to rewind audio file: %w", seekErr)
	}

	msg, err = f.bot.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:          chatIDInt,
		Document:        &models.InputFileUpload{Filename: filename, Data: file},
		ReplyParameters: reply,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send document: %w", err)
	}
	return strconv.Itoa(msg.ID), nil
}

// handleUpdate processes incoming Telegram updates
func (f *Frontend) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message != nil {
		f.handleMessage(ctx, update.Message)
	}
}

// handleMessage filters and converts a message, then hands it to the handler.
func (f *Frontend) handleMessage(_ context.Context, msg *models.Message) {
	message, ok := f.toMessage(msg)
	if !ok {
		return
	}

	if !f.floodgate.Allow(message.ChatID, message.SenderID) {
		f.logger.Warn("Dropping message from flooding user",
			zap.String("chat_id", message.ChatID),
			zap.String("sender", message.SenderName))
		return
	}

	if f.messageHandler != nil {
		f.messageHandler(message)
	}
}

// toMessage converts msg into the unified format. It rejects messages from
// bots, from chats outside the allowlist, and messages without any text.
func (f *Frontend) toMessage(msg *models.Message) (*chat.Message, bool) {
	if msg.From == nil || msg.From.IsBot {
		return nil, false
	}
	if !f.chatAllowed(msg.Chat.ID) {
		f.logger.Debug("Ignoring message from chat outside the allowlist",
			zap.Int64("chat_id", msg.Chat.ID))
		return nil, false
	}

	text, entities := msg.Text, msg.Entities
	if text == "" {
		text, entities = msg.Caption, msg.CaptionEntities
	}
	if text == "" {
		return nil, false
	}

	return &chat.Message{
		ID:         strconv.Itoa(msg.ID),
		ChatID:     strconv.FormatInt(msg.Chat.ID, 10),
		SenderID:   strconv.FormatInt(msg.From.ID, 10),
		SenderName: f.getUserDisplayName(msg.From),
		Text:       text,
		URLs:       f.extractURLs(text, entities),
		IsGroup:    msg.Chat.Type == chatTypeGroup || msg.Chat.Type == chatTypeSuperGroup,
		Raw:        msg,
	}, true
}

func (f *Frontend) chatAllowed(chatID int64) bool {
	return len(f.config.AllowedChatIDs) == 0 || slices.Contains(f.config.AllowedChatIDs, chatID)
}

// extractURLs extracts URLs from message entities. Entity offsets count
// UTF-16 code units.
func (f *Frontend) extractURLs(text string, entities []models.MessageEntity) []string {
	var urls []string
	var encoded []uint16

	for _, entity := range entities {
		switch entity.Type {
		case entityTypeTextLink:
			if entity.URL != "" {
				urls = append(urls, entity.URL)
			}
		case entityTypeURL:
			if encoded == nil {
				encoded = utf16.Encode([]rune(text))
			}
			end := entity.Offset + entity.Length
			if entity.Offset < 0 || end > len(encoded) {
				continue
			}
			urls = append(urls, string(utf16.Decode(encoded[entity.Offset:end])))
		}
	}

	return urls
}

// getUserDisplayName creates a display name for the user
func (f *Frontend) getUserDisplayName(user *models.User) string {
	if user.Username != "" {
		return "@" + user.Username
	}

	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}

	return name
}

func replyParameters(replyToID string) (*models.ReplyParameters, error) {
	if replyToID == "" {
		return nil, nil
	}
	messageID, err := strconv.Atoi(replyToID)
	if err != nil {
		return nil, fmt.Errorf("invalid reply message ID: %w", err)
	}
	return &models.ReplyParameters{MessageID: messageID}, nil
}
