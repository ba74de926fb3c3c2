package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/satangel2222/tg-mtproto-uploader/internal/domain"
)

// TelegramMessenger delivers local files through the Telegram Bot API.
type TelegramMessenger struct {
	bot    *bot.Bot
	logger *zap.Logger
}

// NewTelegramMessenger starts the long-lived client. The token is verified
// once here; the client is shared by every request afterwards and never
// re-created per request.
func NewTelegramMessenger(cfg *domain.TelegramConfig, logger *zap.Logger) (*TelegramMessenger, error) {
	var opts []bot.Option
	if cfg.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.ServerURL))
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("start telegram client: %w", err)
	}

	return &TelegramMessenger{bot: b, logger: logger}, nil
}

// SendVideo uploads the file at path as a streamable video.
func (m *TelegramMessenger) SendVideo(ctx context.Context, chatID, path, caption string, mode domain.FormatMode) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, &domain.UploadError{Err: err}
	}
	defer file.Close()

	msg, err := m.bot.SendVideo(ctx, &bot.SendVideoParams{
		ChatID:            destination(chatID),
		Video:             &models.InputFileUpload{Filename: filepath.Base(path), Data: file},
		Caption:           caption,
		ParseMode:         parseMode(mode),
		SupportsStreaming: true,
	})
	if err != nil {
		return 0, &domain.UploadError{Err: err}
	}

	m.logger.Debug("video delivered",
		zap.String("chat", chatID),
		zap.Int("message_id", msg.ID))
	return msg.ID, nil
}

// SendPhoto uploads the file at path as a photo.
func (m *TelegramMessenger) SendPhoto(ctx context.Context, chatID, path, caption string, mode domain.FormatMode) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, &domain.UploadError{Err: err}
	}
	defer file.Close()

	msg, err := m.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:    destination(chatID),
		Photo:     &models.InputFileUpload{Filename: filepath.Base(path), Data: file},
		Caption:   caption,
		ParseMode: parseMode(mode),
	})
	if err != nil {
		return 0, &domain.UploadError{Err: err}
	}

	m.logger.Debug("photo delivered",
		zap.String("chat", chatID),
		zap.Int("message_id", msg.ID))
	return msg.ID, nil
}

// destination converts a chat identifier for the wire: numeric ids go as
// integers, @usernames stay strings.
func destination(chatID string) any {
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return id
	}
	return chatID
}

func parseMode(mode domain.FormatMode) models.ParseMode {
	switch mode {
	case domain.FormatHTML:
		return models.ParseModeHTML
	case domain.FormatMarkdown:
		// Legacy Markdown on the wire. models.ParseModeMarkdown means
		// MarkdownV2, whose escaping rules would break captions written
		// for the original Markdown.
		return models.ParseMode("Markdown")
	default:
		return ""
	}
}
