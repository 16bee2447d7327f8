package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// RequireAdmin пропускает команду только от администраторов из списка
func (h *Handlers) RequireAdmin(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}

		telegramID := update.Message.From.ID
		if !h.IsAdmin(telegramID) {
			h.logger.Warn("Rejected command from non-admin",
				zap.Int64("telegram_id", telegramID),
				zap.String("text", update.Message.Text),
			)
			h.sendError(ctx, b, update.Message.Chat.ID, "⛔ Эта команда доступна только администраторам.")
			return
		}

		next(ctx, b, update)
	}
}

// reportError логирует сбои и отвечает пользователю понятным текстом.
// Ожидаемые отказы (долг, устаревшая заявка) не считаются ошибками.
func (h *Handlers) reportError(ctx context.Context, b *bot.Bot, chatID int64, op string, err error) {
	if isExpected(err) {
		h.logger.Info("Command rejected", zap.String("op", op), zap.Error(err))
	} else {
		h.logger.Error("Command failed", zap.String("op", op), zap.Error(err))
	}
	h.sendError(ctx, b, chatID, ErrorMessage(err))
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
