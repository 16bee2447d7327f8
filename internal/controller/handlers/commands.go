package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const helpText = "📚 Справка по командам:\n\n" +
	"/settle <занятие> [способ] - Закрыть занятие\n" +
	"   способы: AUTO, CASH_THERAPIST, CASH_LEADER, CASHLESS_LEADER\n" +
	"/rate <терапевт> <процент> [ГГГГ-ММ-ДД] - Новая ставка терапевта\n" +
	"/balance <терапевт> - Баланс терапевта\n" +
	"/correct <терапевт> <сумма> <комментарий> - Корректировка баланса\n" +
	"/leave <терапевт> - Вывести терапевта из организации\n\n" +
	"Выплаты:\n" +
	"/payout <терапевт> - Создать заявку на выплату\n" +
	"/pending <терапевт> - Открытая заявка терапевта\n" +
	"/confirm <заявка> [сумма] - Подтвердить выплату\n" +
	"/refresh <заявка> - Пересчитать устаревшую заявку\n\n" +
	"Суммы в рублях: 1500 или 1500.50"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := "👋 Привет!\n\nЭто бот взаиморасчётов с терапевтами.\n"
	if update.Message.From != nil && h.IsAdmin(update.Message.From.ID) {
		text += "\n" + helpText
	} else {
		text += "Уведомления о выплатах будут приходить сюда."
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, text)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}
