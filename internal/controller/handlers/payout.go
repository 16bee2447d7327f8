package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandlePayout обрабатывает /payout <терапевт>
func (h *Handlers) HandlePayout(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	therapistID, err := singleID(commandArgs(update.Message.Text), "/payout <therapist>")
	if err != nil {
		h.reportError(ctx, b, chatID, "request payout", err)
		return
	}

	req, err := h.payoutService.RequestPayout(ctx, therapistID)
	if err != nil {
		h.reportError(ctx, b, chatID, "request payout", err)
		return
	}

	h.sendMessage(ctx, b, chatID, FormatPayoutRequest(req)+
		fmt.Sprintf("\n\nПодтвердить: /confirm %d", req.ID))
}

// HandlePending обрабатывает /pending <терапевт>
func (h *Handlers) HandlePending(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	therapistID, err := singleID(commandArgs(update.Message.Text), "/pending <therapist>")
	if err != nil {
		h.reportError(ctx, b, chatID, "pending payout", err)
		return
	}

	req, err := h.payoutService.Pending(ctx, therapistID)
	if err != nil {
		h.reportError(ctx, b, chatID, "pending payout", err)
		return
	}

	if req == nil {
		h.sendMessage(ctx, b, chatID, fmt.Sprintf("📭 У терапевта #%d нет открытых заявок", therapistID))
		return
	}

	h.sendMessage(ctx, b, chatID, FormatPayoutRequest(req))
}

// HandleConfirm обрабатывает /confirm <заявка> [сумма]
func (h *Handlers) HandleConfirm(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	payoutID, override, err := parseConfirmArgs(commandArgs(update.Message.Text))
	if err != nil {
		h.reportError(ctx, b, chatID, "confirm payout", err)
		return
	}

	// подтверждающий - администратор, отправивший команду
	req, err := h.payoutService.ConfirmPayout(ctx, payoutID, update.Message.From.ID, override)
	if err != nil {
		h.reportError(ctx, b, chatID, "confirm payout", err)
		return
	}

	h.sendMessage(ctx, b, chatID, FormatPayoutRequest(req))
}

func parseConfirmArgs(args []string) (int64, *int64, error) {
	if len(args) < 1 || len(args) > 2 {
		return 0, nil, fmt.Errorf("%w: /confirm <payout> [amount]", ErrUsage)
	}

	payoutID, err := parseID(args[0])
	if err != nil {
		return 0, nil, err
	}

	if len(args) == 1 {
		return payoutID, nil, nil
	}

	amount, err := parseAmount(args[1])
	if err != nil {
		return 0, nil, err
	}

	return payoutID, &amount, nil
}

// HandleRefresh обрабатывает /refresh <заявка>
func (h *Handlers) HandleRefresh(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	payoutID, err := singleID(commandArgs(update.Message.Text), "/refresh <payout>")
	if err != nil {
		h.reportError(ctx, b, chatID, "refresh payout", err)
		return
	}

	req, err := h.payoutService.Refresh(ctx, payoutID)
	if err != nil {
		h.reportError(ctx, b, chatID, "refresh payout", err)
		return
	}

	h.sendMessage(ctx, b, chatID, "🔄 Заявка пересчитана\n\n"+FormatPayoutRequest(req))
}
