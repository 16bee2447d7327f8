package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/formatting"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleSettle обрабатывает /settle <занятие> [способ]
func (h *Handlers) HandleSettle(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	lessonID, method, err := parseSettleArgs(commandArgs(update.Message.Text))
	if err != nil {
		h.reportError(ctx, b, chatID, "settle", err)
		return
	}

	res, err := h.settlementService.SettleLesson(ctx, lessonID, method)
	if err != nil {
		h.reportError(ctx, b, chatID, "settle", err)
		return
	}

	h.logger.Info("Lesson settled via bot",
		zap.Int64("lesson_id", lessonID),
		zap.Int64("admin_id", update.Message.From.ID),
		zap.Bool("applied", res.Applied),
	)

	h.sendMessage(ctx, b, chatID, FormatSettlement(res))
}

func parseSettleArgs(args []string) (int64, model.SettlementMethod, error) {
	if len(args) < 1 || len(args) > 2 {
		return 0, "", fmt.Errorf("%w: /settle <lesson> [method]", ErrUsage)
	}

	lessonID, err := parseID(args[0])
	if err != nil {
		return 0, "", err
	}

	raw := ""
	if len(args) == 2 {
		raw = args[1]
	}
	method, err := parseMethod(raw)
	if err != nil {
		return 0, "", err
	}

	return lessonID, method, nil
}

// HandleRate обрабатывает /rate <терапевт> <процент> [ГГГГ-ММ-ДД]
func (h *Handlers) HandleRate(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	therapistID, percent, validFrom, err := parseRateArgs(commandArgs(update.Message.Text))
	if err != nil {
		h.reportError(ctx, b, chatID, "set rate", err)
		return
	}

	rate, err := h.commissionService.SetRate(ctx, therapistID, percent, validFrom)
	if err != nil {
		h.reportError(ctx, b, chatID, "set rate", err)
		return
	}

	h.sendMessage(ctx, b, chatID, FormatRate(rate))
}

// parseRateArgs - без даты ставка действует с текущего момента
func parseRateArgs(args []string) (int64, int, time.Time, error) {
	if len(args) < 2 || len(args) > 3 {
		return 0, 0, time.Time{}, fmt.Errorf("%w: /rate <therapist> <percent> [date]", ErrUsage)
	}

	therapistID, err := parseID(args[0])
	if err != nil {
		return 0, 0, time.Time{}, err
	}

	percent, err := parsePercent(args[1])
	if err != nil {
		return 0, 0, time.Time{}, err
	}

	var validFrom time.Time
	if len(args) == 3 {
		if validFrom, err = parseDate(args[2]); err != nil {
			return 0, 0, time.Time{}, err
		}
	}

	return therapistID, percent, validFrom, nil
}

// HandleBalance обрабатывает /balance <терапевт>
func (h *Handlers) HandleBalance(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	therapistID, err := singleID(commandArgs(update.Message.Text), "/balance <therapist>")
	if err != nil {
		h.reportError(ctx, b, chatID, "balance", err)
		return
	}

	balance, err := h.ledgerService.Balance(ctx, therapistID)
	if err != nil {
		h.reportError(ctx, b, chatID, "balance", err)
		return
	}

	h.sendMessage(ctx, b, chatID, FormatBalance(therapistID, balance))
}

// HandleCorrect обрабатывает /correct <терапевт> <сумма> <комментарий>
func (h *Handlers) HandleCorrect(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) < 3 {
		h.reportError(ctx, b, chatID, "correct", fmt.Errorf("%w: /correct <therapist> <amount> <note>", ErrUsage))
		return
	}

	therapistID, err := parseID(args[0])
	if err != nil {
		h.reportError(ctx, b, chatID, "correct", err)
		return
	}

	amount, err := parseAmount(args[1])
	if err != nil {
		h.reportError(ctx, b, chatID, "correct", err)
		return
	}

	note := fmt.Sprintf("%s (admin %d)", strings.Join(args[2:], " "), update.Message.From.ID)
	entry, err := h.ledgerService.RecordCorrection(ctx, therapistID, amount, note)
	if err != nil {
		h.reportError(ctx, b, chatID, "correct", err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"✅ Корректировка #%d на %s записана",
		entry.ID, formatting.FormatPrice(entry.Amount),
	))
}

// HandleLeave обрабатывает /leave <терапевт>
func (h *Handlers) HandleLeave(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	therapistID, err := singleID(commandArgs(update.Message.Text), "/leave <therapist>")
	if err != nil {
		h.reportError(ctx, b, chatID, "leave organization", err)
		return
	}

	if err := h.membershipService.LeaveOrganization(ctx, therapistID); err != nil {
		h.reportError(ctx, b, chatID, "leave organization", err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Терапевт #%d выведен из организации", therapistID))
}

func singleID(args []string, usage string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	return parseID(args[0])
}
