package notify

import (
	"context"
	"fmt"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/formatting"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// Telegram отправляет уведомления терапевту в личный чат
type Telegram struct {
	bot    *bot.Bot
	logger *zap.Logger
}

func NewTelegram(b *bot.Bot, logger *zap.Logger) *Telegram {
	return &Telegram{bot: b, logger: logger}
}

// PayoutConfirmed сообщает терапевту о подтверждённой выплате
func (t *Telegram) PayoutConfirmed(ctx context.Context, scope *model.TherapistScope, payout *model.PayoutRequest) error {
	if scope == nil || scope.TelegramID == nil {
		t.logger.Debug("Therapist has no telegram chat, skipping notification",
			zap.Int64("payout_id", payout.ID))
		return nil
	}

	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *scope.TelegramID,
		Text:   PayoutConfirmedText(payout),
	})
	if err != nil {
		return fmt.Errorf("send payout notification: %w", err)
	}

	return nil
}

// PayoutConfirmedText формирует текст уведомления о выплате
func PayoutConfirmedText(payout *model.PayoutRequest) string {
	amount := payout.FinalAmount
	if payout.PaidAmount != nil {
		amount = *payout.PaidAmount
	}

	if amount < 0 {
		return fmt.Sprintf(
			"✅ Взаиморасчёт по заявке #%d подтверждён\n\n"+
				"Занятий: %d\n"+
				"Вы передали руководителю: %s",
			payout.ID, payout.LessonCount, formatting.FormatPrice(-amount),
		)
	}

	return fmt.Sprintf(
		"✅ Выплата по заявке #%d подтверждена\n\n"+
			"Занятий: %d\n"+
			"Сумма: %s",
		payout.ID, payout.LessonCount, formatting.FormatPrice(amount),
	)
}
