// Package notify рассылает уведомления после финансовых операций.
// Доставка best-effort: ошибки только логируются вызывающей стороной.
package notify

import (
	"context"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
)

type Notifier interface {
	PayoutConfirmed(ctx context.Context, scope *model.TherapistScope, payout *model.PayoutRequest) error
}

// Nop ничего не отправляет, используется когда бот не настроен
type Nop struct{}

func (Nop) PayoutConfirmed(context.Context, *model.TherapistScope, *model.PayoutRequest) error {
	return nil
}
