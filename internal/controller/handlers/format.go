package handlers

import (
	"fmt"
	"strings"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/formatting"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/service"
)

const timeLayout = "02.01.2006 15:04"

// PaymentMethodDisplay возвращает название способа оплаты
func PaymentMethodDisplay(m model.PaymentMethod) string {
	switch m {
	case model.PaymentSubscription:
		return "🎟 Абонемент"
	case model.PaymentCashTherapist:
		return "💵 Наличные терапевту"
	case model.PaymentCashLeader:
		return "💵 Наличные руководителю"
	case model.PaymentCashlessLeader:
		return "💳 Безнал руководителю"
	default:
		return string(m)
	}
}

// FormatSettlement форматирует результат закрытия занятия
func FormatSettlement(res *service.SettlementResult) string {
	if !res.Applied {
		return fmt.Sprintf("ℹ️ Занятие #%d уже закрыто, ничего не изменено", res.LessonID)
	}

	text := fmt.Sprintf(
		"✅ Занятие #%d закрыто\n\n"+
			"Оплата: %s\n"+
			"Процент терапевта: %d%%\n"+
			"Выручка: %s\n"+
			"Доля терапевта: %s\n"+
			"Доля руководителя: %s",
		res.LessonID,
		PaymentMethodDisplay(res.Method),
		res.Percent,
		formatting.FormatPrice(res.Shares.Revenue),
		formatting.FormatPrice(res.Shares.TherapistShare),
		formatting.FormatPrice(res.Shares.LeaderShare),
	)

	if res.PassID != nil {
		text += fmt.Sprintf("\nСписано с абонемента #%d", *res.PassID)
	}

	return text
}

// FormatRate форматирует новую ставку
func FormatRate(rate *model.CommissionRate) string {
	return fmt.Sprintf(
		"✅ Ставка терапевта #%d: %d%% с %s",
		rate.TherapistID,
		rate.Percent,
		rate.ValidFrom.Format(timeLayout),
	)
}

// FormatPayoutRequest форматирует заявку на выплату
func FormatPayoutRequest(req *model.PayoutRequest) string {
	status := "⏳ Ожидает подтверждения"
	if !req.IsPending() {
		status = "✅ Выплачена"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 Заявка #%d\n\n", req.ID)
	fmt.Fprintf(&sb, "Терапевт: #%d\n", req.TherapistID)
	fmt.Fprintf(&sb, "Статус: %s\n", status)
	fmt.Fprintf(&sb, "Занятий: %d\n", req.LessonCount)
	fmt.Fprintf(&sb, "Начислено: %s\n", formatting.FormatPrice(req.BalanceSnapshot))
	fmt.Fprintf(&sb, "Наличные у терапевта: %s\n", formatting.FormatPrice(req.CashHeldSnapshot))

	if req.FinalAmount < 0 {
		fmt.Fprintf(&sb, "К возврату руководителю: %s\n", formatting.FormatPrice(-req.FinalAmount))
	} else {
		fmt.Fprintf(&sb, "К выплате: %s\n", formatting.FormatPrice(req.FinalAmount))
	}

	if req.PaidAmount != nil {
		fmt.Fprintf(&sb, "Выплачено: %s\n", formatting.FormatPrice(*req.PaidAmount))
	}

	fmt.Fprintf(&sb, "Создана: %s", req.CreatedAt.Format(timeLayout))
	return sb.String()
}

// FormatBalance форматирует баланс терапевта
func FormatBalance(therapistID int64, b model.Balance) string {
	net := b.Net()

	summary := "✅ Взаиморасчёты закрыты"
	switch {
	case net > 0:
		summary = "Организация должна терапевту: " + formatting.FormatPrice(net)
	case net < 0:
		summary = "Терапевт должен организации: " + formatting.FormatPrice(-net)
	}

	return fmt.Sprintf(
		"📊 Баланс терапевта #%d\n\n"+
			"Начислено: %s\n"+
			"Наличные у терапевта: %s\n"+
			"Выплачено: %s\n"+
			"Корректировки: %s\n"+
			"Выручка организации: %s\n\n"+
			"%s",
		therapistID,
		formatting.FormatPrice(b.TherapistBalance),
		formatting.FormatPrice(b.CashHeld),
		formatting.FormatPrice(b.Payouts),
		formatting.FormatPrice(b.Corrections),
		formatting.FormatPrice(b.Revenue),
		summary,
	)
}
