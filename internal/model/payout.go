package model

import "time"

type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "PENDING"
	PayoutStatusPaid    PayoutStatus = "PAID"
)

// PayoutRequest - заявка на выплату. CreatedAt служит границей отбора занятий
type PayoutRequest struct {
	ID               int64        `json:"id"`
	TherapistID      int64        `json:"therapist_id"`
	BalanceSnapshot  int64        `json:"balance_snapshot"`
	CashHeldSnapshot int64        `json:"cash_held_snapshot"`
	FinalAmount      int64        `json:"final_amount"`
	LessonCount      int          `json:"lesson_count"`
	Status           PayoutStatus `json:"status"`
	ConfirmedBy      *int64       `json:"confirmed_by"`
	ConfirmedAt      *time.Time   `json:"confirmed_at"`
	PaidAmount       *int64       `json:"paid_amount"`
	CreatedAt        time.Time    `json:"created_at"`
}

// IsPending проверяет, ожидает ли заявка подтверждения
func (p *PayoutRequest) IsPending() bool {
	return p.Status == PayoutStatusPending
}

// PayoutLessonLink фиксирует, какие занятия вошли в выплату
type PayoutLessonLink struct {
	PayoutID  int64     `json:"payout_id"`
	LessonID  int64     `json:"lesson_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PayoutLesson - закрытое и невыплаченное занятие со всем, что нужно для расчёта выплаты
type PayoutLesson struct {
	LessonID       int64
	SettledAt      time.Time
	Percent        *int
	Revenue        *int64
	TherapistShare *int64
	LeaderShare    *int64
	NominalPrice   *int64 // из метаданных проводок
	RevenueEntry   *int64 // сумма проводки REVENUE
	ContractRate   *int64 // договорная цена ребёнка
	PaidBy         Payer
}
