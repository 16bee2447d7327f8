package model

import (
	"time"

	"github.com/google/uuid"
)

type EntryKind string

const (
	EntryTherapistBalance EntryKind = "THERAPIST_BALANCE" // начислено терапевту
	EntryCashHeld         EntryKind = "CASH_HELD"         // наличные у терапевта, которые он должен руководителю
	EntryRevenue          EntryKind = "REVENUE"           // выручка организации
	EntryPayout           EntryKind = "PAYOUT"            // выплата по заявке
	EntrySettlement       EntryKind = "SETTLEMENT"        // ручная корректировка
)

// PaymentMethod - фактический способ оплаты занятия, фиксируется в проводке при расчёте
type PaymentMethod string

const (
	PaymentSubscription   PaymentMethod = "SUBSCRIPTION"
	PaymentCashTherapist  PaymentMethod = "CASH_THERAPIST"
	PaymentCashLeader     PaymentMethod = "CASH_LEADER"
	PaymentCashlessLeader PaymentMethod = "CASHLESS_LEADER"
)

// Payer - кто получил деньги клиента
type Payer string

const (
	PayerTherapist Payer = "THERAPIST"
	PayerLeader    Payer = "LEADER"
)

// PaidBy возвращает получателя денег для способа оплаты
func (m PaymentMethod) PaidBy() Payer {
	if m == PaymentCashTherapist {
		return PayerTherapist
	}
	return PayerLeader
}

// Valid проверяет, что способ оплаты из известного набора
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentSubscription, PaymentCashTherapist, PaymentCashLeader, PaymentCashlessLeader:
		return true
	}
	return false
}

// LedgerEntry - неизменяемая проводка. Суммы в копейках, со знаком
type LedgerEntry struct {
	ID            int64          `json:"id"`
	BatchID       uuid.UUID      `json:"batch_id"` // проводки одной операции
	TherapistID   int64          `json:"therapist_id"`
	LessonID      *int64         `json:"lesson_id"`
	PayoutID      *int64         `json:"payout_id"`
	Kind          EntryKind      `json:"kind"`
	Amount        int64          `json:"amount"`
	PaymentMethod *PaymentMethod `json:"payment_method"`
	Personal      bool           `json:"personal"` // личное занятие, не попадает в учёт организации
	NominalPrice  *int64         `json:"nominal_price"`
	BranchID      *int64         `json:"branch_id"`
	CompanyID     *int64         `json:"company_id"`
	Note          string         `json:"note"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Balance - суммы проводок терапевта по видам
type Balance struct {
	TherapistBalance int64 `json:"therapist_balance"`
	CashHeld         int64 `json:"cash_held"`
	Revenue          int64 `json:"revenue"`
	Payouts          int64 `json:"payouts"`
	Corrections      int64 `json:"corrections"`
}

// Net - сколько организация должна терапевту (отрицательное значение - долг терапевта)
func (b Balance) Net() int64 {
	return b.TherapistBalance - b.CashHeld - b.Payouts + b.Corrections
}
