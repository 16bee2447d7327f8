package model

import "strings"

// SettlementMethod - способ оплаты, запрошенный при закрытии занятия
type SettlementMethod string

const (
	SettleAuto           SettlementMethod = "AUTO" // абонемент, если есть, иначе безнал руководителю
	SettleCashTherapist  SettlementMethod = "CASH_THERAPIST"
	SettleCashLeader     SettlementMethod = "CASH_LEADER"
	SettleCashlessLeader SettlementMethod = "CASHLESS_LEADER"
)

// Valid проверяет, что способ из известного набора
func (m SettlementMethod) Valid() bool {
	switch m {
	case SettleAuto, SettleCashTherapist, SettleCashLeader, SettleCashlessLeader:
		return true
	}
	return false
}

// ParseSettlementMethod разбирает способ оплаты из текста команды
func ParseSettlementMethod(s string) (SettlementMethod, bool) {
	m := SettlementMethod(strings.ToUpper(strings.TrimSpace(s)))
	if m == "" {
		return SettleAuto, true
	}
	return m, m.Valid()
}
