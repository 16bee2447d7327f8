// Package calculator содержит денежную арифметику расчётов с терапевтами.
// Все суммы - целые копейки, округление до копейки происходит один раз на занятие.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Shares - разделение выручки занятия
type Shares struct {
	Revenue        int64
	TherapistShare int64
	LeaderShare    int64
}

// ValidatePercent проверяет, что процент терапевта в (0, 100]
func ValidatePercent(percent int) error {
	if percent <= 0 || percent > 100 {
		return fmt.Errorf("percent must be in (0, 100], got %d", percent)
	}
	return nil
}

// PercentOf возвращает round(amount * percent / 100), половина округляется от нуля
func PercentOf(amount int64, percent int) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(hundred).
		Round(0).
		IntPart()
}

// Split делит выручку: терапевту округлённый процент, руководителю остаток
func Split(revenue int64, percent int) Shares {
	therapist := PercentOf(revenue, percent)
	return Shares{
		Revenue:        revenue,
		TherapistShare: therapist,
		LeaderShare:    revenue - therapist,
	}
}

// PassLessonRevenue - стоимость одного занятия абонемента
func PassLessonRevenue(totalPrice int64, totalLessons int) (int64, error) {
	if totalLessons <= 0 {
		return 0, fmt.Errorf("pass has no lessons")
	}
	return decimal.NewFromInt(totalPrice).
		Div(decimal.NewFromInt(int64(totalLessons))).
		Round(0).
		IntPart(), nil
}

// CashToTherapist - клиент заплатил терапевту наличными.
// Выручки организации нет, терапевт оставляет себе свою долю и должен руководителю остаток.
func CashToTherapist(price int64, percent int) Shares {
	therapist := PercentOf(price, percent)
	return Shares{
		Revenue:        0,
		TherapistShare: therapist,
		LeaderShare:    price - therapist,
	}
}
