package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// commandArgs возвращает аргументы команды без самой команды
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return fields[1:]
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

// parseAmount переводит сумму в рублях ("1500", "1500.50", "-700") в копейки
func parseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	kopecks := d.Mul(hundred)
	if !kopecks.IsInteger() {
		return 0, fmt.Errorf("%w: %q has fractions of a kopeck", ErrInvalidAmount, s)
	}

	return kopecks.IntPart(), nil
}

func parsePercent(s string) (int, error) {
	percent, err := strconv.Atoi(strings.TrimSuffix(s, "%"))
	if err != nil {
		return 0, fmt.Errorf("%w: percent %q", ErrUsage, s)
	}
	return percent, nil
}

// parseDate разбирает дату начала ставки, время - полночь UTC
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

func parseMethod(s string) (model.SettlementMethod, error) {
	method, ok := model.ParseSettlementMethod(s)
	if !ok {
		return "", fmt.Errorf("%w: unknown payment method %q", ErrUsage, s)
	}
	return method, nil
}
