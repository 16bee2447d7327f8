package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/service"
)

func TestErrorMessage(t *testing.T) {
	wrapped := func(err error) error { return fmt.Errorf("confirm payout: %w", err) }

	assert.Contains(t, ErrorMessage(wrapped(service.ErrStale)), "/refresh")
	assert.Contains(t, ErrorMessage(wrapped(service.ErrBlocked)), "запрещено")
	assert.Contains(t, ErrorMessage(wrapped(service.ErrConflict)), "Конфликт")
	assert.Contains(t, ErrorMessage(wrapped(service.ErrNotFound)), "Не найдено")
	assert.Contains(t, ErrorMessage(ErrInvalidAmount), "1500.50")
	assert.Equal(t, "❌ Произошла ошибка. Попробуйте позже.", ErrorMessage(errors.New("boom")))
}

func TestIsExpected(t *testing.T) {
	assert.True(t, isExpected(wrapErr(service.ErrStale)))
	assert.True(t, isExpected(ErrUsage))
	assert.False(t, isExpected(wrapErr(service.ErrStorage)))
}

func wrapErr(err error) error {
	return fmt.Errorf("op: %w", err)
}
