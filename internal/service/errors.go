package service

import (
	"errors"
	"fmt"
)

// Ожидаемые исходы операций. Вызывающая сторона показывает их пользователю,
// в лог они пишутся как обычные события, а не как сбои.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBlocked    = errors.New("blocked by outstanding debt")
	ErrStale      = errors.New("payout request is stale")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
)

// IsBusinessError проверяет, что ошибка - ожидаемый отказ, а не сбой хранилища
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrBlocked) ||
		errors.Is(err, ErrStale) ||
		errors.Is(err, ErrValidation)
}

// storageError оборачивает ошибку хранилища, бизнес-ошибки пропускает как есть
func storageError(op string, err error) error {
	if err == nil || IsBusinessError(err) || errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
