package handlers

import (
	"errors"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/service"
)

// Ошибки разбора аргументов команд
var (
	ErrUsage         = errors.New("wrong command usage")
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

func isExpected(err error) bool {
	return service.IsBusinessError(err) ||
		errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDate)
}

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUsage):
		return "❌ Неверный формат команды. Смотрите /help"
	case errors.Is(err, ErrInvalidID):
		return "❌ Неверный идентификатор"
	case errors.Is(err, ErrInvalidAmount):
		return "❌ Неверная сумма. Пример: 1500 или 1500.50"
	case errors.Is(err, ErrInvalidDate):
		return "❌ Неверная дата. Формат: ГГГГ-ММ-ДД"
	case errors.Is(err, service.ErrNotFound):
		return "❌ Не найдено"
	case errors.Is(err, service.ErrBlocked):
		return "⛔ Действие запрещено: есть невыплаченные занятия или незакрытый баланс"
	case errors.Is(err, service.ErrStale):
		return "⚠️ После создания заявки закрыты новые занятия. Обновите заявку: /refresh"
	case errors.Is(err, service.ErrConflict):
		return "⚠️ Конфликт: заявка уже существует или уже обработана"
	case errors.Is(err, service.ErrValidation):
		return "❌ Некорректные данные"
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}
