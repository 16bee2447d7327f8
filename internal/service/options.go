package service

import "time"

const defaultCommissionPercent = 50

// Options - общие настройки сервисов расчётов
type Options struct {
	// Now подменяется в тестах
	Now func() time.Time

	// DefaultPercent - процент терапевта, если ставка не задана
	DefaultPercent int

	// DebtTolerance - допустимый остаток баланса в копейках
	DebtTolerance int64
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func (o Options) defaultPercent() int {
	if o.DefaultPercent <= 0 || o.DefaultPercent > 100 {
		return defaultCommissionPercent
	}
	return o.DefaultPercent
}
