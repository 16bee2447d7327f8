package model

import "time"

// CommissionRate - процент терапевта на полуинтервале [ValidFrom, ValidTo)
type CommissionRate struct {
	ID          int64      `json:"id"`
	TherapistID int64      `json:"therapist_id"`
	Percent     int        `json:"percent"`
	ValidFrom   time.Time  `json:"valid_from"`
	ValidTo     *time.Time `json:"valid_to"` // nil - текущая ставка
	CreatedAt   time.Time  `json:"created_at"`
}

// IsOpen проверяет, является ли ставка открытой (текущей)
func (r *CommissionRate) IsOpen() bool {
	return r.ValidTo == nil
}

// Covers проверяет, попадает ли момент в интервал ставки
func (r *CommissionRate) Covers(at time.Time) bool {
	if at.Before(r.ValidFrom) {
		return false
	}
	return r.ValidTo == nil || at.Before(*r.ValidTo)
}
