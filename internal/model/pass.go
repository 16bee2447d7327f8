package model

import "time"

type PassStatus string

const (
	PassStatusActive    PassStatus = "ACTIVE"
	PassStatusExhausted PassStatus = "EXHAUSTED"
	PassStatusCancelled PassStatus = "CANCELLED"
)

// Pass - абонемент ребёнка на пакет занятий
type Pass struct {
	ID               int64      `json:"id"`
	ChildID          int64      `json:"child_id"`
	TherapistID      *int64     `json:"therapist_id"` // nil - подходит любому терапевту
	TotalLessons     int        `json:"total_lessons"`
	TotalPrice       int64      `json:"total_price"` // в копейках
	RemainingLessons int        `json:"remaining_lessons"`
	ValidFrom        *time.Time `json:"valid_from"`
	ValidUntil       *time.Time `json:"valid_until"`
	Status           PassStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsUsable проверяет, можно ли списать занятие с абонемента
func (p *Pass) IsUsable(at time.Time, therapistID int64) bool {
	if p.Status != PassStatusActive || p.RemainingLessons <= 0 || p.TotalLessons <= 0 {
		return false
	}
	if p.ValidFrom != nil && at.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && at.After(*p.ValidUntil) {
		return false
	}
	if p.TherapistID != nil && *p.TherapistID != therapistID {
		return false
	}
	return true
}

// PassUsage - списание занятия с абонемента. Одно на занятие
type PassUsage struct {
	ID        int64     `json:"id"`
	PassID    int64     `json:"pass_id"`
	LessonID  int64     `json:"lesson_id"`
	CreatedAt time.Time `json:"created_at"`
}
