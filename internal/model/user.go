package model

import "time"

type UserRole string

const (
	RoleTherapist UserRole = "THERAPIST"
	RoleLeader    UserRole = "LEADER"
	RoleAdmin     UserRole = "ADMIN"
)

type User struct {
	ID          int64     `json:"id"`
	TelegramID  *int64    `json:"telegram_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Role        UserRole  `json:"role"`
	BranchID    *int64    `json:"branch_id"`
	LessonPrice int64     `json:"lesson_price"` // цена занятия по умолчанию, в копейках
	CreatedAt   time.Time `json:"created_at"`
}

// TherapistScope - организационный контекст терапевта на момент расчёта
type TherapistScope struct {
	TherapistID  int64
	TelegramID   *int64
	BranchID     *int64
	CompanyID    *int64
	Personal     bool // владелец/руководитель организации или работает без филиала
	DefaultPrice int64
}
