package model

import "time"

type LessonStatus string

const (
	LessonStatusScheduled LessonStatus = "scheduled"
	LessonStatusCompleted LessonStatus = "completed"
	LessonStatusCancelled LessonStatus = "cancelled"
)

// LessonPayoutStatus показывает, выплачена ли доля терапевта за занятие
type LessonPayoutStatus string

const (
	LessonPayoutNone LessonPayoutStatus = "NONE"
	LessonPayoutPaid LessonPayoutStatus = "PAID"
)

type Lesson struct {
	ID           int64        `json:"id"`
	TherapistID  int64        `json:"therapist_id"`
	EnrollmentID *int64       `json:"enrollment_id"` // nil - занятие без привязки к ребёнку
	StartAt      time.Time    `json:"start_at"`
	EndAt        time.Time    `json:"end_at"`
	Status       LessonStatus `json:"status"`

	// Снимок расчёта. Заполняется один раз при закрытии занятия и больше не пересчитывается
	SettledAt               *time.Time `json:"settled_at"`
	CommissionPercentAtTime *int       `json:"commission_percent_at_time"`
	RevenueAtTime           *int64     `json:"revenue_at_time"`
	TherapistShareAtTime    *int64     `json:"therapist_share_at_time"`
	LeaderShareAtTime       *int64     `json:"leader_share_at_time"`

	PayoutStatus LessonPayoutStatus `json:"payout_status"`
	CreatedAt    time.Time          `json:"created_at"`
}

// IsSettled проверяет, закрыто ли занятие
func (l *Lesson) IsSettled() bool {
	return l.SettledAt != nil
}

// LessonSnapshot - замороженные при расчёте суммы (в копейках)
type LessonSnapshot struct {
	Percent        int
	Revenue        int64
	TherapistShare int64
	LeaderShare    int64
	SettledAt      time.Time
}

// Enrollment связывает ребёнка с терапевтом и хранит договорную цену занятия
type Enrollment struct {
	ID          int64     `json:"id"`
	ChildID     int64     `json:"child_id"`
	TherapistID int64     `json:"therapist_id"`
	LessonRate  *int64    `json:"lesson_rate"` // в копейках, nil - цена не оговорена
	CreatedAt   time.Time `json:"created_at"`
}
