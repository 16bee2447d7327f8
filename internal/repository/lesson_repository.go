package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/repository/base"
)

// eligibleLessonFilter - занятие закрыто, не выплачено и учитывается организацией
const eligibleLessonFilter = `
	l.settled_at IS NOT NULL
	AND l.payout_status = 'NONE'
	AND NOT EXISTS (
		SELECT 1 FROM ledger_entries p
		WHERE p.lesson_id = l.id AND p.personal
	)`

type LessonRepository struct {
	*base.Repository
}

func NewLessonRepository(db base.DBTX) *LessonRepository {
	return &LessonRepository{Repository: base.NewRepository(db)}
}

// GetByID получает занятие по ID
func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `
		SELECT id, therapist_id, enrollment_id, start_at, end_at, status,
		       settled_at, commission_percent_at_time, revenue_at_time,
		       therapist_share_at_time, leader_share_at_time, payout_status, created_at
		FROM lessons
		WHERE id = $1
	`

	var lesson model.Lesson
	err := r.QueryRow(ctx, query, id).Scan(
		&lesson.ID,
		&lesson.TherapistID,
		&lesson.EnrollmentID,
		&lesson.StartAt,
		&lesson.EndAt,
		&lesson.Status,
		&lesson.SettledAt,
		&lesson.CommissionPercentAtTime,
		&lesson.RevenueAtTime,
		&lesson.TherapistShareAtTime,
		&lesson.LeaderShareAtTime,
		&lesson.PayoutStatus,
		&lesson.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}

	return &lesson, nil
}

// MarkSettled записывает снимок расчёта, если занятие ещё не закрыто
func (r *LessonRepository) MarkSettled(ctx context.Context, id int64, snap model.LessonSnapshot) (bool, error) {
	query := `
		UPDATE lessons
		SET settled_at = $2,
		    commission_percent_at_time = $3,
		    revenue_at_time = $4,
		    therapist_share_at_time = $5,
		    leader_share_at_time = $6
		WHERE id = $1 AND settled_at IS NULL
	`

	affected, err := r.ExecAffected(ctx, query,
		id,
		snap.SettledAt,
		snap.Percent,
		snap.Revenue,
		snap.TherapistShare,
		snap.LeaderShare,
	)
	if err != nil {
		return false, fmt.Errorf("mark lesson settled: %w", err)
	}

	return affected == 1, nil
}

// EnsureSettledAt проставляет время закрытия, если оно ещё пустое
func (r *LessonRepository) EnsureSettledAt(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE lessons SET settled_at = $2 WHERE id = $1 AND settled_at IS NULL`

	if _, err := r.ExecAffected(ctx, query, id, at); err != nil {
		return fmt.Errorf("ensure lesson settled_at: %w", err)
	}

	return nil
}

// ListUnsettledEnded получает страницу незакрытых занятий, закончившихся до before.
// Страницы идут по id, чтобы занятия с ошибкой не занимали начало каждой выборки
func (r *LessonRepository) ListUnsettledEnded(ctx context.Context, before time.Time, afterID int64, limit int) ([]int64, error) {
	query := `
		SELECT id
		FROM lessons
		WHERE settled_at IS NULL
		  AND status <> 'cancelled'
		  AND end_at <= $1
		  AND id > $2
		ORDER BY id
		LIMIT $3
	`

	rows, err := r.Query(ctx, query, before, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsettled lessons: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lesson id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ListPayoutLessons получает занятия для расчёта выплаты вместе с данными проводок
func (r *LessonRepository) ListPayoutLessons(ctx context.Context, therapistID int64, settledUpTo time.Time) ([]*model.PayoutLesson, error) {
	query := `
		SELECT l.id, l.settled_at,
		       l.commission_percent_at_time, l.revenue_at_time,
		       l.therapist_share_at_time, l.leader_share_at_time,
		       agg.nominal_price, agg.revenue_entry, e.lesson_rate,
		       COALESCE(agg.paid_by_therapist, FALSE)
		FROM lessons l
		LEFT JOIN enrollments e ON e.id = l.enrollment_id
		LEFT JOIN LATERAL (
			SELECT MAX(le.nominal_price) AS nominal_price,
			       (SUM(le.amount) FILTER (WHERE le.kind = 'REVENUE'))::BIGINT AS revenue_entry,
			       BOOL_OR(le.payment_method = 'CASH_THERAPIST') AS paid_by_therapist
			FROM ledger_entries le
			WHERE le.lesson_id = l.id
		) agg ON TRUE
		WHERE l.therapist_id = $1
		  AND l.settled_at <= $2
		  AND ` + eligibleLessonFilter + `
		ORDER BY l.settled_at, l.id
	`

	rows, err := r.Query(ctx, query, therapistID, settledUpTo)
	if err != nil {
		return nil, fmt.Errorf("list payout lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*model.PayoutLesson
	for rows.Next() {
		var (
			l               model.PayoutLesson
			paidByTherapist bool
		)
		err := rows.Scan(
			&l.LessonID,
			&l.SettledAt,
			&l.Percent,
			&l.Revenue,
			&l.TherapistShare,
			&l.LeaderShare,
			&l.NominalPrice,
			&l.RevenueEntry,
			&l.ContractRate,
			&paidByTherapist,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payout lesson: %w", err)
		}

		l.PaidBy = model.PayerLeader
		if paidByTherapist {
			l.PaidBy = model.PayerTherapist
		}
		lessons = append(lessons, &l)
	}

	return lessons, rows.Err()
}

// CountEligibleSettledBetween считает учитываемые занятия, закрытые в (after, upTo]
func (r *LessonRepository) CountEligibleSettledBetween(ctx context.Context, therapistID int64, after, upTo time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM lessons l
		WHERE l.therapist_id = $1
		  AND l.settled_at > $2
		  AND l.settled_at <= $3
		  AND ` + eligibleLessonFilter

	var count int
	if err := r.QueryRow(ctx, query, therapistID, after, upTo).Scan(&count); err != nil {
		return 0, fmt.Errorf("count lessons settled after cutoff: %w", err)
	}

	return count, nil
}

// HasEligibleUnpaid проверяет, есть ли у терапевта невыплаченные занятия
func (r *LessonRepository) HasEligibleUnpaid(ctx context.Context, therapistID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM lessons l
			WHERE l.therapist_id = $1
			  AND ` + eligibleLessonFilter + `
		)
	`

	var exists bool
	if err := r.QueryRow(ctx, query, therapistID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check unpaid lessons: %w", err)
	}

	return exists, nil
}

// MarkPaid помечает занятия выплаченными
func (r *LessonRepository) MarkPaid(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE lessons
		SET payout_status = 'PAID'
		WHERE id = ANY($1) AND payout_status = 'NONE'
	`

	affected, err := r.ExecAffected(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("mark lessons paid: %w", err)
	}

	return affected, nil
}
