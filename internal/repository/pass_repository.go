package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const passColumns = `
	id, child_id, therapist_id, total_lessons, total_price, remaining_lessons,
	valid_from, valid_until, status, created_at`

type PassRepository struct {
	*base.Repository
}

func NewPassRepository(db base.DBTX) *PassRepository {
	return &PassRepository{Repository: base.NewRepository(db)}
}

func scanPass(row pgx.Row) (*model.Pass, error) {
	var p model.Pass
	err := row.Scan(
		&p.ID,
		&p.ChildID,
		&p.TherapistID,
		&p.TotalLessons,
		&p.TotalPrice,
		&p.RemainingLessons,
		&p.ValidFrom,
		&p.ValidUntil,
		&p.Status,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindUsable ищет активный абонемент ребёнка с остатком и блокирует его.
// Первым списывается абонемент, который раньше истекает.
func (r *PassRepository) FindUsable(ctx context.Context, childID, therapistID int64, at time.Time) (*model.Pass, error) {
	query := `
		SELECT ` + passColumns + `
		FROM passes
		WHERE child_id = $1
		  AND status = 'ACTIVE'
		  AND remaining_lessons > 0
		  AND (therapist_id IS NULL OR therapist_id = $2)
		  AND (valid_from IS NULL OR valid_from <= $3)
		  AND (valid_until IS NULL OR valid_until >= $3)
		ORDER BY valid_until NULLS LAST, created_at, id
		LIMIT 1
		FOR UPDATE
	`

	pass, err := scanPass(r.QueryRow(ctx, query, childID, therapistID, at))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find usable pass: %w", err)
	}

	return pass, nil
}

// CreateUsage добавляет списание, уникальность по занятию обеспечивает база
func (r *PassRepository) CreateUsage(ctx context.Context, usage *model.PassUsage) (bool, error) {
	query := `
		INSERT INTO pass_usages (pass_id, lesson_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (lesson_id) DO NOTHING
		RETURNING id
	`

	err := r.QueryRow(ctx, query, usage.PassID, usage.LessonID, usage.CreatedAt).Scan(&usage.ID)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("create pass usage: %w", err)
	}

	return true, nil
}

// ConsumeOne списывает одно занятие, исчерпанный абонемент закрывается
func (r *PassRepository) ConsumeOne(ctx context.Context, passID int64) error {
	query := `
		UPDATE passes
		SET remaining_lessons = remaining_lessons - 1,
		    status = CASE WHEN remaining_lessons - 1 = 0 THEN 'EXHAUSTED' ELSE status END
		WHERE id = $1 AND remaining_lessons > 0
	`

	affected, err := r.ExecAffected(ctx, query, passID)
	if err != nil {
		return fmt.Errorf("consume pass lesson: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("pass %d has no remaining lessons", passID)
	}

	return nil
}

// GetByID получает абонемент по ID
func (r *PassRepository) GetByID(ctx context.Context, id int64) (*model.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE id = $1`

	pass, err := scanPass(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pass by id: %w", err)
	}

	return pass, nil
}

// GetUsageByLesson получает списание по занятию
func (r *PassRepository) GetUsageByLesson(ctx context.Context, lessonID int64) (*model.PassUsage, error) {
	query := `
		SELECT id, pass_id, lesson_id, created_at
		FROM pass_usages
		WHERE lesson_id = $1
	`

	var u model.PassUsage
	err := r.QueryRow(ctx, query, lessonID).Scan(&u.ID, &u.PassID, &u.LessonID, &u.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pass usage: %w", err)
	}

	return &u, nil
}
