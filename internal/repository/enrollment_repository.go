package repository

import (
	"context"
	"fmt"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/repository/base"
)

type EnrollmentRepository struct {
	*base.Repository
}

func NewEnrollmentRepository(db base.DBTX) *EnrollmentRepository {
	return &EnrollmentRepository{Repository: base.NewRepository(db)}
}

// GetByID получает запись ребёнка к терапевту
func (r *EnrollmentRepository) GetByID(ctx context.Context, id int64) (*model.Enrollment, error) {
	query := `
		SELECT id, child_id, therapist_id, lesson_rate, created_at
		FROM enrollments
		WHERE id = $1
	`

	var e model.Enrollment
	err := r.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.ChildID,
		&e.TherapistID,
		&e.LessonRate,
		&e.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get enrollment by id: %w", err)
	}

	return &e, nil
}
