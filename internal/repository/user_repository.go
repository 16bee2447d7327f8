package repository

import (
	"context"
	"fmt"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/repository/base"
)

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(db base.DBTX) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(db)}
}

// GetScope получает организационный контекст терапевта.
// Занятие личное, если терапевт без филиала или сам владеет/руководит организацией.
func (r *UserRepository) GetScope(ctx context.Context, therapistID int64) (*model.TherapistScope, error) {
	query := `
		SELECT u.id, u.telegram_id, u.branch_id, b.company_id, u.lesson_price,
		       (u.branch_id IS NULL
		        OR EXISTS (SELECT 1 FROM companies c WHERE c.owner_id = u.id)
		        OR EXISTS (SELECT 1 FROM branches m WHERE m.manager_id = u.id)) AS personal
		FROM users u
		LEFT JOIN branches b ON b.id = u.branch_id
		WHERE u.id = $1
	`

	var scope model.TherapistScope
	err := r.QueryRow(ctx, query, therapistID).Scan(
		&scope.TherapistID,
		&scope.TelegramID,
		&scope.BranchID,
		&scope.CompanyID,
		&scope.DefaultPrice,
		&scope.Personal,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get therapist scope: %w", err)
	}

	return &scope, nil
}

// LockTherapist блокирует строку терапевта до конца транзакции
func (r *UserRepository) LockTherapist(ctx context.Context, therapistID int64) (bool, error) {
	query := `SELECT id FROM users WHERE id = $1 FOR UPDATE`

	var id int64
	err := r.QueryRow(ctx, query, therapistID).Scan(&id)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("lock therapist: %w", err)
	}

	return true, nil
}

// DetachBranch отвязывает терапевта от филиала
func (r *UserRepository) DetachBranch(ctx context.Context, therapistID int64) error {
	query := `UPDATE users SET branch_id = NULL WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, therapistID)
	if err != nil {
		return fmt.Errorf("detach branch: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("therapist not found")
	}

	return nil
}
