package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/repository/base"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/storage"
	"github.com/jackc/pgx/v5"
)

const rateColumns = `id, therapist_id, percent, valid_from, valid_to, created_at`

type CommissionRateRepository struct {
	*base.Repository
}

func NewCommissionRateRepository(db base.DBTX) *CommissionRateRepository {
	return &CommissionRateRepository{Repository: base.NewRepository(db)}
}

func scanRate(row pgx.Row) (*model.CommissionRate, error) {
	var rate model.CommissionRate
	err := row.Scan(
		&rate.ID,
		&rate.TherapistID,
		&rate.Percent,
		&rate.ValidFrom,
		&rate.ValidTo,
		&rate.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// RateAt получает ставку, действующую в момент at
func (r *CommissionRateRepository) RateAt(ctx context.Context, therapistID int64, at time.Time) (*model.CommissionRate, error) {
	query := `
		SELECT ` + rateColumns + `
		FROM commission_rates
		WHERE therapist_id = $1
		  AND valid_from <= $2
		  AND (valid_to IS NULL OR valid_to > $2)
		ORDER BY valid_from DESC
		LIMIT 1
	`

	rate, err := scanRate(r.QueryRow(ctx, query, therapistID, at))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rate at: %w", err)
	}

	return rate, nil
}

// GetOpen получает открытую ставку терапевта и блокирует её
func (r *CommissionRateRepository) GetOpen(ctx context.Context, therapistID int64) (*model.CommissionRate, error) {
	query := `
		SELECT ` + rateColumns + `
		FROM commission_rates
		WHERE therapist_id = $1 AND valid_to IS NULL
		FOR UPDATE
	`

	rate, err := scanRate(r.QueryRow(ctx, query, therapistID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get open rate: %w", err)
	}

	return rate, nil
}

// ListByTherapist получает историю ставок терапевта
func (r *CommissionRateRepository) ListByTherapist(ctx context.Context, therapistID int64) ([]*model.CommissionRate, error) {
	query := `
		SELECT ` + rateColumns + `
		FROM commission_rates
		WHERE therapist_id = $1
		ORDER BY valid_from
	`

	rows, err := r.Query(ctx, query, therapistID)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer rows.Close()

	var rates []*model.CommissionRate
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		rates = append(rates, rate)
	}

	return rates, rows.Err()
}

// Close закрывает открытую ставку
func (r *CommissionRateRepository) Close(ctx context.Context, id int64, validTo time.Time) error {
	query := `
		UPDATE commission_rates
		SET valid_to = $2
		WHERE id = $1 AND valid_to IS NULL
	`

	affected, err := r.ExecAffected(ctx, query, id, validTo)
	if err != nil {
		return fmt.Errorf("close rate: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("rate is not open")
	}

	return nil
}

// Create создаёт новую открытую ставку
func (r *CommissionRateRepository) Create(ctx context.Context, rate *model.CommissionRate) error {
	query := `
		INSERT INTO commission_rates (therapist_id, percent, valid_from, valid_to)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query,
		rate.TherapistID,
		rate.Percent,
		rate.ValidFrom,
		rate.ValidTo,
	).Scan(&rate.ID, &rate.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("create rate: %w", err)
	}

	return nil
}
