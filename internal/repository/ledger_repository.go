package repository

import (
	"context"
	"fmt"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `
	id, batch_id, therapist_id, lesson_id, payout_id, kind, amount,
	payment_method, personal, nominal_price, branch_id, company_id, note, created_at`

// LedgerRepository - журнал проводок. Только вставка и чтение,
// UPDATE и DELETE дополнительно запрещены триггером в базе.
type LedgerRepository struct {
	*base.Repository
}

func NewLedgerRepository(db base.DBTX) *LedgerRepository {
	return &LedgerRepository{Repository: base.NewRepository(db)}
}

// Append добавляет проводки
func (r *LedgerRepository) Append(ctx context.Context, entries []*model.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (
			batch_id, therapist_id, lesson_id, payout_id, kind, amount,
			payment_method, personal, nominal_price, branch_id, company_id, note, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	for _, e := range entries {
		err := r.QueryRow(ctx, query,
			e.BatchID,
			e.TherapistID,
			e.LessonID,
			e.PayoutID,
			e.Kind,
			e.Amount,
			e.PaymentMethod,
			e.Personal,
			e.NominalPrice,
			e.BranchID,
			e.CompanyID,
			e.Note,
			e.CreatedAt,
		).Scan(&e.ID)
		if err != nil {
			return fmt.Errorf("append ledger entry %s: %w", e.Kind, err)
		}
	}

	return nil
}

// Balance считает суммы проводок терапевта по видам без личных занятий
func (r *LedgerRepository) Balance(ctx context.Context, therapistID int64) (model.Balance, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE kind = 'THERAPIST_BALANCE'), 0)::BIGINT,
			COALESCE(SUM(amount) FILTER (WHERE kind = 'CASH_HELD'), 0)::BIGINT,
			COALESCE(SUM(amount) FILTER (WHERE kind = 'REVENUE'), 0)::BIGINT,
			COALESCE(SUM(amount) FILTER (WHERE kind = 'PAYOUT'), 0)::BIGINT,
			COALESCE(SUM(amount) FILTER (WHERE kind = 'SETTLEMENT'), 0)::BIGINT
		FROM ledger_entries
		WHERE therapist_id = $1 AND NOT personal
	`

	var b model.Balance
	err := r.QueryRow(ctx, query, therapistID).Scan(
		&b.TherapistBalance,
		&b.CashHeld,
		&b.Revenue,
		&b.Payouts,
		&b.Corrections,
	)
	if err != nil {
		return model.Balance{}, fmt.Errorf("get ledger balance: %w", err)
	}

	return b, nil
}

// ListByLesson получает проводки занятия
func (r *LedgerRepository) ListByLesson(ctx context.Context, lessonID int64) ([]*model.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE lesson_id = $1 ORDER BY id`
	return r.list(ctx, query, lessonID)
}

// ListByPayout получает проводки выплаты
func (r *LedgerRepository) ListByPayout(ctx context.Context, payoutID int64) ([]*model.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE payout_id = $1 ORDER BY id`
	return r.list(ctx, query, payoutID)
}

func (r *LedgerRepository) list(ctx context.Context, query string, arg int64) ([]*model.LedgerEntry, error) {
	rows, err := r.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := row.Scan(
		&e.ID,
		&e.BatchID,
		&e.TherapistID,
		&e.LessonID,
		&e.PayoutID,
		&e.Kind,
		&e.Amount,
		&e.PaymentMethod,
		&e.Personal,
		&e.NominalPrice,
		&e.BranchID,
		&e.CompanyID,
		&e.Note,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
