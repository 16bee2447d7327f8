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

const payoutColumns = `
	id, therapist_id, balance_snapshot, cash_held_snapshot, final_amount, lesson_count,
	status, confirmed_by, confirmed_at, paid_amount, created_at`

type PayoutRepository struct {
	*base.Repository
}

func NewPayoutRepository(db base.DBTX) *PayoutRepository {
	return &PayoutRepository{Repository: base.NewRepository(db)}
}

func scanPayout(row pgx.Row) (*model.PayoutRequest, error) {
	var p model.PayoutRequest
	err := row.Scan(
		&p.ID,
		&p.TherapistID,
		&p.BalanceSnapshot,
		&p.CashHeldSnapshot,
		&p.FinalAmount,
		&p.LessonCount,
		&p.Status,
		&p.ConfirmedBy,
		&p.ConfirmedAt,
		&p.PaidAmount,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create создаёт заявку на выплату
func (r *PayoutRepository) Create(ctx context.Context, req *model.PayoutRequest) error {
	query := `
		INSERT INTO payout_requests (
			therapist_id, balance_snapshot, cash_held_snapshot, final_amount, lesson_count, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.QueryRow(ctx, query,
		req.TherapistID,
		req.BalanceSnapshot,
		req.CashHeldSnapshot,
		req.FinalAmount,
		req.LessonCount,
		req.Status,
		req.CreatedAt,
	).Scan(&req.ID)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("create payout request: %w", err)
	}

	return nil
}

// GetByID получает заявку по ID
func (r *PayoutRepository) GetByID(ctx context.Context, id int64) (*model.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetForUpdate получает заявку и блокирует её до конца транзакции
func (r *PayoutRepository) GetForUpdate(ctx context.Context, id int64) (*model.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// GetPending получает открытую заявку терапевта
func (r *PayoutRepository) GetPending(ctx context.Context, therapistID int64) (*model.PayoutRequest, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM payout_requests
		WHERE therapist_id = $1 AND status = 'PENDING'
	`
	return r.getOne(ctx, query, therapistID)
}

func (r *PayoutRepository) getOne(ctx context.Context, query string, arg int64) (*model.PayoutRequest, error) {
	p, err := scanPayout(r.QueryRow(ctx, query, arg))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout request: %w", err)
	}
	return p, nil
}

// UpdateSnapshot пересохраняет расчёт открытой заявки вместе с новой границей отбора
func (r *PayoutRepository) UpdateSnapshot(ctx context.Context, req *model.PayoutRequest) error {
	query := `
		UPDATE payout_requests
		SET balance_snapshot = $2,
		    cash_held_snapshot = $3,
		    final_amount = $4,
		    lesson_count = $5,
		    created_at = $6
		WHERE id = $1 AND status = 'PENDING'
	`

	affected, err := r.ExecAffected(ctx, query,
		req.ID,
		req.BalanceSnapshot,
		req.CashHeldSnapshot,
		req.FinalAmount,
		req.LessonCount,
		req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("update payout snapshot: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("payout request is not pending")
	}

	return nil
}

// MarkPaid подтверждает заявку, если она ещё ожидает
func (r *PayoutRepository) MarkPaid(ctx context.Context, id, confirmedBy int64, amount int64, at time.Time) (bool, error) {
	query := `
		UPDATE payout_requests
		SET status = 'PAID', confirmed_by = $2, paid_amount = $3, confirmed_at = $4
		WHERE id = $1 AND status = 'PENDING'
	`

	affected, err := r.ExecAffected(ctx, query, id, confirmedBy, amount, at)
	if err != nil {
		return false, fmt.Errorf("mark payout paid: %w", err)
	}

	return affected == 1, nil
}

// LinkLessons фиксирует занятия, вошедшие в выплату
func (r *PayoutRepository) LinkLessons(ctx context.Context, payoutID int64, lessonIDs []int64, at time.Time) error {
	if len(lessonIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO payout_lessons (payout_id, lesson_id, created_at)
		SELECT $1, unnest($2::BIGINT[]), $3
	`

	affected, err := r.ExecAffected(ctx, query, payoutID, lessonIDs, at)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("link payout lessons: %w", err)
	}

	if affected != int64(len(lessonIDs)) {
		return fmt.Errorf("linked %d of %d lessons", affected, len(lessonIDs))
	}

	return nil
}

// ListLinks получает занятия выплаты
func (r *PayoutRepository) ListLinks(ctx context.Context, payoutID int64) ([]*model.PayoutLessonLink, error) {
	query := `
		SELECT payout_id, lesson_id, created_at
		FROM payout_lessons
		WHERE payout_id = $1
		ORDER BY lesson_id
	`

	rows, err := r.Query(ctx, query, payoutID)
	if err != nil {
		return nil, fmt.Errorf("list payout links: %w", err)
	}
	defer rows.Close()

	var links []*model.PayoutLessonLink
	for rows.Next() {
		var link model.PayoutLessonLink
		if err := rows.Scan(&link.PayoutID, &link.LessonID, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payout link: %w", err)
		}
		links = append(links, &link)
	}

	return links, rows.Err()
}
