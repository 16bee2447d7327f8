package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/calculator"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/metrics"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/notify"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const notifyTimeout = 5 * time.Second

type PayoutService struct {
	store    storage.Store
	notifier notify.Notifier
	metrics  *metrics.Metrics
	opts     Options
	logger   *zap.Logger
}

func NewPayoutService(
	store storage.Store,
	notifier notify.Notifier,
	m *metrics.Metrics,
	opts Options,
	logger *zap.Logger,
) *PayoutService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &PayoutService{
		store:    store,
		notifier: notifier,
		metrics:  m,
		opts:     opts,
		logger:   logger,
	}
}

// RequestPayout считает, сколько организация должна терапевту, и создаёт заявку.
// Время создания заявки становится границей отбора занятий при подтверждении.
func (s *PayoutService) RequestPayout(ctx context.Context, therapistID int64) (*model.PayoutRequest, error) {
	var req *model.PayoutRequest

	err := s.store.InTx(ctx, func(ctx context.Context, r storage.Repos) error {
		found, err := r.Users.LockTherapist(ctx, therapistID)
		if err != nil {
			return fmt.Errorf("lock therapist: %w", err)
		}
		if !found {
			return fmt.Errorf("%w: therapist %d", ErrNotFound, therapistID)
		}

		pending, err := r.Payouts.GetPending(ctx, therapistID)
		if err != nil {
			return fmt.Errorf("get pending payout: %w", err)
		}
		if pending != nil {
			return fmt.Errorf("%w: payout request %d is already pending", ErrConflict, pending.ID)
		}

		req = &model.PayoutRequest{
			TherapistID: therapistID,
			Status:      model.PayoutStatusPending,
			CreatedAt:   s.opts.now(),
		}
		if err := s.snapshot(ctx, r, req); err != nil {
			return err
		}

		if err := r.Payouts.Create(ctx, req); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return fmt.Errorf("%w: payout request is already pending", ErrConflict)
			}
			return fmt.Errorf("create payout request: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, storageError("request payout", err)
	}

	s.metrics.PayoutRequested()
	s.logger.Info("Payout requested",
		zap.Int64("payout_id", req.ID),
		zap.Int64("therapist_id", therapistID),
		zap.Int("lessons", req.LessonCount),
		zap.Int64("final_amount", req.FinalAmount),
	)

	return req, nil
}

// snapshot пересчитывает заявку по занятиям, закрытым не позже req.CreatedAt
func (s *PayoutService) snapshot(ctx context.Context, r storage.Repos, req *model.PayoutRequest) error {
	lessons, err := r.Lessons.ListPayoutLessons(ctx, req.TherapistID, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("list payout lessons: %w", err)
	}
	if len(lessons) == 0 {
		return validationError("therapist %d has no settled unpaid lessons", req.TherapistID)
	}

	balance, err := r.Ledger.Balance(ctx, req.TherapistID)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}

	breakdown := calculator.Payout(lessons)
	req.BalanceSnapshot = balance.TherapistBalance
	req.CashHeldSnapshot = balance.CashHeld
	req.FinalAmount = breakdown.FinalAmount
	req.LessonCount = len(breakdown.LessonIDs)
	return nil
}

// ConfirmPayout подтверждает заявку: связывает занятия, помечает их выплаченными
// и пишет проводку PAYOUT. override заменяет сумму заявки.
func (s *PayoutService) ConfirmPayout(ctx context.Context, payoutID, confirmedBy int64, override *int64) (*model.PayoutRequest, error) {
	var (
		req *model.PayoutRequest
		now time.Time
	)

	err := s.store.InTx(ctx, func(ctx context.Context, r storage.Repos) error {
		var err error
		req, err = r.Payouts.GetForUpdate(ctx, payoutID)
		if err != nil {
			return fmt.Errorf("get payout: %w", err)
		}
		if req == nil {
			return fmt.Errorf("%w: payout request %d", ErrNotFound, payoutID)
		}
		if !req.IsPending() {
			return fmt.Errorf("%w: payout request %d is %s", ErrConflict, payoutID, req.Status)
		}
		if _, err := r.Users.LockTherapist(ctx, req.TherapistID); err != nil {
			return fmt.Errorf("lock therapist: %w", err)
		}
		now = s.opts.now()

		// Новые занятия после создания заявки делают её сумму неверной
		newer, err := r.Lessons.CountEligibleSettledBetween(ctx, req.TherapistID, req.CreatedAt, now)
		if err != nil {
			return fmt.Errorf("check staleness: %w", err)
		}
		if newer > 0 {
			return fmt.Errorf("%w: %d lessons settled after request %d", ErrStale, newer, payoutID)
		}

		lessons, err := r.Lessons.ListPayoutLessons(ctx, req.TherapistID, req.CreatedAt)
		if err != nil {
			return fmt.Errorf("list payout lessons: %w", err)
		}
		breakdown := calculator.Payout(lessons)
		// Занятие, закрытое параллельно с созданием заявки, могло попасть до границы,
		// но не войти в сумму заявки
		if breakdown.FinalAmount != req.FinalAmount || len(breakdown.LessonIDs) != req.LessonCount {
			return fmt.Errorf("%w: request %d expects %d lessons for %d, found %d lessons for %d",
				ErrStale, payoutID, req.LessonCount, req.FinalAmount, len(breakdown.LessonIDs), breakdown.FinalAmount)
		}
		ids := breakdown.LessonIDs

		if err := r.Payouts.LinkLessons(ctx, payoutID, ids, now); err != nil {
			return fmt.Errorf("link lessons: %w", err)
		}

		marked, err := r.Lessons.MarkPaid(ctx, ids)
		if err != nil {
			return fmt.Errorf("mark lessons paid: %w", err)
		}
		if marked != int64(len(ids)) {
			return fmt.Errorf("marked %d of %d lessons paid", marked, len(ids))
		}

		amount := req.FinalAmount
		if override != nil {
			amount = *override
		}

		id := payoutID
		entry := &model.LedgerEntry{
			BatchID:     uuid.New(),
			TherapistID: req.TherapistID,
			PayoutID:    &id,
			Kind:        model.EntryPayout,
			Amount:      amount,
			Note:        fmt.Sprintf("payout #%d, %d lessons", payoutID, len(ids)),
			CreatedAt:   now,
		}
		if err := r.Ledger.Append(ctx, []*model.LedgerEntry{entry}); err != nil {
			return fmt.Errorf("append payout entry: %w", err)
		}

		ok, err := r.Payouts.MarkPaid(ctx, payoutID, confirmedBy, amount, now)
		if err != nil {
			return fmt.Errorf("mark payout paid: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: payout request %d is no longer pending", ErrConflict, payoutID)
		}

		req.Status = model.PayoutStatusPaid
		req.ConfirmedBy = &confirmedBy
		req.ConfirmedAt = &now
		req.PaidAmount = &amount
		req.LessonCount = len(ids)
		return nil
	})

	if errors.Is(err, ErrStale) {
		s.metrics.PayoutStale()
		s.logger.Info("Payout request is stale",
			zap.Int64("payout_id", payoutID),
			zap.Error(err),
		)
		return nil, err
	}
	if err != nil {
		return nil, storageError("confirm payout", err)
	}

	s.metrics.PayoutConfirmed()
	s.logger.Info("Payout confirmed",
		zap.Int64("payout_id", payoutID),
		zap.Int64("therapist_id", req.TherapistID),
		zap.Int64("confirmed_by", confirmedBy),
		zap.Int64("amount", *req.PaidAmount),
		zap.Int("lessons", req.LessonCount),
	)

	s.notifyConfirmed(ctx, req)

	return req, nil
}

// notifyConfirmed уведомляет терапевта. Сбой доставки не отменяет выплату
func (s *PayoutService) notifyConfirmed(ctx context.Context, req *model.PayoutRequest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	scope, err := s.store.Repos().Users.GetScope(ctx, req.TherapistID)
	if err != nil {
		s.logger.Warn("Failed to load therapist for notification",
			zap.Int64("payout_id", req.ID),
			zap.Error(err),
		)
		return
	}

	if err := s.notifier.PayoutConfirmed(ctx, scope, req); err != nil {
		s.logger.Warn("Failed to send payout notification",
			zap.Int64("payout_id", req.ID),
			zap.Error(err),
		)
	}
}

// Refresh пересчитывает устаревшую заявку и переносит границу отбора на текущий момент
func (s *PayoutService) Refresh(ctx context.Context, payoutID int64) (*model.PayoutRequest, error) {
	var req *model.PayoutRequest

	err := s.store.InTx(ctx, func(ctx context.Context, r storage.Repos) error {
		var err error
		req, err = r.Payouts.GetForUpdate(ctx, payoutID)
		if err != nil {
			return fmt.Errorf("get payout: %w", err)
		}
		if req == nil {
			return fmt.Errorf("%w: payout request %d", ErrNotFound, payoutID)
		}
		if !req.IsPending() {
			return fmt.Errorf("%w: payout request %d is %s", ErrConflict, payoutID, req.Status)
		}
		if _, err := r.Users.LockTherapist(ctx, req.TherapistID); err != nil {
			return fmt.Errorf("lock therapist: %w", err)
		}

		req.CreatedAt = s.opts.now()
		if err := s.snapshot(ctx, r, req); err != nil {
			return err
		}

		if err := r.Payouts.UpdateSnapshot(ctx, req); err != nil {
			return fmt.Errorf("update payout snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, storageError("refresh payout", err)
	}

	s.logger.Info("Payout request refreshed",
		zap.Int64("payout_id", payoutID),
		zap.Int("lessons", req.LessonCount),
		zap.Int64("final_amount", req.FinalAmount),
	)

	return req, nil
}

// Pending возвращает открытую заявку терапевта или nil
func (s *PayoutService) Pending(ctx context.Context, therapistID int64) (*model.PayoutRequest, error) {
	req, err := s.store.Repos().Payouts.GetPending(ctx, therapistID)
	if err != nil {
		return nil, storageError("get pending payout", err)
	}
	return req, nil
}

func (s *PayoutService) Get(ctx context.Context, payoutID int64) (*model.PayoutRequest, error) {
	req, err := s.store.Repos().Payouts.GetByID(ctx, payoutID)
	if err != nil {
		return nil, storageError("get payout", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: payout request %d", ErrNotFound, payoutID)
	}
	return req, nil
}
