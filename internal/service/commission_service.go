package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/calculator"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/metrics"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/storage"
	"go.uber.org/zap"
)

type CommissionService struct {
	store   storage.Store
	guard   *DebtGuard
	metrics *metrics.Metrics
	opts    Options
	logger  *zap.Logger
}

func NewCommissionService(
	store storage.Store,
	guard *DebtGuard,
	m *metrics.Metrics,
	opts Options,
	logger *zap.Logger,
) *CommissionService {
	return &CommissionService{
		store:   store,
		guard:   guard,
		metrics: m,
		opts:    opts,
		logger:  logger,
	}
}

// CurrentRate возвращает процент терапевта на момент at
func (s *CommissionService) CurrentRate(ctx context.Context, therapistID int64, at time.Time) (int, error) {
	percent, err := s.rateAt(ctx, s.store.Repos(), therapistID, at)
	if err != nil {
		return 0, storageError("current rate", err)
	}
	return percent, nil
}

func (s *CommissionService) rateAt(ctx context.Context, r storage.Repos, therapistID int64, at time.Time) (int, error) {
	rate, err := r.Rates.RateAt(ctx, therapistID, at)
	if err != nil {
		return 0, fmt.Errorf("get rate: %w", err)
	}

	if rate == nil {
		return s.opts.defaultPercent(), nil
	}

	return rate.Percent, nil
}

// SetRate закрывает текущую ставку и открывает новую с validFrom
func (s *CommissionService) SetRate(ctx context.Context, therapistID int64, percent int, validFrom time.Time) (*model.CommissionRate, error) {
	if err := calculator.ValidatePercent(percent); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if validFrom.IsZero() {
		validFrom = s.opts.now()
	}
	validFrom = validFrom.UTC()

	var created *model.CommissionRate
	err := s.store.InTx(ctx, func(ctx context.Context, r storage.Repos) error {
		// Блокировка терапевта сериализует смены ставки
		found, err := r.Users.LockTherapist(ctx, therapistID)
		if err != nil {
			return fmt.Errorf("lock therapist: %w", err)
		}
		if !found {
			return fmt.Errorf("%w: therapist %d", ErrNotFound, therapistID)
		}

		if err := s.guard.check(ctx, r, therapistID); err != nil {
			return err
		}

		open, err := r.Rates.GetOpen(ctx, therapistID)
		if err != nil {
			return fmt.Errorf("get open rate: %w", err)
		}

		if open != nil {
			if !validFrom.After(open.ValidFrom) {
				return validationError("valid_from %s must be after current rate start %s",
					validFrom.Format(time.RFC3339), open.ValidFrom.Format(time.RFC3339))
			}

			if err := r.Rates.Close(ctx, open.ID, validFrom); err != nil {
				return fmt.Errorf("close rate: %w", err)
			}
		}

		rate := &model.CommissionRate{
			TherapistID: therapistID,
			Percent:     percent,
			ValidFrom:   validFrom,
			CreatedAt:   s.opts.now(),
		}

		if err := r.Rates.Create(ctx, rate); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return fmt.Errorf("%w: therapist %d already has an open rate", ErrConflict, therapistID)
			}
			return fmt.Errorf("create rate: %w", err)
		}

		created = rate
		return nil
	})

	if err != nil {
		s.metrics.RateChange(rateChangeResult(err))
		return nil, storageError("set rate", err)
	}

	s.metrics.RateChange("ok")
	s.logger.Info("Commission rate changed",
		zap.Int64("therapist_id", therapistID),
		zap.Int64("rate_id", created.ID),
		zap.Int("percent", percent),
		zap.Time("valid_from", validFrom),
	)

	return created, nil
}

// History возвращает все ставки терапевта по возрастанию valid_from
func (s *CommissionService) History(ctx context.Context, therapistID int64) ([]*model.CommissionRate, error) {
	rates, err := s.store.Repos().Rates.ListByTherapist(ctx, therapistID)
	if err != nil {
		return nil, storageError("rate history", err)
	}
	return rates, nil
}

func rateChangeResult(err error) string {
	switch {
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case IsBusinessError(err):
		return "rejected"
	}
	return "error"
}
