package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LedgerService struct {
	store  storage.Store
	opts   Options
	logger *zap.Logger
}

func NewLedgerService(store storage.Store, opts Options, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:  store,
		opts:   opts,
		logger: logger,
	}
}

// Balance возвращает суммы проводок терапевта без личных занятий
func (s *LedgerService) Balance(ctx context.Context, therapistID int64) (model.Balance, error) {
	balance, err := s.store.Repos().Ledger.Balance(ctx, therapistID)
	if err != nil {
		return model.Balance{}, storageError("get balance", err)
	}
	return balance, nil
}

// LessonEntries возвращает проводки занятия
func (s *LedgerService) LessonEntries(ctx context.Context, lessonID int64) ([]*model.LedgerEntry, error) {
	entries, err := s.store.Repos().Ledger.ListByLesson(ctx, lessonID)
	if err != nil {
		return nil, storageError("list lesson entries", err)
	}
	return entries, nil
}

// RecordCorrection добавляет корректирующую проводку.
// Положительная сумма - организация должна терапевту.
func (s *LedgerService) RecordCorrection(ctx context.Context, therapistID, amount int64, note string) (*model.LedgerEntry, error) {
	note = strings.TrimSpace(note)
	if amount == 0 {
		return nil, validationError("correction amount must not be zero")
	}
	if note == "" {
		return nil, validationError("correction needs a note")
	}

	entry := &model.LedgerEntry{
		BatchID:     uuid.New(),
		TherapistID: therapistID,
		Kind:        model.EntrySettlement,
		Amount:      amount,
		Note:        note,
		CreatedAt:   s.opts.now(),
	}

	err := s.store.InTx(ctx, func(ctx context.Context, r storage.Repos) error {
		found, err := r.Users.LockTherapist(ctx, therapistID)
		if err != nil {
			return fmt.Errorf("lock therapist: %w", err)
		}
		if !found {
			return fmt.Errorf("%w: therapist %d", ErrNotFound, therapistID)
		}

		return r.Ledger.Append(ctx, []*model.LedgerEntry{entry})
	})
	if err != nil {
		return nil, storageError("record correction", err)
	}

	s.logger.Info("Ledger correction recorded",
		zap.Int64("therapist_id", therapistID),
		zap.Int64("entry_id", entry.ID),
		zap.Int64("amount", amount),
	)

	return entry, nil
}
