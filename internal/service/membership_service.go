package service

import (
	"context"
	"fmt"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/storage"
	"go.uber.org/zap"
)

type MembershipService struct {
	store  storage.Store
	guard  *DebtGuard
	logger *zap.Logger
}

func NewMembershipService(store storage.Store, guard *DebtGuard, logger *zap.Logger) *MembershipService {
	return &MembershipService{
		store:  store,
		guard:  guard,
		logger: logger,
	}
}

// LeaveOrganization отвязывает терапевта от филиала, если взаиморасчёты закрыты.
// После выхода его занятия считаются личными.
func (s *MembershipService) LeaveOrganization(ctx context.Context, therapistID int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, r storage.Repos) error {
		found, err := r.Users.LockTherapist(ctx, therapistID)
		if err != nil {
			return fmt.Errorf("lock therapist: %w", err)
		}
		if !found {
			return fmt.Errorf("%w: therapist %d", ErrNotFound, therapistID)
		}

		scope, err := r.Users.GetScope(ctx, therapistID)
		if err != nil {
			return fmt.Errorf("get therapist scope: %w", err)
		}
		if scope == nil || scope.BranchID == nil {
			return fmt.Errorf("%w: therapist %d is not in an organization", ErrConflict, therapistID)
		}

		if err := s.guard.check(ctx, r, therapistID); err != nil {
			return err
		}

		if err := r.Users.DetachBranch(ctx, therapistID); err != nil {
			return fmt.Errorf("detach branch: %w", err)
		}
		return nil
	})
	if err != nil {
		return storageError("leave organization", err)
	}

	s.logger.Info("Therapist left organization", zap.Int64("therapist_id", therapistID))
	return nil
}
