package service

import (
	"context"
	"fmt"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/storage"
	"go.uber.org/zap"
)

// DebtReport - состояние взаиморасчётов терапевта
type DebtReport struct {
	Balance          model.Balance
	HasUnpaidLessons bool
}

// Outstanding проверяет, есть ли незакрытые взаиморасчёты
func (r DebtReport) Outstanding(tolerance int64) bool {
	net := r.Balance.Net()
	if net < 0 {
		net = -net
	}
	return net > tolerance || r.HasUnpaidLessons
}

// DebtGuard запрещает смену ставки и выход из организации, пока есть долг
type DebtGuard struct {
	store     storage.Store
	tolerance int64
	logger    *zap.Logger
}

func NewDebtGuard(store storage.Store, opts Options, logger *zap.Logger) *DebtGuard {
	tolerance := opts.DebtTolerance
	if tolerance < 0 {
		tolerance = 0
	}
	return &DebtGuard{
		store:     store,
		tolerance: tolerance,
		logger:    logger,
	}
}

// HasOutstandingDebt проверяет баланс и невыплаченные занятия терапевта
func (g *DebtGuard) HasOutstandingDebt(ctx context.Context, therapistID int64) (bool, error) {
	report, err := g.Report(ctx, therapistID)
	if err != nil {
		return false, err
	}
	return report.Outstanding(g.tolerance), nil
}

// Report возвращает баланс и признак невыплаченных занятий
func (g *DebtGuard) Report(ctx context.Context, therapistID int64) (DebtReport, error) {
	report, err := g.evaluate(ctx, g.store.Repos(), therapistID)
	if err != nil {
		return DebtReport{}, storageError("debt report", err)
	}
	return report, nil
}

// check выполняется внутри транзакции вызывающего сервиса
func (g *DebtGuard) check(ctx context.Context, r storage.Repos, therapistID int64) error {
	report, err := g.evaluate(ctx, r, therapistID)
	if err != nil {
		return err
	}

	if report.Outstanding(g.tolerance) {
		g.logger.Info("Debt guard blocked action",
			zap.Int64("therapist_id", therapistID),
			zap.Int64("net", report.Balance.Net()),
			zap.Bool("unpaid_lessons", report.HasUnpaidLessons),
		)
		return fmt.Errorf("%w: net balance %d, unpaid lessons %t",
			ErrBlocked, report.Balance.Net(), report.HasUnpaidLessons)
	}

	return nil
}

func (g *DebtGuard) evaluate(ctx context.Context, r storage.Repos, therapistID int64) (DebtReport, error) {
	balance, err := r.Ledger.Balance(ctx, therapistID)
	if err != nil {
		return DebtReport{}, fmt.Errorf("get balance: %w", err)
	}

	unpaid, err := r.Lessons.HasEligibleUnpaid(ctx, therapistID)
	if err != nil {
		return DebtReport{}, fmt.Errorf("check unpaid lessons: %w", err)
	}

	return DebtReport{Balance: balance, HasUnpaidLessons: unpaid}, nil
}
