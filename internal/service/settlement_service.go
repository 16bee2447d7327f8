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
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// errAlreadySettled откатывает транзакцию, когда занятие закрыл параллельный вызов
var errAlreadySettled = errors.New("lesson already settled")

// SettlementResult - итог закрытия занятия
type SettlementResult struct {
	LessonID int64
	Applied  bool // false - занятие уже было закрыто, ничего не записано
	Method   model.PaymentMethod
	Percent  int
	Shares   calculator.Shares
	PassID   *int64
}

type SettlementService struct {
	store       storage.Store
	commissions *CommissionService
	metrics     *metrics.Metrics
	opts        Options
	logger      *zap.Logger
}

func NewSettlementService(
	store storage.Store,
	commissions *CommissionService,
	m *metrics.Metrics,
	opts Options,
	logger *zap.Logger,
) *SettlementService {
	return &SettlementService{
		store:       store,
		commissions: commissions,
		metrics:     m,
		opts:        opts,
		logger:      logger,
	}
}

// settlementContext - всё, что нужно знать о занятии для расчёта
type settlementContext struct {
	lesson       *model.Lesson
	scope        *model.TherapistScope
	enrollment   *model.Enrollment
	nominalPrice int64
	percent      int
	now          time.Time
}

// SettleLesson закрывает занятие и пишет проводки. Повторный вызов ничего не меняет
func (s *SettlementService) SettleLesson(ctx context.Context, lessonID int64, method model.SettlementMethod) (*SettlementResult, error) {
	if !method.Valid() {
		return nil, validationError("unknown payment method %q", method)
	}

	result := &SettlementResult{LessonID: lessonID}

	err := s.store.InTx(ctx, func(ctx context.Context, r storage.Repos) error {
		sc, err := s.load(ctx, r, lessonID)
		if err != nil {
			return err
		}
		if sc == nil {
			// уже закрыто
			return nil
		}

		result.Percent = sc.percent

		if method == model.SettleAuto && sc.enrollment != nil {
			pass, err := r.Passes.FindUsable(ctx, sc.enrollment.ChildID, sc.lesson.TherapistID, sc.now)
			if err != nil {
				return fmt.Errorf("find pass: %w", err)
			}
			if pass != nil {
				return s.settleWithPass(ctx, r, sc, pass, result)
			}
		}

		return s.settleWithPrice(ctx, r, sc, paymentMethodFor(method), result)
	})

	if errors.Is(err, errAlreadySettled) {
		err = nil
		result = &SettlementResult{LessonID: lessonID}
	}
	if err != nil {
		return nil, storageError("settle lesson", err)
	}

	if !result.Applied {
		s.metrics.SettlementNoop()
		s.logger.Debug("Lesson already settled", zap.Int64("lesson_id", lessonID))
		return result, nil
	}

	s.metrics.Settled(string(result.Method))
	s.logger.Info("Lesson settled",
		zap.Int64("lesson_id", lessonID),
		zap.String("method", string(result.Method)),
		zap.Int("percent", result.Percent),
		zap.Int64("revenue", result.Shares.Revenue),
		zap.Int64("therapist_share", result.Shares.TherapistShare),
		zap.Int64("leader_share", result.Shares.LeaderShare),
	)

	return result, nil
}

// load читает занятие и всё, что нужно для расчёта. nil, nil - занятие уже закрыто
func (s *SettlementService) load(ctx context.Context, r storage.Repos, lessonID int64) (*settlementContext, error) {
	lesson, err := r.Lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, fmt.Errorf("%w: lesson %d", ErrNotFound, lessonID)
	}

	// Блокировка терапевта упорядочивает закрытие занятий с заявками на выплату:
	// время закрытия читается только после неё
	found, err := r.Users.LockTherapist(ctx, lesson.TherapistID)
	if err != nil {
		return nil, fmt.Errorf("lock therapist: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: therapist %d of lesson %d", ErrNotFound, lesson.TherapistID, lessonID)
	}

	if lesson.IsSettled() {
		return nil, nil
	}

	if lesson.Status == model.LessonStatusCancelled {
		return nil, validationError("lesson %d is cancelled", lessonID)
	}

	scope, err := r.Users.GetScope(ctx, lesson.TherapistID)
	if err != nil {
		return nil, fmt.Errorf("get therapist scope: %w", err)
	}
	if scope == nil {
		return nil, fmt.Errorf("%w: therapist %d of lesson %d", ErrNotFound, lesson.TherapistID, lessonID)
	}

	sc := &settlementContext{
		lesson:       lesson,
		scope:        scope,
		nominalPrice: scope.DefaultPrice,
		now:          s.opts.now(),
	}

	// Договорная цена ребёнка важнее цены терапевта по умолчанию
	if lesson.EnrollmentID != nil {
		enrollment, err := r.Enrollments.GetByID(ctx, *lesson.EnrollmentID)
		if err != nil {
			return nil, fmt.Errorf("get enrollment: %w", err)
		}
		if enrollment != nil {
			sc.enrollment = enrollment
			if enrollment.LessonRate != nil {
				sc.nominalPrice = *enrollment.LessonRate
			}
		}
	}

	sc.percent, err = s.commissions.rateAt(ctx, r, lesson.TherapistID, sc.now)
	if err != nil {
		return nil, err
	}

	return sc, nil
}

func (s *SettlementService) settleWithPass(
	ctx context.Context,
	r storage.Repos,
	sc *settlementContext,
	pass *model.Pass,
	result *SettlementResult,
) error {
	revenue, err := calculator.PassLessonRevenue(pass.TotalPrice, pass.TotalLessons)
	if err != nil {
		return fmt.Errorf("pass %d: %w", pass.ID, err)
	}

	created, err := r.Passes.CreateUsage(ctx, &model.PassUsage{
		PassID:    pass.ID,
		LessonID:  sc.lesson.ID,
		CreatedAt: sc.now,
	})
	if err != nil {
		return fmt.Errorf("create pass usage: %w", err)
	}

	if !created {
		// Списание уже есть: занятие считается закрытым, суммы не трогаем
		return r.Lessons.EnsureSettledAt(ctx, sc.lesson.ID, sc.now)
	}

	shares := calculator.Split(revenue, sc.percent)
	if err := s.markSettled(ctx, r, sc, shares); err != nil {
		return err
	}

	if err := r.Passes.ConsumeOne(ctx, pass.ID); err != nil {
		return fmt.Errorf("consume pass: %w", err)
	}

	method := model.PaymentSubscription
	entries := s.entries(sc, method, revenue,
		entryAmount{model.EntryTherapistBalance, shares.TherapistShare},
		entryAmount{model.EntryRevenue, shares.Revenue},
	)
	if err := r.Ledger.Append(ctx, entries); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}

	passID := pass.ID
	result.Applied = true
	result.Method = method
	result.Shares = shares
	result.PassID = &passID
	return nil
}

func (s *SettlementService) settleWithPrice(
	ctx context.Context,
	r storage.Repos,
	sc *settlementContext,
	method model.PaymentMethod,
	result *SettlementResult,
) error {
	if sc.nominalPrice == 0 {
		s.logger.Warn("Settling lesson with zero price",
			zap.Int64("lesson_id", sc.lesson.ID),
			zap.Int64("therapist_id", sc.lesson.TherapistID),
		)
	}

	var (
		shares  calculator.Shares
		amounts []entryAmount
	)

	if method == model.PaymentCashTherapist {
		// Деньги у терапевта: выручки организации нет, долю руководителя терапевт должен отдать
		shares = calculator.CashToTherapist(sc.nominalPrice, sc.percent)
		amounts = []entryAmount{{model.EntryCashHeld, shares.LeaderShare}}
	} else {
		shares = calculator.Split(sc.nominalPrice, sc.percent)
		amounts = []entryAmount{
			{model.EntryTherapistBalance, shares.TherapistShare},
			{model.EntryRevenue, shares.Revenue},
		}
	}

	if err := s.markSettled(ctx, r, sc, shares); err != nil {
		return err
	}

	if err := r.Ledger.Append(ctx, s.entries(sc, method, sc.nominalPrice, amounts...)); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}

	result.Applied = true
	result.Method = method
	result.Shares = shares
	return nil
}

// markSettled - условная запись снимка, проигравший гонку откатывает транзакцию
func (s *SettlementService) markSettled(ctx context.Context, r storage.Repos, sc *settlementContext, shares calculator.Shares) error {
	ok, err := r.Lessons.MarkSettled(ctx, sc.lesson.ID, model.LessonSnapshot{
		Percent:        sc.percent,
		Revenue:        shares.Revenue,
		TherapistShare: shares.TherapistShare,
		LeaderShare:    shares.LeaderShare,
		SettledAt:      sc.now,
	})
	if err != nil {
		return fmt.Errorf("mark settled: %w", err)
	}
	if !ok {
		return errAlreadySettled
	}
	return nil
}

type entryAmount struct {
	kind   model.EntryKind
	amount int64
}

// entries собирает проводки одного расчёта с общим batch_id.
// Личные занятия не привязываются к филиалу и компании.
func (s *SettlementService) entries(sc *settlementContext, method model.PaymentMethod, nominal int64, amounts ...entryAmount) []*model.LedgerEntry {
	batch := uuid.New()
	lessonID := sc.lesson.ID

	entries := make([]*model.LedgerEntry, 0, len(amounts))
	for _, a := range amounts {
		m := method
		price := nominal
		e := &model.LedgerEntry{
			BatchID:       batch,
			TherapistID:   sc.lesson.TherapistID,
			LessonID:      &lessonID,
			Kind:          a.kind,
			Amount:        a.amount,
			PaymentMethod: &m,
			Personal:      sc.scope.Personal,
			NominalPrice:  &price,
			CreatedAt:     sc.now,
		}
		if !sc.scope.Personal {
			e.BranchID = sc.scope.BranchID
			e.CompanyID = sc.scope.CompanyID
		}
		entries = append(entries, e)
	}

	return entries
}

// paymentMethodFor - AUTO без абонемента считается безналом руководителю
func paymentMethodFor(method model.SettlementMethod) model.PaymentMethod {
	switch method {
	case model.SettleCashTherapist:
		return model.PaymentCashTherapist
	case model.SettleCashLeader:
		return model.PaymentCashLeader
	default:
		return model.PaymentCashlessLeader
	}
}

// SettleFinished закрывает закончившиеся занятия способом AUTO, проходя их страницами по limit.
// Ошибка по одному занятию не останавливает остальные.
func (s *SettlementService) SettleFinished(ctx context.Context, endedBefore time.Time, limit int) (int, error) {
	if limit <= 0 {
		return 0, validationError("page size must be positive, got %d", limit)
	}

	var (
		afterID int64
		settled int
	)

	for {
		ids, err := s.store.Repos().Lessons.ListUnsettledEnded(ctx, endedBefore, afterID, limit)
		if err != nil {
			return settled, storageError("list unsettled lessons", err)
		}

		for _, id := range ids {
			if ctx.Err() != nil {
				return settled, ctx.Err()
			}

			result, err := s.SettleLesson(ctx, id, model.SettleAuto)
			if err != nil {
				s.logger.Error("Failed to settle finished lesson",
					zap.Int64("lesson_id", id),
					zap.Error(err),
				)
				continue
			}

			if result.Applied {
				settled++
			}
		}

		if len(ids) < limit {
			return settled, nil
		}
		afterID = ids[len(ids)-1]
	}
}
