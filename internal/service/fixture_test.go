package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/metrics"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
)

var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*model.PayoutRequest
	err  error
}

func (n *recordingNotifier) PayoutConfirmed(_ context.Context, _ *model.TherapistScope, payout *model.PayoutRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, payout)
	return n.err
}

type fixture struct {
	store    *memStore
	clock    *testClock
	notifier *recordingNotifier

	guard       *DebtGuard
	commissions *CommissionService
	settlement  *SettlementService
	payouts     *PayoutService
	membership  *MembershipService
	ledger      *LedgerService
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()

	f := &fixture{
		store:    newMemStore(),
		clock:    &testClock{now: t0},
		notifier: &recordingNotifier{},
	}

	o := Options{Now: f.clock.Now}
	for _, apply := range opts {
		apply(&o)
	}

	logger := zaptest.NewLogger(t)
	m := metrics.New(prometheus.NewRegistry())

	f.guard = NewDebtGuard(f.store, o, logger)
	f.commissions = NewCommissionService(f.store, f.guard, m, o, logger)
	f.settlement = NewSettlementService(f.store, f.commissions, m, o, logger)
	f.payouts = NewPayoutService(f.store, f.notifier, m, o, logger)
	f.membership = NewMembershipService(f.store, f.guard, logger)
	f.ledger = NewLedgerService(f.store, o, logger)

	return f
}

// orgTherapist - терапевт филиала, его занятия учитываются организацией
func (f *fixture) orgTherapist(price int64) int64 {
	branchID := f.store.addBranch(nil)
	return f.store.addTherapist(price, &branchID)
}

// finishedLesson создаёт занятие, закончившееся час назад
func (f *fixture) finishedLesson(therapistID int64, enrollmentID *int64) int64 {
	return f.store.addLesson(therapistID, enrollmentID, f.clock.Now().Add(-time.Hour))
}

func (f *fixture) settle(t *testing.T, lessonID int64, method model.SettlementMethod) *SettlementResult {
	t.Helper()
	res, err := f.settlement.SettleLesson(context.Background(), lessonID, method)
	if err != nil {
		t.Fatalf("settle lesson %d: %v", lessonID, err)
	}
	return res
}

func kinds(entries []model.LedgerEntry) map[model.EntryKind]int64 {
	out := map[model.EntryKind]int64{}
	for _, e := range entries {
		out[e.Kind] += e.Amount
	}
	return out
}

func ptr[T any](v T) *T { return &v }
