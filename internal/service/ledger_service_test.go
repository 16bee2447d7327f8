package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
)

func TestRecordCorrectionCountsTowardsNet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	therapistID := f.orgTherapist(1000_00)

	entry, err := f.ledger.RecordCorrection(ctx, therapistID, 150_00, "  забытая доплата ")
	require.NoError(t, err)
	assert.Equal(t, model.EntrySettlement, entry.Kind)
	assert.Equal(t, "забытая доплата", entry.Note)
	assert.NotZero(t, entry.ID)

	balance, err := f.ledger.Balance(ctx, therapistID)
	require.NoError(t, err)
	assert.Equal(t, int64(150_00), balance.Corrections)
	assert.Equal(t, int64(150_00), balance.Net())

	debt, err := f.guard.HasOutstandingDebt(ctx, therapistID)
	require.NoError(t, err)
	assert.True(t, debt)
}

func TestRecordCorrectionValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	therapistID := f.orgTherapist(1000_00)

	_, err := f.ledger.RecordCorrection(ctx, therapistID, 0, "ноль")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.RecordCorrection(ctx, therapistID, 100, " ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.RecordCorrection(ctx, 8080, 100, "нет такого")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLessonEntries(t *testing.T) {
	f := newFixture(t)
	therapistID := f.orgTherapist(1000_00)
	lessonID := f.finishedLesson(therapistID, nil)
	f.settle(t, lessonID, model.SettleCashLeader)

	entries, err := f.ledger.LessonEntries(context.Background(), lessonID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, model.PaymentCashLeader, *e.PaymentMethod)
		assert.Equal(t, model.PayerLeader, e.PaymentMethod.PaidBy())
	}
}

func TestDebtGuardTolerance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(o *Options) { o.DebtTolerance = 50 })
	therapistID := f.orgTherapist(1000_00)

	_, err := f.ledger.RecordCorrection(ctx, therapistID, -50, "округление")
	require.NoError(t, err)

	report, err := f.guard.Report(ctx, therapistID)
	require.NoError(t, err)
	assert.Equal(t, int64(-50), report.Balance.Net())
	assert.False(t, report.HasUnpaidLessons)
	assert.False(t, report.Outstanding(50))
	assert.True(t, report.Outstanding(49))

	_, err = f.commissions.SetRate(ctx, therapistID, 55, t0)
	assert.NoError(t, err)
}
