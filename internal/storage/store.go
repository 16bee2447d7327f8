// Package storage описывает хранилище расчётов, не привязываясь к конкретной СУБД.
// Сервисы работают только с этими интерфейсами, реализация для PostgreSQL лежит в repository.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
)

// ErrDuplicate возвращается, когда вставка нарушает ограничение уникальности
var ErrDuplicate = errors.New("storage: duplicate key")

// Методы Get* возвращают nil, nil если запись не найдена.

type Lessons interface {
	GetByID(ctx context.Context, id int64) (*model.Lesson, error)

	// MarkSettled записывает снимок, только если settled_at ещё пуст.
	// false означает, что занятие уже закрыто другим вызовом.
	MarkSettled(ctx context.Context, id int64, snap model.LessonSnapshot) (bool, error)

	// EnsureSettledAt проставляет settled_at, если он пуст, не трогая суммы
	EnsureSettledAt(ctx context.Context, id int64, at time.Time) error

	// ListUnsettledEnded - незакрытые и неотменённые занятия, закончившиеся до before,
	// с id больше afterID по возрастанию id
	ListUnsettledEnded(ctx context.Context, before time.Time, afterID int64, limit int) ([]int64, error)

	// ListPayoutLessons - закрытые не позже settledUpTo, невыплаченные и не личные занятия терапевта
	ListPayoutLessons(ctx context.Context, therapistID int64, settledUpTo time.Time) ([]*model.PayoutLesson, error)

	// CountEligibleSettledBetween считает такие же занятия, закрытые в (after, upTo]
	CountEligibleSettledBetween(ctx context.Context, therapistID int64, after, upTo time.Time) (int, error)

	// HasEligibleUnpaid проверяет наличие хотя бы одного такого занятия
	HasEligibleUnpaid(ctx context.Context, therapistID int64) (bool, error)

	// MarkPaid переводит занятия в PAID и возвращает число изменённых строк
	MarkPaid(ctx context.Context, ids []int64) (int64, error)
}

type Enrollments interface {
	GetByID(ctx context.Context, id int64) (*model.Enrollment, error)
}

type Users interface {
	GetScope(ctx context.Context, therapistID int64) (*model.TherapistScope, error)

	// LockTherapist блокирует строку терапевта до конца транзакции. false - терапевта нет
	LockTherapist(ctx context.Context, therapistID int64) (bool, error)

	DetachBranch(ctx context.Context, therapistID int64) error
}

type Rates interface {
	// RateAt возвращает ставку, интервал которой содержит at
	RateAt(ctx context.Context, therapistID int64, at time.Time) (*model.CommissionRate, error)
	GetOpen(ctx context.Context, therapistID int64) (*model.CommissionRate, error)
	ListByTherapist(ctx context.Context, therapistID int64) ([]*model.CommissionRate, error)
	Close(ctx context.Context, id int64, validTo time.Time) error
	Create(ctx context.Context, rate *model.CommissionRate) error
}

type Ledger interface {
	// Append только добавляет проводки, изменение и удаление запрещены
	Append(ctx context.Context, entries []*model.LedgerEntry) error
	Balance(ctx context.Context, therapistID int64) (model.Balance, error)
	ListByLesson(ctx context.Context, lessonID int64) ([]*model.LedgerEntry, error)
	ListByPayout(ctx context.Context, payoutID int64) ([]*model.LedgerEntry, error)
}

type Passes interface {
	// FindUsable ищет подходящий абонемент и блокирует его до конца транзакции
	FindUsable(ctx context.Context, childID, therapistID int64, at time.Time) (*model.Pass, error)

	// CreateUsage добавляет списание. false - для занятия списание уже есть
	CreateUsage(ctx context.Context, usage *model.PassUsage) (bool, error)

	// ConsumeOne уменьшает остаток на одно занятие
	ConsumeOne(ctx context.Context, passID int64) error

	GetByID(ctx context.Context, id int64) (*model.Pass, error)
	GetUsageByLesson(ctx context.Context, lessonID int64) (*model.PassUsage, error)
}

type Payouts interface {
	// Create возвращает ErrDuplicate, если у терапевта уже есть заявка PENDING
	Create(ctx context.Context, req *model.PayoutRequest) error
	GetByID(ctx context.Context, id int64) (*model.PayoutRequest, error)
	GetForUpdate(ctx context.Context, id int64) (*model.PayoutRequest, error)
	GetPending(ctx context.Context, therapistID int64) (*model.PayoutRequest, error)
	UpdateSnapshot(ctx context.Context, req *model.PayoutRequest) error
	MarkPaid(ctx context.Context, id, confirmedBy int64, amount int64, at time.Time) (bool, error)
	LinkLessons(ctx context.Context, payoutID int64, lessonIDs []int64, at time.Time) error
	ListLinks(ctx context.Context, payoutID int64) ([]*model.PayoutLessonLink, error)
}

// Repos - набор репозиториев, работающих в одном соединении или транзакции
type Repos struct {
	Lessons     Lessons
	Enrollments Enrollments
	Users       Users
	Rates       Rates
	Ledger      Ledger
	Passes      Passes
	Payouts     Payouts
}

// TxFunc выполняется внутри транзакции. Ошибка откатывает все изменения
type TxFunc func(ctx context.Context, r Repos) error

type Store interface {
	// Repos возвращает репозитории вне транзакции
	Repos() Repos

	// InTx выполняет fn атомарно и возвращает её ошибку без изменений
	InTx(ctx context.Context, fn TxFunc) error

	Close()
}
