package repository

import (
	"context"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/repository/base"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ storage.Store = (*Store)(nil)

// Store - хранилище на PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// NewStore создаёт хранилище поверх пула соединений
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func newRepos(db base.DBTX) storage.Repos {
	return storage.Repos{
		Lessons:     NewLessonRepository(db),
		Enrollments: NewEnrollmentRepository(db),
		Users:       NewUserRepository(db),
		Rates:       NewCommissionRateRepository(db),
		Ledger:      NewLedgerRepository(db),
		Passes:      NewPassRepository(db),
		Payouts:     NewPayoutRepository(db),
	}
}

// Repos возвращает репозитории, работающие напрямую с пулом
func (s *Store) Repos() storage.Repos {
	return newRepos(s.pool)
}

// InTx выполняет fn в транзакции: коммит при nil, откат при ошибке
func (s *Store) InTx(ctx context.Context, fn storage.TxFunc) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, newRepos(tx))
	})
}

// Close закрывает пул
func (s *Store) Close() {
	s.pool.Close()
}
