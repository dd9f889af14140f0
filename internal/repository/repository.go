// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт: заявка уже разрешена либо запись дублируется.
	ErrConflict = errors.New("конфликт — запись уже существует или разрешена")
	// ErrUnavailable — transient-ошибка store (таймаут, обрыв соединения).
	// Безопасно повторить с backoff.
	ErrUnavailable = errors.New("хранилище временно недоступно")
	// ErrPartialApply — часть записей операции применена, часть — нет.
	// Возникает только у store без транзакционной семантики.
	ErrPartialApply = errors.New("операция применена частично")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stores — набор репозиториев, привязанных к одному DBTX.
// Внутри RunInTx все репозитории работают через одну транзакцию.
type Stores struct {
	Locations   LocationRepository
	Submissions SubmissionRepository
}

// TxRunner выполняет операцию над несколькими репозиториями атомарно.
// PostgreSQL-реализация — настоящая транзакция; in-memory дублёр
// (repository/memory) — snapshot с откатом при ошибке.
type TxRunner interface {
	// RunInTx выполняет fn с репозиториями, привязанными к транзакции.
	// При ошибке fn все изменения откатываются.
	RunInTx(ctx context.Context, fn func(s Stores) error) error
}

// pgTxRunner — TxRunner поверх pgxpool.
type pgTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner создаёт TxRunner для управления транзакциями PostgreSQL.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgTxRunner{pool: pool}
}

// RunInTx выполняет fn внутри транзакции.
// При ошибке fn — транзакция откатывается. При успехе — коммитится.
func (r *pgTxRunner) RunInTx(ctx context.Context, fn func(s Stores) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", wrapUnavailable(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	s := Stores{
		Locations:   NewLocationRepository(tx),
		Submissions: NewSubmissionRepository(tx),
	}
	if err := fn(s); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка коммита транзакции: %w", wrapUnavailable(err))
	}
	return nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// wrapUnavailable помечает transient-ошибки (таймаут, обрыв соединения)
// как ErrUnavailable, чтобы вызывающий слой мог отличить их от постоянных.
func wrapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
