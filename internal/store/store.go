package store

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Store groups the repositories over one connection source.
type Store struct {
	db DBTX

	Contractors  *ContractorRepository
	Tasks        *TaskRepository
	Certificates *CertificateRepository
	Files        *FileRepository
	Processes    *ProcessRepository
	Payments     *PaymentRepository
	Submissions  *SubmissionRepository
	Evaluations  *EvaluationRepository
}

func New(pool *pgxpool.Pool) *Store {
	return newStore(pool)
}

func newStore(db DBTX) *Store {
	return &Store{
		db:           db,
		Contractors:  NewContractorRepository(db),
		Tasks:        NewTaskRepository(db),
		Certificates: NewCertificateRepository(db),
		Files:        NewFileRepository(db),
		Processes:    NewProcessRepository(db),
		Payments:     NewPaymentRepository(db),
		Submissions:  NewSubmissionRepository(db),
		Evaluations:  NewEvaluationRepository(db),
	}
}

// InTx runs fn inside a transaction. Calling it on a Store that is
// already transactional opens a savepoint.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(newStore(tx))
	})
}

const (
	uniqueViolation = "23505"

	lockingClause = "FOR UPDATE"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
