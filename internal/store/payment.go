package store

import (
	"context"
	"fmt"
	"time"

	"naktender/internal/utils"
	"naktender/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

const paymentTableName = "payment_transactions"

var paymentColumns = utils.StructTagValues(types.PaymentTransaction{})

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CompletedPurchase returns the completed document purchase of a
// contractor for a process, or types.ErrNotPurchased.
func (r *PaymentRepository) CompletedPurchase(ctx context.Context, contractorID, processID string) (*types.PaymentTransaction, error) {
	query, args, err := psql().
		Select(paymentColumns...).
		From(paymentTableName).
		Where(sq.Eq{
			"contractor_id":    contractorID,
			"process_id":       processID,
			"transaction_type": types.TransactionTypeDocumentPurchase,
			"status":           types.PaymentStatusCompleted,
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate purchase query: %w", err)
	}

	var payment types.PaymentTransaction
	err = pgxscan.Get(ctx, r.db, &payment, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrNotPurchased
		}
		return nil, fmt.Errorf("failed to fetch purchase: %w", err)
	}

	return &payment, nil
}

func (r *PaymentRepository) Purchases(ctx context.Context, contractorID string) ([]*types.PaymentTransaction, error) {
	query, args, err := psql().
		Select(paymentColumns...).
		From(paymentTableName).
		Where(sq.Eq{"contractor_id": contractorID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate purchases query: %w", err)
	}

	var payments []*types.PaymentTransaction
	err = pgxscan.Select(ctx, r.db, &payments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch purchases: %w", err)
	}

	return payments, nil
}

// CreateTransaction inserts a payment. A second completed purchase for
// the same contractor and process violates the partial unique index and
// is reported as types.ErrAlreadyPurchased.
func (r *PaymentRepository) CreateTransaction(ctx context.Context, payment *types.PaymentTransaction) error {
	if payment.ID == "" {
		payment.ID = utils.NanoID()
	}
	payment.CreatedAt = time.Now()

	query, args, err := psql().
		Insert(paymentTableName).
		SetMap(utils.StructToMap(payment)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create transaction query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrAlreadyPurchased
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}
