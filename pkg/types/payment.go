package types

import "time"

type TransactionType string

const (
	TransactionTypeDocumentPurchase TransactionType = "DOCUMENT_PURCHASE"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

type PaymentTransaction struct {
	ID              string          `db:"id" json:"id"`
	ContractorID    string          `db:"contractor_id" json:"contractorId"`
	ProcessID       string          `db:"process_id" json:"processId"`
	TransactionType TransactionType `db:"transaction_type" json:"transactionType"`
	Amount          int64           `db:"amount" json:"amount"`
	Status          PaymentStatus   `db:"status" json:"status"`
	Reference       string          `db:"reference" json:"reference"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}
