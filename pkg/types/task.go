package types

import "time"

type TaskEntityType string

const (
	TaskEntityContractor TaskEntityType = "CONTRACTOR"
)

// Task is a review record. For contractors it is the verification task
// whose latest instance gates editing of the account data.
type Task struct {
	ID              string         `db:"id" json:"id"`
	EntityType      TaskEntityType `db:"entity_type" json:"entityType"`
	EntityID        string         `db:"entity_id" json:"entityId"`
	Status          TaskStatus     `db:"status" json:"status"`
	RejectionReason *string        `db:"rejection_reason" json:"rejectionReason,omitempty"`
	Reviewer        *string        `db:"reviewer" json:"reviewer,omitempty"`
	ActionDate      time.Time      `db:"action_date" json:"actionDate"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
}
