package types

import "time"

const SubmissionStatusCancelled TaskStatus = "CANCELLED"

// DocumentDraft holds what a contractor entered for one required document
// before the participation request is submitted.
type DocumentDraft struct {
	ID                 string    `db:"id" json:"id"`
	ContractorID       string    `db:"contractor_id" json:"contractorId"`
	ProcessID          string    `db:"process_id" json:"processId"`
	RequiredDocumentID string    `db:"required_document_id" json:"requiredDocumentId"`
	Data               []byte    `db:"data" json:"-"`
	FileID             *string   `db:"file_id" json:"fileId,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// HasValue reports whether the draft satisfies its document step.
func (d *DocumentDraft) HasValue() bool {
	if d == nil {
		return false
	}
	if d.FileID != nil && *d.FileID != "" {
		return true
	}
	switch string(d.Data) {
	case "", "null", "{}", "[]":
		return false
	}
	return true
}

type ProcessSubmission struct {
	ID           string     `db:"id" json:"id"`
	ContractorID string     `db:"contractor_id" json:"contractorId"`
	ProcessID    string     `db:"process_id" json:"processId"`
	Status       TaskStatus `db:"status" json:"status"`
	ReviewNote   *string    `db:"review_note" json:"reviewNote,omitempty"`
	SubmittedAt  time.Time  `db:"submitted_at" json:"submittedAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

type SubmittedDocument struct {
	ID                 string    `db:"id" json:"id"`
	SubmissionID       string    `db:"submission_id" json:"submissionId"`
	RequiredDocumentID string    `db:"required_document_id" json:"requiredDocumentId"`
	FileID             *string   `db:"file_id" json:"fileId,omitempty"`
	Data               []byte    `db:"data" json:"-"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
}

// SubmissionListItem is a submission joined with its process for the
// contractor's dashboard.
type SubmissionListItem struct {
	Submission    *ProcessSubmission `json:"submission"`
	Process       *PublishedProcess  `json:"process"`
	DisplayStatus DisplayStatus      `json:"displayStatus"`
}
