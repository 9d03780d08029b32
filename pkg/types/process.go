package types

import "time"

type ProcessType string

const (
	ProcessTypeTender  ProcessType = "TENDER"
	ProcessTypeInquiry ProcessType = "INQUIRY"
	ProcessTypeCall    ProcessType = "CALL"
)

// PublishedProcess is a tender, inquiry or call open for participation.
// Its display status is derived, never stored.
type PublishedProcess struct {
	ID                string      `db:"id" json:"id"`
	PublicationNumber string      `db:"publication_number" json:"publicationNumber"`
	Title             string      `db:"title" json:"title"`
	Description       *string     `db:"description" json:"description,omitempty"`
	ProcessType       ProcessType `db:"process_type" json:"processType"`
	Category          *string     `db:"category" json:"category,omitempty"`
	PublishDate       *time.Time  `db:"publish_date" json:"publishDate,omitempty"`
	SubmissionEndDate *time.Time  `db:"submission_end_date" json:"submissionEndDate,omitempty"`
	DocumentPrice     int64       `db:"document_price" json:"documentPrice"`
	Status            string      `db:"status" json:"status"`
	CreatedAt         time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updatedAt"`
}

type ProcessListItem struct {
	PublishedProcess
	DisplayStatus DisplayStatus `json:"displayStatus"`
}

// ProcessFilter carries the listing query string.
type ProcessFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status"`
	Type     string `form:"type"`
	Category string `form:"category"`
	EndDate  string `form:"endDate"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

type ProcessPage struct {
	Items      []*ProcessListItem `json:"items"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	Total      int                `json:"total"`
	TotalPages int                `json:"totalPages"`
}

// DocumentKind selects the payload schema of a required document.
type DocumentKind string

const (
	DocumentKindFinancialGuarantee DocumentKind = "FINANCIAL_GUARANTEE"
	DocumentKindTechnicalProposal  DocumentKind = "TECHNICAL_PROPOSAL"
	DocumentKindFinancialProposal  DocumentKind = "FINANCIAL_PROPOSAL"
	DocumentKindGeneral            DocumentKind = "GENERAL"
)

// RequiredDocument is a document every participant of a process type has
// to provide.
type RequiredDocument struct {
	ID          string       `db:"id" json:"id"`
	ProcessType ProcessType  `db:"process_type" json:"processType"`
	Kind        DocumentKind `db:"document_kind" json:"kind"`
	Title       string       `db:"title" json:"title"`
	IsMandatory bool         `db:"is_mandatory" json:"isMandatory"`
	Position    int          `db:"position" json:"position"`
}
