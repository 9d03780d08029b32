package types

import (
	"encoding/json"
	"time"
)

type InputType string

const (
	InputTypeText    InputType = "TEXT"
	InputTypeNumber  InputType = "NUMBER"
	InputTypeSelect  InputType = "SELECT"
	InputTypeBoolean InputType = "BOOLEAN"
	InputTypeDate    InputType = "DATE"
	InputTypeFile    InputType = "FILE"
)

type EvaluationTemplate struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

type EvaluationCriterion struct {
	ID                string    `db:"id" json:"id"`
	TemplateID        string    `db:"template_id" json:"templateId"`
	Title             string    `db:"title" json:"title"`
	InputType         InputType `db:"input_type" json:"inputType"`
	IsRequired        bool      `db:"is_required" json:"isRequired"`
	Position          int       `db:"position" json:"position"`
	MaxScore          *float64  `db:"max_score" json:"maxScore,omitempty"`
	ValidationRules   []byte    `db:"validation_rules" json:"-"`
	PredefinedOptions []byte    `db:"predefined_options" json:"-"`
}

// ProcessEvaluation assigns a template to a process.
type ProcessEvaluation struct {
	ID               string    `db:"id" json:"id"`
	ProcessID        string    `db:"process_id" json:"processId"`
	TemplateID       string    `db:"template_id" json:"templateId"`
	RequiresPurchase bool      `db:"requires_purchase" json:"requiresPurchase"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
}

type EvaluationResponse struct {
	ID                  string    `db:"id" json:"id"`
	ProcessEvaluationID string    `db:"process_evaluation_id" json:"processEvaluationId"`
	CriterionID         string    `db:"criterion_id" json:"criterionId"`
	ContractorID        string    `db:"contractor_id" json:"contractorId"`
	Value               *string   `db:"value" json:"value,omitempty"`
	TextValue           *string   `db:"text_value" json:"textValue,omitempty"`
	Score               *float64  `db:"score" json:"score,omitempty"`
	FileID              *string   `db:"file_id" json:"fileId,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

// Answered reports whether the response carries any value.
func (r *EvaluationResponse) Answered() bool {
	if r == nil {
		return false
	}
	return nonEmpty(r.Value) || nonEmpty(r.TextValue) || nonEmpty(r.FileID)
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

// EvaluationAnswer is one submitted answer in a save request.
type EvaluationAnswer struct {
	ProcessEvaluationID string  `json:"processEvaluationId"`
	CriterionID         string  `json:"criterionId"`
	Value               *string `json:"value"`
	TextValue           *string `json:"textValue"`
}

// EvaluationForm is the nested template → criteria → response structure
// returned to the participation wizard.
type EvaluationForm struct {
	ProcessEvaluation *ProcessEvaluation   `json:"processEvaluation"`
	Template          *EvaluationTemplate  `json:"template"`
	Criteria          []*EvaluationFormRow `json:"criteria"`
}

type EvaluationFormRow struct {
	*EvaluationCriterion
	ValidationRules   json.RawMessage     `json:"validationRules,omitempty"`
	PredefinedOptions json.RawMessage     `json:"predefinedOptions,omitempty"`
	Response          *EvaluationResponse `json:"response,omitempty"`
}
