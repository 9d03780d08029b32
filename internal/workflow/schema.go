package workflow

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"naktender/internal/utils"
	"naktender/pkg/types"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// GuaranteeRecord is one financial guarantee attached to a participation.
type GuaranteeRecord struct {
	Type       string `json:"type" validate:"required,oneof=BANK_GUARANTEE CHEQUE CASH_DEPOSIT INSURANCE_BOND"`
	Number     string `json:"number" validate:"required,max=50"`
	Serial     string `json:"serial" validate:"omitempty,max=50"`
	Issuer     string `json:"issuer" validate:"omitempty,max=200"`
	IssueDate  string `json:"issueDate" validate:"required,datetime=2006-01-02"`
	ExpiryDate string `json:"expiryDate" validate:"required,datetime=2006-01-02"`
	Amount     int64  `json:"amount" validate:"required,gt=0"`
}

type FinancialGuaranteePayload struct {
	Guarantees []GuaranteeRecord `json:"guarantees" validate:"required,min=1,dive"`
}

type TechnicalProposalPayload struct {
	Summary string `json:"summary" validate:"omitempty,max=4000"`
}

type FinancialProposalPayload struct {
	TotalAmount int64  `json:"totalAmount" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"omitempty,oneof=IRR"`
	Note        string `json:"note" validate:"omitempty,max=2000"`
}

type GeneralPayload struct {
	Note string `json:"note" validate:"omitempty,max=4000"`
}

func guaranteeDates(sl validator.StructLevel) {
	g := sl.Current().Interface().(GuaranteeRecord)

	issued, err1 := time.Parse(dateLayout, g.IssueDate)
	expires, err2 := time.Parse(dateLayout, g.ExpiryDate)
	if err1 != nil || err2 != nil {
		return
	}

	if !expires.After(issued) {
		sl.ReportError(g.ExpiryDate, "expiryDate", "ExpiryDate", "after_issue", "")
	}
}

// DocumentSchema describes the payload a required document accepts.
type DocumentSchema struct {
	New          func() any
	RequiresFile bool
}

var documentSchemas = map[types.DocumentKind]DocumentSchema{
	types.DocumentKindFinancialGuarantee: {New: func() any { return new(FinancialGuaranteePayload) }, RequiresFile: false},
	types.DocumentKindTechnicalProposal:  {New: func() any { return new(TechnicalProposalPayload) }, RequiresFile: true},
	types.DocumentKindFinancialProposal:  {New: func() any { return new(FinancialProposalPayload) }, RequiresFile: true},
	types.DocumentKindGeneral:            {New: func() any { return new(GeneralPayload) }, RequiresFile: false},
}

func SchemaFor(kind types.DocumentKind) (DocumentSchema, bool) {
	schema, ok := documentSchemas[kind]
	return schema, ok
}

// ValidateDocumentPayload decodes data strictly into the schema of kind and
// returns its normalized JSON. hasFile tells whether a file is, or will be,
// attached to the document.
func ValidateDocumentPayload(kind types.DocumentKind, data []byte, hasFile bool) ([]byte, error) {
	schema, ok := SchemaFor(kind)
	if !ok {
		return nil, fmt.Errorf("no payload schema for document kind %q", kind)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}

	payload := schema.New()
	dec := utils.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(payload); err != nil {
		return nil, types.NewValidationError("document data is malformed").Add("data", err.Error())
	}

	if err := ValidateStruct("document data is invalid", payload); err != nil {
		return nil, err
	}

	if schema.RequiresFile && !hasFile {
		return nil, types.NewValidationError("document data is invalid").Add("file", "is required")
	}

	normalized, err := utils.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal document payload: %w", err)
	}

	return normalized, nil
}

// CriterionRules is the validation_rules payload of a criterion.
type CriterionRules struct {
	Min       *float64 `json:"min"`
	Max       *float64 `json:"max"`
	MinLength *int     `json:"minLength"`
	MaxLength *int     `json:"maxLength"`
	Pattern   string   `json:"pattern"`
}

// CriterionOption is one entry of predefined_options.
type CriterionOption struct {
	Value string   `json:"value"`
	Label string   `json:"label"`
	Score *float64 `json:"score"`
}

func parseRules(raw []byte) (CriterionRules, error) {
	var rules CriterionRules
	if len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		return rules, nil
	}
	if err := utils.Unmarshal(raw, &rules); err != nil {
		return rules, fmt.Errorf("decode validation rules: %w", err)
	}
	return rules, nil
}

// ParseOptions accepts either a list of option objects or a list of
// plain strings.
func ParseOptions(raw []byte) ([]CriterionOption, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var options []CriterionOption
	if err := utils.Unmarshal(raw, &options); err == nil {
		return options, nil
	}

	var values []string
	if err := utils.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode predefined options: %w", err)
	}

	options = make([]CriterionOption, 0, len(values))
	for _, v := range values {
		options = append(options, CriterionOption{Value: v, Label: v})
	}
	return options, nil
}

// ValidateAnswer checks an answer against its criterion and returns the
// score it earns, if the criterion scores answers.
func ValidateAnswer(c *types.EvaluationCriterion, answer types.EvaluationAnswer) (*float64, error) {
	field := "criterion:" + c.ID
	verr := types.NewValidationError("evaluation answer is invalid")

	value := strings.TrimSpace(utils.PtrString(answer.Value))
	text := strings.TrimSpace(utils.PtrString(answer.TextValue))

	if c.InputType == types.InputTypeFile {
		return nil, verr.Add(field, "upload a file for this criterion")
	}

	given := value
	if c.InputType == types.InputTypeText {
		given = text
		if given == "" {
			given = value
		}
	}

	if given == "" {
		if c.IsRequired {
			return nil, verr.Add(field, "is required")
		}
		return nil, nil
	}

	rules, err := parseRules(c.ValidationRules)
	if err != nil {
		return nil, err
	}

	var score *float64

	switch c.InputType {
	case types.InputTypeText:
		length := utf8.RuneCountInString(given)
		if rules.MinLength != nil && length < *rules.MinLength {
			return nil, verr.Add(field, fmt.Sprintf("must be at least %d characters", *rules.MinLength))
		}
		if rules.MaxLength != nil && length > *rules.MaxLength {
			return nil, verr.Add(field, fmt.Sprintf("must be at most %d characters", *rules.MaxLength))
		}
		if rules.Pattern != "" {
			re, err := regexp.Compile(rules.Pattern)
			if err != nil {
				return nil, fmt.Errorf("compile pattern of criterion %s: %w", c.ID, err)
			}
			if !re.MatchString(given) {
				return nil, verr.Add(field, "has an invalid format")
			}
		}

	case types.InputTypeNumber:
		n, err := strconv.ParseFloat(given, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, verr.Add(field, "must be a number")
		}
		if rules.Min != nil && n < *rules.Min {
			return nil, verr.Add(field, "must be at least "+strconv.FormatFloat(*rules.Min, 'f', -1, 64))
		}
		if rules.Max != nil && n > *rules.Max {
			return nil, verr.Add(field, "must be at most "+strconv.FormatFloat(*rules.Max, 'f', -1, 64))
		}

	case types.InputTypeSelect:
		options, err := ParseOptions(c.PredefinedOptions)
		if err != nil {
			return nil, err
		}
		var matched *CriterionOption
		for i := range options {
			if options[i].Value == given {
				matched = &options[i]
				break
			}
		}
		if matched == nil {
			return nil, verr.Add(field, "must be one of the predefined options")
		}
		score = matched.Score

	case types.InputTypeBoolean:
		if _, err := strconv.ParseBool(given); err != nil {
			return nil, verr.Add(field, "must be true or false")
		}

	case types.InputTypeDate:
		if _, err := time.Parse(dateLayout, given); err != nil {
			return nil, verr.Add(field, "must be a date formatted as YYYY-MM-DD")
		}

	default:
		return nil, fmt.Errorf("criterion %s has unknown input type %q", c.ID, c.InputType)
	}

	if score != nil && c.MaxScore != nil && *score > *c.MaxScore {
		capped := *c.MaxScore
		score = &capped
	}

	return score, nil
}
