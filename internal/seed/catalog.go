package seed

import (
	"time"

	"naktender/internal/utils"
	"naktender/pkg/types"
)

// Fixed IDs keep the seed idempotent. To generate new IDs:
// `go run ./cmd/naktender nanoid`
const (
	ProcessRoadMaintenance = "Dc0Au6C7z1NkeAZTb5rxzIM6lmovkEox"
	ProcessWaterNetwork    = "2XzT7ctLSdVrpJRzDNIxFGpQ0EbWVO03"
	ProcessSchoolRenovate  = "IFtyMUUqjK8u45Xzzx53c8ZivD9pcxtP"
	ProcessFurnitureQuote  = "5sLZqmvUDzrAF8wAfDG3X5yIxuL52fc5"
	ProcessConsultantCall  = "C6xOYloRFp8WiSccWzLmV7bono372vNH"

	TemplateQualification = "ZLDTum2SUL0EA2aoFPibAeJTdOoU1bi8"
	CriterionExperience   = "XlsCsR5GfZ0QxvNs6OTh88B9hkIdlele"
	CriterionCertificate  = "gKWUOAMf62nYV5rX4SMvfYNxWQQjulez"
	CriterionPortfolio    = "dhxnOSZpK3yTaRktDozF1VMqbrFvf5Zp"

	EvaluationRoadMaintenance = "JctxA772hZTd5WBQdTITZdwSxRbs5fr9"
	EvaluationConsultantCall  = "mCXQy9ERNXdBFuouM1VhLM2Ksma4KOoe"
)

// Catalog is the reference data a fresh portal starts with.
type Catalog struct {
	Processes          []*types.PublishedProcess
	RequiredDocuments  []*types.RequiredDocument
	Templates          []*types.EvaluationTemplate
	Criteria           []*types.EvaluationCriterion
	ProcessEvaluations []*types.ProcessEvaluation
}

// DefaultCatalog builds the seed data with submission windows placed
// around now, so a freshly seeded portal shows every display status.
func DefaultCatalog(now time.Time) *Catalog {
	today := now.UTC().Truncate(24 * time.Hour)
	days := func(n int) *time.Time {
		t := today.AddDate(0, 0, n)
		return &t
	}

	return &Catalog{
		Processes: []*types.PublishedProcess{
			{
				ID:                ProcessRoadMaintenance,
				PublicationNumber: "T-1404-001",
				Title:             "Road maintenance, district 4",
				Description:       utils.StringPtr("Resurfacing and drainage repair of 12km of urban roads"),
				ProcessType:       types.ProcessTypeTender,
				Category:          utils.StringPtr("construction"),
				PublishDate:       days(-3),
				SubmissionEndDate: days(14),
				DocumentPrice:     500000,
				Status:            types.ProcessStatusOpen,
			},
			{
				ID:                ProcessWaterNetwork,
				PublicationNumber: "T-1404-002",
				Title:             "Water network extension",
				ProcessType:       types.ProcessTypeTender,
				Category:          utils.StringPtr("construction"),
				PublishDate:       days(5),
				SubmissionEndDate: days(30),
				DocumentPrice:     300000,
				Status:            types.ProcessStatusOpen,
			},
			{
				ID:                ProcessSchoolRenovate,
				PublicationNumber: "T-1404-003",
				Title:             "School renovation",
				ProcessType:       types.ProcessTypeTender,
				Category:          utils.StringPtr("buildings"),
				PublishDate:       days(-40),
				SubmissionEndDate: days(-7),
				DocumentPrice:     200000,
				Status:            types.ProcessStatusOpen,
			},
			{
				ID:                ProcessFurnitureQuote,
				PublicationNumber: "I-1404-001",
				Title:             "Office furniture price inquiry",
				ProcessType:       types.ProcessTypeInquiry,
				Category:          utils.StringPtr("supplies"),
				PublishDate:       days(-1),
				SubmissionEndDate: days(6),
				Status:            types.ProcessStatusOpen,
			},
			{
				ID:                ProcessConsultantCall,
				PublicationNumber: "C-1404-001",
				Title:             "Call for supervision consultants",
				ProcessType:       types.ProcessTypeCall,
				Category:          utils.StringPtr("consulting"),
				PublishDate:       days(-2),
				SubmissionEndDate: days(20),
				Status:            types.ProcessStatusOpen,
			},
		},
		RequiredDocuments: []*types.RequiredDocument{
			{ID: "wuO6p1LL2MsFMUGIzfNeLvNmjRpBGCrG", ProcessType: types.ProcessTypeTender, Kind: types.DocumentKindFinancialGuarantee, Title: "Financial guarantee", IsMandatory: true, Position: 1},
			{ID: "uLQ7zVIWtDR1HgZdvZYaN3J5tWCAqTfb", ProcessType: types.ProcessTypeTender, Kind: types.DocumentKindTechnicalProposal, Title: "Technical proposal", IsMandatory: true, Position: 2},
			{ID: "GyWynt85TtUuaIepz6AXdvbBRb5pICIn", ProcessType: types.ProcessTypeTender, Kind: types.DocumentKindFinancialProposal, Title: "Financial proposal", IsMandatory: true, Position: 3},
			{ID: "vgBYxBDxFXE7IggZgHObBXR9LlKDRi2u", ProcessType: types.ProcessTypeTender, Kind: types.DocumentKindGeneral, Title: "Other documents", IsMandatory: false, Position: 4},
			{ID: "DHyHxRh3y0zXIpgVe8YAT4YdZjHyJOht", ProcessType: types.ProcessTypeInquiry, Kind: types.DocumentKindFinancialProposal, Title: "Price quotation", IsMandatory: true, Position: 1},
			{ID: "zG65yzWimJ4uqPzsDxo7MeMKRv81Ectc", ProcessType: types.ProcessTypeInquiry, Kind: types.DocumentKindGeneral, Title: "Other documents", IsMandatory: false, Position: 2},
			{ID: "1RadvZICkwxVUhJllfQ43lwSjxUZUNEF", ProcessType: types.ProcessTypeCall, Kind: types.DocumentKindTechnicalProposal, Title: "Firm profile", IsMandatory: true, Position: 1},
		},
		Templates: []*types.EvaluationTemplate{
			{
				ID:          TemplateQualification,
				Title:       "Contractor qualification",
				Description: utils.StringPtr("Experience, certification and portfolio of the bidder"),
			},
		},
		Criteria: []*types.EvaluationCriterion{
			{
				ID:              CriterionExperience,
				TemplateID:      TemplateQualification,
				Title:           "Years of experience",
				InputType:       types.InputTypeNumber,
				IsRequired:      true,
				Position:        1,
				ValidationRules: []byte(`{"min":0,"max":60}`),
			},
			{
				ID:                CriterionCertificate,
				TemplateID:        TemplateQualification,
				Title:             "Quality certification",
				InputType:         types.InputTypeSelect,
				Position:          2,
				MaxScore:          utils.Float64Ptr(10),
				PredefinedOptions: []byte(`[{"value":"ISO9001","label":"ISO 9001","score":10},{"value":"NONE","label":"None","score":0}]`),
			},
			{
				ID:         CriterionPortfolio,
				TemplateID: TemplateQualification,
				Title:      "Project portfolio",
				InputType:  types.InputTypeFile,
				Position:   3,
			},
		},
		ProcessEvaluations: []*types.ProcessEvaluation{
			{ID: EvaluationRoadMaintenance, ProcessID: ProcessRoadMaintenance, TemplateID: TemplateQualification, RequiresPurchase: true},
			{ID: EvaluationConsultantCall, ProcessID: ProcessConsultantCall, TemplateID: TemplateQualification, RequiresPurchase: false},
		},
	}
}
