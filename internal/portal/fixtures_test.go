package portal_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"naktender/internal/portal"
	"naktender/internal/portal/portaltest"
	"naktender/internal/utils"
	"naktender/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

const (
	pdfHeader = "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"
	pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
)

type fixture struct {
	ctx   context.Context
	svc   *portal.Service
	store *portaltest.Store
	blobs *portaltest.Blobs
	ids   *portaltest.Identities
	logs  *test.Hook

	contractor *types.Contractor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		ctx:   context.Background(),
		store: portaltest.NewStore(),
		blobs: portaltest.NewBlobs(),
		ids:   portaltest.NewIdentities(),
		logs:  hook,
	}

	f.svc = portal.New(
		&types.Config{UploadMaxBytes: 1 << 10},
		logger,
		f.store,
		f.blobs,
		portal.WithClock(func() time.Time { return now }),
		portal.WithIdentityProvider(f.ids),
	)

	f.contractor = &types.Contractor{
		CompanyName:        "Pars Omran",
		NationalID:         "10101010101",
		RegistrationNumber: "4411",
		Mobile:             "09121234567",
		CompanyStatus:      types.CompanyStatusPendingApproval,
	}
	require.NoError(t, f.store.Contractors().CreateContractor(f.ctx, f.contractor))

	return f
}

func pdf(name string) *portal.Upload {
	return upload(name, pdfHeader)
}

func upload(name, content string) *portal.Upload {
	return &portal.Upload{
		Filename: name,
		Size:     int64(len(content)),
		Body:     bytes.NewReader([]byte(content)),
	}
}

func accountForm() types.AccountForm {
	return types.AccountForm{
		CompanyName:        "Pars Omran Co",
		NationalID:         "10101010101",
		RegistrationNumber: "4411",
		Mobile:             "09121234567",
		Address:            "Tehran, Valiasr St",
		PostalCode:         "1234567890",
		BankName:           "Melli",
		AccountNumber:      "0101010101",
		Sheba:              "IR120170000000123456789012",
		CEO: types.MemberForm{
			FullName:   "Ali Rezaei",
			NationalID: "0013542419",
			Mobile:     "09121111111",
		},
		Representative: types.MemberForm{
			FullName:   "Sara Ahmadi",
			NationalID: "0123456789",
			Mobile:     "09122222222",
		},
	}
}

func (f *fixture) principal() types.Principal {
	return types.Principal{Subject: "sub-1", ContractorID: f.contractor.ID, Username: "info@parsomran.ir"}
}

// Process fixtures. Tender processes require a guarantee, a technical
// proposal with a file and an optional general note.
const (
	openTender     = "T-1404-001"
	upcomingTender = "T-1404-002"
	closedTender   = "T-1404-003"
	openInquiry    = "I-1404-001"
)

type processSet struct {
	open, upcoming, closed, inquiry *types.PublishedProcess

	guarantee, technical, general *types.RequiredDocument

	evaluation *types.ProcessEvaluation
	experience *types.EvaluationCriterion
	iso        *types.EvaluationCriterion
	portfolio  *types.EvaluationCriterion
}

func (f *fixture) seedProcesses(t *testing.T) *processSet {
	t.Helper()

	ps := &processSet{
		open: &types.PublishedProcess{
			PublicationNumber: openTender,
			Title:             "Road maintenance, district 4",
			ProcessType:       types.ProcessTypeTender,
			Category:          utils.StringPtr("construction"),
			PublishDate:       at(-2 * day),
			SubmissionEndDate: at(10 * day),
			DocumentPrice:     500000,
			Status:            types.ProcessStatusOpen,
		},
		upcoming: &types.PublishedProcess{
			PublicationNumber: upcomingTender,
			Title:             "Water network extension",
			ProcessType:       types.ProcessTypeTender,
			Category:          utils.StringPtr("construction"),
			PublishDate:       at(3 * day),
			SubmissionEndDate: at(20 * day),
			DocumentPrice:     300000,
			Status:            types.ProcessStatusOpen,
		},
		closed: &types.PublishedProcess{
			PublicationNumber: closedTender,
			Title:             "School renovation",
			ProcessType:       types.ProcessTypeTender,
			Category:          utils.StringPtr("buildings"),
			PublishDate:       at(-30 * day),
			SubmissionEndDate: at(-5 * day),
			DocumentPrice:     200000,
			Status:            types.ProcessStatusOpen,
		},
		inquiry: &types.PublishedProcess{
			PublicationNumber: openInquiry,
			Title:             "Office furniture price inquiry",
			Description:       utils.StringPtr("desks and road barriers"),
			ProcessType:       types.ProcessTypeInquiry,
			PublishDate:       at(-1 * day),
			SubmissionEndDate: at(5 * day),
			Status:            types.ProcessStatusOpen,
		},
	}

	for _, p := range []*types.PublishedProcess{ps.open, ps.upcoming, ps.closed, ps.inquiry} {
		require.NoError(t, f.store.Processes().CreateProcess(f.ctx, p))
	}

	ps.guarantee = &types.RequiredDocument{ProcessType: types.ProcessTypeTender, Kind: types.DocumentKindFinancialGuarantee, Title: "Financial guarantee", IsMandatory: true, Position: 1}
	ps.technical = &types.RequiredDocument{ProcessType: types.ProcessTypeTender, Kind: types.DocumentKindTechnicalProposal, Title: "Technical proposal", IsMandatory: true, Position: 2}
	ps.general = &types.RequiredDocument{ProcessType: types.ProcessTypeTender, Kind: types.DocumentKindGeneral, Title: "Other documents", IsMandatory: false, Position: 3}
	for _, d := range []*types.RequiredDocument{ps.guarantee, ps.technical, ps.general} {
		require.NoError(t, f.store.Processes().CreateRequiredDocument(f.ctx, d))
	}

	template := &types.EvaluationTemplate{Title: "Contractor qualification"}
	require.NoError(t, f.store.Evaluations().CreateTemplate(f.ctx, template))

	ps.experience = &types.EvaluationCriterion{
		TemplateID:      template.ID,
		Title:           "Years of experience",
		InputType:       types.InputTypeNumber,
		IsRequired:      true,
		Position:        1,
		ValidationRules: []byte(`{"min":0,"max":60}`),
	}
	ps.iso = &types.EvaluationCriterion{
		TemplateID:        template.ID,
		Title:             "Quality certification",
		InputType:         types.InputTypeSelect,
		Position:          2,
		PredefinedOptions: []byte(`[{"value":"ISO9001","label":"ISO 9001","score":10},{"value":"NONE","label":"None","score":0}]`),
	}
	ps.portfolio = &types.EvaluationCriterion{
		TemplateID: template.ID,
		Title:      "Project portfolio",
		InputType:  types.InputTypeFile,
		Position:   3,
	}
	for _, c := range []*types.EvaluationCriterion{ps.experience, ps.iso, ps.portfolio} {
		require.NoError(t, f.store.Evaluations().CreateCriterion(f.ctx, c))
	}

	ps.evaluation = &types.ProcessEvaluation{ProcessID: ps.open.ID, TemplateID: template.ID, RequiresPurchase: true}
	require.NoError(t, f.store.Evaluations().CreateProcessEvaluation(f.ctx, ps.evaluation))

	return ps
}

func guaranteeData() []byte {
	return []byte(`{"guarantees":[{"type":"BANK_GUARANTEE","number":"BG-7781","issueDate":"2025-05-01","expiryDate":"2025-11-01","amount":150000000}]}`)
}

// completeParticipation purchases the open tender and fills in every
// mandatory step.
func (f *fixture) completeParticipation(t *testing.T, ps *processSet) {
	t.Helper()

	_, err := f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)

	_, err = f.svc.SaveEvaluationResponses(f.ctx, f.contractor.ID, openTender, []types.EvaluationAnswer{
		{ProcessEvaluationID: ps.evaluation.ID, CriterionID: ps.experience.ID, Value: utils.StringPtr("12")},
	})
	require.NoError(t, err)

	_, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.guarantee.ID,
		Data:               guaranteeData(),
	})
	require.NoError(t, err)

	_, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.technical.ID,
		Data:               []byte(`{"summary":"Asphalt resurfacing in two phases"}`),
		File:               pdf("proposal.pdf"),
	})
	require.NoError(t, err)
}

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, field)
}
