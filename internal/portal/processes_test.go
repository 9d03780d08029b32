package portal_test

import (
	"testing"

	"naktender/internal/workflow"
	"naktender/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publicationNumbers(page *types.ProcessPage) []string {
	out := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		out = append(out, item.PublicationNumber)
	}
	return out
}

func TestListProcesses(t *testing.T) {
	f := newFixture(t)
	f.seedProcesses(t)

	tests := []struct {
		name   string
		filter types.ProcessFilter
		want   []string
	}{
		{"everything newest first", types.ProcessFilter{}, []string{upcomingTender, openInquiry, openTender, closedTender}},
		{"all keyword", types.ProcessFilter{Status: "ALL"}, []string{upcomingTender, openInquiry, openTender, closedTender}},
		{"ongoing", types.ProcessFilter{Status: "ongoing"}, []string{openInquiry, openTender}},
		{"upcoming", types.ProcessFilter{Status: "upcoming"}, []string{upcomingTender}},
		{"completed", types.ProcessFilter{Status: "completed"}, []string{closedTender}},
		{"ongoing tenders", types.ProcessFilter{Status: "ongoing", Type: "tender"}, []string{openTender}},
		{"search title and description", types.ProcessFilter{Search: "road"}, []string{openInquiry, openTender}},
		{"search publication number", types.ProcessFilter{Search: "1404-003"}, []string{closedTender}},
		{"category", types.ProcessFilter{Category: "buildings"}, []string{closedTender}},
		{"ending by date", types.ProcessFilter{EndDate: "2025-06-06"}, []string{openInquiry, closedTender}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.ListProcesses(f.ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, publicationNumbers(page))
			assert.Equal(t, len(tt.want), page.Total)
		})
	}
}

func TestListProcessesDisplayStatus(t *testing.T) {
	f := newFixture(t)
	f.seedProcesses(t)

	page, err := f.svc.ListProcesses(f.ctx, types.ProcessFilter{})
	require.NoError(t, err)

	got := map[string]types.DisplayStatus{}
	for _, item := range page.Items {
		got[item.PublicationNumber] = item.DisplayStatus
	}
	assert.Equal(t, map[string]types.DisplayStatus{
		openTender:     types.DisplayStatusOngoing,
		openInquiry:    types.DisplayStatusOngoing,
		upcomingTender: types.DisplayStatusUpcoming,
		closedTender:   types.DisplayStatusCompleted,
	}, got)
}

func TestListProcessesPagination(t *testing.T) {
	f := newFixture(t)
	f.seedProcesses(t)

	page, err := f.svc.ListProcesses(f.ctx, types.ProcessFilter{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{closedTender}, publicationNumbers(page))
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Page)

	page, err = f.svc.ListProcesses(f.ctx, types.ProcessFilter{Page: 5, Limit: 3})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 4, page.Total)

	page, err = f.svc.ListProcesses(f.ctx, types.ProcessFilter{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)
	assert.Equal(t, 1, page.Page)

	page, err = f.svc.ListProcesses(f.ctx, types.ProcessFilter{})
	require.NoError(t, err)
	assert.Equal(t, 10, page.Limit)
}

func TestListProcessesRejectsBadFilters(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListProcesses(f.ctx, types.ProcessFilter{
		Status:  "soon",
		Type:    "AUCTION",
		EndDate: "06/06/2025",
		Page:    -1,
		Limit:   -5,
	})
	for _, field := range []string{"status", "type", "endDate", "page", "limit"} {
		requireValidationField(t, err, field)
	}
}

func TestProcessDetail(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)

	detail, err := f.svc.Process(f.ctx, openTender)
	require.NoError(t, err)
	assert.Equal(t, ps.open.ID, detail.Process.ID)
	assert.Equal(t, types.DisplayStatusOngoing, detail.DisplayStatus)
	require.Len(t, detail.RequiredDocuments, 3)
	assert.Equal(t, ps.guarantee.ID, detail.RequiredDocuments[0].ID)

	detail, err = f.svc.Process(f.ctx, openInquiry)
	require.NoError(t, err)
	assert.Empty(t, detail.RequiredDocuments)

	_, err = f.svc.Process(f.ctx, "nope")
	require.ErrorIs(t, err, types.ErrProcessNotFound)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)

	_, err := f.svc.UploadCertificate(f.ctx, f.contractor.ID, types.CertificateSlot{Type: types.CertificateTypeTax}, pdf("tax.pdf"))
	require.NoError(t, err)
	_, err = f.svc.SubmitAccount(f.ctx, f.principal(), accountForm())
	require.NoError(t, err)
	f.completeParticipation(t, ps)
	_, err = f.svc.SubmitParticipation(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)

	profile, err := f.svc.Profile(f.ctx, f.contractor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pars Omran Co", profile.Contractor.CompanyName)
	assert.Len(t, profile.Members, 2)
	assert.Len(t, profile.Certificates, 1)
	assert.Len(t, profile.Tasks, 1)
	assert.Len(t, profile.Purchases, 1)
	assert.Len(t, profile.Submissions, 1)
	assert.Equal(t, workflow.AlertUnderReview, profile.Account.Alert)

	_, err = f.svc.Profile(f.ctx, "unknown")
	require.ErrorIs(t, err, types.ErrContractorNotFound)
}
