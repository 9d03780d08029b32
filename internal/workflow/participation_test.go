package workflow

import (
	"testing"

	"naktender/internal/utils"
	"naktender/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openProcess() *types.PublishedProcess {
	return &types.PublishedProcess{
		ID:                "p1",
		PublicationNumber: "2025-001",
		ProcessType:       types.ProcessTypeTender,
		PublishDate:       at(-day),
		SubmissionEndDate: at(7 * day),
		Status:            types.ProcessStatusOpen,
	}
}

func snapshot() ParticipationSnapshot {
	return ParticipationSnapshot{
		Process: openProcess(),
		RequiredDocuments: []*types.RequiredDocument{
			{ID: "d1", Kind: types.DocumentKindFinancialGuarantee, Title: "Guarantee", IsMandatory: true, Position: 1},
			{ID: "d2", Kind: types.DocumentKindGeneral, Title: "Other", IsMandatory: false, Position: 2},
		},
		Drafts: map[string]*types.DocumentDraft{},
		Forms: []*types.EvaluationForm{{
			ProcessEvaluation: &types.ProcessEvaluation{ID: "pe1"},
			Criteria: []*types.EvaluationFormRow{
				{EvaluationCriterion: &types.EvaluationCriterion{ID: "c1", IsRequired: true, InputType: types.InputTypeText}},
				{EvaluationCriterion: &types.EvaluationCriterion{ID: "c2", IsRequired: false, InputType: types.InputTypeText}},
			},
		}},
		Now: now,
	}
}

func purchased(s ParticipationSnapshot) ParticipationSnapshot {
	s.Purchase = &types.PaymentTransaction{ID: "tx", Status: types.PaymentStatusCompleted, TransactionType: types.TransactionTypeDocumentPurchase}
	return s
}

func states(view ParticipationView) []StepState {
	out := make([]StepState, 0, len(view.Steps))
	for _, s := range view.Steps {
		out = append(out, s.State)
	}
	return out
}

func TestParticipationBeforePurchase(t *testing.T) {
	view := Participation(snapshot())

	require.Len(t, view.Steps, 6)
	assert.Equal(t, []StepState{StepActive, StepLocked, StepLocked, StepLocked, StepLocked, StepLocked}, states(view))
	assert.False(t, view.IsEditable)
	assert.False(t, view.CanSubmit)
	assert.Equal(t, 0, view.CurrentStep)
	assert.Equal(t, types.DisplayStatusOngoing, view.DisplayStatus)
	assert.NoError(t, CheckCanPurchase(snapshot()))
	assert.ErrorIs(t, CheckEditable(snapshot()), types.ErrNotPurchased)
}

func TestParticipationStepsAreParallelAfterPurchase(t *testing.T) {
	s := purchased(snapshot())
	s.Drafts["d1"] = &types.DocumentDraft{RequiredDocumentID: "d1", Data: []byte(`{"guarantees":[{"type":"CHEQUE"}]}`)}

	view := Participation(s)
	assert.Equal(t, []StepState{StepCompleted, StepActive, StepCompleted, StepActive, StepLocked, StepLocked}, states(view))
	assert.Equal(t, 1, view.CurrentStep)
	assert.True(t, view.IsEditable)
	assert.False(t, view.CanSubmit)

	err := CheckCanSubmit(s)
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "criterion:c1")
	assert.NotContains(t, verr.Fields, "document:d1")
	assert.NotContains(t, verr.Fields, "document:d2")

	assert.ErrorIs(t, CheckCanPurchase(s), types.ErrAlreadyPurchased)
}

func TestParticipationReadyToSubmit(t *testing.T) {
	s := purchased(snapshot())
	s.Drafts["d1"] = &types.DocumentDraft{RequiredDocumentID: "d1", FileID: utils.StringPtr("f1")}
	s.Forms[0].Criteria[0].Response = &types.EvaluationResponse{TextValue: utils.StringPtr("ten years")}

	view := Participation(s)
	require.NoError(t, CheckCanSubmit(s))
	assert.True(t, view.CanSubmit)
	assert.Equal(t, []StepState{StepCompleted, StepCompleted, StepCompleted, StepActive, StepActive, StepLocked}, states(view))
	assert.Equal(t, 3, view.CurrentStep)
}

func TestParticipationSubmittedIsImmutable(t *testing.T) {
	s := purchased(snapshot())
	s.Submission = &types.ProcessSubmission{ID: "s1", Status: types.TaskStatusPending}

	view := Participation(s)
	assert.True(t, view.IsSubmitted)
	assert.False(t, view.IsEditable)
	assert.Equal(t, []StepState{StepCompleted, StepCompleted, StepCompleted, StepCompleted, StepCompleted, StepActive}, states(view))
	assert.Equal(t, 5, view.CurrentStep)

	assert.ErrorIs(t, CheckEditable(s), types.ErrParticipationLocked)
	assert.ErrorIs(t, CheckCanSubmit(s), types.ErrDuplicateSubmission)
	assert.ErrorIs(t, CheckCanPurchase(s), types.ErrAlreadyPurchased)

	s.Submission.Status = types.TaskStatusRejected
	view = Participation(s)
	assert.Equal(t, StepCompleted, view.Steps[5].State)
}

func TestParticipationCancelledSubmissionReopens(t *testing.T) {
	s := purchased(snapshot())
	s.Submission = &types.ProcessSubmission{ID: "s1", Status: types.SubmissionStatusCancelled}

	view := Participation(s)
	assert.False(t, view.IsSubmitted)
	assert.True(t, view.IsEditable)
}

func TestParticipationClosedProcess(t *testing.T) {
	s := purchased(snapshot())
	s.Process.SubmissionEndDate = at(-day)

	assert.ErrorIs(t, CheckEditable(s), types.ErrProcessClosed)
	assert.ErrorIs(t, CheckCanSubmit(s), types.ErrProcessClosed)

	fresh := snapshot()
	fresh.Process.Status = types.ProcessStatusCancelled
	assert.ErrorIs(t, CheckCanPurchase(fresh), types.ErrProcessClosed)
}
