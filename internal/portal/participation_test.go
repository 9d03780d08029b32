package portal_test

import (
	"errors"
	"sync"
	"testing"

	"naktender/internal/portal"
	"naktender/internal/utils"
	"naktender/internal/workflow"
	"naktender/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseDocumentsOnce(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)

	status, err := f.svc.PurchaseStatus(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	assert.False(t, status.Purchased)

	payment, err := f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, ps.open.DocumentPrice, payment.Amount)
	assert.NotEmpty(t, payment.Reference)

	_, err = f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, openTender)
	require.ErrorIs(t, err, types.ErrAlreadyPurchased)
	assert.Equal(t, 1, f.store.PaymentCount(f.contractor.ID, ps.open.ID))

	status, err = f.svc.PurchaseStatus(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	assert.True(t, status.Purchased)
	assert.Equal(t, payment.ID, status.Transaction.ID)
}

func TestPurchaseDocumentsConcurrently(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, openTender)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, types.ErrAlreadyPurchased)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.store.PaymentCount(f.contractor.ID, ps.open.ID))
}

func TestPurchaseRequiresOngoingProcess(t *testing.T) {
	f := newFixture(t)
	f.seedProcesses(t)

	_, err := f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, upcomingTender)
	require.ErrorIs(t, err, types.ErrProcessClosed)

	_, err = f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, closedTender)
	require.ErrorIs(t, err, types.ErrProcessClosed)

	_, err = f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, "T-0000-404")
	require.ErrorIs(t, err, types.ErrProcessNotFound)

	_, err = f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, "  ")
	requireValidationField(t, err, "publicationNumber")
}

func TestParticipationRequiresPurchase(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)

	view, err := f.svc.ParticipationStatus(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	assert.False(t, view.IsPurchased)
	assert.False(t, view.IsEditable)
	assert.Equal(t, 0, view.CurrentStep)
	require.Len(t, view.Steps, 7)
	for _, step := range view.Steps[1:] {
		assert.Equal(t, workflow.StepLocked, step.State, step.Title)
	}

	_, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.guarantee.ID,
		Data:               guaranteeData(),
	})
	require.ErrorIs(t, err, types.ErrNotPurchased)

	_, err = f.svc.SaveEvaluationResponses(f.ctx, f.contractor.ID, openTender, []types.EvaluationAnswer{
		{ProcessEvaluationID: ps.evaluation.ID, CriterionID: ps.experience.ID, Value: utils.StringPtr("3")},
	})
	require.ErrorIs(t, err, types.ErrNotPurchased)

	_, err = f.svc.EvaluationForms(f.ctx, f.contractor.ID, ps.open.ID)
	require.ErrorIs(t, err, types.ErrNotPurchased)

	_, err = f.svc.SubmitParticipation(f.ctx, f.contractor.ID, openTender)
	require.ErrorIs(t, err, types.ErrNotPurchased)
}

func TestParticipationStepsProgress(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)

	_, err := f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)

	view, err := f.svc.ParticipationStatus(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	assert.True(t, view.IsEditable)
	assert.False(t, view.CanSubmit)
	assert.Equal(t, 1, view.CurrentStep)

	view, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.guarantee.ID,
		Data:               guaranteeData(),
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepCompleted, view.Steps[2].State)
	assert.Equal(t, workflow.StepActive, view.Steps[1].State)

	_, err = f.svc.SubmitParticipation(f.ctx, f.contractor.ID, openTender)
	requireValidationField(t, err, "document:"+ps.technical.ID)
	requireValidationField(t, err, "criterion:"+ps.experience.ID)

	_, err = f.svc.SaveEvaluationResponses(f.ctx, f.contractor.ID, openTender, []types.EvaluationAnswer{
		{ProcessEvaluationID: ps.evaluation.ID, CriterionID: ps.experience.ID, Value: utils.StringPtr("12")},
	})
	require.NoError(t, err)

	view, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.technical.ID,
		Data:               []byte(`{"summary":"two phases"}`),
		File:               pdf("proposal.pdf"),
	})
	require.NoError(t, err)
	assert.True(t, view.CanSubmit)
	assert.Equal(t, workflow.StepCompleted, view.Steps[1].State)

	// The optional document stays open but does not block submission.
	assert.Equal(t, ps.general.ID, view.Steps[view.CurrentStep].DocumentID)
	assert.Equal(t, workflow.StepActive, view.Steps[5].State)
	assert.Equal(t, workflow.StepSubmitRequest, view.Steps[5].Kind)
}

func TestSaveDocumentValidatesPayload(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)

	_, err := f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)

	_, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.guarantee.ID,
		Data:               []byte(`{"guarantees":[{"type":"BANK_GUARANTEE","number":"1","issueDate":"2025-05-01","expiryDate":"2025-04-01","amount":10}]}`),
	})
	requireValidationField(t, err, "guarantees[0].expiryDate")

	_, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.guarantee.ID,
		Data:               []byte(`{"guarantees":[],"extra":true}`),
	})
	requireValidationField(t, err, "data")

	_, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.technical.ID,
		Data:               []byte(`{"summary":"no file attached"}`),
	})
	requireValidationField(t, err, "file")

	_, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: "unknown",
	})
	require.ErrorIs(t, err, types.ErrDocumentNotFound)

	drafts, err := f.store.Submissions().Drafts(f.ctx, f.contractor.ID, ps.open.ID)
	require.NoError(t, err)
	assert.Empty(t, drafts)
	assert.Empty(t, f.blobs.Keys())
}

func TestSaveDocumentReplacesDraftFile(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)

	_, err := f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)

	save := func(in portal.DocumentInput) {
		t.Helper()
		in.PublicationNumber = openTender
		in.RequiredDocumentID = ps.technical.ID
		_, err := f.svc.SaveDocument(f.ctx, f.contractor.ID, in)
		require.NoError(t, err)
	}

	save(portal.DocumentInput{Data: []byte(`{"summary":"v1"}`), File: pdf("proposal-v1.pdf")})
	first, err := f.store.Submissions().Draft(f.ctx, f.contractor.ID, ps.open.ID, ps.technical.ID)
	require.NoError(t, err)
	require.NotNil(t, first.FileID)

	// Data only: the file stays attached.
	save(portal.DocumentInput{Data: []byte(`{"summary":"v2"}`)})
	second, err := f.store.Submissions().Draft(f.ctx, f.contractor.ID, ps.open.ID, ps.technical.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, *first.FileID, *second.FileID)
	assert.JSONEq(t, `{"summary":"v2"}`, string(second.Data))

	save(portal.DocumentInput{Data: []byte(`{"summary":"v3"}`), File: pdf("proposal-v3.pdf")})
	third, err := f.store.Submissions().Draft(f.ctx, f.contractor.ID, ps.open.ID, ps.technical.ID)
	require.NoError(t, err)
	require.NotNil(t, third.FileID)
	assert.NotEqual(t, *first.FileID, *third.FileID)

	old, err := f.store.Files().File(f.ctx, *first.FileID)
	require.NoError(t, err)
	assert.True(t, old.IsTombstoned())
	assert.Equal(t, first.ID, old.EntityID)
	assert.False(t, f.blobs.Has(old.StorageKey))

	current, err := f.store.Files().File(f.ctx, *third.FileID)
	require.NoError(t, err)
	assert.Equal(t, types.EntityTypeDocumentDraft, current.EntityType)
	assert.Equal(t, third.ID, current.EntityID)
	assert.Len(t, f.blobs.Keys(), 1)
}

func TestSaveDocumentRollbackDiscardsBlob(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)

	_, err := f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)

	f.store.FailOn("UpsertDraft", errors.New("serialization failure"))

	_, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.technical.ID,
		Data:               []byte(`{"summary":"v1"}`),
		File:               pdf("proposal.pdf"),
	})
	require.Error(t, err)

	assert.Empty(t, f.blobs.Keys())
	assert.Empty(t, f.store.AllFiles(f.contractor.ID))
}

func TestSubmitParticipationIsExclusive(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)
	f.completeParticipation(t, ps)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []*types.ProcessSubmission
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := f.svc.SubmitParticipation(f.ctx, f.contractor.ID, openTender)
			if err != nil {
				assert.ErrorIs(t, err, types.ErrDuplicateSubmission)
				return
			}
			mu.Lock()
			succeeded = append(succeeded, sub)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, succeeded, 1)
	submission := succeeded[0]
	assert.Equal(t, types.TaskStatusPending, submission.Status)

	documents, err := f.store.Submissions().SubmittedDocuments(f.ctx, submission.ID)
	require.NoError(t, err)
	require.Len(t, documents, 2)

	for _, doc := range documents {
		if doc.FileID == nil {
			continue
		}
		file, err := f.store.Files().File(f.ctx, *doc.FileID)
		require.NoError(t, err)
		assert.Equal(t, types.EntityTypeSubmittedDocument, file.EntityType)
		assert.Equal(t, doc.ID, file.EntityID)
	}

	view, err := f.svc.ParticipationStatus(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	assert.True(t, view.IsSubmitted)
	assert.False(t, view.IsEditable)
	assert.False(t, view.CanSubmit)
	assert.Equal(t, workflow.StepExpertReview, view.Steps[view.CurrentStep].Kind)

	_, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.general.ID,
		Data:               []byte(`{"note":"late addition"}`),
	})
	require.ErrorIs(t, err, types.ErrParticipationLocked)

	_, err = f.svc.PurchaseDocuments(f.ctx, f.contractor.ID, openTender)
	require.ErrorIs(t, err, types.ErrAlreadyPurchased)
}

func TestCancelledSubmissionReopensParticipation(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)
	f.completeParticipation(t, ps)

	first, err := f.svc.SubmitParticipation(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)

	first.Status = types.SubmissionStatusCancelled
	require.NoError(t, f.store.Submissions().UpdateSubmissionStatus(f.ctx, first))

	view, err := f.svc.ParticipationStatus(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	assert.False(t, view.IsSubmitted)
	assert.True(t, view.IsEditable)

	second, err := f.svc.SubmitParticipation(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

// submittedDocument returns the document of a submission answering the
// given required document.
func (f *fixture) submittedDocument(t *testing.T, submissionID, requiredDocumentID string) *types.SubmittedDocument {
	t.Helper()

	documents, err := f.store.Submissions().SubmittedDocuments(f.ctx, submissionID)
	require.NoError(t, err)
	for _, doc := range documents {
		if doc.RequiredDocumentID == requiredDocumentID {
			return doc
		}
	}
	require.FailNow(t, "submitted document not found", requiredDocumentID)
	return nil
}

func TestReplacingDraftFileKeepsSubmittedFile(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)
	f.completeParticipation(t, ps)

	first, err := f.svc.SubmitParticipation(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	submitted := f.submittedDocument(t, first.ID, ps.technical.ID)
	require.NotNil(t, submitted.FileID)

	first.Status = types.SubmissionStatusCancelled
	require.NoError(t, f.store.Submissions().UpdateSubmissionStatus(f.ctx, first))

	_, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.technical.ID,
		Data:               []byte(`{"summary":"Asphalt resurfacing in three phases"}`),
		File:               pdf("proposal-v2.pdf"),
	})
	require.NoError(t, err)

	kept, err := f.store.Files().File(f.ctx, *submitted.FileID)
	require.NoError(t, err)
	assert.False(t, kept.IsTombstoned())
	assert.Equal(t, types.EntityTypeSubmittedDocument, kept.EntityType)
	assert.Equal(t, submitted.ID, kept.EntityID)
	assert.True(t, f.blobs.Has(kept.StorageKey))
	assert.NotContains(t, f.blobs.Deleted(), kept.StorageKey)

	second, err := f.svc.SubmitParticipation(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	resubmitted := f.submittedDocument(t, second.ID, ps.technical.ID)
	require.NotNil(t, resubmitted.FileID)
	assert.NotEqual(t, *submitted.FileID, *resubmitted.FileID)

	replacement, err := f.store.Files().File(f.ctx, *resubmitted.FileID)
	require.NoError(t, err)
	assert.Equal(t, types.EntityTypeSubmittedDocument, replacement.EntityType)
	assert.Equal(t, resubmitted.ID, replacement.EntityID)
}

func TestResubmitSharesUnchangedFile(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)
	f.completeParticipation(t, ps)

	first, err := f.svc.SubmitParticipation(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	submitted := f.submittedDocument(t, first.ID, ps.technical.ID)

	first.Status = types.SubmissionStatusCancelled
	require.NoError(t, f.store.Submissions().UpdateSubmissionStatus(f.ctx, first))

	second, err := f.svc.SubmitParticipation(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	resubmitted := f.submittedDocument(t, second.ID, ps.technical.ID)
	require.NotNil(t, resubmitted.FileID)
	assert.Equal(t, *submitted.FileID, *resubmitted.FileID)

	// the cancelled submission keeps ownership of the file it was sent with
	file, err := f.store.Files().File(f.ctx, *submitted.FileID)
	require.NoError(t, err)
	assert.Equal(t, types.EntityTypeSubmittedDocument, file.EntityType)
	assert.Equal(t, submitted.ID, file.EntityID)
}

func TestParticipationWritesLockContractor(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)
	f.completeParticipation(t, ps)

	locks := f.store.Locks(f.contractor.ID)

	_, err := f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.guarantee.ID,
		Data:               guaranteeData(),
	})
	require.NoError(t, err)
	assert.Equal(t, locks+1, f.store.Locks(f.contractor.ID))

	_, err = f.svc.SaveEvaluationResponses(f.ctx, f.contractor.ID, openTender, []types.EvaluationAnswer{
		{ProcessEvaluationID: ps.evaluation.ID, CriterionID: ps.experience.ID, Value: utils.StringPtr("14")},
	})
	require.NoError(t, err)
	assert.Equal(t, locks+2, f.store.Locks(f.contractor.ID))

	_, err = f.svc.UploadEvaluationFile(f.ctx, f.contractor.ID, portal.EvaluationFileInput{
		PublicationNumber:   openTender,
		ProcessEvaluationID: ps.evaluation.ID,
		CriterionID:         ps.portfolio.ID,
		File:                pdf("portfolio.pdf"),
	})
	require.NoError(t, err)
	assert.Equal(t, locks+3, f.store.Locks(f.contractor.ID))

	boom := errors.New("lock timeout")
	f.store.FailOn("LockContractor", boom)

	_, err = f.svc.SaveDocument(f.ctx, f.contractor.ID, portal.DocumentInput{
		PublicationNumber:  openTender,
		RequiredDocumentID: ps.technical.ID,
		Data:               []byte(`{"summary":"Rejected while locked"}`),
		File:               pdf("locked.pdf"),
	})
	require.ErrorIs(t, err, boom)

	draft, err := f.store.Submissions().Draft(f.ctx, f.contractor.ID, ps.open.ID, ps.technical.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"Asphalt resurfacing in two phases"}`, string(draft.Data))
}

func TestReviewSubmission(t *testing.T) {
	f := newFixture(t)
	ps := f.seedProcesses(t)
	f.completeParticipation(t, ps)

	submission, err := f.svc.SubmitParticipation(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)

	reviewed, err := f.svc.ReviewSubmission(f.ctx, submission.ID, portal.ReviewDecision{
		Status: types.TaskStatusRejected,
		Reason: "guarantee amount below threshold",
	})
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusRejected, reviewed.Status)

	view, err := f.svc.ParticipationStatus(f.ctx, f.contractor.ID, openTender)
	require.NoError(t, err)
	assert.True(t, view.IsSubmitted)
	assert.Equal(t, workflow.StepCompleted, view.Steps[len(view.Steps)-1].State)

	_, err = f.svc.ReviewSubmission(f.ctx, submission.ID, portal.ReviewDecision{Status: types.TaskStatusCompleted})
	requireValidationField(t, err, "submission")

	items, err := f.svc.Submissions(f.ctx, f.contractor.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, openTender, items[0].Process.PublicationNumber)
	assert.Equal(t, types.DisplayStatusOngoing, items[0].DisplayStatus)
}
