package portal

import (
	"context"
	"errors"

	"naktender/internal/utils"
	"naktender/internal/workflow"
	"naktender/pkg/types"

	"github.com/sirupsen/logrus"
)

// snapshot loads everything persisted about one participation.
func (s *Service) snapshot(ctx context.Context, st Store, contractorID string, process *types.PublishedProcess) (workflow.ParticipationSnapshot, error) {
	snap := workflow.ParticipationSnapshot{
		Process: process,
		Drafts:  map[string]*types.DocumentDraft{},
		Now:     s.now(),
	}

	purchase, err := st.Payments().CompletedPurchase(ctx, contractorID, process.ID)
	if err != nil && !errors.Is(err, types.ErrNotPurchased) {
		return snap, err
	}
	snap.Purchase = purchase

	submission, err := st.Submissions().ActiveSubmission(ctx, contractorID, process.ID)
	if err != nil && !errors.Is(err, types.ErrSubmissionNotFound) {
		return snap, err
	}
	snap.Submission = submission

	snap.RequiredDocuments, err = st.Processes().RequiredDocuments(ctx, process.ProcessType)
	if err != nil {
		return snap, err
	}

	drafts, err := st.Submissions().Drafts(ctx, contractorID, process.ID)
	if err != nil {
		return snap, err
	}
	for _, d := range drafts {
		snap.Drafts[d.RequiredDocumentID] = d
	}

	snap.Forms, err = loadForms(ctx, st, contractorID, process.ID)
	if err != nil {
		return snap, err
	}

	return snap, nil
}

// ParticipationStatus returns the wizard view of a contractor's
// participation in a process.
func (s *Service) ParticipationStatus(ctx context.Context, contractorID, publicationNumber string) (*workflow.ParticipationView, error) {
	process, err := s.processByNumber(ctx, s.store, publicationNumber)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshot(ctx, s.store, contractorID, process)
	if err != nil {
		return nil, err
	}

	view := workflow.Participation(snap)
	return &view, nil
}

// PurchaseStatus reports whether the documents of a process were bought.
type PurchaseStatus struct {
	Purchased   bool                      `json:"purchased"`
	Transaction *types.PaymentTransaction `json:"transaction,omitempty"`
}

func (s *Service) PurchaseStatus(ctx context.Context, contractorID, publicationNumber string) (*PurchaseStatus, error) {
	process, err := s.processByNumber(ctx, s.store, publicationNumber)
	if err != nil {
		return nil, err
	}

	purchase, err := s.store.Payments().CompletedPurchase(ctx, contractorID, process.ID)
	if err != nil {
		if errors.Is(err, types.ErrNotPurchased) {
			return &PurchaseStatus{}, nil
		}
		return nil, err
	}

	return &PurchaseStatus{Purchased: true, Transaction: purchase}, nil
}

// PurchaseDocuments records a completed document purchase. Payment is not
// collected; the transaction is created as completed.
func (s *Service) PurchaseDocuments(ctx context.Context, contractorID, publicationNumber string) (*types.PaymentTransaction, error) {
	var payment *types.PaymentTransaction

	err := s.store.InTx(ctx, func(tx Store) error {
		process, err := s.processByNumber(ctx, tx, publicationNumber)
		if err != nil {
			return err
		}

		snap, err := s.snapshot(ctx, tx, contractorID, process)
		if err != nil {
			return err
		}
		if err := workflow.CheckCanPurchase(snap); err != nil {
			return err
		}

		payment = &types.PaymentTransaction{
			ContractorID:    contractorID,
			ProcessID:       process.ID,
			TransactionType: types.TransactionTypeDocumentPurchase,
			Amount:          process.DocumentPrice,
			Status:          types.PaymentStatusCompleted,
			Reference:       utils.TransactionReference(),
		}
		return tx.Payments().CreateTransaction(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"contractor_id": contractorID,
		"process_id":    payment.ProcessID,
		"reference":     payment.Reference,
	}).Info("process documents purchased")

	return payment, nil
}

// DocumentInput is one required document entered by a contractor.
type DocumentInput struct {
	PublicationNumber  string
	RequiredDocumentID string
	Data               []byte
	File               *Upload
}

// SaveDocument validates a document payload against the schema of its
// kind and stores it as a draft, optionally replacing the draft's file.
func (s *Service) SaveDocument(ctx context.Context, contractorID string, in DocumentInput) (*workflow.ParticipationView, error) {
	process, err := s.processByNumber(ctx, s.store, in.PublicationNumber)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshot(ctx, s.store, contractorID, process)
	if err != nil {
		return nil, err
	}

	var document *types.RequiredDocument
	for _, d := range snap.RequiredDocuments {
		if d.ID == in.RequiredDocumentID {
			document = d
			break
		}
	}
	if document == nil {
		return nil, types.ErrDocumentNotFound
	}

	var ext, contentType string
	if in.File != nil {
		ext, contentType, err = s.inspectUpload("file", in.File)
		if err != nil {
			return nil, err
		}
	}

	existing := snap.Drafts[document.ID]
	hasFile := in.File != nil || (existing != nil && existing.FileID != nil)

	data, err := workflow.ValidateDocumentPayload(document.Kind, in.Data, hasFile)
	if err != nil {
		return nil, err
	}

	if err := workflow.CheckEditable(snap); err != nil {
		return nil, err
	}

	var file *types.File
	if in.File != nil {
		file, err = s.storeBlob(ctx, contractorID, in.File, ext, contentType)
		if err != nil {
			return nil, err
		}
	}

	var replaced *types.File
	err = s.store.InTx(ctx, func(tx Store) error {
		// held until commit so a concurrent submit sees this draft or none of it
		if _, err := tx.Contractors().LockContractor(ctx, contractorID); err != nil {
			return err
		}

		snap, err := s.snapshot(ctx, tx, contractorID, process)
		if err != nil {
			return err
		}
		if err := workflow.CheckEditable(snap); err != nil {
			return err
		}

		draft := snap.Drafts[document.ID]
		if draft == nil {
			draft = &types.DocumentDraft{
				ID:                 utils.NanoID(),
				ContractorID:       contractorID,
				ProcessID:          process.ID,
				RequiredDocumentID: document.ID,
			}
		}
		draft.Data = data

		var previous *string
		if file != nil {
			file.SetOwner(types.DocumentDraftOwner{ID: draft.ID})
			if err := tx.Files().CreateFile(ctx, file); err != nil {
				return err
			}
			previous = draft.FileID
			draft.FileID = &file.ID
		}

		ownerID := draft.ID
		if err := tx.Submissions().UpsertDraft(ctx, draft); err != nil {
			return err
		}
		if file != nil && draft.ID != ownerID {
			if err := tx.Files().SetFileOwner(ctx, file.ID, types.DocumentDraftOwner{ID: draft.ID}); err != nil {
				return err
			}
		}

		if previous != nil {
			replaced, err = tombstone(ctx, tx, *previous, types.DocumentDraftOwner{ID: draft.ID})
			return err
		}
		return nil
	})
	if err != nil {
		s.discardBlob(ctx, file)
		return nil, err
	}

	s.reclaim(ctx, replaced)

	return s.ParticipationStatus(ctx, contractorID, process.PublicationNumber)
}

// SubmitParticipation turns the drafts of a participation into an
// immutable submission. Concurrent duplicates are rejected by the
// contractor row lock and the unique index on active submissions.
func (s *Service) SubmitParticipation(ctx context.Context, contractorID, publicationNumber string) (*types.ProcessSubmission, error) {
	var submission *types.ProcessSubmission

	err := s.store.InTx(ctx, func(tx Store) error {
		if _, err := tx.Contractors().LockContractor(ctx, contractorID); err != nil {
			return err
		}

		process, err := s.processByNumber(ctx, tx, publicationNumber)
		if err != nil {
			return err
		}

		snap, err := s.snapshot(ctx, tx, contractorID, process)
		if err != nil {
			return err
		}
		if err := workflow.CheckCanSubmit(snap); err != nil {
			return err
		}

		submission = &types.ProcessSubmission{
			ContractorID: contractorID,
			ProcessID:    process.ID,
			Status:       types.TaskStatusPending,
		}
		if err := tx.Submissions().CreateSubmission(ctx, submission); err != nil {
			return err
		}

		for _, doc := range snap.RequiredDocuments {
			draft := snap.Drafts[doc.ID]
			if !draft.HasValue() {
				continue
			}

			submitted := &types.SubmittedDocument{
				ID:                 utils.NanoID(),
				SubmissionID:       submission.ID,
				RequiredDocumentID: doc.ID,
				FileID:             draft.FileID,
				Data:               draft.Data,
			}
			if err := tx.Submissions().CreateSubmittedDocument(ctx, submitted); err != nil {
				return err
			}

			if draft.FileID == nil {
				continue
			}

			// a file carried over from a cancelled submission keeps its owner
			file, err := tx.Files().File(ctx, *draft.FileID)
			if err != nil {
				return err
			}
			if !ownedBy(file, types.DocumentDraftOwner{ID: draft.ID}) {
				continue
			}
			err = tx.Files().SetFileOwner(ctx, file.ID, types.SubmittedDocumentOwner{ID: submitted.ID})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"contractor_id": contractorID,
		"submission_id": submission.ID,
	}).Info("participation request submitted")

	return submission, nil
}
