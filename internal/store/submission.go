package store

import (
	"context"
	"fmt"
	"time"

	"naktender/internal/utils"
	"naktender/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

const (
	draftTableName             = "participation_documents"
	submissionTableName        = "process_submissions"
	submittedDocumentTableName = "submitted_documents"
)

var (
	draftColumns             = utils.StructTagValues(types.DocumentDraft{})
	submissionColumns        = utils.StructTagValues(types.ProcessSubmission{})
	submittedDocumentColumns = utils.StructTagValues(types.SubmittedDocument{})
)

type SubmissionRepository struct {
	db DBTX
}

func NewSubmissionRepository(db DBTX) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Drafts(ctx context.Context, contractorID, processID string) ([]*types.DocumentDraft, error) {
	query, args, err := psql().
		Select(draftColumns...).
		From(draftTableName).
		Where(sq.Eq{"contractor_id": contractorID, "process_id": processID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate drafts query: %w", err)
	}

	var drafts []*types.DocumentDraft
	err = pgxscan.Select(ctx, r.db, &drafts, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drafts: %w", err)
	}

	return drafts, nil
}

func (r *SubmissionRepository) Draft(ctx context.Context, contractorID, processID, requiredDocumentID string) (*types.DocumentDraft, error) {
	query, args, err := psql().
		Select(draftColumns...).
		From(draftTableName).
		Where(sq.Eq{
			"contractor_id":        contractorID,
			"process_id":           processID,
			"required_document_id": requiredDocumentID,
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate draft query: %w", err)
	}

	var draft types.DocumentDraft
	err = pgxscan.Get(ctx, r.db, &draft, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to fetch draft: %w", err)
	}

	return &draft, nil
}

// UpsertDraft keeps one draft per (contractor, process, required document).
func (r *SubmissionRepository) UpsertDraft(ctx context.Context, draft *types.DocumentDraft) error {
	if draft.ID == "" {
		draft.ID = utils.NanoID()
	}
	now := time.Now()
	draft.CreatedAt = now
	draft.UpdatedAt = now

	query, args, err := psql().
		Insert(draftTableName).
		Columns(draftColumns...).
		Values(draft.ID, draft.ContractorID, draft.ProcessID, draft.RequiredDocumentID, draft.Data, draft.FileID, draft.CreatedAt, draft.UpdatedAt).
		Suffix("ON CONFLICT (contractor_id, process_id, required_document_id) DO UPDATE SET data = EXCLUDED.data, file_id = EXCLUDED.file_id, updated_at = EXCLUDED.updated_at RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert draft query: %w", err)
	}

	err = r.db.QueryRow(ctx, query, args...).Scan(&draft.ID)
	return utils.ErrorWrapOrNil(err, "failed to upsert draft")
}

// ActiveSubmission returns the non-cancelled submission of a contractor
// for a process, or types.ErrSubmissionNotFound.
func (r *SubmissionRepository) ActiveSubmission(ctx context.Context, contractorID, processID string) (*types.ProcessSubmission, error) {
	query, args, err := psql().
		Select(submissionColumns...).
		From(submissionTableName).
		Where(sq.Eq{"contractor_id": contractorID, "process_id": processID}).
		Where(sq.NotEq{"status": types.SubmissionStatusCancelled}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate active submission query: %w", err)
	}

	var submission types.ProcessSubmission
	err = pgxscan.Get(ctx, r.db, &submission, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to fetch active submission: %w", err)
	}

	return &submission, nil
}

func (r *SubmissionRepository) Submission(ctx context.Context, submissionID string) (*types.ProcessSubmission, error) {
	query, args, err := psql().
		Select(submissionColumns...).
		From(submissionTableName).
		Where(sq.Eq{"id": submissionID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate submission query: %w", err)
	}

	var submission types.ProcessSubmission
	err = pgxscan.Get(ctx, r.db, &submission, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to fetch submission: %w", err)
	}

	return &submission, nil
}

func (r *SubmissionRepository) Submissions(ctx context.Context, contractorID string) ([]*types.ProcessSubmission, error) {
	query, args, err := psql().
		Select(submissionColumns...).
		From(submissionTableName).
		Where(sq.Eq{"contractor_id": contractorID}).
		OrderBy("submitted_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate submissions query: %w", err)
	}

	var submissions []*types.ProcessSubmission
	err = pgxscan.Select(ctx, r.db, &submissions, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submissions: %w", err)
	}

	return submissions, nil
}

// CreateSubmission inserts a submission. The partial unique index on
// non-cancelled submissions turns a concurrent duplicate into
// types.ErrDuplicateSubmission.
func (r *SubmissionRepository) CreateSubmission(ctx context.Context, submission *types.ProcessSubmission) error {
	if submission.ID == "" {
		submission.ID = utils.NanoID()
	}
	now := time.Now()
	submission.SubmittedAt = now
	submission.UpdatedAt = now

	query, args, err := psql().
		Insert(submissionTableName).
		SetMap(utils.StructToMap(submission)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create submission query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrDuplicateSubmission
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

func (r *SubmissionRepository) UpdateSubmissionStatus(ctx context.Context, submission *types.ProcessSubmission) error {
	submission.UpdatedAt = time.Now()

	query, args, err := psql().
		Update(submissionTableName).
		SetMap(map[string]any{
			"status":      submission.Status,
			"review_note": submission.ReviewNote,
			"updated_at":  submission.UpdatedAt,
		}).
		Where(sq.Eq{"id": submission.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update submission query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrSubmissionNotFound
	}

	return nil
}

func (r *SubmissionRepository) CreateSubmittedDocument(ctx context.Context, document *types.SubmittedDocument) error {
	if document.ID == "" {
		document.ID = utils.NanoID()
	}
	document.CreatedAt = time.Now()

	query, args, err := psql().
		Insert(submittedDocumentTableName).
		SetMap(utils.StructToMap(document)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create submitted document query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create submitted document")
}

func (r *SubmissionRepository) SubmittedDocuments(ctx context.Context, submissionID string) ([]*types.SubmittedDocument, error) {
	query, args, err := psql().
		Select(submittedDocumentColumns...).
		From(submittedDocumentTableName).
		Where(sq.Eq{"submission_id": submissionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate submitted documents query: %w", err)
	}

	var documents []*types.SubmittedDocument
	err = pgxscan.Select(ctx, r.db, &documents, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submitted documents: %w", err)
	}

	return documents, nil
}
