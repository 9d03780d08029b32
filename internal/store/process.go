package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"naktender/internal/utils"
	"naktender/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

const (
	processTableName          = "published_processes"
	requiredDocumentTableName = "process_required_documents"
)

var (
	processColumns          = utils.StructTagValues(types.PublishedProcess{})
	requiredDocumentColumns = utils.StructTagValues(types.RequiredDocument{})
)

// ProcessQuery narrows the process listing. Display status is derived
// at read time and filtered by the caller.
type ProcessQuery struct {
	Search      string
	ProcessType types.ProcessType
	Category    string
	EndsBefore  *time.Time
}

type ProcessRepository struct {
	db DBTX
}

func NewProcessRepository(db DBTX) *ProcessRepository {
	return &ProcessRepository{db: db}
}

func (r *ProcessRepository) Process(ctx context.Context, processID string) (*types.PublishedProcess, error) {
	return r.processWhere(ctx, sq.Eq{"id": processID})
}

func (r *ProcessRepository) ProcessByPublicationNumber(ctx context.Context, publicationNumber string) (*types.PublishedProcess, error) {
	return r.processWhere(ctx, sq.Eq{"publication_number": publicationNumber})
}

func (r *ProcessRepository) processWhere(ctx context.Context, pred sq.Eq) (*types.PublishedProcess, error) {
	query, args, err := psql().
		Select(processColumns...).
		From(processTableName).
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate process query: %w", err)
	}

	var process types.PublishedProcess
	err = pgxscan.Get(ctx, r.db, &process, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrProcessNotFound
		}
		return nil, fmt.Errorf("failed to fetch process: %w", err)
	}

	return &process, nil
}

func (r *ProcessRepository) ProcessesByIDs(ctx context.Context, processIDs []string) ([]*types.PublishedProcess, error) {
	if len(processIDs) == 0 {
		return []*types.PublishedProcess{}, nil
	}

	query, args, err := psql().
		Select(processColumns...).
		From(processTableName).
		Where(sq.Eq{"id": processIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate processes-by-ids query: %w", err)
	}

	var processes []*types.PublishedProcess
	err = pgxscan.Select(ctx, r.db, &processes, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch processes by ids: %w", err)
	}

	return processes, nil
}

// Processes lists candidates for the public listing, newest publication
// first.
func (r *ProcessRepository) Processes(ctx context.Context, q ProcessQuery) ([]*types.PublishedProcess, error) {
	builder := psql().
		Select(processColumns...).
		From(processTableName)

	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + search + "%"
		builder = builder.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"publication_number": pattern},
			sq.ILike{"description": pattern},
		})
	}
	if q.ProcessType != "" {
		builder = builder.Where(sq.Eq{"process_type": q.ProcessType})
	}
	if q.Category != "" {
		builder = builder.Where(sq.Eq{"category": q.Category})
	}
	if q.EndsBefore != nil {
		builder = builder.Where(sq.LtOrEq{"submission_end_date": *q.EndsBefore})
	}

	query, args, err := builder.
		OrderBy("publish_date DESC NULLS LAST", "publication_number ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate processes query: %w", err)
	}

	var processes []*types.PublishedProcess
	err = pgxscan.Select(ctx, r.db, &processes, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch processes: %w", err)
	}

	return processes, nil
}

func (r *ProcessRepository) CreateProcess(ctx context.Context, process *types.PublishedProcess) error {
	if process.ID == "" {
		process.ID = utils.NanoID()
	}
	now := time.Now()
	process.CreatedAt = now
	process.UpdatedAt = now

	query, args, err := psql().
		Insert(processTableName).
		SetMap(utils.StructToMap(process)).
		Suffix("ON CONFLICT (publication_number) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create process query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create process")
}

// RequiredDocuments lists the documents of a process type in wizard order.
func (r *ProcessRepository) RequiredDocuments(ctx context.Context, processType types.ProcessType) ([]*types.RequiredDocument, error) {
	query, args, err := psql().
		Select(requiredDocumentColumns...).
		From(requiredDocumentTableName).
		Where(sq.Eq{"process_type": processType}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate required documents query: %w", err)
	}

	var documents []*types.RequiredDocument
	err = pgxscan.Select(ctx, r.db, &documents, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch required documents: %w", err)
	}

	return documents, nil
}

func (r *ProcessRepository) CreateRequiredDocument(ctx context.Context, document *types.RequiredDocument) error {
	if document.ID == "" {
		document.ID = utils.NanoID()
	}

	query, args, err := psql().
		Insert(requiredDocumentTableName).
		SetMap(utils.StructToMap(document)).
		Suffix("ON CONFLICT (process_type, position) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create required document query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create required document")
}
