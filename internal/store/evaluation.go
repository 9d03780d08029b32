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
	templateTableName          = "evaluation_templates"
	criterionTableName         = "evaluation_criteria"
	processEvaluationTableName = "process_evaluations"
	responseTableName          = "evaluation_responses"
)

var (
	templateColumns          = utils.StructTagValues(types.EvaluationTemplate{})
	criterionColumns         = utils.StructTagValues(types.EvaluationCriterion{})
	processEvaluationColumns = utils.StructTagValues(types.ProcessEvaluation{})
	responseColumns          = utils.StructTagValues(types.EvaluationResponse{})
)

type EvaluationRepository struct {
	db DBTX
}

func NewEvaluationRepository(db DBTX) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

func (r *EvaluationRepository) ProcessEvaluations(ctx context.Context, processID string) ([]*types.ProcessEvaluation, error) {
	query, args, err := psql().
		Select(processEvaluationColumns...).
		From(processEvaluationTableName).
		Where(sq.Eq{"process_id": processID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate process evaluations query: %w", err)
	}

	var evaluations []*types.ProcessEvaluation
	err = pgxscan.Select(ctx, r.db, &evaluations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch process evaluations: %w", err)
	}

	return evaluations, nil
}

func (r *EvaluationRepository) Template(ctx context.Context, templateID string) (*types.EvaluationTemplate, error) {
	query, args, err := psql().
		Select(templateColumns...).
		From(templateTableName).
		Where(sq.Eq{"id": templateID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate template query: %w", err)
	}

	var template types.EvaluationTemplate
	err = pgxscan.Get(ctx, r.db, &template, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to fetch template: %w", err)
	}

	return &template, nil
}

func (r *EvaluationRepository) Criteria(ctx context.Context, templateID string) ([]*types.EvaluationCriterion, error) {
	query, args, err := psql().
		Select(criterionColumns...).
		From(criterionTableName).
		Where(sq.Eq{"template_id": templateID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate criteria query: %w", err)
	}

	var criteria []*types.EvaluationCriterion
	err = pgxscan.Select(ctx, r.db, &criteria, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch criteria: %w", err)
	}

	return criteria, nil
}

// Responses returns a contractor's answers for the given process
// evaluations.
func (r *EvaluationRepository) Responses(ctx context.Context, contractorID string, processEvaluationIDs []string) ([]*types.EvaluationResponse, error) {
	if len(processEvaluationIDs) == 0 {
		return []*types.EvaluationResponse{}, nil
	}

	query, args, err := psql().
		Select(responseColumns...).
		From(responseTableName).
		Where(sq.Eq{"contractor_id": contractorID, "process_evaluation_id": processEvaluationIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate responses query: %w", err)
	}

	var responses []*types.EvaluationResponse
	err = pgxscan.Select(ctx, r.db, &responses, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch responses: %w", err)
	}

	return responses, nil
}

func (r *EvaluationRepository) Response(ctx context.Context, contractorID, processEvaluationID, criterionID string) (*types.EvaluationResponse, error) {
	query, args, err := psql().
		Select(responseColumns...).
		From(responseTableName).
		Where(sq.Eq{
			"contractor_id":         contractorID,
			"process_evaluation_id": processEvaluationID,
			"criterion_id":          criterionID,
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate response query: %w", err)
	}

	var response types.EvaluationResponse
	err = pgxscan.Get(ctx, r.db, &response, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrResponseNotFound
		}
		return nil, fmt.Errorf("failed to fetch response: %w", err)
	}

	return &response, nil
}

// UpsertResponse keeps one response per (evaluation, criterion,
// contractor) and writes back the id of the stored row.
func (r *EvaluationRepository) UpsertResponse(ctx context.Context, response *types.EvaluationResponse) error {
	if response.ID == "" {
		response.ID = utils.NanoID()
	}
	now := time.Now()
	response.CreatedAt = now
	response.UpdatedAt = now

	query, args, err := psql().
		Insert(responseTableName).
		Columns(responseColumns...).
		Values(
			response.ID,
			response.ProcessEvaluationID,
			response.CriterionID,
			response.ContractorID,
			response.Value,
			response.TextValue,
			response.Score,
			response.FileID,
			response.CreatedAt,
			response.UpdatedAt,
		).
		Suffix("ON CONFLICT (process_evaluation_id, criterion_id, contractor_id) DO UPDATE SET value = EXCLUDED.value, text_value = EXCLUDED.text_value, score = EXCLUDED.score, file_id = EXCLUDED.file_id, updated_at = EXCLUDED.updated_at RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert response query: %w", err)
	}

	err = r.db.QueryRow(ctx, query, args...).Scan(&response.ID)
	return utils.ErrorWrapOrNil(err, "failed to upsert response")
}

func (r *EvaluationRepository) CreateTemplate(ctx context.Context, template *types.EvaluationTemplate) error {
	if template.ID == "" {
		template.ID = utils.NanoID()
	}
	template.CreatedAt = time.Now()

	query, args, err := psql().
		Insert(templateTableName).
		SetMap(utils.StructToMap(template)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create template query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create template")
}

func (r *EvaluationRepository) CreateCriterion(ctx context.Context, criterion *types.EvaluationCriterion) error {
	if criterion.ID == "" {
		criterion.ID = utils.NanoID()
	}

	query, args, err := psql().
		Insert(criterionTableName).
		SetMap(utils.StructToMap(criterion)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create criterion query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create criterion")
}

func (r *EvaluationRepository) CreateProcessEvaluation(ctx context.Context, evaluation *types.ProcessEvaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = utils.NanoID()
	}
	evaluation.CreatedAt = time.Now()

	query, args, err := psql().
		Insert(processEvaluationTableName).
		SetMap(utils.StructToMap(evaluation)).
		Suffix("ON CONFLICT (process_id, template_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create process evaluation query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create process evaluation")
}
