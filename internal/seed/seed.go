package seed

import (
	"context"
	"errors"
	"fmt"

	"naktender/internal/portal"
	"naktender/pkg/types"

	"github.com/sirupsen/logrus"
)

// Summary counts the rows a seed run inserted.
type Summary struct {
	Processes          int
	RequiredDocuments  int
	Templates          int
	Criteria           int
	ProcessEvaluations int
}

// Seed inserts the catalog rows that don't exist yet. Existing rows are
// left untouched, so running it twice is a no-op.
func Seed(ctx context.Context, logger *logrus.Logger, st portal.Store, catalog *Catalog) (*Summary, error) {
	summary := &Summary{}

	err := st.InTx(ctx, func(tx portal.Store) error {
		// Processes seeded before under another id keep it.
		processIDs := map[string]string{}

		for _, process := range catalog.Processes {
			existing, err := tx.Processes().ProcessByPublicationNumber(ctx, process.PublicationNumber)
			if err == nil {
				processIDs[process.ID] = existing.ID
				continue
			}
			if !errors.Is(err, types.ErrProcessNotFound) {
				return err
			}
			if err := tx.Processes().CreateProcess(ctx, process); err != nil {
				return fmt.Errorf("seed process %s: %w", process.PublicationNumber, err)
			}
			summary.Processes++
		}

		existingDocs := map[string]bool{}
		for _, processType := range []types.ProcessType{types.ProcessTypeTender, types.ProcessTypeInquiry, types.ProcessTypeCall} {
			documents, err := tx.Processes().RequiredDocuments(ctx, processType)
			if err != nil {
				return err
			}
			for _, d := range documents {
				existingDocs[d.ID] = true
			}
		}
		for _, document := range catalog.RequiredDocuments {
			if existingDocs[document.ID] {
				continue
			}
			if err := tx.Processes().CreateRequiredDocument(ctx, document); err != nil {
				return fmt.Errorf("seed required document %s: %w", document.Title, err)
			}
			summary.RequiredDocuments++
		}

		for _, template := range catalog.Templates {
			_, err := tx.Evaluations().Template(ctx, template.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, types.ErrTemplateNotFound) {
				return err
			}
			if err := tx.Evaluations().CreateTemplate(ctx, template); err != nil {
				return fmt.Errorf("seed template %s: %w", template.Title, err)
			}
			summary.Templates++
		}

		existingCriteria := map[string]bool{}
		for _, template := range catalog.Templates {
			criteria, err := tx.Evaluations().Criteria(ctx, template.ID)
			if err != nil {
				return err
			}
			for _, c := range criteria {
				existingCriteria[c.ID] = true
			}
		}
		for _, criterion := range catalog.Criteria {
			if existingCriteria[criterion.ID] {
				continue
			}
			if err := tx.Evaluations().CreateCriterion(ctx, criterion); err != nil {
				return fmt.Errorf("seed criterion %s: %w", criterion.Title, err)
			}
			summary.Criteria++
		}

		for _, evaluation := range catalog.ProcessEvaluations {
			if id, ok := processIDs[evaluation.ProcessID]; ok {
				evaluation.ProcessID = id
			}
			assigned, err := tx.Evaluations().ProcessEvaluations(ctx, evaluation.ProcessID)
			if err != nil {
				return err
			}
			if hasTemplate(assigned, evaluation.TemplateID) {
				continue
			}
			if err := tx.Evaluations().CreateProcessEvaluation(ctx, evaluation); err != nil {
				return fmt.Errorf("seed process evaluation %s: %w", evaluation.ID, err)
			}
			summary.ProcessEvaluations++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"processes":           summary.Processes,
		"required_documents":  summary.RequiredDocuments,
		"templates":           summary.Templates,
		"criteria":            summary.Criteria,
		"process_evaluations": summary.ProcessEvaluations,
	}).Info("seed applied")

	return summary, nil
}

func hasTemplate(evaluations []*types.ProcessEvaluation, templateID string) bool {
	for _, e := range evaluations {
		if e.TemplateID == templateID {
			return true
		}
	}
	return false
}
