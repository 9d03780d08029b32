package portal

import (
	"context"
	"encoding/json"
	"errors"

	"naktender/internal/utils"
	"naktender/internal/workflow"
	"naktender/pkg/types"
)

// loadForms builds the template, criteria and response tree of every
// evaluation assigned to a process.
func loadForms(ctx context.Context, st Store, contractorID, processID string) ([]*types.EvaluationForm, error) {
	evaluations, err := st.Evaluations().ProcessEvaluations(ctx, processID)
	if err != nil {
		return nil, err
	}
	if len(evaluations) == 0 {
		return []*types.EvaluationForm{}, nil
	}

	ids := make([]string, 0, len(evaluations))
	for _, e := range evaluations {
		ids = append(ids, e.ID)
	}

	responses, err := st.Evaluations().Responses(ctx, contractorID, ids)
	if err != nil {
		return nil, err
	}

	type responseKey struct{ evaluation, criterion string }
	answered := make(map[responseKey]*types.EvaluationResponse, len(responses))
	for _, r := range responses {
		answered[responseKey{r.ProcessEvaluationID, r.CriterionID}] = r
	}

	forms := make([]*types.EvaluationForm, 0, len(evaluations))
	for _, e := range evaluations {
		template, err := st.Evaluations().Template(ctx, e.TemplateID)
		if err != nil {
			return nil, err
		}

		criteria, err := st.Evaluations().Criteria(ctx, e.TemplateID)
		if err != nil {
			return nil, err
		}

		form := &types.EvaluationForm{
			ProcessEvaluation: e,
			Template:          template,
			Criteria:          make([]*types.EvaluationFormRow, 0, len(criteria)),
		}
		for _, c := range criteria {
			form.Criteria = append(form.Criteria, &types.EvaluationFormRow{
				EvaluationCriterion: c,
				ValidationRules:     rawJSON(c.ValidationRules),
				PredefinedOptions:   rawJSON(c.PredefinedOptions),
				Response:            answered[responseKey{e.ID, c.ID}],
			})
		}
		forms = append(forms, form)
	}

	return forms, nil
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

func findRow(forms []*types.EvaluationForm, processEvaluationID, criterionID string) *types.EvaluationFormRow {
	for _, form := range forms {
		if form.ProcessEvaluation.ID != processEvaluationID {
			continue
		}
		for _, row := range form.Criteria {
			if row.ID == criterionID {
				return row
			}
		}
	}
	return nil
}

// EvaluationForms returns the evaluation forms of a process by id. When an
// evaluation requires a purchase and none was made, types.ErrNotPurchased
// is returned.
func (s *Service) EvaluationForms(ctx context.Context, contractorID, processID string) ([]*types.EvaluationForm, error) {
	process, err := s.store.Processes().Process(ctx, processID)
	if err != nil {
		return nil, err
	}
	return s.evaluationForms(ctx, contractorID, process)
}

func (s *Service) EvaluationFormsByPublication(ctx context.Context, contractorID, publicationNumber string) ([]*types.EvaluationForm, error) {
	process, err := s.processByNumber(ctx, s.store, publicationNumber)
	if err != nil {
		return nil, err
	}
	return s.evaluationForms(ctx, contractorID, process)
}

func (s *Service) evaluationForms(ctx context.Context, contractorID string, process *types.PublishedProcess) ([]*types.EvaluationForm, error) {
	forms, err := loadForms(ctx, s.store, contractorID, process.ID)
	if err != nil {
		return nil, err
	}

	requiresPurchase := false
	for _, f := range forms {
		requiresPurchase = requiresPurchase || f.ProcessEvaluation.RequiresPurchase
	}
	if !requiresPurchase {
		return forms, nil
	}

	_, err = s.store.Payments().CompletedPurchase(ctx, contractorID, process.ID)
	if err != nil {
		return nil, err
	}

	return forms, nil
}

// SaveEvaluationResponses validates and stores answers to evaluation
// criteria. Every answer is checked before anything is written.
func (s *Service) SaveEvaluationResponses(ctx context.Context, contractorID, publicationNumber string, answers []types.EvaluationAnswer) ([]*types.EvaluationForm, error) {
	process, err := s.processByNumber(ctx, s.store, publicationNumber)
	if err != nil {
		return nil, err
	}

	forms, err := loadForms(ctx, s.store, contractorID, process.ID)
	if err != nil {
		return nil, err
	}

	verr := types.NewValidationError("evaluation answers are invalid")
	responses := make([]*types.EvaluationResponse, 0, len(answers))
	for _, answer := range answers {
		row := findRow(forms, answer.ProcessEvaluationID, answer.CriterionID)
		if row == nil {
			verr.Add("criterion:"+answer.CriterionID, "is not part of this process")
			continue
		}

		score, err := workflow.ValidateAnswer(row.EvaluationCriterion, answer)
		if err != nil {
			var fieldErr *types.ValidationError
			if !errors.As(err, &fieldErr) {
				return nil, err
			}
			for k, v := range fieldErr.Fields {
				verr.Add(k, v)
			}
			continue
		}

		responses = append(responses, &types.EvaluationResponse{
			ProcessEvaluationID: answer.ProcessEvaluationID,
			CriterionID:         answer.CriterionID,
			ContractorID:        contractorID,
			Value:               utils.NilIfBlank(utils.PtrString(answer.Value)),
			TextValue:           utils.NilIfBlank(utils.PtrString(answer.TextValue)),
			Score:               score,
		})
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx Store) error {
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

		for _, r := range responses {
			if err := tx.Evaluations().UpsertResponse(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return loadForms(ctx, s.store, contractorID, process.ID)
}

// EvaluationFileInput answers a FILE criterion.
type EvaluationFileInput struct {
	PublicationNumber   string
	ProcessEvaluationID string
	CriterionID         string
	File                *Upload
}

// UploadEvaluationFile stores the file answering a FILE criterion and
// tombstones the file it replaces.
func (s *Service) UploadEvaluationFile(ctx context.Context, contractorID string, in EvaluationFileInput) (*types.EvaluationResponse, error) {
	process, err := s.processByNumber(ctx, s.store, in.PublicationNumber)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshot(ctx, s.store, contractorID, process)
	if err != nil {
		return nil, err
	}

	row := findRow(snap.Forms, in.ProcessEvaluationID, in.CriterionID)
	if row == nil {
		return nil, types.ErrCriterionNotFound
	}
	if row.InputType != types.InputTypeFile {
		return nil, types.NewValidationError("evaluation answer is invalid").Add("criterion:"+row.ID, "does not accept files")
	}

	ext, contentType, err := s.inspectUpload("file", in.File)
	if err != nil {
		return nil, err
	}

	if err := workflow.CheckEditable(snap); err != nil {
		return nil, err
	}

	file, err := s.storeBlob(ctx, contractorID, in.File, ext, contentType)
	if err != nil {
		return nil, err
	}

	var (
		response *types.EvaluationResponse
		replaced *types.File
	)
	err = s.store.InTx(ctx, func(tx Store) error {
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

		response, err = tx.Evaluations().Response(ctx, contractorID, in.ProcessEvaluationID, in.CriterionID)
		if err != nil {
			if !errors.Is(err, types.ErrResponseNotFound) {
				return err
			}
			response = &types.EvaluationResponse{
				ID:                  utils.NanoID(),
				ProcessEvaluationID: in.ProcessEvaluationID,
				CriterionID:         in.CriterionID,
				ContractorID:        contractorID,
			}
		}

		file.SetOwner(types.EvaluationResponseOwner{ID: response.ID})
		if err := tx.Files().CreateFile(ctx, file); err != nil {
			return err
		}

		previous := response.FileID
		response.FileID = &file.ID
		response.Value = utils.StringPtr(file.OriginalName)

		ownerID := response.ID
		if err := tx.Evaluations().UpsertResponse(ctx, response); err != nil {
			return err
		}
		if response.ID != ownerID {
			if err := tx.Files().SetFileOwner(ctx, file.ID, types.EvaluationResponseOwner{ID: response.ID}); err != nil {
				return err
			}
		}

		if previous != nil {
			replaced, err = tombstone(ctx, tx, *previous, types.EvaluationResponseOwner{ID: response.ID})
			return err
		}
		return nil
	})
	if err != nil {
		s.discardBlob(ctx, file)
		return nil, err
	}

	s.reclaim(ctx, replaced)

	return response, nil
}
