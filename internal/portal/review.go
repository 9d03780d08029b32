package portal

import (
	"context"
	"strings"

	"naktender/internal/utils"
	"naktender/pkg/types"

	"github.com/sirupsen/logrus"
)

// reviewStatuses are the decisions a reviewer can record.
var reviewStatuses = map[types.TaskStatus]bool{
	types.TaskStatusInProgress: true,
	types.TaskStatusCompleted:  true,
	types.TaskStatusRejected:   true,
}

// ReviewDecision is an expert's verdict on a task or submission.
type ReviewDecision struct {
	Status   types.TaskStatus
	Reason   string
	Reviewer string
}

func (d ReviewDecision) validate() error {
	verr := types.NewValidationError("review decision is invalid")
	if !reviewStatuses[d.Status] {
		verr.Add("status", "must be one of: IN_PROGRESS COMPLETED REJECTED")
	}
	if d.Status == types.TaskStatusRejected && strings.TrimSpace(d.Reason) == "" {
		verr.Add("reason", "is required when rejecting")
	}
	return verr.OrNil()
}

// ReviewTask records a reviewer decision on an open verification task.
func (s *Service) ReviewTask(ctx context.Context, taskID string, d ReviewDecision) (*types.Task, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	var task *types.Task
	err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		task, err = tx.Tasks().Task(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.Status.IsOpen() {
			return types.NewValidationError("review decision is invalid").Add("task", "is already "+string(task.Status))
		}

		task.Status = d.Status
		task.RejectionReason = utils.NilIfBlank(d.Reason)
		task.Reviewer = utils.NilIfBlank(d.Reviewer)
		task.ActionDate = s.now()

		return tx.Tasks().UpdateTaskStatus(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"task_id": task.ID,
		"status":  task.Status,
	}).Info("verification task reviewed")

	return task, nil
}

// ReviewSubmission records a reviewer decision on a participation request.
func (s *Service) ReviewSubmission(ctx context.Context, submissionID string, d ReviewDecision) (*types.ProcessSubmission, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	var submission *types.ProcessSubmission
	err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		submission, err = tx.Submissions().Submission(ctx, submissionID)
		if err != nil {
			return err
		}
		if !submission.Status.IsOpen() {
			return types.NewValidationError("review decision is invalid").Add("submission", "is already "+string(submission.Status))
		}

		submission.Status = d.Status
		submission.ReviewNote = utils.NilIfBlank(d.Reason)
		submission.UpdatedAt = s.now()

		return tx.Submissions().UpdateSubmissionStatus(ctx, submission)
	})
	if err != nil {
		return nil, err
	}

	return submission, nil
}
