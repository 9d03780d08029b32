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

const taskTableName = "tasks"

var taskColumns = utils.StructTagValues(types.Task{})

type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Task(ctx context.Context, taskID string) (*types.Task, error) {
	query, args, err := psql().
		Select(taskColumns...).
		From(taskTableName).
		Where(sq.Eq{"id": taskID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task query: %w", err)
	}

	var task types.Task
	err = pgxscan.Get(ctx, r.db, &task, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}

	return &task, nil
}

// LatestTask returns the most recently created task of an entity, or
// types.ErrTaskNotFound when it has none.
func (r *TaskRepository) LatestTask(ctx context.Context, entityType types.TaskEntityType, entityID string) (*types.Task, error) {
	query, args, err := psql().
		Select(taskColumns...).
		From(taskTableName).
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate latest task query: %w", err)
	}

	var task types.Task
	err = pgxscan.Get(ctx, r.db, &task, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to fetch latest task: %w", err)
	}

	return &task, nil
}

// TaskHistory lists every task of an entity, newest first.
func (r *TaskRepository) TaskHistory(ctx context.Context, entityType types.TaskEntityType, entityID string) ([]*types.Task, error) {
	query, args, err := psql().
		Select(taskColumns...).
		From(taskTableName).
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task history query: %w", err)
	}

	var tasks []*types.Task
	err = pgxscan.Select(ctx, r.db, &tasks, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task history: %w", err)
	}

	return tasks, nil
}

// CreateTask inserts a task. The open-task partial index turns a second
// open task for the same entity into types.ErrAccountLocked.
func (r *TaskRepository) CreateTask(ctx context.Context, task *types.Task) error {
	if task.ID == "" {
		task.ID = utils.NanoID()
	}
	now := time.Now()
	task.CreatedAt = now
	if task.ActionDate.IsZero() {
		task.ActionDate = now
	}

	query, args, err := psql().
		Insert(taskTableName).
		SetMap(utils.StructToMap(task)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create task query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrAccountLocked
		}
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// UpdateTaskStatus records a reviewer decision.
func (r *TaskRepository) UpdateTaskStatus(ctx context.Context, task *types.Task) error {
	query, args, err := psql().
		Update(taskTableName).
		SetMap(map[string]any{
			"status":           task.Status,
			"rejection_reason": task.RejectionReason,
			"reviewer":         task.Reviewer,
			"action_date":      task.ActionDate,
		}).
		Where(sq.Eq{"id": task.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update task query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrTaskNotFound
	}

	return nil
}
