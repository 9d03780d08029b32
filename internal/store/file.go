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

const fileTableName = "files"

var fileColumns = utils.StructTagValues(types.File{})

type FileRepository struct {
	db DBTX
}

func NewFileRepository(db DBTX) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) File(ctx context.Context, fileID string) (*types.File, error) {
	query, args, err := psql().
		Select(fileColumns...).
		From(fileTableName).
		Where(sq.Eq{"id": fileID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate file query: %w", err)
	}

	var file types.File
	err = pgxscan.Get(ctx, r.db, &file, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to fetch file: %w", err)
	}

	return &file, nil
}

func (r *FileRepository) CreateFile(ctx context.Context, file *types.File) error {
	if file.ID == "" {
		file.ID = utils.NanoID()
	}
	file.CreatedAt = time.Now()

	query, args, err := psql().
		Insert(fileTableName).
		SetMap(utils.StructToMap(file)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create file query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create file")
}

// SetFileOwner moves a file to a new owner. Passing a types.Tombstone
// marks it deleted while keeping the previous owner id.
func (r *FileRepository) SetFileOwner(ctx context.Context, fileID string, owner types.Owner) error {
	query, args, err := psql().
		Update(fileTableName).
		Set("entity_type", owner.EntityType()).
		Set("entity_id", owner.EntityID()).
		Where(sq.Eq{"id": fileID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate set file owner query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to set file owner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrFileNotFound
	}

	return nil
}

func (r *FileRepository) MarkReclaimed(ctx context.Context, fileID string, at time.Time) error {
	query, args, err := psql().
		Update(fileTableName).
		Set("reclaimed_at", at).
		Where(sq.Eq{"id": fileID, "entity_type": types.EntityTypeDeleted}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate mark reclaimed query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to mark file reclaimed")
}

// RecordReclaimAttempt stamps a failed blob removal so the next sweep
// moves on to other tombstones first.
func (r *FileRepository) RecordReclaimAttempt(ctx context.Context, fileID string, at time.Time) error {
	query, args, err := psql().
		Update(fileTableName).
		Set("reclaim_attempted_at", at).
		Where(sq.Eq{"id": fileID, "entity_type": types.EntityTypeDeleted}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate record reclaim attempt query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to record reclaim attempt")
}

// UnreclaimedTombstones lists tombstoned files whose blob has not been
// removed yet. Files never attempted come first, then the least recently
// attempted, oldest first within each.
func (r *FileRepository) UnreclaimedTombstones(ctx context.Context, limit int) ([]*types.File, error) {
	query, args, err := psql().
		Select(fileColumns...).
		From(fileTableName).
		Where(sq.Eq{"entity_type": types.EntityTypeDeleted, "reclaimed_at": nil}).
		OrderBy("reclaim_attempted_at ASC NULLS FIRST", "created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate unreclaimed tombstones query: %w", err)
	}

	var files []*types.File
	err = pgxscan.Select(ctx, r.db, &files, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unreclaimed tombstones: %w", err)
	}

	return files, nil
}
