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
	contractorTableName       = "contractors"
	contractorMemberTableName = "contractor_members"
	contractorLoginTableName  = "contractor_logins"
)

var (
	contractorColumns       = utils.StructTagValues(types.Contractor{})
	contractorMemberColumns = utils.StructTagValues(types.ContractorMember{})
	contractorLoginColumns  = utils.StructTagValues(types.ContractorLogin{})
)

type ContractorRepository struct {
	db DBTX
}

func NewContractorRepository(db DBTX) *ContractorRepository {
	return &ContractorRepository{db: db}
}

func (r *ContractorRepository) Contractor(ctx context.Context, contractorID string) (*types.Contractor, error) {
	return r.contractor(ctx, contractorID, false)
}

// LockContractor reads the contractor row with FOR UPDATE so concurrent
// account submissions for the same contractor are serialized. It must be
// called inside a transaction.
func (r *ContractorRepository) LockContractor(ctx context.Context, contractorID string) (*types.Contractor, error) {
	return r.contractor(ctx, contractorID, true)
}

func (r *ContractorRepository) contractor(ctx context.Context, contractorID string, lock bool) (*types.Contractor, error) {
	builder := psql().
		Select(contractorColumns...).
		From(contractorTableName).
		Where(sq.Eq{"id": contractorID}).
		Limit(1)
	if lock {
		builder = builder.Suffix(lockingClause)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate contractor query: %w", err)
	}

	var contractor types.Contractor
	err = pgxscan.Get(ctx, r.db, &contractor, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrContractorNotFound
		}
		return nil, fmt.Errorf("failed to fetch contractor: %w", err)
	}

	return &contractor, nil
}

func (r *ContractorRepository) CreateContractor(ctx context.Context, contractor *types.Contractor) error {
	now := time.Now()
	contractor.CreatedAt = now
	contractor.UpdatedAt = now

	query, args, err := psql().
		Insert(contractorTableName).
		SetMap(utils.StructToMap(contractor)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create contractor query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrContractorExists
		}
		return fmt.Errorf("failed to create contractor: %w", err)
	}

	return nil
}

// UpdateContractor writes every profile column. company_status and
// created_at are never touched from here.
func (r *ContractorRepository) UpdateContractor(ctx context.Context, contractor *types.Contractor) error {
	contractor.UpdatedAt = time.Now()

	query, args, err := psql().
		Update(contractorTableName).
		SetMap(utils.StructToMap(contractor, "id", "company_status", "created_at")).
		Where(sq.Eq{"id": contractor.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update contractor query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrContractorExists
		}
		return fmt.Errorf("failed to update contractor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrContractorNotFound
	}

	return nil
}

func (r *ContractorRepository) Members(ctx context.Context, contractorID string) ([]*types.ContractorMember, error) {
	query, args, err := psql().
		Select(contractorMemberColumns...).
		From(contractorMemberTableName).
		Where(sq.Eq{"contractor_id": contractorID}).
		OrderBy("role ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate members query: %w", err)
	}

	var members []*types.ContractorMember
	err = pgxscan.Select(ctx, r.db, &members, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contractor members: %w", err)
	}

	return members, nil
}

// UpsertMember keeps a single row per (contractor, role).
func (r *ContractorRepository) UpsertMember(ctx context.Context, member *types.ContractorMember) error {
	now := time.Now()
	if member.ID == "" {
		member.ID = utils.NanoID()
	}
	member.CreatedAt = now
	member.UpdatedAt = now

	query, args, err := psql().
		Insert(contractorMemberTableName).
		Columns(contractorMemberColumns...).
		Values(member.ID, member.ContractorID, member.Role, member.FullName, member.NationalID, member.Mobile, member.CreatedAt, member.UpdatedAt).
		Suffix("ON CONFLICT (contractor_id, role) DO UPDATE SET full_name = EXCLUDED.full_name, national_id = EXCLUDED.national_id, mobile = EXCLUDED.mobile, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert member query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert contractor member")
}

func (r *ContractorRepository) LoginBySubject(ctx context.Context, subject string) (*types.ContractorLogin, error) {
	query, args, err := psql().
		Select(contractorLoginColumns...).
		From(contractorLoginTableName).
		Where(sq.Eq{"subject": subject}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate login query: %w", err)
	}

	var login types.ContractorLogin
	err = pgxscan.Get(ctx, r.db, &login, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrLoginNotFound
		}
		return nil, fmt.Errorf("failed to fetch login: %w", err)
	}

	return &login, nil
}

// UpsertLogin records the identity subject of a contractor and refreshes
// its username and last login time.
func (r *ContractorRepository) UpsertLogin(ctx context.Context, login *types.ContractorLogin) error {
	now := time.Now()
	login.CreatedAt = now
	login.UpdatedAt = now

	query, args, err := psql().
		Insert(contractorLoginTableName).
		Columns(contractorLoginColumns...).
		Values(login.Subject, login.ContractorID, login.Username, login.LastLoginAt, login.CreatedAt, login.UpdatedAt).
		Suffix("ON CONFLICT (subject) DO UPDATE SET username = EXCLUDED.username, last_login_at = COALESCE(EXCLUDED.last_login_at, contractor_logins.last_login_at), updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert login query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert contractor login")
}
