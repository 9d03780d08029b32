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

const certificateTableName = "certificates"

var certificateColumns = utils.StructTagValues(types.Certificate{})

type CertificateRepository struct {
	db DBTX
}

func NewCertificateRepository(db DBTX) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// ActiveCertificate returns the active certificate in a slot, or
// types.ErrCertificateNotFound.
func (r *CertificateRepository) ActiveCertificate(ctx context.Context, contractorID string, slot types.CertificateSlot) (*types.Certificate, error) {
	query, args, err := psql().
		Select(certificateColumns...).
		From(certificateTableName).
		Where(sq.Eq{
			"contractor_id": contractorID,
			"type":          slot.Type,
			"name":          slot.Name,
			"is_active":     true,
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate active certificate query: %w", err)
	}

	var certificate types.Certificate
	err = pgxscan.Get(ctx, r.db, &certificate, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("failed to fetch active certificate: %w", err)
	}

	return &certificate, nil
}

func (r *CertificateRepository) ActiveCertificates(ctx context.Context, contractorID string) ([]*types.Certificate, error) {
	query, args, err := psql().
		Select(certificateColumns...).
		From(certificateTableName).
		Where(sq.Eq{"contractor_id": contractorID, "is_active": true}).
		OrderBy("type ASC", "name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate active certificates query: %w", err)
	}

	var certificates []*types.Certificate
	err = pgxscan.Select(ctx, r.db, &certificates, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active certificates: %w", err)
	}

	return certificates, nil
}

func (r *CertificateRepository) CreateCertificate(ctx context.Context, certificate *types.Certificate) error {
	if certificate.ID == "" {
		certificate.ID = utils.NanoID()
	}
	now := time.Now()
	certificate.CreatedAt = now
	certificate.UpdatedAt = now

	query, args, err := psql().
		Insert(certificateTableName).
		SetMap(utils.StructToMap(certificate)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create certificate query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("certificate slot %s/%s already active: %w", certificate.Type, certificate.Name, err)
		}
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	return nil
}

// UpdateCertificate persists the file link and active flag of a
// certificate.
func (r *CertificateRepository) UpdateCertificate(ctx context.Context, certificate *types.Certificate) error {
	certificate.UpdatedAt = time.Now()

	query, args, err := psql().
		Update(certificateTableName).
		SetMap(map[string]any{
			"file_id":    certificate.FileID,
			"is_active":  certificate.IsActive,
			"updated_at": certificate.UpdatedAt,
		}).
		Where(sq.Eq{"id": certificate.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update certificate query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update certificate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrCertificateNotFound
	}

	return nil
}
