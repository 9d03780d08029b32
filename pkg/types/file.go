package types

import (
	"fmt"
	"time"
)

// EntityType is the persisted tag of a file owner.
type EntityType string

const (
	EntityTypeCertificate        EntityType = "CERTIFICATE"
	EntityTypeDocumentDraft      EntityType = "DOCUMENT_DRAFT"
	EntityTypeSubmittedDocument  EntityType = "SUBMITTED_DOCUMENT"
	EntityTypeEvaluationResponse EntityType = "EVALUATION_RESPONSE"
	EntityTypeDeleted            EntityType = "DELETED"
)

// Owner is the closed set of things a stored file can belong to.
type Owner interface {
	EntityType() EntityType
	EntityID() string
	owner()
}

type CertificateOwner struct{ ID string }
type DocumentDraftOwner struct{ ID string }
type SubmittedDocumentOwner struct{ ID string }
type EvaluationResponseOwner struct{ ID string }

// Tombstone marks a superseded or deleted file. PreviousID keeps the id of
// the former owner for auditing.
type Tombstone struct{ PreviousID string }

func (o CertificateOwner) EntityType() EntityType        { return EntityTypeCertificate }
func (o CertificateOwner) EntityID() string              { return o.ID }
func (CertificateOwner) owner()                          {}
func (o DocumentDraftOwner) EntityType() EntityType      { return EntityTypeDocumentDraft }
func (o DocumentDraftOwner) EntityID() string            { return o.ID }
func (DocumentDraftOwner) owner()                        {}
func (o SubmittedDocumentOwner) EntityType() EntityType  { return EntityTypeSubmittedDocument }
func (o SubmittedDocumentOwner) EntityID() string        { return o.ID }
func (SubmittedDocumentOwner) owner()                    {}
func (o EvaluationResponseOwner) EntityType() EntityType { return EntityTypeEvaluationResponse }
func (o EvaluationResponseOwner) EntityID() string       { return o.ID }
func (EvaluationResponseOwner) owner()                   {}
func (o Tombstone) EntityType() EntityType               { return EntityTypeDeleted }
func (o Tombstone) EntityID() string                     { return o.PreviousID }
func (Tombstone) owner()                                 {}

// OwnerOf decodes the persisted (entity_type, entity_id) pair.
func OwnerOf(entityType EntityType, entityID string) (Owner, error) {
	switch entityType {
	case EntityTypeCertificate:
		return CertificateOwner{ID: entityID}, nil
	case EntityTypeDocumentDraft:
		return DocumentDraftOwner{ID: entityID}, nil
	case EntityTypeSubmittedDocument:
		return SubmittedDocumentOwner{ID: entityID}, nil
	case EntityTypeEvaluationResponse:
		return EvaluationResponseOwner{ID: entityID}, nil
	case EntityTypeDeleted:
		return Tombstone{PreviousID: entityID}, nil
	}
	return nil, fmt.Errorf("unknown file owner type %q", entityType)
}

type File struct {
	ID            string     `db:"id" json:"id"`
	GeneratedName string     `db:"generated_name" json:"generatedName"`
	OriginalName  string     `db:"original_name" json:"originalName"`
	MimeType      string     `db:"mime_type" json:"mimeType"`
	SizeBytes     int64      `db:"size_bytes" json:"sizeBytes"`
	StorageKey    string     `db:"storage_key" json:"-"`
	EntityType    EntityType `db:"entity_type" json:"entityType"`
	EntityID      string     `db:"entity_id" json:"entityId"`
	UploadedBy    string     `db:"uploaded_by" json:"uploadedBy"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	ReclaimedAt   *time.Time `db:"reclaimed_at" json:"-"`

	// last failed removal by the reclaim sweep
	ReclaimAttemptedAt *time.Time `db:"reclaim_attempted_at" json:"-"`
}

func (f *File) Owner() (Owner, error) {
	return OwnerOf(f.EntityType, f.EntityID)
}

func (f *File) SetOwner(o Owner) {
	f.EntityType = o.EntityType()
	f.EntityID = o.EntityID()
}

func (f *File) IsTombstoned() bool {
	return f.EntityType == EntityTypeDeleted
}
