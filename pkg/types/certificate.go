package types

import "time"

type CertificateType string

const (
	CertificateTypeLegal         CertificateType = "LEGAL"
	CertificateTypeTax           CertificateType = "TAX"
	CertificateTypeQualification CertificateType = "QUALIFICATION"
)

// Names of the legal document slots.
const (
	LegalNameStatute = "اساسنامه"
	LegalNameGazette = "روزنامه"
)

// CertificateSlot identifies a named document position on the account.
type CertificateSlot struct {
	Type CertificateType `json:"type" form:"type"`
	Name string          `json:"name" form:"name"`
}

var CertificateSlots = []CertificateSlot{
	{Type: CertificateTypeLegal, Name: LegalNameStatute},
	{Type: CertificateTypeLegal, Name: LegalNameGazette},
	{Type: CertificateTypeTax, Name: string(CertificateTypeTax)},
	{Type: CertificateTypeQualification, Name: string(CertificateTypeQualification)},
}

// Normalize fills the implied name of single-slot types.
func (s CertificateSlot) Normalize() CertificateSlot {
	if s.Name == "" && s.Type != CertificateTypeLegal {
		s.Name = string(s.Type)
	}
	return s
}

func (s CertificateSlot) Valid() bool {
	for _, slot := range CertificateSlots {
		if slot == s {
			return true
		}
	}
	return false
}

type Certificate struct {
	ID           string          `db:"id" json:"id"`
	ContractorID string          `db:"contractor_id" json:"contractorId"`
	Type         CertificateType `db:"type" json:"type"`
	Name         string          `db:"name" json:"name"`
	FileID       string          `db:"file_id" json:"fileId"`
	IsActive     bool            `db:"is_active" json:"isActive"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

func (c *Certificate) Slot() CertificateSlot {
	return CertificateSlot{Type: c.Type, Name: c.Name}
}
