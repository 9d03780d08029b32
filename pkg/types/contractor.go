package types

import "time"

type CompanyStatus string

const (
	CompanyStatusPendingApproval CompanyStatus = "PENDING_APPROVAL"
	CompanyStatusApproved        CompanyStatus = "APPROVED"
	CompanyStatusSuspended       CompanyStatus = "SUSPENDED"
)

type Contractor struct {
	ID                 string        `db:"id" json:"id"`
	CompanyName        string        `db:"company_name" json:"companyName"`
	NationalID         string        `db:"national_id" json:"nationalId"`
	RegistrationNumber string        `db:"registration_number" json:"registrationNumber"`
	Mobile             string        `db:"mobile" json:"mobile"`
	Phone              *string       `db:"phone" json:"phone,omitempty"`
	Email              *string       `db:"email" json:"email,omitempty"`
	Address            *string       `db:"address" json:"address,omitempty"`
	PostalCode         *string       `db:"postal_code" json:"postalCode,omitempty"`
	BankName           *string       `db:"bank_name" json:"bankName,omitempty"`
	AccountNumber      *string       `db:"account_number" json:"accountNumber,omitempty"`
	Sheba              *string       `db:"sheba" json:"sheba,omitempty"`
	CompanyStatus      CompanyStatus `db:"company_status" json:"companyStatus"`
	CreatedAt          time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updatedAt"`
}

type MemberRole string

const (
	MemberRoleCEO            MemberRole = "CEO"
	MemberRoleRepresentative MemberRole = "REPRESENTATIVE"
)

type ContractorMember struct {
	ID           string     `db:"id" json:"id"`
	ContractorID string     `db:"contractor_id" json:"contractorId"`
	Role         MemberRole `db:"role" json:"role"`
	FullName     string     `db:"full_name" json:"fullName"`
	NationalID   string     `db:"national_id" json:"nationalId"`
	Mobile       string     `db:"mobile" json:"mobile"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// ContractorLogin maps an identity provider subject onto a contractor.
type ContractorLogin struct {
	Subject      string     `db:"subject"`
	ContractorID string     `db:"contractor_id"`
	Username     string     `db:"username"`
	LastLoginAt  *time.Time `db:"last_login_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

type MemberForm struct {
	FullName   string `json:"fullName" form:"fullName" validate:"required,max=200"`
	NationalID string `json:"nationalId" form:"nationalId" validate:"required,nationalid"`
	Mobile     string `json:"mobile" form:"mobile" validate:"required,mobile"`
}

// AccountForm is the full verification profile a contractor submits for
// review.
type AccountForm struct {
	CompanyName        string     `json:"companyName" validate:"required,max=200"`
	NationalID         string     `json:"nationalId" validate:"required,numeric,len=11"`
	RegistrationNumber string     `json:"registrationNumber" validate:"required,max=50"`
	Mobile             string     `json:"mobile" validate:"required,mobile"`
	Phone              string     `json:"phone" validate:"omitempty,numeric,min=8,max=12"`
	Email              string     `json:"email" validate:"omitempty,email"`
	Address            string     `json:"address" validate:"required,max=500"`
	PostalCode         string     `json:"postalCode" validate:"required,numeric,len=10"`
	BankName           string     `json:"bankName" validate:"required,max=100"`
	AccountNumber      string     `json:"accountNumber" validate:"required,max=30"`
	Sheba              string     `json:"sheba" validate:"required,sheba"`
	CEO                MemberForm `json:"ceo"`
	Representative     MemberForm `json:"representative"`

	// CertificateIDs lists the active certificates the contractor attaches
	// to this submission.
	CertificateIDs []string `json:"certificateIds"`
}

// SignupForm creates the identity and the contractor record in one go.
type SignupForm struct {
	CompanyName        string     `json:"companyName" form:"companyName" validate:"required,max=200"`
	NationalID         string     `json:"nationalId" form:"nationalId" validate:"required,numeric,len=11"`
	RegistrationNumber string     `json:"registrationNumber" form:"registrationNumber" validate:"required,max=50"`
	Mobile             string     `json:"mobile" form:"mobile" validate:"required,mobile"`
	Email              string     `json:"email" form:"email" validate:"required,email"`
	Password           string     `json:"password" form:"password" validate:"required,min=12"`
	CEO                MemberForm `json:"ceo" form:"ceo"`
	Representative     MemberForm `json:"representative" form:"representative"`
}

// Principal is the authenticated caller of a contractor operation.
type Principal struct {
	Subject      string
	ContractorID string
	Username     string
}
