package portal

import (
	"context"
	"io"
	"time"

	"naktender/internal/store"
	"naktender/pkg/types"
)

type ContractorRepository interface {
	Contractor(ctx context.Context, contractorID string) (*types.Contractor, error)
	LockContractor(ctx context.Context, contractorID string) (*types.Contractor, error)
	CreateContractor(ctx context.Context, contractor *types.Contractor) error
	UpdateContractor(ctx context.Context, contractor *types.Contractor) error
	Members(ctx context.Context, contractorID string) ([]*types.ContractorMember, error)
	UpsertMember(ctx context.Context, member *types.ContractorMember) error
	LoginBySubject(ctx context.Context, subject string) (*types.ContractorLogin, error)
	UpsertLogin(ctx context.Context, login *types.ContractorLogin) error
}

type TaskRepository interface {
	Task(ctx context.Context, taskID string) (*types.Task, error)
	LatestTask(ctx context.Context, entityType types.TaskEntityType, entityID string) (*types.Task, error)
	TaskHistory(ctx context.Context, entityType types.TaskEntityType, entityID string) ([]*types.Task, error)
	CreateTask(ctx context.Context, task *types.Task) error
	UpdateTaskStatus(ctx context.Context, task *types.Task) error
}

type CertificateRepository interface {
	ActiveCertificate(ctx context.Context, contractorID string, slot types.CertificateSlot) (*types.Certificate, error)
	ActiveCertificates(ctx context.Context, contractorID string) ([]*types.Certificate, error)
	CreateCertificate(ctx context.Context, certificate *types.Certificate) error
	UpdateCertificate(ctx context.Context, certificate *types.Certificate) error
}

type FileRepository interface {
	File(ctx context.Context, fileID string) (*types.File, error)
	CreateFile(ctx context.Context, file *types.File) error
	SetFileOwner(ctx context.Context, fileID string, owner types.Owner) error
	MarkReclaimed(ctx context.Context, fileID string, at time.Time) error
	RecordReclaimAttempt(ctx context.Context, fileID string, at time.Time) error
	UnreclaimedTombstones(ctx context.Context, limit int) ([]*types.File, error)
}

type ProcessRepository interface {
	Process(ctx context.Context, processID string) (*types.PublishedProcess, error)
	ProcessByPublicationNumber(ctx context.Context, publicationNumber string) (*types.PublishedProcess, error)
	ProcessesByIDs(ctx context.Context, processIDs []string) ([]*types.PublishedProcess, error)
	Processes(ctx context.Context, q store.ProcessQuery) ([]*types.PublishedProcess, error)
	CreateProcess(ctx context.Context, process *types.PublishedProcess) error
	RequiredDocuments(ctx context.Context, processType types.ProcessType) ([]*types.RequiredDocument, error)
	CreateRequiredDocument(ctx context.Context, document *types.RequiredDocument) error
}

type PaymentRepository interface {
	CompletedPurchase(ctx context.Context, contractorID, processID string) (*types.PaymentTransaction, error)
	Purchases(ctx context.Context, contractorID string) ([]*types.PaymentTransaction, error)
	CreateTransaction(ctx context.Context, payment *types.PaymentTransaction) error
}

type SubmissionRepository interface {
	Drafts(ctx context.Context, contractorID, processID string) ([]*types.DocumentDraft, error)
	Draft(ctx context.Context, contractorID, processID, requiredDocumentID string) (*types.DocumentDraft, error)
	UpsertDraft(ctx context.Context, draft *types.DocumentDraft) error
	ActiveSubmission(ctx context.Context, contractorID, processID string) (*types.ProcessSubmission, error)
	Submission(ctx context.Context, submissionID string) (*types.ProcessSubmission, error)
	Submissions(ctx context.Context, contractorID string) ([]*types.ProcessSubmission, error)
	CreateSubmission(ctx context.Context, submission *types.ProcessSubmission) error
	UpdateSubmissionStatus(ctx context.Context, submission *types.ProcessSubmission) error
	CreateSubmittedDocument(ctx context.Context, document *types.SubmittedDocument) error
	SubmittedDocuments(ctx context.Context, submissionID string) ([]*types.SubmittedDocument, error)
}

type EvaluationRepository interface {
	ProcessEvaluations(ctx context.Context, processID string) ([]*types.ProcessEvaluation, error)
	Template(ctx context.Context, templateID string) (*types.EvaluationTemplate, error)
	Criteria(ctx context.Context, templateID string) ([]*types.EvaluationCriterion, error)
	Responses(ctx context.Context, contractorID string, processEvaluationIDs []string) ([]*types.EvaluationResponse, error)
	Response(ctx context.Context, contractorID, processEvaluationID, criterionID string) (*types.EvaluationResponse, error)
	UpsertResponse(ctx context.Context, response *types.EvaluationResponse) error
	CreateTemplate(ctx context.Context, template *types.EvaluationTemplate) error
	CreateCriterion(ctx context.Context, criterion *types.EvaluationCriterion) error
	CreateProcessEvaluation(ctx context.Context, evaluation *types.ProcessEvaluation) error
}

// Store is the persistence the portal runs against. Repositories obtained
// from the Store passed to an InTx callback share its transaction.
type Store interface {
	Contractors() ContractorRepository
	Tasks() TaskRepository
	Certificates() CertificateRepository
	Files() FileRepository
	Processes() ProcessRepository
	Payments() PaymentRepository
	Submissions() SubmissionRepository
	Evaluations() EvaluationRepository

	InTx(ctx context.Context, fn func(tx Store) error) error
}

// BlobStore keeps the bytes of uploaded files.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
}

// IdentityProvider owns contractor credentials.
type IdentityProvider interface {
	SignUp(ctx context.Context, username, password, email string) (subject string, err error)
	DeleteUser(ctx context.Context, username string) error
}

type pgStore struct {
	s *store.Store
}

// NewPostgresStore adapts the pgx repositories to Store.
func NewPostgresStore(s *store.Store) Store {
	return &pgStore{s: s}
}

func (p *pgStore) Contractors() ContractorRepository   { return p.s.Contractors }
func (p *pgStore) Tasks() TaskRepository               { return p.s.Tasks }
func (p *pgStore) Certificates() CertificateRepository { return p.s.Certificates }
func (p *pgStore) Files() FileRepository               { return p.s.Files }
func (p *pgStore) Processes() ProcessRepository        { return p.s.Processes }
func (p *pgStore) Payments() PaymentRepository         { return p.s.Payments }
func (p *pgStore) Submissions() SubmissionRepository   { return p.s.Submissions }
func (p *pgStore) Evaluations() EvaluationRepository   { return p.s.Evaluations }

func (p *pgStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return p.s.InTx(ctx, func(tx *store.Store) error {
		return fn(&pgStore{s: tx})
	})
}
