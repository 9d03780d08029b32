// Package portaltest provides in-memory doubles of the portal's
// collaborators. The store enforces the same unique constraints as the
// database schema and rolls back failed transactions.
package portaltest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"naktender/internal/portal"
	"naktender/internal/store"
	"naktender/internal/utils"
	"naktender/pkg/types"
)

// ErrUniqueViolation stands in for a unique index violation that has no
// domain error.
var ErrUniqueViolation = errors.New("unique violation")

type state struct {
	contractors   map[string]types.Contractor
	members       map[string]types.ContractorMember
	logins        map[string]types.ContractorLogin
	tasks         map[string]types.Task
	certificates  map[string]types.Certificate
	files         map[string]types.File
	processes     map[string]types.PublishedProcess
	requiredDocs  map[string]types.RequiredDocument
	payments      map[string]types.PaymentTransaction
	drafts        map[string]types.DocumentDraft
	submissions   map[string]types.ProcessSubmission
	submittedDocs map[string]types.SubmittedDocument
	templates     map[string]types.EvaluationTemplate
	criteria      map[string]types.EvaluationCriterion
	evaluations   map[string]types.ProcessEvaluation
	responses     map[string]types.EvaluationResponse

	seq int
}

func newState() *state {
	return &state{
		contractors:   map[string]types.Contractor{},
		members:       map[string]types.ContractorMember{},
		logins:        map[string]types.ContractorLogin{},
		tasks:         map[string]types.Task{},
		certificates:  map[string]types.Certificate{},
		files:         map[string]types.File{},
		processes:     map[string]types.PublishedProcess{},
		requiredDocs:  map[string]types.RequiredDocument{},
		payments:      map[string]types.PaymentTransaction{},
		drafts:        map[string]types.DocumentDraft{},
		submissions:   map[string]types.ProcessSubmission{},
		submittedDocs: map[string]types.SubmittedDocument{},
		templates:     map[string]types.EvaluationTemplate{},
		criteria:      map[string]types.EvaluationCriterion{},
		evaluations:   map[string]types.ProcessEvaluation{},
		responses:     map[string]types.EvaluationResponse{},
	}
}

func (s *state) clone() *state {
	return &state{
		contractors:   maps.Clone(s.contractors),
		members:       maps.Clone(s.members),
		logins:        maps.Clone(s.logins),
		tasks:         maps.Clone(s.tasks),
		certificates:  maps.Clone(s.certificates),
		files:         maps.Clone(s.files),
		processes:     maps.Clone(s.processes),
		requiredDocs:  maps.Clone(s.requiredDocs),
		payments:      maps.Clone(s.payments),
		drafts:        maps.Clone(s.drafts),
		submissions:   maps.Clone(s.submissions),
		submittedDocs: maps.Clone(s.submittedDocs),
		templates:     maps.Clone(s.templates),
		criteria:      maps.Clone(s.criteria),
		evaluations:   maps.Clone(s.evaluations),
		responses:     maps.Clone(s.responses),
		seq:           s.seq,
	}
}

type db struct {
	mu       sync.Mutex
	data     *state
	failures map[string]error
	locks    map[string]int
}

type (
	contractorRepo  struct{ *db }
	taskRepo        struct{ *db }
	certificateRepo struct{ *db }
	fileRepo        struct{ *db }
	processRepo     struct{ *db }
	paymentRepo     struct{ *db }
	submissionRepo  struct{ *db }
	evaluationRepo  struct{ *db }
)

// Store is an in-memory portal.Store. Values are copied in and out so
// callers never share memory with the stored rows.
type Store struct {
	txMu sync.Mutex
	*db
}

func NewStore() *Store {
	return &Store{db: &db{data: newState(), failures: map[string]error{}, locks: map[string]int{}}}
}

// FailOn makes every later call of the named repository method return
// err, e.g. FailOn("CreateTask", err).
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

func (s *db) fail(method string) error {
	return s.failures[method]
}

// tick returns a strictly increasing timestamp so rows created in one
// test keep their insertion order.
func (s *db) tick() time.Time {
	s.data.seq++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.data.seq) * time.Second)
}

func (s *Store) Contractors() portal.ContractorRepository   { return &contractorRepo{s.db} }
func (s *Store) Tasks() portal.TaskRepository               { return &taskRepo{s.db} }
func (s *Store) Certificates() portal.CertificateRepository { return &certificateRepo{s.db} }
func (s *Store) Files() portal.FileRepository               { return &fileRepo{s.db} }
func (s *Store) Processes() portal.ProcessRepository        { return &processRepo{s.db} }
func (s *Store) Payments() portal.PaymentRepository         { return &paymentRepo{s.db} }
func (s *Store) Submissions() portal.SubmissionRepository   { return &submissionRepo{s.db} }
func (s *Store) Evaluations() portal.EvaluationRepository   { return &evaluationRepo{s.db} }

// InTx serializes transactions and restores the previous state when fn
// fails. Because transactions never overlap, row lock races cannot happen
// here; use Locks to check that a write takes the contractor lock.
func (s *Store) InTx(ctx context.Context, fn func(tx portal.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	saved := s.data.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
		return err
	}

	return nil
}

func ptr[T any](v T) *T { return &v }

func sortedValues[T any](m map[string]T, keep func(T) bool, less func(a, b *T) bool) []*T {
	out := make([]*T, 0)
	for _, v := range m {
		if keep(v) {
			out = append(out, ptr(v))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Contractors

func (s *contractorRepo) Contractor(ctx context.Context, contractorID string) (*types.Contractor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Contractor"); err != nil {
		return nil, err
	}

	c, ok := s.data.contractors[contractorID]
	if !ok {
		return nil, types.ErrContractorNotFound
	}
	return ptr(c), nil
}

func (s *contractorRepo) LockContractor(ctx context.Context, contractorID string) (*types.Contractor, error) {
	s.mu.Lock()
	if err := s.fail("LockContractor"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.locks[contractorID]++
	s.mu.Unlock()

	return s.Contractor(ctx, contractorID)
}

// Locks returns how many times the contractor row was locked.
func (s *Store) Locks(contractorID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks[contractorID]
}

func (s *contractorRepo) CreateContractor(ctx context.Context, contractor *types.Contractor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateContractor"); err != nil {
		return err
	}

	for _, c := range s.data.contractors {
		if c.NationalID == contractor.NationalID || c.RegistrationNumber == contractor.RegistrationNumber {
			return types.ErrContractorExists
		}
	}

	if contractor.ID == "" {
		contractor.ID = utils.NanoID()
	}
	now := s.tick()
	contractor.CreatedAt = now
	contractor.UpdatedAt = now
	s.data.contractors[contractor.ID] = *contractor
	return nil
}

func (s *contractorRepo) UpdateContractor(ctx context.Context, contractor *types.Contractor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateContractor"); err != nil {
		return err
	}

	current, ok := s.data.contractors[contractor.ID]
	if !ok {
		return types.ErrContractorNotFound
	}
	for id, c := range s.data.contractors {
		if id != contractor.ID && (c.NationalID == contractor.NationalID || c.RegistrationNumber == contractor.RegistrationNumber) {
			return types.ErrContractorExists
		}
	}

	updated := *contractor
	updated.CompanyStatus = current.CompanyStatus
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = s.tick()
	contractor.UpdatedAt = updated.UpdatedAt
	s.data.contractors[contractor.ID] = updated
	return nil
}

func (s *contractorRepo) Members(ctx context.Context, contractorID string) ([]*types.ContractorMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.data.members,
		func(m types.ContractorMember) bool { return m.ContractorID == contractorID },
		func(a, b *types.ContractorMember) bool { return a.Role < b.Role },
	), nil
}

func (s *contractorRepo) UpsertMember(ctx context.Context, member *types.ContractorMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertMember"); err != nil {
		return err
	}

	for id, m := range s.data.members {
		if m.ContractorID == member.ContractorID && m.Role == member.Role {
			member.ID = id
			member.CreatedAt = m.CreatedAt
			break
		}
	}
	if member.ID == "" {
		member.ID = utils.NanoID()
	}
	now := s.tick()
	if member.CreatedAt.IsZero() {
		member.CreatedAt = now
	}
	member.UpdatedAt = now
	s.data.members[member.ID] = *member
	return nil
}

func (s *contractorRepo) LoginBySubject(ctx context.Context, subject string) (*types.ContractorLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.data.logins[subject]
	if !ok {
		return nil, types.ErrLoginNotFound
	}
	return ptr(l), nil
}

func (s *contractorRepo) UpsertLogin(ctx context.Context, login *types.ContractorLogin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertLogin"); err != nil {
		return err
	}

	now := s.tick()
	if current, ok := s.data.logins[login.Subject]; ok {
		login.CreatedAt = current.CreatedAt
		if login.LastLoginAt == nil {
			login.LastLoginAt = current.LastLoginAt
		}
	} else {
		login.CreatedAt = now
	}
	login.UpdatedAt = now
	s.data.logins[login.Subject] = *login
	return nil
}

// Tasks

func (s *taskRepo) Task(ctx context.Context, taskID string) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data.tasks[taskID]
	if !ok {
		return nil, types.ErrTaskNotFound
	}
	return ptr(t), nil
}

func (s *taskRepo) TaskHistory(ctx context.Context, entityType types.TaskEntityType, entityID string) ([]*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("TaskHistory"); err != nil {
		return nil, err
	}

	return sortedValues(s.data.tasks,
		func(t types.Task) bool { return t.EntityType == entityType && t.EntityID == entityID },
		func(a, b *types.Task) bool { return a.CreatedAt.After(b.CreatedAt) },
	), nil
}

func (s *taskRepo) LatestTask(ctx context.Context, entityType types.TaskEntityType, entityID string) (*types.Task, error) {
	tasks, err := s.TaskHistory(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, types.ErrTaskNotFound
	}
	return tasks[0], nil
}

func (s *taskRepo) CreateTask(ctx context.Context, task *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateTask"); err != nil {
		return err
	}

	if task.Status.IsOpen() {
		for _, t := range s.data.tasks {
			if t.EntityType == task.EntityType && t.EntityID == task.EntityID && t.Status.IsOpen() {
				return types.ErrAccountLocked
			}
		}
	}

	if task.ID == "" {
		task.ID = utils.NanoID()
	}
	task.CreatedAt = s.tick()
	if task.ActionDate.IsZero() {
		task.ActionDate = task.CreatedAt
	}
	s.data.tasks[task.ID] = *task
	return nil
}

func (s *taskRepo) UpdateTaskStatus(ctx context.Context, task *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data.tasks[task.ID]
	if !ok {
		return types.ErrTaskNotFound
	}
	current.Status = task.Status
	current.RejectionReason = task.RejectionReason
	current.Reviewer = task.Reviewer
	current.ActionDate = task.ActionDate
	s.data.tasks[task.ID] = current
	return nil
}

// SetTaskStatus is a shortcut for tests standing in for a reviewer.
func (s *Store) SetTaskStatus(taskID string, status types.TaskStatus, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.data.tasks[taskID]
	t.Status = status
	t.RejectionReason = utils.NilIfBlank(reason)
	s.data.tasks[taskID] = t
}

// Certificates

func (s *certificateRepo) ActiveCertificate(ctx context.Context, contractorID string, slot types.CertificateSlot) (*types.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.data.certificates {
		if c.ContractorID == contractorID && c.IsActive && c.Slot() == slot {
			return ptr(c), nil
		}
	}
	return nil, types.ErrCertificateNotFound
}

func (s *certificateRepo) ActiveCertificates(ctx context.Context, contractorID string) ([]*types.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.data.certificates,
		func(c types.Certificate) bool { return c.ContractorID == contractorID && c.IsActive },
		func(a, b *types.Certificate) bool {
			if a.Type != b.Type {
				return a.Type < b.Type
			}
			return a.Name < b.Name
		},
	), nil
}

// AllCertificates returns every certificate row of a contractor, active or
// not.
func (s *Store) AllCertificates(contractorID string) []*types.Certificate {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.data.certificates,
		func(c types.Certificate) bool { return c.ContractorID == contractorID },
		func(a, b *types.Certificate) bool { return a.CreatedAt.Before(b.CreatedAt) },
	)
}

func (s *certificateRepo) CreateCertificate(ctx context.Context, certificate *types.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateCertificate"); err != nil {
		return err
	}

	if certificate.IsActive {
		for _, c := range s.data.certificates {
			if c.ContractorID == certificate.ContractorID && c.IsActive && c.Slot() == certificate.Slot() {
				return fmt.Errorf("certificate slot %s/%s already active: %w", certificate.Type, certificate.Name, ErrUniqueViolation)
			}
		}
	}

	if certificate.ID == "" {
		certificate.ID = utils.NanoID()
	}
	now := s.tick()
	certificate.CreatedAt = now
	certificate.UpdatedAt = now
	s.data.certificates[certificate.ID] = *certificate
	return nil
}

func (s *certificateRepo) UpdateCertificate(ctx context.Context, certificate *types.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateCertificate"); err != nil {
		return err
	}

	current, ok := s.data.certificates[certificate.ID]
	if !ok {
		return types.ErrCertificateNotFound
	}
	current.FileID = certificate.FileID
	current.IsActive = certificate.IsActive
	current.UpdatedAt = s.tick()
	certificate.UpdatedAt = current.UpdatedAt
	s.data.certificates[certificate.ID] = current
	return nil
}

// Files

func (s *fileRepo) File(ctx context.Context, fileID string) (*types.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.data.files[fileID]
	if !ok {
		return nil, types.ErrFileNotFound
	}
	return ptr(f), nil
}

// AllFiles returns every file row uploaded by a contractor.
func (s *Store) AllFiles(contractorID string) []*types.File {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.data.files,
		func(f types.File) bool { return f.UploadedBy == contractorID },
		func(a, b *types.File) bool { return a.CreatedAt.Before(b.CreatedAt) },
	)
}

func (s *fileRepo) CreateFile(ctx context.Context, file *types.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateFile"); err != nil {
		return err
	}

	if _, err := types.OwnerOf(file.EntityType, file.EntityID); err != nil {
		return err
	}
	for _, f := range s.data.files {
		if f.StorageKey == file.StorageKey {
			return ErrUniqueViolation
		}
	}

	if file.ID == "" {
		file.ID = utils.NanoID()
	}
	file.CreatedAt = s.tick()
	s.data.files[file.ID] = *file
	return nil
}

func (s *fileRepo) SetFileOwner(ctx context.Context, fileID string, owner types.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetFileOwner"); err != nil {
		return err
	}

	f, ok := s.data.files[fileID]
	if !ok {
		return types.ErrFileNotFound
	}
	f.SetOwner(owner)
	s.data.files[fileID] = f
	return nil
}

func (s *fileRepo) MarkReclaimed(ctx context.Context, fileID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MarkReclaimed"); err != nil {
		return err
	}

	f, ok := s.data.files[fileID]
	if !ok || !f.IsTombstoned() {
		return nil
	}
	f.ReclaimedAt = &at
	s.data.files[fileID] = f
	return nil
}

func (s *fileRepo) RecordReclaimAttempt(ctx context.Context, fileID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("RecordReclaimAttempt"); err != nil {
		return err
	}

	f, ok := s.data.files[fileID]
	if !ok || !f.IsTombstoned() {
		return nil
	}
	f.ReclaimAttemptedAt = &at
	s.data.files[fileID] = f
	return nil
}

func (s *fileRepo) UnreclaimedTombstones(ctx context.Context, limit int) ([]*types.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := sortedValues(s.data.files,
		func(f types.File) bool { return f.IsTombstoned() && f.ReclaimedAt == nil },
		func(a, b *types.File) bool {
			switch {
			case a.ReclaimAttemptedAt == nil && b.ReclaimAttemptedAt != nil:
				return true
			case a.ReclaimAttemptedAt != nil && b.ReclaimAttemptedAt == nil:
				return false
			case a.ReclaimAttemptedAt != nil && !a.ReclaimAttemptedAt.Equal(*b.ReclaimAttemptedAt):
				return a.ReclaimAttemptedAt.Before(*b.ReclaimAttemptedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		},
	)
	if len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// Processes

func (s *processRepo) Process(ctx context.Context, processID string) (*types.PublishedProcess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.data.processes[processID]
	if !ok {
		return nil, types.ErrProcessNotFound
	}
	return ptr(p), nil
}

func (s *processRepo) ProcessByPublicationNumber(ctx context.Context, publicationNumber string) (*types.PublishedProcess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.data.processes {
		if p.PublicationNumber == publicationNumber {
			return ptr(p), nil
		}
	}
	return nil, types.ErrProcessNotFound
}

func (s *processRepo) ProcessesByIDs(ctx context.Context, processIDs []string) ([]*types.PublishedProcess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.PublishedProcess, 0, len(processIDs))
	for _, id := range processIDs {
		if p, ok := s.data.processes[id]; ok {
			out = append(out, ptr(p))
		}
	}
	return out, nil
}

func (s *processRepo) Processes(ctx context.Context, q store.ProcessQuery) ([]*types.PublishedProcess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Processes"); err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	keep := func(p types.PublishedProcess) bool {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.PublicationNumber), search) &&
			!strings.Contains(strings.ToLower(utils.PtrString(p.Description)), search) {
			return false
		}
		if q.ProcessType != "" && p.ProcessType != q.ProcessType {
			return false
		}
		if q.Category != "" && utils.PtrString(p.Category) != q.Category {
			return false
		}
		if q.EndsBefore != nil && (p.SubmissionEndDate == nil || p.SubmissionEndDate.After(*q.EndsBefore)) {
			return false
		}
		return true
	}

	return sortedValues(s.data.processes, keep, func(a, b *types.PublishedProcess) bool {
		switch {
		case a.PublishDate == nil && b.PublishDate == nil:
			return a.PublicationNumber < b.PublicationNumber
		case a.PublishDate == nil:
			return false
		case b.PublishDate == nil:
			return true
		case !a.PublishDate.Equal(*b.PublishDate):
			return a.PublishDate.After(*b.PublishDate)
		}
		return a.PublicationNumber < b.PublicationNumber
	}), nil
}

func (s *processRepo) CreateProcess(ctx context.Context, process *types.PublishedProcess) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.data.processes {
		if p.PublicationNumber == process.PublicationNumber {
			return nil
		}
	}
	if process.ID == "" {
		process.ID = utils.NanoID()
	}
	if process.Status == "" {
		process.Status = types.ProcessStatusOpen
	}
	s.data.processes[process.ID] = *process
	return nil
}

func (s *processRepo) RequiredDocuments(ctx context.Context, processType types.ProcessType) ([]*types.RequiredDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.data.requiredDocs,
		func(d types.RequiredDocument) bool { return d.ProcessType == processType },
		func(a, b *types.RequiredDocument) bool { return a.Position < b.Position },
	), nil
}

func (s *processRepo) CreateRequiredDocument(ctx context.Context, document *types.RequiredDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if document.ID == "" {
		document.ID = utils.NanoID()
	}
	s.data.requiredDocs[document.ID] = *document
	return nil
}

// Payments

func (s *paymentRepo) CompletedPurchase(ctx context.Context, contractorID, processID string) (*types.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.data.payments {
		if p.ContractorID == contractorID && p.ProcessID == processID &&
			p.TransactionType == types.TransactionTypeDocumentPurchase && p.Status == types.PaymentStatusCompleted {
			return ptr(p), nil
		}
	}
	return nil, types.ErrNotPurchased
}

func (s *paymentRepo) Purchases(ctx context.Context, contractorID string) ([]*types.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.data.payments,
		func(p types.PaymentTransaction) bool { return p.ContractorID == contractorID },
		func(a, b *types.PaymentTransaction) bool { return a.CreatedAt.After(b.CreatedAt) },
	), nil
}

func (s *paymentRepo) CreateTransaction(ctx context.Context, payment *types.PaymentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateTransaction"); err != nil {
		return err
	}

	if payment.TransactionType == types.TransactionTypeDocumentPurchase && payment.Status == types.PaymentStatusCompleted {
		for _, p := range s.data.payments {
			if p.ContractorID == payment.ContractorID && p.ProcessID == payment.ProcessID &&
				p.TransactionType == payment.TransactionType && p.Status == types.PaymentStatusCompleted {
				return types.ErrAlreadyPurchased
			}
		}
	}

	if payment.ID == "" {
		payment.ID = utils.NanoID()
	}
	payment.CreatedAt = s.tick()
	s.data.payments[payment.ID] = *payment
	return nil
}

// PaymentCount counts the payments of a contractor for a process.
func (s *Store) PaymentCount(contractorID, processID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, p := range s.data.payments {
		if p.ContractorID == contractorID && p.ProcessID == processID {
			n++
		}
	}
	return n
}

// Submissions

func draftKey(contractorID, processID, requiredDocumentID string) string {
	return contractorID + "/" + processID + "/" + requiredDocumentID
}

func (s *submissionRepo) Drafts(ctx context.Context, contractorID, processID string) ([]*types.DocumentDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.data.drafts,
		func(d types.DocumentDraft) bool { return d.ContractorID == contractorID && d.ProcessID == processID },
		func(a, b *types.DocumentDraft) bool { return a.RequiredDocumentID < b.RequiredDocumentID },
	), nil
}

func (s *submissionRepo) Draft(ctx context.Context, contractorID, processID, requiredDocumentID string) (*types.DocumentDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.data.drafts[draftKey(contractorID, processID, requiredDocumentID)]
	if !ok {
		return nil, types.ErrDraftNotFound
	}
	return ptr(d), nil
}

func (s *submissionRepo) UpsertDraft(ctx context.Context, draft *types.DocumentDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertDraft"); err != nil {
		return err
	}

	key := draftKey(draft.ContractorID, draft.ProcessID, draft.RequiredDocumentID)
	now := s.tick()
	if current, ok := s.data.drafts[key]; ok {
		draft.ID = current.ID
		draft.CreatedAt = current.CreatedAt
	} else {
		if draft.ID == "" {
			draft.ID = utils.NanoID()
		}
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now
	s.data.drafts[key] = *draft
	return nil
}

func (s *submissionRepo) ActiveSubmission(ctx context.Context, contractorID, processID string) (*types.ProcessSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.data.submissions {
		if sub.ContractorID == contractorID && sub.ProcessID == processID && sub.Status != types.SubmissionStatusCancelled {
			return ptr(sub), nil
		}
	}
	return nil, types.ErrSubmissionNotFound
}

func (s *submissionRepo) Submission(ctx context.Context, submissionID string) (*types.ProcessSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.data.submissions[submissionID]
	if !ok {
		return nil, types.ErrSubmissionNotFound
	}
	return ptr(sub), nil
}

func (s *submissionRepo) Submissions(ctx context.Context, contractorID string) ([]*types.ProcessSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.data.submissions,
		func(sub types.ProcessSubmission) bool { return sub.ContractorID == contractorID },
		func(a, b *types.ProcessSubmission) bool { return a.SubmittedAt.After(b.SubmittedAt) },
	), nil
}

func (s *submissionRepo) CreateSubmission(ctx context.Context, submission *types.ProcessSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateSubmission"); err != nil {
		return err
	}

	if submission.Status != types.SubmissionStatusCancelled {
		for _, sub := range s.data.submissions {
			if sub.ContractorID == submission.ContractorID && sub.ProcessID == submission.ProcessID &&
				sub.Status != types.SubmissionStatusCancelled {
				return types.ErrDuplicateSubmission
			}
		}
	}

	if submission.ID == "" {
		submission.ID = utils.NanoID()
	}
	now := s.tick()
	submission.SubmittedAt = now
	submission.UpdatedAt = now
	s.data.submissions[submission.ID] = *submission
	return nil
}

func (s *submissionRepo) UpdateSubmissionStatus(ctx context.Context, submission *types.ProcessSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data.submissions[submission.ID]
	if !ok {
		return types.ErrSubmissionNotFound
	}
	current.Status = submission.Status
	current.ReviewNote = submission.ReviewNote
	current.UpdatedAt = s.tick()
	s.data.submissions[submission.ID] = current
	return nil
}

func (s *submissionRepo) CreateSubmittedDocument(ctx context.Context, document *types.SubmittedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateSubmittedDocument"); err != nil {
		return err
	}

	if document.ID == "" {
		document.ID = utils.NanoID()
	}
	document.CreatedAt = s.tick()
	s.data.submittedDocs[document.ID] = *document
	return nil
}

func (s *submissionRepo) SubmittedDocuments(ctx context.Context, submissionID string) ([]*types.SubmittedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.data.submittedDocs,
		func(d types.SubmittedDocument) bool { return d.SubmissionID == submissionID },
		func(a, b *types.SubmittedDocument) bool { return a.RequiredDocumentID < b.RequiredDocumentID },
	), nil
}

// Evaluations

func (s *evaluationRepo) ProcessEvaluations(ctx context.Context, processID string) ([]*types.ProcessEvaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.data.evaluations,
		func(e types.ProcessEvaluation) bool { return e.ProcessID == processID },
		func(a, b *types.ProcessEvaluation) bool { return a.ID < b.ID },
	), nil
}

func (s *evaluationRepo) Template(ctx context.Context, templateID string) (*types.EvaluationTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data.templates[templateID]
	if !ok {
		return nil, types.ErrTemplateNotFound
	}
	return ptr(t), nil
}

func (s *evaluationRepo) Criteria(ctx context.Context, templateID string) ([]*types.EvaluationCriterion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.data.criteria,
		func(c types.EvaluationCriterion) bool { return c.TemplateID == templateID },
		func(a, b *types.EvaluationCriterion) bool { return a.Position < b.Position },
	), nil
}

func responseKey(processEvaluationID, criterionID, contractorID string) string {
	return processEvaluationID + "/" + criterionID + "/" + contractorID
}

func (s *evaluationRepo) Responses(ctx context.Context, contractorID string, processEvaluationIDs []string) ([]*types.EvaluationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(processEvaluationIDs))
	for _, id := range processEvaluationIDs {
		wanted[id] = true
	}

	return sortedValues(s.data.responses,
		func(r types.EvaluationResponse) bool {
			return r.ContractorID == contractorID && wanted[r.ProcessEvaluationID]
		},
		func(a, b *types.EvaluationResponse) bool { return a.CriterionID < b.CriterionID },
	), nil
}

func (s *evaluationRepo) Response(ctx context.Context, contractorID, processEvaluationID, criterionID string) (*types.EvaluationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.data.responses[responseKey(processEvaluationID, criterionID, contractorID)]
	if !ok {
		return nil, types.ErrResponseNotFound
	}
	return ptr(r), nil
}

func (s *evaluationRepo) UpsertResponse(ctx context.Context, response *types.EvaluationResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertResponse"); err != nil {
		return err
	}

	key := responseKey(response.ProcessEvaluationID, response.CriterionID, response.ContractorID)
	now := s.tick()
	if current, ok := s.data.responses[key]; ok {
		response.ID = current.ID
		response.CreatedAt = current.CreatedAt
	} else {
		if response.ID == "" {
			response.ID = utils.NanoID()
		}
		response.CreatedAt = now
	}
	response.UpdatedAt = now
	s.data.responses[key] = *response
	return nil
}

func (s *evaluationRepo) CreateTemplate(ctx context.Context, template *types.EvaluationTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if template.ID == "" {
		template.ID = utils.NanoID()
	}
	s.data.templates[template.ID] = *template
	return nil
}

func (s *evaluationRepo) CreateCriterion(ctx context.Context, criterion *types.EvaluationCriterion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if criterion.ID == "" {
		criterion.ID = utils.NanoID()
	}
	s.data.criteria[criterion.ID] = *criterion
	return nil
}

func (s *evaluationRepo) CreateProcessEvaluation(ctx context.Context, evaluation *types.ProcessEvaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if evaluation.ID == "" {
		evaluation.ID = utils.NanoID()
	}
	s.data.evaluations[evaluation.ID] = *evaluation
	return nil
}

var _ portal.Store = (*Store)(nil)
