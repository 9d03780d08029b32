package workflow

import (
	"time"

	"naktender/pkg/types"
)

type StepState string

const (
	StepLocked    StepState = "locked"
	StepActive    StepState = "active"
	StepCompleted StepState = "completed"
)

type StepKind string

const (
	StepPurchase        StepKind = "purchase"
	StepEvaluationForms StepKind = "evaluation_forms"
	StepDocument        StepKind = "document"
	StepSubmitRequest   StepKind = "submit_request"
	StepExpertReview    StepKind = "expert_review"
)

type Step struct {
	Kind       StepKind  `json:"kind"`
	Title      string    `json:"title"`
	DocumentID string    `json:"documentId,omitempty"`
	Mandatory  bool      `json:"mandatory"`
	State      StepState `json:"state"`
}

// ParticipationSnapshot is everything persisted about one contractor's
// participation in one process. It is re-read after every write.
type ParticipationSnapshot struct {
	Process           *types.PublishedProcess
	Purchase          *types.PaymentTransaction
	RequiredDocuments []*types.RequiredDocument
	Drafts            map[string]*types.DocumentDraft
	Forms             []*types.EvaluationForm
	Submission        *types.ProcessSubmission
	Now               time.Time
}

type ParticipationView struct {
	PublicationNumber string                   `json:"publicationNumber"`
	DisplayStatus     types.DisplayStatus      `json:"displayStatus"`
	IsPurchased       bool                     `json:"isPurchased"`
	IsSubmitted       bool                     `json:"isSubmitted"`
	IsEditable        bool                     `json:"isEditable"`
	CanSubmit         bool                     `json:"canSubmit"`
	CurrentStep       int                      `json:"currentStep"`
	Steps             []Step                   `json:"steps"`
	Submission        *types.ProcessSubmission `json:"submission,omitempty"`
}

func (s ParticipationSnapshot) purchased() bool {
	return s.Purchase != nil && s.Purchase.Status == types.PaymentStatusCompleted
}

func (s ParticipationSnapshot) submitted() bool {
	return s.Submission != nil && s.Submission.Status != types.SubmissionStatusCancelled
}

func (s ParticipationSnapshot) open() bool {
	if s.Process == nil {
		return false
	}
	return ProcessStatus(s.Process, s.Now) == types.DisplayStatusOngoing
}

// formsAddressed reports whether every required criterion has an answer.
func (s ParticipationSnapshot) formsAddressed() bool {
	return len(s.unansweredCriteria()) == 0
}

func (s ParticipationSnapshot) unansweredCriteria() []string {
	var missing []string
	for _, form := range s.Forms {
		for _, row := range form.Criteria {
			if row.EvaluationCriterion == nil || !row.IsRequired {
				continue
			}
			if !row.Response.Answered() {
				missing = append(missing, row.ID)
			}
		}
	}
	return missing
}

func (s ParticipationSnapshot) missingDocuments() []string {
	var missing []string
	for _, doc := range s.RequiredDocuments {
		if !doc.IsMandatory {
			continue
		}
		if !s.Drafts[doc.ID].HasValue() {
			missing = append(missing, doc.ID)
		}
	}
	return missing
}

// Participation reduces a snapshot to the wizard view.
func Participation(s ParticipationSnapshot) ParticipationView {
	purchased := s.purchased()
	submitted := s.submitted()

	view := ParticipationView{
		IsPurchased: purchased,
		IsSubmitted: submitted,
		IsEditable:  purchased && !submitted,
		Submission:  s.Submission,
	}
	if s.Process != nil {
		view.PublicationNumber = s.Process.PublicationNumber
		view.DisplayStatus = ProcessStatus(s.Process, s.Now)
	}
	view.CanSubmit = CheckCanSubmit(s) == nil

	steps := make([]Step, 0, len(s.RequiredDocuments)+4)

	purchaseStep := Step{Kind: StepPurchase, Title: "Purchase documents", Mandatory: true, State: StepActive}
	if purchased {
		purchaseStep.State = StepCompleted
	}
	steps = append(steps, purchaseStep)

	formsStep := Step{Kind: StepEvaluationForms, Title: "Evaluation forms", Mandatory: true}
	switch {
	case !purchased:
		formsStep.State = StepLocked
	case submitted || s.formsAddressed():
		formsStep.State = StepCompleted
	default:
		formsStep.State = StepActive
	}
	steps = append(steps, formsStep)

	for _, doc := range s.RequiredDocuments {
		step := Step{Kind: StepDocument, Title: doc.Title, DocumentID: doc.ID, Mandatory: doc.IsMandatory}
		switch {
		case !purchased:
			step.State = StepLocked
		case submitted || s.Drafts[doc.ID].HasValue():
			step.State = StepCompleted
		default:
			step.State = StepActive
		}
		steps = append(steps, step)
	}

	submitStep := Step{Kind: StepSubmitRequest, Title: "Submit request", Mandatory: true}
	switch {
	case submitted:
		submitStep.State = StepCompleted
	case view.CanSubmit:
		submitStep.State = StepActive
	default:
		submitStep.State = StepLocked
	}
	steps = append(steps, submitStep)

	reviewStep := Step{Kind: StepExpertReview, Title: "Expert review", Mandatory: true}
	switch {
	case !submitted:
		reviewStep.State = StepLocked
	case s.Submission.Status.IsFinal():
		reviewStep.State = StepCompleted
	default:
		reviewStep.State = StepActive
	}
	steps = append(steps, reviewStep)

	view.Steps = steps
	view.CurrentStep = len(steps) - 1
	for i, step := range steps {
		if step.State == StepActive {
			view.CurrentStep = i
			break
		}
	}

	return view
}

// CheckCanPurchase guards document purchase.
func CheckCanPurchase(s ParticipationSnapshot) error {
	if s.purchased() {
		return types.ErrAlreadyPurchased
	}
	if s.submitted() {
		return types.ErrParticipationLocked
	}
	if !s.open() {
		return types.ErrProcessClosed
	}
	return nil
}

// CheckEditable guards evaluation answers and document data.
func CheckEditable(s ParticipationSnapshot) error {
	if !s.purchased() {
		return types.ErrNotPurchased
	}
	if s.submitted() {
		return types.ErrParticipationLocked
	}
	if !s.open() {
		return types.ErrProcessClosed
	}
	return nil
}

// CheckCanSubmit guards the participation request itself.
func CheckCanSubmit(s ParticipationSnapshot) error {
	if !s.purchased() {
		return types.ErrNotPurchased
	}
	if s.submitted() {
		return types.ErrDuplicateSubmission
	}
	if !s.open() {
		return types.ErrProcessClosed
	}

	verr := types.NewValidationError("participation request is incomplete")
	for _, id := range s.missingDocuments() {
		verr.Add("document:"+id, "required document is missing")
	}
	for _, id := range s.unansweredCriteria() {
		verr.Add("criterion:"+id, "required evaluation answer is missing")
	}

	return verr.OrNil()
}
