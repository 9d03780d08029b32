package types

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrContractorNotFound  = errors.New("contractor not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrProcessNotFound     = errors.New("process not found")
	ErrDocumentNotFound    = errors.New("required document not found")
	ErrCertificateNotFound = errors.New("no active document for this slot")
	ErrFileNotFound        = errors.New("file not found")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrCriterionNotFound   = errors.New("evaluation criterion not found")
	ErrTemplateNotFound    = errors.New("evaluation template not found")
	ErrResponseNotFound    = errors.New("evaluation response not found")
	ErrDraftNotFound       = errors.New("document draft not found")
	ErrLoginNotFound       = errors.New("login not found")
	ErrContractorExists    = errors.New("a contractor with this national id or registration number already exists")

	ErrUnauthenticated     = errors.New("authentication required")
	ErrAccountLocked       = errors.New("account data is under review and cannot be edited")
	ErrNotRejected         = errors.New("account can only be re-edited after a rejection")
	ErrAlreadyPurchased    = errors.New("documents for this process have already been purchased")
	ErrNotPurchased        = errors.New("documents for this process must be purchased first")
	ErrParticipationLocked = errors.New("participation request has already been submitted")
	ErrDuplicateSubmission = errors.New("a participation request for this process already exists")
	ErrProcessClosed       = errors.New("process is not open for participation")
)

// ValidationError reports malformed or missing user input. It is always
// produced before any write happens.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg, Fields: map[string]string{}}
}

// Add records a field error and returns the receiver for chaining.
func (e *ValidationError) Add(field, msg string) *ValidationError {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
	return e
}

// OrNil returns nil when no field errors were recorded.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
