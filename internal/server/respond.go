package server

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"naktender/internal/utils"
	"naktender/pkg/types"

	"github.com/go-playground/form/v4"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

var (
	forbiddenErrs = []error{
		types.ErrAccountLocked,
		types.ErrNotRejected,
		types.ErrParticipationLocked,
		types.ErrNotPurchased,
		types.ErrProcessClosed,
	}
	notFoundErrs = []error{
		types.ErrContractorNotFound,
		types.ErrTaskNotFound,
		types.ErrProcessNotFound,
		types.ErrDocumentNotFound,
		types.ErrCertificateNotFound,
		types.ErrFileNotFound,
		types.ErrSubmissionNotFound,
		types.ErrCriterionNotFound,
		types.ErrTemplateNotFound,
		types.ErrResponseNotFound,
		types.ErrDraftNotFound,
	}
	conflictErrs = []error{
		types.ErrAlreadyPurchased,
		types.ErrDuplicateSubmission,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor maps a portal error onto its HTTP status.
func statusFor(err error) int {
	var verr *types.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrUnauthenticated), errors.Is(err, types.ErrLoginNotFound):
		return http.StatusUnauthorized
	case isAny(err, forbiddenErrs):
		return http.StatusForbidden
	case isAny(err, notFoundErrs):
		return http.StatusNotFound
	case isAny(err, conflictErrs):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrContractorExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := utils.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

// writeError reports err to the client. Unmapped errors are logged and
// reported as a bare internal server error.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		s.writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}

	resp := errorResponse{Error: err.Error()}
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		resp.Error = verr.Message
		resp.Fields = verr.Fields
	}

	s.writeJSON(w, status, resp)
}

func badRequest(msg string) *types.ValidationError {
	return types.NewValidationError(msg)
}

func isJSON(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

func isMultipart(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return strings.HasPrefix(mediaType, "multipart/")
}

// decodeRequest fills v from a JSON body or from form values.
func decodeRequest(r *http.Request, v any) error {
	if isJSON(r) {
		if err := utils.NewDecoder(r.Body).Decode(v); err != nil {
			return types.NewValidationError("request body is malformed").Add("body", err.Error())
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return types.NewValidationError("request body is malformed").Add("body", err.Error())
	}
	return formError(decoder.Decode(v, r.Form))
}

// formError turns form decoding failures into per-field validation errors.
func formError(err error) error {
	if err == nil {
		return nil
	}

	verr := types.NewValidationError("request body is malformed")

	var decodeErrs form.DecodeErrors
	if errors.As(err, &decodeErrs) {
		for field, fieldErr := range decodeErrs {
			verr.Add(field, fieldErr.Error())
		}
		return verr
	}

	return verr.Add("body", err.Error())
}
