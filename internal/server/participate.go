package server

import (
	"encoding/json"
	"net/http"

	"naktender/internal/portal"
	"naktender/internal/utils"
	"naktender/pkg/types"
)

type publicationRequest struct {
	PublicationNumber string `json:"publicationNumber" form:"publicationNumber"`
}

type documentRequest struct {
	PublicationNumber  string          `json:"publicationNumber" form:"publicationNumber"`
	RequiredDocumentID string          `json:"requiredDocumentId" form:"requiredDocumentId"`
	Data               json.RawMessage `json:"data" form:"-"`
}

type evaluationAnswersRequest struct {
	PublicationNumber string                   `json:"publicationNumber"`
	Answers           []types.EvaluationAnswer `json:"answers"`
}

type evaluationFileRequest struct {
	PublicationNumber   string `form:"publicationNumber"`
	ProcessEvaluationID string `form:"processEvaluationId"`
	CriterionID         string `form:"criterionId"`
}

func publicationNumber(r *http.Request) string {
	return r.URL.Query().Get("publicationNumber")
}

func (s *Service) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status, err := s.portal.PurchaseStatus(r.Context(), principal.ContractorID, publicationNumber(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Service) handlePostPurchase(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req publicationRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	tx, err := s.portal.PurchaseDocuments(r.Context(), principal.ContractorID, req.PublicationNumber)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, tx)
}

func (s *Service) handleGetParticipationStatus(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.portal.ParticipationStatus(r.Context(), principal.ContractorID, publicationNumber(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, view)
}

// handlePostDocument accepts a JSON payload, or a multipart form whose
// data field carries the payload next to an optional file.
func (s *Service) handlePostDocument(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		req documentRequest
		up  *portal.Upload
	)

	if isMultipart(r) {
		s.limitBody(w, r, 1)
		if err := parseMultipart(r); err != nil {
			s.writeError(w, r, err)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		if err := formError(decoder.Decode(&req, r.MultipartForm.Value)); err != nil {
			s.writeError(w, r, err)
			return
		}
		if data := r.FormValue("data"); data != "" {
			req.Data = json.RawMessage(data)
		}

		upload, closer, err := formUpload(r, "file")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if upload != nil {
			defer closer.Close()
			up = upload
		}
	} else if err := utils.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, badRequest("request body is malformed").Add("body", err.Error()))
		return
	}

	view, err := s.portal.SaveDocument(r.Context(), principal.ContractorID, portal.DocumentInput{
		PublicationNumber:  req.PublicationNumber,
		RequiredDocumentID: req.RequiredDocumentID,
		Data:               req.Data,
		File:               up,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, view)
}

func (s *Service) handlePostSubmit(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req publicationRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	submission, err := s.portal.SubmitParticipation(r.Context(), principal.ContractorID, req.PublicationNumber)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, submission)
}

func (s *Service) handleGetSubmissions(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items, err := s.portal.Submissions(r.Context(), principal.ContractorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, items)
}

func (s *Service) handleGetParticipationForms(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	forms, err := s.portal.EvaluationFormsByPublication(r.Context(), principal.ContractorID, publicationNumber(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, forms)
}

// handlePostEvaluationForms saves JSON answers, or the file of a FILE
// criterion when sent as multipart.
func (s *Service) handlePostEvaluationForms(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if isMultipart(r) {
		s.handleEvaluationFile(w, r, principal)
		return
	}

	var req evaluationAnswersRequest
	if err := utils.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, badRequest("request body is malformed").Add("body", err.Error()))
		return
	}

	forms, err := s.portal.SaveEvaluationResponses(r.Context(), principal.ContractorID, req.PublicationNumber, req.Answers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, forms)
}

func (s *Service) handleEvaluationFile(w http.ResponseWriter, r *http.Request, principal *types.Principal) {
	s.limitBody(w, r, 1)
	if err := parseMultipart(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var req evaluationFileRequest
	if err := formError(decoder.Decode(&req, r.MultipartForm.Value)); err != nil {
		s.writeError(w, r, err)
		return
	}

	up, closer, err := formUpload(r, "file")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if up != nil {
		defer closer.Close()
	}

	response, err := s.portal.UploadEvaluationFile(r.Context(), principal.ContractorID, portal.EvaluationFileInput{
		PublicationNumber:   req.PublicationNumber,
		ProcessEvaluationID: req.ProcessEvaluationID,
		CriterionID:         req.CriterionID,
		File:                up,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Service) handleGetEvaluationForms(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	forms, err := s.portal.EvaluationForms(r.Context(), principal.ContractorID, r.PathValue("processID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, forms)
}
