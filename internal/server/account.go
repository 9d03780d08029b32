package server

import (
	"net/http"

	"naktender/internal/utils"
	"naktender/pkg/types"
)

func (s *Service) handleGetAccountStatus(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	state, err := s.portal.AccountState(r.Context(), principal.ContractorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, state)
}

func (s *Service) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.portal.Profile(r.Context(), principal.ContractorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Service) handlePostAccountSubmit(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var form types.AccountForm
	if err := utils.NewDecoder(r.Body).Decode(&form); err != nil {
		s.writeError(w, r, badRequest("request body is malformed").Add("body", err.Error()))
		return
	}

	state, err := s.portal.SubmitAccount(r.Context(), *principal, form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, state)
}

func (s *Service) handlePostAccountEdit(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	state, err := s.portal.EditAfterRejection(r.Context(), principal.ContractorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, state)
}

func (s *Service) handlePostAccountUpload(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.limitBody(w, r, 1)
	if err := parseMultipart(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var slot types.CertificateSlot
	if err := formError(decoder.Decode(&slot, r.MultipartForm.Value)); err != nil {
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

	certificate, err := s.portal.UploadCertificate(r.Context(), principal.ContractorID, slot, up)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, certificate)
}

func (s *Service) handlePostAccountDeleteFile(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var slot types.CertificateSlot
	if err := decodeRequest(r, &slot); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.portal.DeleteCertificate(r.Context(), principal.ContractorID, slot); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
