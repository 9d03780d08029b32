package server

import (
	"net/http"

	"naktender/internal/portal"
	"naktender/pkg/types"
)

// signupFileFields names the multipart field carrying each certificate
// slot on the registration form.
var signupFileFields = []struct {
	field string
	slot  types.CertificateSlot
}{
	{field: "statute", slot: types.CertificateSlots[0]},
	{field: "gazette", slot: types.CertificateSlots[1]},
	{field: "tax", slot: types.CertificateSlots[2]},
	{field: "qualification", slot: types.CertificateSlots[3]},
}

type registerRequest struct {
	types.SignupForm
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

type registerResponse struct {
	ContractorID string `json:"contractorId"`
	Username     string `json:"username"`
}

func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		req     registerRequest
		uploads []portal.CertificateUpload
	)

	if isMultipart(r) {
		s.limitBody(w, r, len(signupFileFields))
		if err := parseMultipart(r); err != nil {
			s.writeError(w, r, err)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		if err := formError(decoder.Decode(&req, r.MultipartForm.Value)); err != nil {
			s.writeError(w, r, err)
			return
		}

		var open closers
		defer open.Close()

		for _, f := range signupFileFields {
			up, closer, err := formUpload(r, f.field)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			if up == nil {
				continue
			}
			open = append(open, closer)
			uploads = append(uploads, portal.CertificateUpload{Slot: f.slot, File: up})
		}
	} else if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		s.writeError(w, r, badRequest("signup form is invalid").Add("confirmPassword", "does not match password"))
		return
	}

	contractor, err := s.portal.Signup(ctx, req.SignupForm, uploads)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	username := ""
	if contractor.Email != nil {
		username = *contractor.Email
	}

	s.writeJSON(w, http.StatusCreated, registerResponse{
		ContractorID: contractor.ID,
		Username:     username,
	})
}
