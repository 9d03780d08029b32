package server

import (
	"net/http"
	"strings"
	"time"

	"naktender/internal"

	"github.com/sirupsen/logrus"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type loginResponse struct {
	ContractorID string `json:"contractorId"`
	Redirect     string `json:"redirect,omitempty"`
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || req.Password == "" {
		s.writeError(w, r, badRequest("username and password are required"))
		return
	}

	session, err := s.auth.Login(ctx, username, req.Password)
	if err != nil {
		s.logger.WithError(err).WithField("username", username).Info("login failed")
		s.writeError(w, r, err)
		return
	}

	subject, err := s.tokens.Verify(ctx, session.AccessToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	principal, err := s.portal.ResolveLogin(ctx, subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.portal.RecordLogin(ctx, subject); err != nil {
		s.logger.WithError(err).WithField("subject", subject).Warn("failed to record login")
	}

	encryptedToken, err := s.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, session.AccessToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    encryptedToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   session.ExpiresIn,
		Path:     "/",
	})

	resp := loginResponse{ContractorID: principal.ContractorID}

	// Login attempts that follow an unauthenticated GET send the caller back.
	if redirectCookie, err := r.Cookie(internal.COOKIE_REDIRECT_NAME); err == nil {
		resp.Redirect = redirectCookie.Value
		s.clearRedirectCookie(w)
	}

	s.logger.WithFields(logrus.Fields{
		"subject":       subject,
		"contractor_id": principal.ContractorID,
	}).Info("contractor logged in")

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) setRedirectCookie(w http.ResponseWriter, path string, age time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_REDIRECT_NAME,
		Value:    path,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(age.Seconds()),
	})
}

func (s *Service) clearRedirectCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_REDIRECT_NAME,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
