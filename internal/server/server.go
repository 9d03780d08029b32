package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"naktender/internal/identity"
	"naktender/internal/portal"
	"naktender/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

// Authenticator exchanges credentials for an access token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*identity.Session, error)
}

// TokenVerifier returns the subject of a valid access token.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (string, error)
}

type Service struct {
	logger *logrus.Logger
	config *types.Config
	portal *portal.Service

	auth   Authenticator
	tokens TokenVerifier
	cookie *securecookie.SecureCookie
	health func(ctx context.Context) error

	handler http.Handler
	server  *http.Server
}

type Option func(*Service)

// WithHealthCheck makes /healthz report 503 while check fails.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(s *Service) {
		s.health = check
	}
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	portal *portal.Service,
	auth Authenticator,
	tokens TokenVerifier,
	opts ...Option,
) (*Service, error) {
	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie hash key: %w", err)
	}
	if len(hashKey) < 32 {
		return nil, errors.New("cookie hash key must be at least 32 bytes")
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie block key: %w", err)
	}

	mux := flow.New()

	s := &Service{
		logger: logger,
		config: config,
		portal: portal,
		auth:   auth,
		tokens: tokens,
		cookie: securecookie.New(hashKey, blockKey),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.buildRouter(mux)

	// Routes never match a trailing slash, so the redirect wraps the mux.
	s.handler = s.StripTrailingSlash(mux)
	s.server.Handler = s.handler

	return s, nil
}

func (s *Service) Handler() http.Handler {
	return s.handler
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/register", s.handlePostRegister, http.MethodPost)
	r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/logout", s.handlePostLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireReferer)

		r.HandleFunc("/published-processes", s.handleListProcesses, http.MethodGet)
		r.HandleFunc("/published-processes/:publicationNumber", s.handleGetProcess, http.MethodGet)
	})

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/account/status", s.handleGetAccountStatus, http.MethodGet)
		r.HandleFunc("/account/profile", s.handleGetProfile, http.MethodGet)
		r.HandleFunc("/account/submit", s.handlePostAccountSubmit, http.MethodPost)
		r.HandleFunc("/account/edit", s.handlePostAccountEdit, http.MethodPost)
		r.HandleFunc("/account/upload", s.handlePostAccountUpload, http.MethodPost)
		r.HandleFunc("/account/delete-file", s.handlePostAccountDeleteFile, http.MethodPost)

		r.HandleFunc("/participate/purchase", s.handleGetPurchase, http.MethodGet)
		r.HandleFunc("/participate/purchase", s.handlePostPurchase, http.MethodPost)
		r.HandleFunc("/participate/status", s.handleGetParticipationStatus, http.MethodGet)
		r.HandleFunc("/participate/document", s.handlePostDocument, http.MethodPost)
		r.HandleFunc("/participate/submit", s.handlePostSubmit, http.MethodPost)
		r.HandleFunc("/participate/submissions", s.handleGetSubmissions, http.MethodGet)
		r.HandleFunc("/participate/evaluation-forms", s.handleGetParticipationForms, http.MethodGet)
		r.HandleFunc("/participate/evaluation-forms", s.handlePostEvaluationForms, http.MethodPost)

		r.HandleFunc("/evaluation-forms/:processID", s.handleGetEvaluationForms, http.MethodGet)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.WithError(err).Warn("health check failed")
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) principalFromContext(ctx context.Context) (*types.Principal, error) {
	principal, ok := ctx.Value(contextKeyPrincipal).(*types.Principal)
	if !ok {
		return nil, types.ErrUnauthenticated
	}
	return principal, nil
}
