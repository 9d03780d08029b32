package portal

import (
	"time"

	"naktender/pkg/types"

	"github.com/sirupsen/logrus"
)

const (
	defaultUploadMaxBytes = 5 << 20
	defaultReclaimBatch   = 100
)

// Service implements the contractor facing operations. Every mutating
// operation re-derives its permission from persisted state inside the
// transaction that performs the write.
type Service struct {
	logger   *logrus.Logger
	store    Store
	blobs    BlobStore
	identity IdentityProvider

	uploadMaxBytes int64
	now            func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithIdentityProvider(identity IdentityProvider) Option {
	return func(s *Service) {
		s.identity = identity
	}
}

func New(config *types.Config, logger *logrus.Logger, store Store, blobs BlobStore, opts ...Option) *Service {
	s := &Service{
		logger:         logger,
		store:          store,
		blobs:          blobs,
		uploadMaxBytes: config.UploadMaxBytes,
		now:            time.Now,
	}
	if s.uploadMaxBytes <= 0 {
		s.uploadMaxBytes = defaultUploadMaxBytes
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}
