// Package srvenv holds the shared resources and provider functions the server
// binary is assembled from.
package srvenv

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-sod/pqm/internal/alert"
	"github.com/go-sod/pqm/internal/database"
	"github.com/go-sod/pqm/internal/modelstore"
	"github.com/go-sod/pqm/internal/poll"
	"github.com/go-sod/pqm/internal/quality"
	"github.com/go-sod/pqm/internal/repository"
	"github.com/go-sod/pqm/internal/scrape"
	"go.uber.org/zap"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	logger     *zap.SugaredLogger
	database   *database.DB
	repository repository.Repository
	// closes the repository when it is not backed by database
	repoCloser io.Closer
	models     *modelstore.Store
	notifier   alert.ProvideFn
	quality    quality.ProvideFn
	poller     poll.ProvideFn
	scrapper   scrape.ProvideFn
}

func (s *SrvEnv) Logger() *zap.SugaredLogger {
	return s.logger
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

func (s *SrvEnv) Repository() repository.Repository {
	return s.repository
}

func (s *SrvEnv) ModelStore() *modelstore.Store {
	return s.models
}

func (s *SrvEnv) ProvideNotifier() alert.ProvideFn {
	return s.notifier
}

func (s *SrvEnv) ProvideQuality() quality.ProvideFn {
	return s.quality
}

// ProvidePoller is nil when no poll interval is configured.
func (s *SrvEnv) ProvidePoller() poll.ProvideFn {
	return s.poller
}

// ProvideScrapper is nil when scraping is disabled.
func (s *SrvEnv) ProvideScrapper() scrape.ProvideFn {
	return s.scrapper
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.logger = logger
		return s
	}
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		return s
	}
}

// WithRepository sets the repository. closer may be nil.
func WithRepository(repo repository.Repository, closer io.Closer) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.repository = repo
		s.repoCloser = closer
		return s
	}
}

func WithModelStore(m *modelstore.Store) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.models = m
		return s
	}
}

func WithNotifier(fn alert.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.notifier = fn
		return s
	}
}

func WithQuality(fn quality.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.quality = fn
		return s
	}
}

func WithPoller(fn poll.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.poller = fn
		return s
	}
}

func WithScrapper(fn scrape.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.scrapper = fn
		return s
	}
}

func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs []error
	if s.repoCloser != nil {
		if err := s.repoCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close repository: %w", err))
		}
	}
	if s.database != nil {
		if err := s.database.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
