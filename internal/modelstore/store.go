// Package modelstore holds the active regression model and resolves where it
// came from.
package modelstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-sod/pqm/internal/logging"
	"github.com/go-sod/pqm/internal/regression"
)

type Source string

const (
	SourceStructured Source = "structured"
	SourceArtifact   Source = "artifact"
	SourceNone       Source = "none"
)

// Model names recorded with every prediction.
const (
	NameLinear   = "capacity_linear"
	NameArtifact = "capacity_artifact"
	NameDummy    = "dummy_model"
)

// Snapshot is an immutable view of the active model.
type Snapshot struct {
	Model  *regression.Model
	Source Source
	Name   string
}

var noModel = &Snapshot{Source: SourceNone, Name: NameDummy}

func (s *Snapshot) HasModel() bool {
	return s.Model != nil
}

// Predict applies the model. Without a model it returns the mean of the two
// features, halved before adding so finite inputs never overflow.
func (s *Snapshot) Predict(f1, f2 float64) float64 {
	if s.Model == nil {
		return f1/2 + f2/2
	}
	return s.Model.Predict(f1, f2)
}

// Fingerprint identifies the coefficients behind the snapshot, empty for the
// fallback predictor.
func (s *Snapshot) Fingerprint() string {
	if s.Model == nil {
		return ""
	}
	return s.Model.Fingerprint()
}

func New(cfg *Config) *Store {
	s := &Store{cfg: cfg}
	s.current.Store(noModel)
	return s
}

type Store struct {
	cfg *Config
	// mtx serializes writers; readers only touch current.
	mtx     sync.Mutex
	current atomic.Pointer[Snapshot]
}

// Current returns the active snapshot. It never returns nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Load resolves the model source from disk: the structured coefficient file
// first, then the binary artifact, then the fallback predictor. A file that
// exists but cannot be decoded is logged and skipped.
func (s *Store) Load(ctx context.Context) *Snapshot {
	logger := logging.FromContext(ctx)
	s.mtx.Lock()
	defer s.mtx.Unlock()

	snapshot := noModel
	if m, err := readIfPresent(s.cfg.CoefficientsPath, regression.ReadCoefficientFile); err != nil {
		logger.Warnf("skip coefficient file %s: %v", s.cfg.CoefficientsPath, err)
	} else if m != nil {
		snapshot = &Snapshot{Model: m, Source: SourceStructured, Name: NameLinear}
	}

	if !snapshot.HasModel() {
		if m, err := readIfPresent(s.cfg.ArtifactPath, regression.ReadArtifactFile); err != nil {
			logger.Warnf("skip model artifact %s: %v", s.cfg.ArtifactPath, err)
		} else if m != nil {
			snapshot = &Snapshot{Model: m, Source: SourceArtifact, Name: NameArtifact}
		}
	}

	s.current.Store(snapshot)
	logger.Infof("model loaded, source: %s, name: %s", snapshot.Source, snapshot.Name)
	return snapshot
}

// Replace persists m to the coefficient file and then makes it the active
// model. When persisting fails the active model is left untouched.
func (s *Store) Replace(ctx context.Context, m *regression.Model) (*Snapshot, error) {
	if m == nil {
		return nil, errors.New("replace with nil model")
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.cfg.CoefficientsPath != "" {
		if err := regression.WriteCoefficientFile(s.cfg.CoefficientsPath, m); err != nil {
			return nil, fmt.Errorf("persist coefficients: %w", err)
		}
	}
	if s.cfg.ArtifactPath != "" {
		if err := regression.WriteArtifactFile(s.cfg.ArtifactPath, m); err != nil {
			logging.FromContext(ctx).Warnf("unable to write model artifact: %v", err)
		}
	}

	snapshot := &Snapshot{Model: m, Source: SourceStructured, Name: NameLinear}
	s.current.Store(snapshot)
	return snapshot, nil
}

func readIfPresent(path string, read func(string) (*regression.Model, error)) (*regression.Model, error) {
	if path == "" {
		return nil, nil
	}
	m, err := read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return m, err
}
