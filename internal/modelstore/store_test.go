package modelstore

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-sod/pqm/internal/regression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	dir := t.TempDir()
	return &Config{
		CoefficientsPath: filepath.Join(dir, "linear_model.json"),
		ArtifactPath:     filepath.Join(dir, "model.bin"),
	}
}

func TestLoadSourcePrecedence(t *testing.T) {
	tests := []struct {
		name           string
		prepare        func(t *testing.T, cfg *Config)
		expectedSource Source
		expectedName   string
	}{
		{
			name:           "nothing_on_disk",
			prepare:        func(t *testing.T, cfg *Config) {},
			expectedSource: SourceNone,
			expectedName:   NameDummy,
		},
		{
			name: "artifact_only",
			prepare: func(t *testing.T, cfg *Config) {
				require.NoError(t, regression.WriteArtifactFile(cfg.ArtifactPath, regression.NewModel(1, 2, 3)))
			},
			expectedSource: SourceArtifact,
			expectedName:   NameArtifact,
		},
		{
			name: "structured_wins",
			prepare: func(t *testing.T, cfg *Config) {
				require.NoError(t, regression.WriteArtifactFile(cfg.ArtifactPath, regression.NewModel(1, 2, 3)))
				require.NoError(t, regression.WriteCoefficientFile(cfg.CoefficientsPath, regression.NewModel(4, 5, 6)))
			},
			expectedSource: SourceStructured,
			expectedName:   NameLinear,
		},
		{
			name: "malformed_structured_falls_back",
			prepare: func(t *testing.T, cfg *Config) {
				require.NoError(t, os.WriteFile(cfg.CoefficientsPath, []byte("{"), 0o600))
				require.NoError(t, regression.WriteArtifactFile(cfg.ArtifactPath, regression.NewModel(1, 2, 3)))
			},
			expectedSource: SourceArtifact,
			expectedName:   NameArtifact,
		},
		{
			name: "malformed_everything",
			prepare: func(t *testing.T, cfg *Config) {
				require.NoError(t, os.WriteFile(cfg.CoefficientsPath, []byte(`{"intercept": 1}`), 0o600))
				require.NoError(t, os.WriteFile(cfg.ArtifactPath, []byte("junk"), 0o600))
			},
			expectedSource: SourceNone,
			expectedName:   NameDummy,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := testConfig(t)
			test.prepare(t, cfg)
			s := New(cfg)
			got := s.Load(context.Background())
			if got.Source != test.expectedSource || got.Name != test.expectedName {
				t.Errorf("load, got: %s/%s, expected: %s/%s", got.Source, got.Name, test.expectedSource, test.expectedName)
			}
			assert.Same(t, got, s.Current())
		})
	}
}

func TestDummyPredictor(t *testing.T) {
	s := New(testConfig(t))
	snap := s.Current()
	assert.False(t, snap.HasModel())
	assert.Equal(t, 14.0, snap.Predict(10, 18))
	assert.Equal(t, 15.0, snap.Predict(10, 20))
	assert.Equal(t, 1e308, snap.Predict(1e308, 1e308))
	assert.Equal(t, math.MaxFloat64, snap.Predict(math.MaxFloat64, math.MaxFloat64))
	assert.Empty(t, snap.Fingerprint())
}

func TestReplacePersistsAndSwaps(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg)
	before := s.Current()

	m := regression.NewModel(100, 0.1, -1)
	snap, err := s.Replace(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, SourceStructured, snap.Source)
	assert.Equal(t, NameLinear, snap.Name)
	assert.Equal(t, 100+80-10.0, s.Current().Predict(800, 10))

	// Readers holding the previous snapshot keep a consistent view.
	assert.Equal(t, 405.0, before.Predict(800, 10))

	reloaded := New(cfg).Load(context.Background())
	assert.Equal(t, SourceStructured, reloaded.Source)
	assert.Equal(t, m.Coefficients, reloaded.Model.Coefficients)

	_, err = os.Stat(cfg.ArtifactPath)
	assert.NoError(t, err)
}

func TestReplaceFailureKeepsModel(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	s := New(&Config{CoefficientsPath: filepath.Join(blocker, "model.json")})
	_, err := s.Replace(context.Background(), regression.NewModel(1, 1, 1))
	require.Error(t, err)
	assert.False(t, s.Current().HasModel())

	_, err = s.Replace(context.Background(), nil)
	assert.Error(t, err)
}

func TestConcurrentReadersDuringReplace(t *testing.T) {
	s := New(&Config{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				snap := s.Current()
				got := snap.Predict(2, 4)
				if snap.HasModel() && got != snap.Model.Predict(2, 4) {
					t.Errorf("torn read")
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		_, err := s.Replace(context.Background(), regression.NewModel(float64(i), 1, 1))
		require.NoError(t, err)
	}
	wg.Wait()
}
