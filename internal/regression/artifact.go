package regression

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/davecgh/go-xdr/xdr2"
	"github.com/go-sod/pqm/internal/util"
)

// ErrMalformedArtifact is returned when a model file exists but cannot be decoded.
var ErrMalformedArtifact = errors.New("malformed model artifact")

// coefficients is the structured on-disk format. It is the only format that
// has to stay bit-compatible with other implementations.
type coefficients struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// legacyCoefficients also accepts files written with the short "coef" key.
type legacyCoefficients struct {
	Intercept    *float64  `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Coef         []float64 `json:"coef"`
}

// EncodeCoefficients writes the structured JSON form of m.
func EncodeCoefficients(w io.Writer, m *Model) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(coefficients{
		Intercept:    m.Intercept,
		Coefficients: []float64{m.Coefficients[0], m.Coefficients[1]},
	})
}

// DecodeCoefficients parses the structured JSON form.
func DecodeCoefficients(r io.Reader) (*Model, error) {
	var raw legacyCoefficients
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArtifact, err)
	}
	if raw.Intercept == nil {
		return nil, fmt.Errorf("%w: missing intercept", ErrMalformedArtifact)
	}
	coef := raw.Coefficients
	if coef == nil {
		coef = raw.Coef
	}
	if len(coef) != 2 {
		return nil, fmt.Errorf("%w: expected 2 coefficients, got %d", ErrMalformedArtifact, len(coef))
	}
	return NewModel(*raw.Intercept, coef[0], coef[1]), nil
}

// ReadCoefficientFile loads a structured coefficient file.
func ReadCoefficientFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeCoefficients(f)
}

// WriteCoefficientFile replaces the file at path with the structured form of m.
func WriteCoefficientFile(path string, m *Model) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return EncodeCoefficients(w, m)
	})
}

const artifactMagic = "PQM-LINEAR-1"

// artifact is the opaque predictor snapshot, XDR encoded.
type artifact struct {
	Magic        string
	Intercept    float64
	Coefficients [2]float64
	FittedAt     int64
	SampleSize   uint32
}

// EncodeArtifact writes the opaque binary snapshot of m.
func EncodeArtifact(w io.Writer, m *Model) error {
	a := artifact{
		Magic:        artifactMagic,
		Intercept:    m.Intercept,
		Coefficients: m.Coefficients,
		SampleSize:   uint32(m.SampleSize),
	}
	if !m.FittedAt.IsZero() {
		a.FittedAt = m.FittedAt.UnixNano()
	}
	if _, err := xdr.Marshal(w, &a); err != nil {
		return fmt.Errorf("xdr marshal: %w", err)
	}
	return nil
}

// DecodeArtifact reads an opaque binary snapshot.
func DecodeArtifact(r io.Reader) (*Model, error) {
	var a artifact
	if _, err := xdr.Unmarshal(r, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArtifact, err)
	}
	if a.Magic != artifactMagic {
		return nil, fmt.Errorf("%w: unexpected header %q", ErrMalformedArtifact, a.Magic)
	}
	m := &Model{
		Intercept:    a.Intercept,
		Coefficients: a.Coefficients,
		SampleSize:   int(a.SampleSize),
	}
	if a.FittedAt != 0 {
		m.FittedAt = time.Unix(0, a.FittedAt).UTC()
	}
	return m, nil
}

// ReadArtifactFile loads an opaque snapshot from path.
func ReadArtifactFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeArtifact(f)
}

// WriteArtifactFile replaces the file at path with the opaque snapshot of m.
func WriteArtifactFile(path string, m *Model) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return EncodeArtifact(w, m)
	})
}

func writeFileAtomic(path string, encode func(io.Writer) error) error {
	buf := util.GetBytesBuffer()
	defer util.PutBytesBuffer(buf)
	if err := encode(buf); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename model file: %w", err)
	}
	return nil
}
