// Package rangecheck flags process inputs outside their recommended envelope.
package rangecheck

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Range is a closed interval for one input feature.
type Range struct {
	Name  string  `toml:"name"`
	Label string  `toml:"label"`
	Unit  string  `toml:"unit"`
	Min   float64 `toml:"min"`
	Max   float64 `toml:"max"`
}

func (r Range) contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

type rangesFile struct {
	Range []Range `toml:"range"`
}

// LoadFile reads ranges from a TOML document of [[range]] tables.
func LoadFile(path string) ([]Range, error) {
	var f rangesFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode ranges file: %w", err)
	}
	return f.Range, nil
}

func New(ranges ...Range) (*Validator, error) {
	for _, r := range ranges {
		if r.Min > r.Max {
			return nil, fmt.Errorf("range %s: min %g is greater than max %g", r.Name, r.Min, r.Max)
		}
	}
	return &Validator{ranges: ranges}, nil
}

// NewFromConfig builds a validator from the ranges file when configured, else
// from the env bounds.
func NewFromConfig(cfg *Config) (*Validator, error) {
	if cfg.RangesFile == "" {
		return New(cfg.Ranges()...)
	}
	ranges, err := LoadFile(cfg.RangesFile)
	if err != nil {
		return nil, err
	}
	return New(ranges...)
}

type Validator struct {
	ranges []Range
}

// Check returns a single warning naming every out-of-range value, in range
// order, or an empty string. Values beyond the configured ranges are ignored.
func (v *Validator) Check(values ...float64) string {
	var warnings []string
	for i, r := range v.ranges {
		if i >= len(values) {
			break
		}
		if r.contains(values[i]) {
			continue
		}
		label := r.Label
		if label == "" {
			label = r.Name
		}
		warnings = append(warnings, fmt.Sprintf(
			"%s %g%s is outside the recommended range (%g~%g%s).",
			label, values[i], r.Unit, r.Min, r.Max, r.Unit,
		))
	}
	return strings.Join(warnings, " ")
}
