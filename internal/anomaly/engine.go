// Package anomaly evaluates the recent prediction stream against defect rules.
package anomaly

import (
	"fmt"
	"math"

	"github.com/go-sod/pqm/pkg/math/vector"
)

type Rule string

const (
	RuleDefectRatio       Rule = "defect_ratio"
	RuleConsecutiveDefect Rule = "consecutive_defect"
)

// Anomaly is one fired rule. Fields a rule does not produce stay nil.
type Anomaly struct {
	Rule              Rule     `json:"rule"`
	Message           string   `json:"message"`
	DefectRatio       *float64 `json:"defect_ratio,omitempty"`
	DefectCount       *int     `json:"defect_count,omitempty"`
	WindowSize        *int     `json:"window_size,omitempty"`
	ConsecutiveDefect *int     `json:"consecutive_defect,omitempty"`
	RecentAvg         float64  `json:"recent_avg"`
}

// Outlier describes a value far from the recent prediction mean.
type Outlier struct {
	Value   float64 `json:"value"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Message string  `json:"message"`
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

type Engine struct {
	cfg Config
}

func (e *Engine) Config() Config {
	return e.cfg
}

// IsDanger reports whether a predicted value falls below the danger threshold.
func (e *Engine) IsDanger(value float64) bool {
	return value < e.cfg.DangerThreshold
}

// Evaluate runs the defect-ratio and consecutive-defect rules over values
// ordered oldest first. The ratio rule sees the newest Window values, the
// consecutive rule sees all of them.
func (e *Engine) Evaluate(values vector.V) []Anomaly {
	if values.Len() == 0 || values.Len() < e.cfg.Consecutive {
		return nil
	}

	var anomalies []Anomaly
	window := values.Tail(e.cfg.Window)
	recentAvg := window.Mean()

	defectCount := window.CountBelow(e.cfg.DangerThreshold)
	ratio := float64(defectCount) / float64(window.Len())
	if ratio >= e.cfg.DefectRatio {
		size := window.Len()
		anomalies = append(anomalies, Anomaly{
			Rule: RuleDefectRatio,
			Message: fmt.Sprintf(
				"anomaly: defect ratio %.1f%% over the last %d predictions (threshold %.0f%%)",
				ratio*100, size, e.cfg.DefectRatio*100,
			),
			DefectRatio: &ratio,
			DefectCount: &defectCount,
			WindowSize:  &size,
			RecentAvg:   recentAvg,
		})
	}

	run := values.RunBelowFromEnd(e.cfg.DangerThreshold)
	if run >= e.cfg.Consecutive {
		anomalies = append(anomalies, Anomaly{
			Rule:              RuleConsecutiveDefect,
			Message:           fmt.Sprintf("anomaly: %d consecutive defects (threshold %d)", run, e.cfg.Consecutive),
			ConsecutiveDefect: &run,
			RecentAvg:         recentAvg,
		})
	}
	return anomalies
}

// Outlier checks value against history, the predictions recorded before it.
// Short or flat histories never flag.
func (e *Engine) Outlier(history vector.V, value float64) (Outlier, bool) {
	if history.Len() < e.cfg.OutlierMinSamples {
		return Outlier{}, false
	}
	mean, std := history.PopMeanStdDev()
	if std <= 0 || math.Abs(value-mean) <= e.cfg.OutlierSigma*std {
		return Outlier{}, false
	}
	return Outlier{
		Value: value,
		Mean:  mean,
		Std:   std,
		Message: fmt.Sprintf(
			"prediction %.1f deviates strongly from the recent mean (%.1f)", value, mean,
		),
	}, true
}

// Payload is the alert payload for a check that fired; the first anomaly
// supplies the summary fields.
func Payload(anomalies []Anomaly) map[string]interface{} {
	if len(anomalies) == 0 {
		return nil
	}
	first := anomalies[0]
	payload := map[string]interface{}{
		"anomalies":          anomalies,
		"recent_avg":         first.RecentAvg,
		"defect_ratio":       nil,
		"consecutive_defect": nil,
	}
	if first.DefectRatio != nil {
		payload["defect_ratio"] = *first.DefectRatio
	}
	if first.ConsecutiveDefect != nil {
		payload["consecutive_defect"] = *first.ConsecutiveDefect
	}
	return payload
}
