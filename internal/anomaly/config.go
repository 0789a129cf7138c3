package anomaly

type Config struct {
	DangerThreshold   float64 `envconfig:"PQM_DANGER_THRESHOLD" default:"190"`
	Window            int     `envconfig:"PQM_ANOMALY_WINDOW" default:"20"`
	Lookback          int     `envconfig:"PQM_ANOMALY_LOOKBACK" default:"50"`
	DefectRatio       float64 `envconfig:"PQM_ANOMALY_DEFECT_RATIO" default:"0.3"`
	Consecutive       int     `envconfig:"PQM_ANOMALY_CONSECUTIVE" default:"3"`
	OutlierMinSamples int     `envconfig:"PQM_OUTLIER_MIN_SAMPLES" default:"5"`
	OutlierSigma      float64 `envconfig:"PQM_OUTLIER_SIGMA" default:"2"`
}

// DefaultConfig mirrors the envconfig defaults.
func DefaultConfig() Config {
	return Config{
		DangerThreshold:   190,
		Window:            20,
		Lookback:          50,
		DefectRatio:       0.3,
		Consecutive:       3,
		OutlierMinSamples: 5,
		OutlierSigma:      2,
	}
}
