package performance

type Config struct {
	MAEThreshold float64 `envconfig:"PQM_PERFORMANCE_MAE_THRESHOLD" default:"15"`
	SampleSize   int     `envconfig:"PQM_PERFORMANCE_SAMPLE_SIZE" default:"20"`
}
