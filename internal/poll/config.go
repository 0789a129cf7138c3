package poll

import "time"

// Config schedules the periodic quality checks. A zero interval disables the
// corresponding check.
type Config struct {
	AnomalyInterval     time.Duration `envconfig:"PQM_POLL_ANOMALY_INTERVAL" default:"0"`
	PerformanceInterval time.Duration `envconfig:"PQM_POLL_PERFORMANCE_INTERVAL" default:"0"`
}

func (c *Config) Enabled() bool {
	return c.AnomalyInterval > 0 || c.PerformanceInterval > 0
}
