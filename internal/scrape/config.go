package scrape

import (
	"encoding/json"
	"time"

	"github.com/go-sod/pqm/internal/httputil"
)

type Config struct {
	Targets Targets `envconfig:"PQM_SCRAPE_TARGETS"`
	// Interval 0 disables scraping.
	Interval             time.Duration `envconfig:"PQM_SCRAPE_INTERVAL" default:"0"`
	MaxConcurrentRequest int           `envconfig:"PQM_SCRAPE_MAX_CONCURRENT_REQUEST" default:"8"`
	RequestTimeout       time.Duration `envconfig:"PQM_SCRAPE_REQUEST_TIMEOUT" default:"10s"`
}

func (c *Config) Enabled() bool {
	return c.Interval > 0 && len(c.Targets) > 0
}

type Targets []Target

func (ts *Targets) Decode(value string) error {
	targets := []Target{}
	if err := json.Unmarshal([]byte(value), &targets); err != nil {
		return err
	}
	*ts = targets
	return nil
}

// Target is a sensor gateway answering GET with a telemetry batch.
type Target struct {
	URL        string                     `json:"url"`
	Name       string                     `json:"name"`
	HTTPConfig *httputil.HTTPClientConfig `json:"httpConfig,omitempty"`
}
