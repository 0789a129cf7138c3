package alert

import (
	"encoding/json"
	"time"

	"github.com/go-sod/pqm/internal/httputil"
)

type Config struct {
	AllowAlerts bool `envconfig:"PQM_ALLOW_ALERTS" default:"true"`
	// WebhookURL is a shortcut for a single unauthenticated webhook target.
	WebhookURL           string        `envconfig:"PQM_ALERT_WEBHOOK_URL"`
	Targets              Targets       `envconfig:"PQM_ALERT_TARGETS"`
	RequestTimeout       time.Duration `envconfig:"PQM_ALERT_REQUEST_TIMEOUT" default:"5s"`
	QueueSize            int           `envconfig:"PQM_ALERT_QUEUE_SIZE" default:"64"`
	MaxConcurrentRequest int           `envconfig:"PQM_ALERT_MAX_CONCURRENT_REQUEST" default:"8"`
	KafkaBrokers         []string      `envconfig:"PQM_ALERT_KAFKA_BROKERS"`
	KafkaTopic           string        `envconfig:"PQM_ALERT_KAFKA_TOPIC" default:"pqm.alerts"`
	RedisAddr            string        `envconfig:"PQM_ALERT_REDIS_ADDR"`
	RedisChannel         string        `envconfig:"PQM_ALERT_REDIS_CHANNEL" default:"pqm:alerts"`
}

// WebhookTargets returns the configured targets plus the WebhookURL shortcut.
func (c *Config) WebhookTargets() Targets {
	targets := append(Targets{}, c.Targets...)
	if c.WebhookURL != "" {
		targets = append(targets, Target{URL: c.WebhookURL, Name: "webhook"})
	}
	return targets
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

type Target struct {
	URL        string                    `json:"url"`
	Name       string                    `json:"name"`
	HTTPConfig httputil.HTTPClientConfig `json:"httpConfig"`
}
