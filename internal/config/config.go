// Package pqm aggregates the configuration of the pqm server.
package pqm

import (
	"github.com/go-sod/pqm/internal/alert"
	"github.com/go-sod/pqm/internal/anomaly"
	"github.com/go-sod/pqm/internal/collect"
	"github.com/go-sod/pqm/internal/database"
	"github.com/go-sod/pqm/internal/equipment"
	"github.com/go-sod/pqm/internal/logging"
	"github.com/go-sod/pqm/internal/modelstore"
	"github.com/go-sod/pqm/internal/monitor"
	"github.com/go-sod/pqm/internal/performance"
	"github.com/go-sod/pqm/internal/poll"
	"github.com/go-sod/pqm/internal/predict"
	"github.com/go-sod/pqm/internal/quality"
	"github.com/go-sod/pqm/internal/rangecheck"
	"github.com/go-sod/pqm/internal/repository"
	"github.com/go-sod/pqm/internal/scrape"
	"github.com/go-sod/pqm/internal/setup"
	"github.com/go-sod/pqm/internal/train"
)

var (
	_ setup.LoggingConfigProvider    = (*Config)(nil)
	_ setup.DatabaseConfigProvider   = (*Config)(nil)
	_ setup.RepositoryConfigProvider = (*Config)(nil)
	_ setup.NotifierConfigProvider   = (*Config)(nil)
	_ setup.QualityConfigProvider    = (*Config)(nil)
	_ setup.PollConfigProvider       = (*Config)(nil)
	_ setup.ScrapeConfigProvider     = (*Config)(nil)
)

type Config struct {
	SrvAddr string `envconfig:"PQM_ADDR" default:":8787"`
	// GRPCAddr serves the gRPC health service, empty disables it.
	GRPCAddr         string `envconfig:"PQM_GRPC_ADDR" default:""`
	MetricsNamespace string `envconfig:"PQM_METRICS_NAMESPACE" default:"pqm"`
	// PprofAddr serves net/http/pprof, empty disables it.
	PprofAddr string `envconfig:"PQM_PPROF_ADDR" default:""`

	Logging     logging.Config
	Database    database.Config
	Repository  repository.Config
	ModelStore  modelstore.Config
	Ranges      rangecheck.Config
	Anomaly     anomaly.Config
	Equipment   equipment.Config
	Performance performance.Config
	Quality     quality.Config
	Alert       alert.Config
	Poll        poll.Config
	Scrape      scrape.Config
	Predict     predict.Config
	Train       train.Config
	Collect     collect.Config
	Monitor     monitor.Config
}

func (c *Config) LoggingConfig() *logging.Config {
	return &c.Logging
}

func (c *Config) DatabaseConfig() *database.Config {
	return &c.Database
}

func (c *Config) RepositoryConfig() *repository.Config {
	return &c.Repository
}

func (c *Config) NotifyConfig() *alert.Config {
	return &c.Alert
}

func (c *Config) ModelStoreConfig() *modelstore.Config {
	return &c.ModelStore
}

func (c *Config) RangesConfig() *rangecheck.Config {
	return &c.Ranges
}

func (c *Config) AnomalyConfig() *anomaly.Config {
	return &c.Anomaly
}

func (c *Config) EquipmentConfig() *equipment.Config {
	return &c.Equipment
}

func (c *Config) PerformanceConfig() *performance.Config {
	return &c.Performance
}

func (c *Config) QualityConfig() *quality.Config {
	return &c.Quality
}

func (c *Config) PollConfig() *poll.Config {
	return &c.Poll
}

func (c *Config) ScrapeConfig() *scrape.Config {
	return &c.Scrape
}
