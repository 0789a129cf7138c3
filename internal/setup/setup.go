// Package setup processes the environment and builds the server environment
// from whichever config providers the given config implements.
package setup

import (
	"context"
	"fmt"

	"github.com/go-sod/pqm/internal/alert"
	"github.com/go-sod/pqm/internal/anomaly"
	"github.com/go-sod/pqm/internal/database"
	"github.com/go-sod/pqm/internal/equipment"
	"github.com/go-sod/pqm/internal/logging"
	"github.com/go-sod/pqm/internal/modelstore"
	"github.com/go-sod/pqm/internal/performance"
	"github.com/go-sod/pqm/internal/poll"
	"github.com/go-sod/pqm/internal/quality"
	"github.com/go-sod/pqm/internal/rangecheck"
	"github.com/go-sod/pqm/internal/repository"
	"github.com/go-sod/pqm/internal/repository/sqlstore"
	"github.com/go-sod/pqm/internal/scrape"
	"github.com/go-sod/pqm/internal/srvenv"
	"github.com/kelseyhightower/envconfig"
)

type LoggingConfigProvider interface {
	LoggingConfig() *logging.Config
}

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

type RepositoryConfigProvider interface {
	RepositoryConfig() *repository.Config
}

type NotifierConfigProvider interface {
	NotifyConfig() *alert.Config
}

type QualityConfigProvider interface {
	ModelStoreConfig() *modelstore.Config
	RangesConfig() *rangecheck.Config
	AnomalyConfig() *anomaly.Config
	EquipmentConfig() *equipment.Config
	PerformanceConfig() *performance.Config
	QualityConfig() *quality.Config
}

type PollConfigProvider interface {
	PollConfig() *poll.Config
}

type ScrapeConfigProvider interface {
	ScrapeConfig() *scrape.Config
}

// Setup loads config from the environment and prepares the resources it
// describes. The caller owns the returned env and must Close it.
func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var serverEnvOpts []srvenv.Option
	logger := logging.FromContext(ctx)
	if provider, ok := config.(LoggingConfigProvider); ok {
		logger = logging.NewLoggerFromConfig(provider.LoggingConfig())
		ctx = logging.WithLogger(ctx, logger)
	}
	serverEnvOpts = append(serverEnvOpts, srvenv.WithLogger(logger))

	var (
		db   *database.DB
		repo repository.Repository
	)
	// Resources opened so far are released if a later step fails.
	fail := func(err error) (*srvenv.SrvEnv, error) {
		if cerr := srvenv.New(serverEnvOpts...).Close(ctx); cerr != nil {
			logger.Warnf("setup cleanup: %v", cerr)
		}
		return nil, err
	}

	if provider, ok := config.(DatabaseConfigProvider); ok {
		logger.Info("Configuring database")
		dbFromEnv, err := database.NewFromEnv(ctx, provider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		db = dbFromEnv
		serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))
	}

	if provider, ok := config.(RepositoryConfigProvider); ok {
		cfg := provider.RepositoryConfig()
		logger.Infof("Configuring repository, store: %s", cfg.Store)
		r, opt, err := ProvideRepositoryFor(ctx, cfg, db)
		if err != nil {
			return fail(fmt.Errorf("unable create repository: %w", err))
		}
		repo = r
		serverEnvOpts = append(serverEnvOpts, opt)
	}

	if provider, ok := config.(NotifierConfigProvider); ok {
		logger.Info("Configuring notifier")
		if db == nil {
			return fail(fmt.Errorf("notifier requires the database config"))
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithNotifier(ProvideNotifierFor(provider.NotifyConfig(), db)))
	}

	if provider, ok := config.(QualityConfigProvider); ok {
		logger.Info("Configuring quality service")
		if repo == nil {
			return fail(fmt.Errorf("quality service requires the repository config"))
		}
		models := modelstore.New(provider.ModelStoreConfig())
		models.Load(ctx)
		provideFn, err := ProvideQualityFor(provider, repo, models)
		if err != nil {
			return fail(fmt.Errorf("unable create quality provide function: %w", err))
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithModelStore(models), srvenv.WithQuality(provideFn))
	}

	if provider, ok := config.(PollConfigProvider); ok && provider.PollConfig().Enabled() {
		logger.Info("Configuring poller")
		serverEnvOpts = append(serverEnvOpts, srvenv.WithPoller(ProvidePollerFor(provider.PollConfig())))
	}

	if provider, ok := config.(ScrapeConfigProvider); ok && provider.ScrapeConfig().Enabled() {
		logger.Info("Configuring scrapper")
		serverEnvOpts = append(serverEnvOpts, srvenv.WithScrapper(ProvideScrapperFor(provider.ScrapeConfig())))
	}

	return srvenv.New(serverEnvOpts...), nil
}

// ProvideRepositoryFor opens the configured store. The bolt store reuses db.
func ProvideRepositoryFor(ctx context.Context, cfg *repository.Config, db *database.DB) (repository.Repository, srvenv.Option, error) {
	switch cfg.Store {
	case repository.StoreBolt, "":
		if db == nil {
			return nil, nil, fmt.Errorf("bolt store requires the database config")
		}
		repo := repository.NewBolt(db)
		return repo, srvenv.WithRepository(repo, nil), nil
	case repository.StorePostgres, repository.StoreSQLite:
		if cfg.DSN == "" {
			return nil, nil, fmt.Errorf("store %s requires PQM_DB_DSN", cfg.Store)
		}
		driver := sqlstore.DriverPostgres
		if cfg.Store == repository.StoreSQLite {
			driver = sqlstore.DriverSQLite
		}
		store, err := sqlstore.Open(ctx, driver, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, srvenv.WithRepository(store, store), nil
	default:
		return nil, nil, fmt.Errorf("unknown store type: %s", cfg.Store)
	}
}

func ProvideNotifierFor(cfg *alert.Config, db *database.DB) alert.ProvideFn {
	return func(shutdownCh chan<- error) (alert.Manager, error) {
		sinks, err := alert.NewSinks(cfg)
		if err != nil {
			return nil, fmt.Errorf("unable create alert sinks: %w", err)
		}
		m, err := alert.New(
			db,
			shutdownCh,
			alert.WithMaxConcurrentRequest(cfg.MaxConcurrentRequest),
			alert.WithRequestTimeout(cfg.RequestTimeout),
			alert.WithQueueSize(cfg.QueueSize),
			alert.WithSinks(sinks...),
		)
		if err != nil {
			_ = alert.CloseSinks(sinks)
			return nil, err
		}
		return m, nil
	}
}

func ProvideQualityFor(provider QualityConfigProvider, repo repository.Repository, models quality.ModelStore) (quality.ProvideFn, error) {
	ranges, err := rangecheck.NewFromConfig(provider.RangesConfig())
	if err != nil {
		return nil, fmt.Errorf("input ranges: %w", err)
	}
	anomalyCfg := *provider.AnomalyConfig()
	return func(notifier alert.Notifier) (*quality.Service, error) {
		return quality.New(
			repo,
			models,
			notifier,
			quality.WithRanges(ranges),
			quality.WithEngine(anomaly.New(anomalyCfg)),
			quality.WithEstimator(equipment.NewEstimator(provider.EquipmentConfig())),
			quality.WithMonitor(performance.New(provider.PerformanceConfig())),
			quality.WithConfig(provider.QualityConfig()),
		)
	}, nil
}

func ProvidePollerFor(cfg *poll.Config) poll.ProvideFn {
	return func(checker poll.Checker, shutdownCh chan<- error) (poll.Manager, error) {
		return poll.New(
			checker,
			shutdownCh,
			poll.WithAnomalyInterval(cfg.AnomalyInterval),
			poll.WithPerformanceInterval(cfg.PerformanceInterval),
		)
	}
}

func ProvideScrapperFor(cfg *scrape.Config) scrape.ProvideFn {
	return func(telemetry scrape.Telemetry, shutdownCh chan<- error) (scrape.Manager, error) {
		return scrape.New(
			telemetry,
			shutdownCh,
			scrape.WithInterval(cfg.Interval),
			scrape.WithMaxConcurrentRequest(cfg.MaxConcurrentRequest),
			scrape.WithRequestTimeout(cfg.RequestTimeout),
			scrape.WithTargets(cfg.Targets),
		)
	}
}
