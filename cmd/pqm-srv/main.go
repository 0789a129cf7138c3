package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/go-sod/pqm/internal/api"
	"github.com/go-sod/pqm/internal/buildinfo"
	pqm "github.com/go-sod/pqm/internal/config"
	"github.com/go-sod/pqm/internal/logging"
	"github.com/go-sod/pqm/internal/server"
	"github.com/go-sod/pqm/internal/setup"
	"github.com/go-sod/pqm/internal/shutdown"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Info.Banner())

	ctx, done := shutdown.New()
	logger := logging.FromContext(ctx)
	if err := run(ctx, done); err != nil {
		done()
		logger.Fatal(err)
	}

	done()
}

func run(ctx context.Context, cancel func()) error {
	config := pqm.Config{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer func() {
		closeCtx, closeDone := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeDone()
		if err := env.Close(closeCtx); err != nil {
			logging.FromContext(ctx).Errorf("env.Close: %v", err)
		}
	}()

	ctx = logging.WithLogger(ctx, env.Logger())
	logger := logging.FromContext(ctx)

	shutdownCount := 1
	if env.ProvidePoller() != nil {
		shutdownCount++
	}
	if env.ProvideScrapper() != nil {
		shutdownCount++
	}
	shutdownCh := make(chan error, shutdownCount)

	notifier, err := env.ProvideNotifier()(shutdownCh)
	if err != nil {
		return fmt.Errorf("notifier provider function error: %w", err)
	}
	if err := notifier.Run(ctx); err != nil {
		return fmt.Errorf("notifier.Run: %w", err)
	}

	svc, err := env.ProvideQuality()(notifier)
	if err != nil {
		return fmt.Errorf("quality provider function error: %w", err)
	}

	if provideFn := env.ProvidePoller(); provideFn != nil {
		poller, err := provideFn(svc, shutdownCh)
		if err != nil {
			return fmt.Errorf("poller provider function error: %w", err)
		}
		if err := poller.Run(ctx); err != nil {
			return fmt.Errorf("poller.Run: %w", err)
		}
	}

	if provideFn := env.ProvideScrapper(); provideFn != nil {
		scrapper, err := provideFn(env.Repository(), shutdownCh)
		if err != nil {
			return fmt.Errorf("scrapper provider function error: %w", err)
		}
		if err := scrapper.Run(ctx); err != nil {
			return fmt.Errorf("scrapper.Run: %w", err)
		}
	}

	router, err := api.NewRouter(ctx, &config, api.Deps{
		Quality:    svc,
		Repository: env.Repository(),
		Events:     notifier,
	})
	if err != nil {
		return fmt.Errorf("api.NewRouter: %w", err)
	}

	srv, err := server.New(config.SrvAddr)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	logger.Infof("listening on %s", srv.Addr())
	go func() {
		if err := srv.ServeHTTPHandler(ctx, router); err != nil {
			logger.Errorf("http server: %v", err)
			cancel()
		}
	}()

	if config.GRPCAddr != "" {
		grpcSrv, err := server.New(config.GRPCAddr)
		if err != nil {
			return fmt.Errorf("server.New grpc: %w", err)
		}
		healthSrv, health := server.NewGRPCHealth()
		logger.Infof("grpc health listening on %s", grpcSrv.Addr())
		go func() {
			<-ctx.Done()
			health.Shutdown()
		}()
		go func() {
			if err := grpcSrv.ServeGRPC(ctx, healthSrv); err != nil {
				logger.Errorf("grpc server: %v", err)
				cancel()
			}
		}()
	}

	if config.PprofAddr != "" {
		go func() {
			if err := http.ListenAndServe(config.PprofAddr, nil); err != nil {
				logger.Errorf("pprof server: %v", err)
			}
		}()
	}

	var firstErr error
	for i := 0; i < shutdownCount; i++ {
		if err := <-shutdownCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
