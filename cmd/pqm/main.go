// Command pqm is the command line client of the pqm server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-sod/pqm/internal/buildinfo"
	"github.com/go-sod/pqm/internal/integration"
	"github.com/go-sod/pqm/internal/shutdown"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

type cliConfig struct {
	URL     string        `env:"PQM_URL, default=http://localhost:8787"`
	Timeout time.Duration `env:"PQM_CLIENT_TIMEOUT, default=60s"`
}

func main() {
	ctx, done := shutdown.New()
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	done()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var cfg cliConfig
	var client *integration.Client

	root := &cobra.Command{
		Use:          "pqm",
		Short:        "Client for the predictive quality monitoring server",
		Version:      buildinfo.Info.Tag(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := envconfig.Process(cmd.Context(), &cfg); err != nil {
				return fmt.Errorf("load environment: %w", err)
			}
			if flag := cmd.Flags().Lookup("url"); flag != nil && flag.Changed {
				cfg.URL = flag.Value.String()
			}
			c, err := integration.NewClient(cfg.URL, cfg.Timeout)
			if err != nil {
				return err
			}
			client = c
			return nil
		},
	}
	root.PersistentFlags().String("url", "", "server base URL, overrides PQM_URL")
	root.SetOut(out)

	printJSON := func(v interface{}) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	run := func(fn func(ctx context.Context) (interface{}, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			v, err := fn(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(v)
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "train",
		Short: "Fit the model on the stored training samples",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context) (interface{}, error) {
			return client.Train(ctx)
		}),
	})

	var feature1, feature2 float64
	predictCmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the quality outcome for one input",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context) (interface{}, error) {
			return client.Predict(ctx, feature1, feature2)
		}),
	}
	predictCmd.Flags().Float64Var(&feature1, "feature1", 0, "calcination temperature")
	predictCmd.Flags().Float64Var(&feature2, "feature2", 0, "calcination time")
	_ = predictCmd.MarkFlagRequired("feature1")
	_ = predictCmd.MarkFlagRequired("feature2")
	root.AddCommand(predictCmd)

	root.AddCommand(&cobra.Command{
		Use:   "check-anomalies",
		Short: "Evaluate the recent predictions for defect patterns",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context) (interface{}, error) {
			return client.CheckAnomalies(ctx)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "check-performance",
		Short: "Compare the model against the recent training samples",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context) (interface{}, error) {
			return client.CheckPerformance(ctx)
		}),
	})

	var (
		equipmentID string
		sensorID    int64
		limit       int
	)
	failureCmd := &cobra.Command{
		Use:   "failure-probability",
		Short: "Estimate the failure probability from recent telemetry",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context) (interface{}, error) {
			return client.FailureProbability(ctx, equipmentID, sensorID, limit)
		}),
	}
	failureCmd.Flags().StringVar(&equipmentID, "equipment-id", "", "equipment to score")
	failureCmd.Flags().Int64Var(&sensorID, "sensor-id", 0, "sensor to score")
	failureCmd.Flags().IntVar(&limit, "limit", 0, "telemetry rows to read, 0 uses the server default")
	root.AddCommand(failureCmd)

	var eventsLimit int
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "List the recent alert events and their delivery",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context) (interface{}, error) {
			return client.Events(ctx, eventsLimit)
		}),
	}
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 0, "events to list, 0 uses the server default")
	root.AddCommand(eventsCmd)

	return root
}
