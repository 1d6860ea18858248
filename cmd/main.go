package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/noders-team/go-proxmc/internal/chainstore"
	"github.com/noders-team/go-proxmc/internal/config"
	"github.com/noders-team/go-proxmc/internal/experiment"
)

var (
	configPath string
	output     string
	db         string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "goproxmc",
		Short: "Proximal MCMC sampling for inverse problems on the sphere",
		Long: `A command-line interface for running proximal MCMC experiments on the sphere.

An experiment config describes the forward operator, the sparsity prior and the
sampler; chains are persisted to a SQLite database for later inspection.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	runCmd := &cobra.Command{
		Use:   "run --config <path> [--output <db>]",
		Short: "Run the experiment described by a config file",
		Example: `  goproxmc run --config ./experiments/earthtopography.yaml
  goproxmc run --config ./experiments/pathintegral.yaml --output ./chains.db --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(configPath, output)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to the experiment config (required)")
	runCmd.Flags().StringVar(&output, "output", "", "override the output database path from the config")
	runCmd.MarkFlagRequired("config")

	runsCmd := &cobra.Command{
		Use:   "runs --db <path>",
		Short: "List the runs persisted in a chain database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(db)
		},
	}
	runsCmd.Flags().StringVar(&db, "db", "", "path to the chain database (required)")
	runsCmd.MarkFlagRequired("db")

	rootCmd.AddCommand(runCmd, runsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runExperiment(configPath, outputOverride string) error {
	exp, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config '%s': %w", configPath, err)
	}
	if outputOverride != "" {
		exp.Output = outputOverride
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := experiment.Run(ctx, exp)
	if err != nil {
		return fmt.Errorf("experiment %q failed: %w", exp.Name, err)
	}

	log.Info().Msgf("experiment %q finished: %d chains written to %s", exp.Name, len(results), exp.Output)
	return nil
}

func listRuns(path string) error {
	store, err := chainstore.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open chain database '%s': %w", path, err)
	}
	defer store.Close()

	runs, err := store.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		log.Info().Msg("no runs found")
		return nil
	}

	for _, run := range runs {
		finished := "running"
		if !run.FinishedAt.IsZero() {
			finished = run.FinishedAt.Format("2006-01-02 15:04:05")
		}
		log.Info().Msgf("%s  %-12s %-8s L=%-3d steps=%-8d finished=%s",
			run.ID, run.Experiment, run.Sampler, run.Operator.L, run.Steps, finished)
	}
	return nil
}
