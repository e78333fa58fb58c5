// Command eqsql-pool launches a worker pool against a PostgreSQL-backed
// task queue and watches its lifecycle, requeuing any tasks left in
// flight if the pool is canceled or fails.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/emews/EQ-SQL"
	"github.com/emews/EQ-SQL/controller"
	"github.com/emews/EQ-SQL/postgres"
)

func main() {
	if err := buildCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildCmd() *cobra.Command {
	var (
		script       string
		expId        string
		cfgFile      string
		workerPool   string
		pollInterval time.Duration
		concurrency  int
	)

	cmd := &cobra.Command{
		Use:   "eqsql-pool",
		Short: "Launch and monitor a worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(script, expId, cfgFile, workerPool, pollInterval, concurrency)
		},
	}

	cmd.Flags().StringVar(&script, "script", "", "launch script invoked as `script expId cfgFile`")
	cmd.Flags().StringVar(&expId, "exp-id", "", "experiment id")
	cmd.Flags().StringVar(&cfgFile, "cfg-file", "", "pool-specific configuration file")
	cmd.Flags().StringVar(&workerPool, "worker-pool", "", "base worker pool name claimed tasks are reported under")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 5*time.Second, "pool status poll interval")
	cmd.Flags().IntVar(&concurrency, "requeue-concurrency", 4, "bounded concurrency for requeuing in-flight tasks")
	_ = cmd.MarkFlagRequired("script")
	_ = cmd.MarkFlagRequired("exp-id")
	_ = cmd.MarkFlagRequired("worker-pool")

	return cmd
}

func dbParamsFromEnv() (postgres.Params, error) {
	params := postgres.Params{
		Host:     os.Getenv("DB_HOST"),
		User:     os.Getenv("DB_USER"),
		DBName:   os.Getenv("DB_NAME"),
		Password: os.Getenv("DB_PASSWORD"),
	}
	if portStr := os.Getenv("DB_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return postgres.Params{}, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		params.Port = port
	}
	return params, nil
}

func run(script, expId, cfgFile, workerPoolBase string, pollInterval time.Duration, concurrency int) error {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	params, err := dbParamsFromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.InitTaskQueue(ctx, params)
	if err != nil {
		return fmt.Errorf("cannot initialize task queue: %w", err)
	}
	defer db.Close()

	puller := postgres.NewPuller(db)
	observer := postgres.NewObserver(db)

	pool, err := controller.StartLocalPool(ctx, script, expId, cfgFile)
	if err != nil {
		return fmt.Errorf("cannot launch worker pool: %w", err)
	}
	workerPool := pool.Token().WorkerPoolName(workerPoolBase)

	inFlight := func(ctx context.Context, workerPool string) ([]int64, error) {
		return observer.InFlightTasks(ctx, workerPool)
	}

	monitor := controller.NewPoolMonitor(pool, puller, inFlight, controller.PoolMonitorConfig{
		WorkerPool:   workerPool,
		PollInterval: pollInterval,
		Concurrency:  concurrency,
		RequeueRetry: eqsql.DefaultBackoffConfig,
	}, log)

	if err := monitor.Start(ctx); err != nil {
		return fmt.Errorf("cannot start pool monitor: %w", err)
	}

	log.Info("worker pool launched", "exp_id", expId, "worker_pool", workerPool)
	<-ctx.Done()

	log.Info("shutting down worker pool", "worker_pool", workerPool)
	if err := pool.Cancel(context.Background()); err != nil {
		log.Error("error canceling worker pool", "err", err)
	}
	return monitor.Stop(30 * time.Second)
}
