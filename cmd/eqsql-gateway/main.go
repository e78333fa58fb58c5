// Command eqsql-gateway runs the EQ-SQL HTTP RPC gateway in front of a
// PostgreSQL-backed task queue.
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
	"github.com/emews/EQ-SQL/gateway"
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
		addr      string
		jwtSecret string
		cacheAddr string
		cacheTTL  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "eqsql-gateway",
		Short: "Run the EQ-SQL HTTP RPC gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, jwtSecret, cacheAddr, cacheTTL)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&jwtSecret, "jwt-secret", "", "signing key enabling bearer auth on POST routes; empty disables auth")
	cmd.Flags().StringVar(&cacheAddr, "cache-addr", "", "redis address for the result cache; empty disables caching")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 30*time.Second, "result cache entry TTL")

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

func run(addr, jwtSecret, cacheAddr string, cacheTTL time.Duration) error {
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

	var opts []gateway.Option
	if jwtSecret != "" {
		opts = append(opts, gateway.WithAuth([]byte(jwtSecret)))
	}
	if cacheAddr != "" {
		opts = append(opts, gateway.WithCache(newRedisClient(cacheAddr), cacheTTL))
	}

	queue := eqsql.NewTaskQueue(
		postgres.NewPusher(db),
		postgres.NewPuller(db),
		postgres.NewObserver(db),
		postgres.NewCleaner(db),
	)
	srv := gateway.NewServer(queue, log, opts...)

	log.Info("gateway listening", "addr", addr)
	return srv.Run(ctx, addr)
}
