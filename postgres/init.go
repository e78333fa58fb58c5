package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Params bundles the connection fields a Management Engine or worker pool
// reads from the DB_HOST/DB_USER/DB_NAME/DB_PASSWORD/DB_PORT environment
// convention.
type Params struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string

	// RetryThreshold bounds how many connection attempts Connect makes
	// before giving up; zero or a negative value means 10.
	RetryThreshold int
}

func (p Params) dsn() string {
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable", p.Host, p.User, p.DBName)
	if p.Port != 0 {
		dsn += fmt.Sprintf(" port=%d", p.Port)
	}
	if p.Password != "" {
		dsn += fmt.Sprintf(" password=%s", p.Password)
	}
	return dsn
}

// Connect opens a PostgreSQL connection with bounded random-jitter retry,
// mirroring the original queue client's init_task_queue back-off: between
// attempts it waits a random fraction of a few seconds rather than a fixed
// interval, so many worker pools starting at once against a database that
// is still coming up do not retry in lockstep.
func Connect(ctx context.Context, params Params) (*bun.DB, error) {
	sqldb, err := sql.Open("postgres", params.dsn())
	if err != nil {
		return nil, err
	}

	threshold := params.RetryThreshold
	if threshold <= 0 {
		threshold = 10
	}

	var pingErr error
	for attempt := 0; attempt < threshold; attempt++ {
		pingErr = sqldb.PingContext(ctx)
		if pingErr == nil {
			break
		}
		delay := time.Duration(rand.Float64() * 4 * float64(time.Second))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if pingErr != nil {
		return nil, fmt.Errorf("postgres: could not connect after %d attempts: %w", threshold, pingErr)
	}

	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// Migrate applies the embedded schema migrations to db, creating
// emews_id_generator, eq_tasks, eq_exp_id_tasks, eq_task_tags,
// emews_queue_out and emews_queue_in if they do not already exist.
//
// Migrate is idempotent: running it against an already up-to-date
// database is a no-op.
func Migrate(db *bun.DB) error {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// InitTaskQueue connects and migrates in one call, the bootstrap path a
// Management Engine or worker pool uses on first contact with the
// database.
func InitTaskQueue(ctx context.Context, params Params) (*bun.DB, error) {
	db, err := Connect(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
