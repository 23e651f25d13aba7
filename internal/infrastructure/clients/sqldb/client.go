package sqldb

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilityreservation/backend/pkg/config"
	"github.com/zatekoja/facilityreservation/backend/pkg/retry"
)

const mysqlTLSConfigName = "facility-store-ca"

// Client is a pooled relational store connection bound to one SQL dialect
type Client struct {
	db      *sqlx.DB
	driver  string
	dialect goqu.DialectWrapper
}

// NewClient opens a pooled connection for the configured driver and verifies
// it with exponential backoff
func NewClient(cfg *config.DatabaseConfig) (*Client, error) {
	dsn, err := dataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	err = retry.DoWithLog(
		context.Background(),
		retry.DefaultConfig(),
		cfg.Driver,
		func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return db.PingContext(pingCtx)
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).
				Str("driver", cfg.Driver).Msg("database connection attempt failed")
		},
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database after retries: %w", err)
	}

	log.Info().Str("driver", cfg.Driver).Str("host", cfg.Host).Str("database", cfg.Database).
		Msg("connected to database")
	return NewClientFromDB(db.DB, cfg.Driver), nil
}

// NewClientFromDB wraps an already opened *sql.DB
func NewClientFromDB(db *sql.DB, driver string) *Client {
	return &Client{
		db:      sqlx.NewDb(db, driver),
		driver:  driver,
		dialect: goqu.Dialect(driver),
	}
}

// DB returns the underlying connection pool
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Driver returns the driver name, config.DriverMySQL or config.DriverPostgres
func (c *Client) Driver() string {
	return c.driver
}

// Dialect returns the goqu dialect matching the driver
func (c *Client) Dialect() goqu.DialectWrapper {
	return c.dialect
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// WithTx runs fn in a read-committed transaction. The transaction is rolled
// back on error or panic and committed otherwise.
func (c *Client) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := c.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				log.Error().Err(rbErr).Msg("transaction rollback failed")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func dataSourceName(cfg *config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return cfg.PostgresDSN(), nil
	case config.DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = cfg.Addr()
		mc.DBName = cfg.Database
		mc.ParseTime = true
		mc.Loc = time.UTC
		if cfg.SSLCA != "" {
			if err := registerMySQLCA(cfg.SSLCA); err != nil {
				return "", err
			}
			mc.TLSConfig = mysqlTLSConfigName
		}
		return mc.FormatDSN(), nil
	default:
		return "", fmt.Errorf("unsupported SQL driver %q", cfg.Driver)
	}
}

func registerMySQLCA(path string) error {
	pem, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read DB_SSL_CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return fmt.Errorf("DB_SSL_CA %s contains no PEM certificates", path)
	}
	return mysql.RegisterTLSConfig(mysqlTLSConfigName, &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	})
}
