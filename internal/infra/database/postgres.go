package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/infra/config"
)

const (
	trustSchema = "trust"

	defaultQueryTimeout = 5 * time.Second
)

// PoolConfig builds the pgx pool configuration. Sessions resolve unqualified names in the
// trust schema and the server cancels statements that outlive the query timeout.
func PoolConfig(cfg config.PostgresSettings, applicationName string) (*pgxpool.Config, error) {
	if cfg.MaxConns > 0 && cfg.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("postgres min_conns %d exceeds max_conns %d", cfg.MinConns, cfg.MaxConns)
	}

	query := url.Values{}
	if cfg.SSLMode != "" {
		query.Set("sslmode", cfg.SSLMode)
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Database,
		RawQuery: query.Encode(),
	}

	poolConfig, err := pgxpool.ParseConfig(dsn.String())
	if err != nil {
		return nil, fmt.Errorf("parse pgx pool config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	params := poolConfig.ConnConfig.RuntimeParams
	if params == nil {
		params = make(map[string]string)
		poolConfig.ConnConfig.RuntimeParams = params
	}
	params["search_path"] = fmt.Sprintf("%s,public", trustSchema)
	params["statement_timeout"] = strconv.FormatInt(queryTimeout(cfg).Milliseconds(), 10)
	if applicationName != "" {
		params["application_name"] = applicationName
	}

	return poolConfig, nil
}

// NewPostgresPool connects and verifies the pool before handing it out.
func NewPostgresPool(ctx context.Context, cfg config.PostgresSettings, applicationName string, log *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := PoolConfig(cfg, applicationName)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := NewHealth(pool, cfg.QueryTimeout).Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("connected to postgres",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.String("statement_timeout", poolConfig.ConnConfig.RuntimeParams["statement_timeout"]+"ms"),
	)

	return pool, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Health probes the database within the query timeout so a stalled server fails
// readiness instead of hanging it.
type Health struct {
	db      pinger
	timeout time.Duration
}

// NewHealth wraps db. A non-positive timeout selects the default query timeout.
func NewHealth(db pinger, timeout time.Duration) *Health {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Health{db: db, timeout: timeout}
}

// Ping reports whether the database answered in time.
func (h *Health) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func queryTimeout(cfg config.PostgresSettings) time.Duration {
	if cfg.QueryTimeout > 0 {
		return cfg.QueryTimeout
	}
	return defaultQueryTimeout
}
