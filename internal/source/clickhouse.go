package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseConfig holds ClickHouse log source settings.
type ClickHouseConfig struct {
	// Addresses are the ClickHouse server addresses (host:port).
	Addresses []string `yaml:"addresses"`
	// Database is the ClickHouse database name.
	Database string `yaml:"database"`
	// Username for authentication.
	Username string `yaml:"username"`
	// Password for authentication.
	Password string `yaml:"password"`
	// Table holding log lines; must have log_group, timestamp, message.
	Table string `yaml:"table"`
	// DialTimeout is the connection timeout.
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// ClickHouseLogs is a LogSource reading log lines from a ClickHouse table.
// Used when logs are already shipped to ClickHouse instead of (or alongside)
// CloudWatch Logs.
type ClickHouseLogs struct {
	config ClickHouseConfig
	db     *sql.DB
}

// NewClickHouseLogs opens a connection pool to ClickHouse.
func NewClickHouseLogs(config ClickHouseConfig) (*ClickHouseLogs, error) {
	if len(config.Addresses) == 0 {
		return nil, fmt.Errorf("clickhouse addresses are required")
	}
	if config.Table == "" {
		config.Table = "logs"
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: config.Addresses,
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		DialTimeout: config.DialTimeout,
	})
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)

	return &ClickHouseLogs{config: config, db: db}, nil
}

// FetchLines reads messages for logGroup between start and end, ordered by
// timestamp ascending, capped at maxLogEvents rows.
func (c *ClickHouseLogs) FetchLines(ctx context.Context, logGroup string, start, end time.Time) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT message FROM %s WHERE log_group = ? AND timestamp >= ? AND timestamp <= ? ORDER BY timestamp LIMIT %d",
		c.config.Table, maxLogEvents)

	rows, err := c.db.QueryContext(ctx, query, logGroup, start, end)
	if err != nil {
		return nil, fmt.Errorf("query clickhouse logs %s: %w", logGroup, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		lines = append(lines, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return lines, nil
}

// Close closes the connection pool.
func (c *ClickHouseLogs) Close() error {
	return c.db.Close()
}
