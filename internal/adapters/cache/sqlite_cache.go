package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/url-verifier/internal/core"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the CacheRepository interface
type SQLiteCache struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			url TEXT PRIMARY KEY,
			is_verified BOOLEAN NOT NULL,
			is_safe BOOLEAN NOT NULL,
			risk_level TEXT NOT NULL,
			reason TEXT NOT NULL,
			security_checks TEXT NOT NULL,
			last_checked TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	logger.Info("Opened SQLite verification cache", zap.String("path", dbPath))

	return &SQLiteCache{
		db:     db,
		logger: logger,
	}, nil
}

// Get retrieves the stored record for a URL
func (c *SQLiteCache) Get(ctx context.Context, url string) (*core.VerificationRecord, error) {
	var r row

	err := c.db.QueryRowContext(ctx, `
		SELECT url, is_verified, is_safe, risk_level, reason, security_checks, last_checked
		FROM `+tableName+`
		WHERE url = ?
	`, url).Scan(&r.URL, &r.IsVerified, &r.IsSafe, &r.RiskLevel, &r.Reason, &r.SecurityChecks, &r.LastChecked)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	return r.toRecord()
}

// Set upserts the record keyed by its URL
func (c *SQLiteCache) Set(ctx context.Context, record *core.VerificationRecord) error {
	r, err := toRow(record)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO `+tableName+` (url, is_verified, is_safe, risk_level, reason, security_checks, last_checked)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			is_verified = excluded.is_verified,
			is_safe = excluded.is_safe,
			risk_level = excluded.risk_level,
			reason = excluded.reason,
			security_checks = excluded.security_checks,
			last_checked = excluded.last_checked
	`, r.URL, r.IsVerified, r.IsSafe, r.RiskLevel, r.Reason, r.SecurityChecks, r.LastChecked)

	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}

	return nil
}

// Stop closes the database connection
func (c *SQLiteCache) Stop() {
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
