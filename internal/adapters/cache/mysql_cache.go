package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/url-verifier/internal/core"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of the CacheRepository interface.
// URLs can exceed the InnoDB key length limit, so rows are keyed by the
// SHA-256 of the URL and the URL itself is stored alongside.
type MySQLCache struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			url_hash CHAR(64) PRIMARY KEY,
			url TEXT NOT NULL,
			is_verified BOOLEAN NOT NULL,
			is_safe BOOLEAN NOT NULL,
			risk_level VARCHAR(16) NOT NULL,
			reason TEXT NOT NULL,
			security_checks JSON NOT NULL,
			last_checked VARCHAR(40) NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLCache{
		db:     db,
		logger: logger,
	}, nil
}

func urlHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Get retrieves the stored record for a URL
func (c *MySQLCache) Get(ctx context.Context, url string) (*core.VerificationRecord, error) {
	var r row

	err := c.db.QueryRowContext(ctx, `
		SELECT url, is_verified, is_safe, risk_level, reason, security_checks, last_checked
		FROM `+tableName+`
		WHERE url_hash = ?
	`, urlHash(url)).Scan(&r.URL, &r.IsVerified, &r.IsSafe, &r.RiskLevel, &r.Reason, &r.SecurityChecks, &r.LastChecked)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	return r.toRecord()
}

// Set upserts the record keyed by its URL
func (c *MySQLCache) Set(ctx context.Context, record *core.VerificationRecord) error {
	r, err := toRow(record)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO `+tableName+` (url_hash, url, is_verified, is_safe, risk_level, reason, security_checks, last_checked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			is_verified = VALUES(is_verified),
			is_safe = VALUES(is_safe),
			risk_level = VALUES(risk_level),
			reason = VALUES(reason),
			security_checks = VALUES(security_checks),
			last_checked = VALUES(last_checked)
	`, urlHash(r.URL), r.URL, r.IsVerified, r.IsSafe, r.RiskLevel, r.Reason, r.SecurityChecks, r.LastChecked)

	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}

	return nil
}

// Stop closes the database connection
func (c *MySQLCache) Stop() {
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
