package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/url-verifier/internal/core"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// verificationModel is the GORM mapping of the url_verifications table
type verificationModel struct {
	URL            string `gorm:"primaryKey;type:text"`
	IsVerified     bool   `gorm:"not null"`
	IsSafe         bool   `gorm:"not null"`
	RiskLevel      string `gorm:"size:16;not null"`
	Reason         string `gorm:"type:text;not null"`
	SecurityChecks string `gorm:"type:text;not null"`
	LastChecked    string `gorm:"size:40;not null"`
}

func (verificationModel) TableName() string {
	return tableName
}

// GormCache is a GORM implementation of the CacheRepository interface.
// It is used with PostgreSQL in production.
type GormCache struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPostgresCache opens a PostgreSQL backed cache
func NewPostgresCache(dsn string, logger *zap.Logger) (*GormCache, error) {
	return NewGormCache(postgres.Open(dsn), logger)
}

// NewGormCache creates a cache over any GORM dialector and migrates the table
func NewGormCache(dialector gorm.Dialector, logger *zap.Logger) (*GormCache, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&verificationModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", tableName, err)
	}

	logger.Info("Database connection established and migrations completed",
		zap.String("dialect", dialector.Name()))

	return &GormCache{
		db:     db,
		logger: logger,
	}, nil
}

// Get retrieves the stored record for a URL
func (c *GormCache) Get(ctx context.Context, url string) (*core.VerificationRecord, error) {
	var m verificationModel
	if err := c.db.WithContext(ctx).Where("url = ?", url).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	return row{
		URL:            m.URL,
		IsVerified:     m.IsVerified,
		IsSafe:         m.IsSafe,
		RiskLevel:      m.RiskLevel,
		Reason:         m.Reason,
		SecurityChecks: m.SecurityChecks,
		LastChecked:    m.LastChecked,
	}.toRecord()
}

// Set upserts the record keyed by its URL
func (c *GormCache) Set(ctx context.Context, record *core.VerificationRecord) error {
	r, err := toRow(record)
	if err != nil {
		return err
	}

	m := verificationModel{
		URL:            r.URL,
		IsVerified:     r.IsVerified,
		IsSafe:         r.IsSafe,
		RiskLevel:      r.RiskLevel,
		Reason:         r.Reason,
		SecurityChecks: r.SecurityChecks,
		LastChecked:    r.LastChecked,
	}

	err = c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		UpdateAll: true,
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}

	return nil
}

// Stop closes the database connection
func (c *GormCache) Stop() {
	sqlDB, err := c.db.DB()
	if err != nil {
		c.logger.Error("Failed to get database handle", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	}
}
