package prefs

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/logger"
)

// slowQueryThreshold is when preference statements are logged as slow.
const slowQueryThreshold = 200 * time.Millisecond

// Preference is one row of the preferences table.
type Preference struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (Preference) TableName() string { return "preferences" }

// SQLStore keeps preferences in a SQL table through GORM.
type SQLStore struct {
	db      *gorm.DB
	backend string
}

// OpenSQLite opens or creates a SQLite database at path.
func OpenSQLite(path string, log logger.Logger) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.FileError(err, path, 0)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowQueryThreshold),
	})
	if err != nil {
		return nil, backendError(err, "sqlite", "open")
	}
	return NewSQLStore(db, "sqlite")
}

// OpenMySQL connects to MySQL with dsn.
func OpenMySQL(dsn string, log logger.Logger) (*SQLStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowQueryThreshold),
	})
	if err != nil {
		return nil, backendError(err, "mysql", "open")
	}
	return NewSQLStore(db, "mysql")
}

// NewSQLStore migrates the preferences table on db.
func NewSQLStore(db *gorm.DB, backend string) (*SQLStore, error) {
	if err := db.AutoMigrate(&Preference{}); err != nil {
		return nil, backendError(err, backend, "migrate")
	}
	return &SQLStore{db: db, backend: backend}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var p Preference
	err := s.db.WithContext(ctx).Where(map[string]any{"key": key}).Limit(1).Find(&p).Error
	if err != nil {
		return "", false, backendError(err, s.backend, "get")
	}
	if p.Key == "" {
		return "", false, nil
	}
	return p.Value, true, nil
}

// Set upserts the row for key.
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	p := Preference{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return backendError(err, s.backend, "set")
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where(map[string]any{"key": key}).Delete(&Preference{}).Error; err != nil {
		return backendError(err, s.backend, "delete")
	}
	return nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return backendError(err, s.backend, "close")
	}
	return sqlDB.Close()
}

var _ Store = (*SQLStore)(nil)
