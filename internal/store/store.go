// Package store persists channel and association definitions: the `start`
// command saves a record for every configured channel and association, and
// `assoc list`/`assoc remove` read and delete them. Poll definitions are not
// stored, and the records are not read back when the daemon starts. Grounded
// on `_examples/marmos91-dittofs/pkg/controlplane/store/gorm.go`'s
// dual-backend GORM setup (SQLite by default, Postgres for HA deployments).
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Backend selects the SQL backend, matching the teacher's DatabaseType.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Config configures the store connection.
type Config struct {
	Backend    Backend
	SQLitePath string
	PostgresDSN string
}

// ApplyDefaults fills in the SQLite path under XDG_CONFIG_HOME, matching
// the teacher's default control-plane database location.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.Backend == BackendSQLite && c.SQLitePath == "" {
		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, _ := os.UserHomeDir()
			configDir = filepath.Join(home, ".config")
		}
		c.SQLitePath = filepath.Join(configDir, "dnp3master", "associations.db")
	}
}

// Store is the persisted channel/association definition table, backed
// by GORM over SQLite (default) or Postgres.
type Store struct {
	db *gorm.DB
}

// ChannelRecord is one persisted channel definition.
type ChannelRecord struct {
	Name         string `gorm:"primaryKey"`
	Kind         string // "tcp" or "serial"
	Endpoints    string // comma-joined TCP endpoints, or the serial path
	TxBufferSize int
	RxBufferSize int
}

// AssociationRecord is one persisted association, keyed by channel+address.
type AssociationRecord struct {
	ChannelName            string `gorm:"primaryKey"`
	Address                uint16 `gorm:"primaryKey"`
	ResponseTimeoutMs       int64
	AutoTimeSync            string
	KeepAliveTimeoutMs      int64
	EnableUnsolicited       bool
	StartupIntegrityPeriodMs int64
}

// Open connects to the store, creating the parent directory for SQLite and
// running AutoMigrate against the record types, matching the teacher's
// `controlplane/store.New`.
func Open(cfg Config) (*Store, error) {
	cfg.ApplyDefaults()

	var dialector gorm.Dialector
	switch cfg.Backend {
	case BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		dsn := cfg.SQLitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case BackendPostgres:
		if err := runPostgresMigrations(cfg.PostgresDSN); err != nil {
			return nil, err
		}
		dialector = postgres.Open(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported store backend: %q", cfg.Backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if cfg.Backend == BackendSQLite {
		if err := db.AutoMigrate(&ChannelRecord{}, &AssociationRecord{}); err != nil {
			return nil, fmt.Errorf("failed to migrate store schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// SaveChannel upserts a channel definition.
func (s *Store) SaveChannel(rec ChannelRecord) error {
	return s.db.Save(&rec).Error
}

// SaveAssociation upserts an association definition.
func (s *Store) SaveAssociation(rec AssociationRecord) error {
	return s.db.Save(&rec).Error
}

// ListChannels returns every persisted channel definition.
func (s *Store) ListChannels() ([]ChannelRecord, error) {
	var recs []ChannelRecord
	if err := s.db.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return recs, nil
}

// ListAssociations returns every persisted association for a channel.
func (s *Store) ListAssociations(channelName string) ([]AssociationRecord, error) {
	var recs []AssociationRecord
	if err := s.db.Where("channel_name = ?", channelName).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list associations for %q: %w", channelName, err)
	}
	return recs, nil
}

// DeleteAssociation removes a persisted association.
func (s *Store) DeleteAssociation(channelName string, address uint16) error {
	return s.db.Delete(&AssociationRecord{}, "channel_name = ? AND address = ?", channelName, address).Error
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
