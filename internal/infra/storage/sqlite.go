package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"kite_ticker/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage persists instrument snapshots and subscriptions in SQLite.
type Storage struct {
	db *gorm.DB
}

var (
	_ domain.SnapshotRepository     = (*Storage)(nil)
	_ domain.SubscriptionRepository = (*Storage)(nil)
)

// NewStorage opens (or creates) the database at path. An empty path selects
// a per-user location.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		var err error
		if path, err = getDBPath(); err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	if !isMemoryPath(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.InstrumentSnapshot{}, &domain.SubscriptionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "KiteTicker", "data", "ticks.db"), nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Snapshot Operations
// ======================================================================================

// SaveSnapshots upserts snapshots keyed by instrument token.
func (s *Storage) SaveSnapshots(snapshots []domain.InstrumentSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&snapshots).Error
}

// GetSnapshot retrieves the snapshot of one instrument
func (s *Storage) GetSnapshot(token uint32) (*domain.InstrumentSnapshot, error) {
	var snap domain.InstrumentSnapshot
	err := s.db.First(&snap, "instrument_token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetAllSnapshots retrieves every snapshot ordered by token
func (s *Storage) GetAllSnapshots() ([]domain.InstrumentSnapshot, error) {
	var snaps []domain.InstrumentSnapshot
	err := s.db.Order("instrument_token").Find(&snaps).Error
	return snaps, err
}

// ======================================================================================
// Subscription Operations
// ======================================================================================

// SaveSubscriptions replaces the stored subscription set with subs.
func (s *Storage) SaveSubscriptions(subs map[uint32]domain.Mode) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.SubscriptionRecord{}).Error; err != nil {
			return err
		}
		if len(subs) == 0 {
			return nil
		}

		records := make([]domain.SubscriptionRecord, 0, len(subs))
		for token, mode := range subs {
			records = append(records, domain.SubscriptionRecord{InstrumentToken: token, Mode: mode})
		}
		return tx.Create(&records).Error
	})
}

// LoadSubscriptions loads the stored subscriptions as a token -> mode map
func (s *Storage) LoadSubscriptions() (map[uint32]domain.Mode, error) {
	var records []domain.SubscriptionRecord
	if err := s.db.Find(&records).Error; err != nil {
		return nil, err
	}

	result := make(map[uint32]domain.Mode, len(records))
	for _, r := range records {
		result[r.InstrumentToken] = r.Mode
	}
	return result, nil
}
