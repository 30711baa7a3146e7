package store

import (
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	settingPolicyMode   = "policy_mode"
	settingLastScanTime = "last_scan_time"
)

// Settings holds the small mutable runtime state that must survive a
// restart: the active policy mode and the last manual scan time. Reads are
// served from memory under a mutex; writes go through to the database.
type Settings struct {
	db *gorm.DB

	mu           sync.RWMutex
	policyMode   string
	lastScanTime time.Time
}

// LoadSettings reads persisted settings, falling back to the given default
// policy mode when the database has no row yet.
func LoadSettings(db *gorm.DB, defaultMode string) (*Settings, error) {
	s := &Settings{db: db, policyMode: defaultMode}

	var row Setting
	err := db.First(&row, "key = ?", settingPolicyMode).Error
	switch {
	case err == nil:
		if row.Value == ModeBlock || row.Value == ModeWarn {
			s.policyMode = row.Value
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First run, keep the default.
	default:
		return nil, err
	}

	// A fresh struct is required: gorm treats a populated primary key on the
	// destination as an extra query condition.
	var scanRow Setting
	if err := db.First(&scanRow, "key = ?", settingLastScanTime).Error; err == nil {
		if t, perr := time.Parse(time.RFC3339, scanRow.Value); perr == nil {
			s.lastScanTime = t
		}
	}
	return s, nil
}

func (s *Settings) put(key, value string) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Setting{Key: key, Value: value}).Error
}

// PolicyMode returns the active enforcement mode.
func (s *Settings) PolicyMode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policyMode
}

// SetPolicyMode switches between block and warn, persisting the choice.
func (s *Settings) SetPolicyMode(mode string) error {
	if mode != ModeBlock && mode != ModeWarn {
		return errors.New("policy mode must be block or warn")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.put(settingPolicyMode, mode); err != nil {
		return err
	}
	s.policyMode = mode
	return nil
}

// LastScanTime returns when the last manual scan finished (zero if never).
func (s *Settings) LastScanTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScanTime
}

// SetLastScanTime records the completion time of a manual scan.
func (s *Settings) SetLastScanTime(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.put(settingLastScanTime, t.Format(time.RFC3339)); err != nil {
		return err
	}
	s.lastScanTime = t
	return nil
}
