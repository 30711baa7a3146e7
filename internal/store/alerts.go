package store

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var ErrAlertNotFound = errors.New("alert not found")

// AlertLedger is the shared, concurrently-accessed record of detections.
// Mutual exclusion is delegated to the database; every method is safe for
// concurrent producers (pipeline workers) and consumers (control surface).
type AlertLedger struct {
	db         *gorm.DB
	maxHistory int
}

// NewAlertLedger creates a ledger keeping at most maxHistory alerts.
func NewAlertLedger(db *gorm.DB, maxHistory int) *AlertLedger {
	return &AlertLedger{db: db, maxHistory: maxHistory}
}

// Append inserts a new alert and trims history beyond the configured cap,
// oldest first. Dismissed and allowed alerts are trimmed like any other.
func (l *AlertLedger) Append(alert *Alert) error {
	if err := l.db.Create(alert).Error; err != nil {
		return err
	}
	return l.trim()
}

func (l *AlertLedger) trim() error {
	if l.maxHistory <= 0 {
		return nil
	}
	var count int64
	if err := l.db.Model(&Alert{}).Count(&count).Error; err != nil {
		return err
	}
	excess := count - int64(l.maxHistory)
	if excess <= 0 {
		return nil
	}
	var stale []Alert
	if err := l.db.Order("created_at asc, id asc").Limit(int(excess)).Find(&stale).Error; err != nil {
		return err
	}
	ids := make([]string, len(stale))
	for i := range stale {
		ids[i] = stale[i].ID
	}
	return l.db.Delete(&Alert{}, "id IN ?", ids).Error
}

// Get returns the alert with the given id.
func (l *AlertLedger) Get(id string) (*Alert, error) {
	var alert Alert
	if err := l.db.First(&alert, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return &alert, nil
}

// ListFilter narrows List results. Zero value lists everything in
// insertion order.
type ListFilter struct {
	// Query is matched case-insensitively against file path, origin and
	// matched rule names.
	Query string
	// Status restricts results to a single lifecycle state.
	Status string
}

// List returns alerts in insertion order, optionally filtered.
func (l *AlertLedger) List(filter ListFilter) ([]Alert, error) {
	var alerts []Alert
	q := l.db.Order("created_at asc, id asc")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	if filter.Query == "" {
		return alerts, nil
	}
	needle := strings.ToLower(filter.Query)
	out := alerts[:0]
	for _, a := range alerts {
		if alertMatches(&a, needle) {
			out = append(out, a)
		}
	}
	return out, nil
}

func alertMatches(a *Alert, needle string) bool {
	if strings.Contains(strings.ToLower(a.FilePath), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(a.OriginPath), needle) {
		return true
	}
	for _, rule := range a.MatchedRules {
		if strings.Contains(strings.ToLower(rule), needle) {
			return true
		}
	}
	return false
}

// UpdateStatus transitions the alert to the given lifecycle state.
func (l *AlertLedger) UpdateStatus(id, status string) error {
	res := l.db.Model(&Alert{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// MarkRestored detaches the alert from its quarantine record after a
// successful restore and points file_path back at the restored location.
func (l *AlertLedger) MarkRestored(id, filePath string) error {
	return l.db.Model(&Alert{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"quarantine_id": nil,
			"file_path":     filePath,
			"updated_at":    time.Now(),
		}).Error
}

// Remove hard-deletes an alert from the ledger.
func (l *AlertLedger) Remove(id string) error {
	res := l.db.Delete(&Alert{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}
