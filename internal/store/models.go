package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Policy modes.
const (
	ModeBlock = "block"
	ModeWarn  = "warn"
)

// Alert lifecycle states.
const (
	StatusPending   = "pending"
	StatusAllowed   = "allowed"
	StatusDismissed = "dismissed"
)

// Whitelist entry kinds.
const (
	KindFile      = "file"
	KindDirectory = "directory"
)

// StringArray stores a string slice as JSON text (SQLite compatible).
type StringArray []string

// Scan implements the sql.Scanner interface for StringArray.
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
}

// Value implements the driver.Valuer interface for StringArray.
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Alert is a single detection, created on every pattern match regardless of
// policy mode. Status transitions happen only through allow/dismiss.
type Alert struct {
	ID           string      `json:"id" gorm:"primaryKey"`
	FilePath     string      `json:"file_path"`
	OriginPath   string      `json:"origin_path"`
	MatchedRules StringArray `json:"matched_rules" gorm:"type:text"`
	PolicyMode   string      `json:"policy_mode"`
	Status       string      `json:"status" gorm:"index"`
	MoveFailed   bool        `json:"move_failed"`
	FailureReason string     `json:"failure_reason,omitempty"`
	Truncated    bool        `json:"truncated"`
	SizeBytes    int64       `json:"size_bytes"`
	QuarantineID *string     `json:"quarantine_id,omitempty" gorm:"index"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// QuarantineRecord maps a quarantined file back to its original location.
// Exactly one record exists per file currently in the quarantine root.
type QuarantineRecord struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	OriginalPath   string    `json:"original_path"`
	QuarantinePath string    `json:"quarantine_path" gorm:"uniqueIndex"`
	MatchedRule    string    `json:"matched_rule"`
	SizeBytes      int64     `json:"size_bytes"`
	Checksum       string    `json:"checksum"`
	MovedAt        time.Time `json:"moved_at"`
}

// WhitelistEntry exempts an exact file path or a directory subtree from
// scanning. Created and removed only through the control surface.
type WhitelistEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Path      string    `json:"path" gorm:"uniqueIndex"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Setting is a persisted key/value row (policy mode, last scan time).
type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}
