package store

import (
	"errors"

	"gorm.io/gorm"
)

var ErrQuarantineNotFound = errors.New("quarantine record not found")

// QuarantineStore persists the mapping from quarantined files back to their
// original locations. Records are created atomically with the file move and
// destroyed on restore or permanent discard.
type QuarantineStore struct {
	db *gorm.DB
}

func NewQuarantineStore(db *gorm.DB) *QuarantineStore {
	return &QuarantineStore{db: db}
}

// Create inserts a new record.
func (q *QuarantineStore) Create(rec *QuarantineRecord) error {
	return q.db.Create(rec).Error
}

// Get returns the record with the given id.
func (q *QuarantineStore) Get(id string) (*QuarantineRecord, error) {
	var rec QuarantineRecord
	if err := q.db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuarantineNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Delete removes the record after a restore or discard.
func (q *QuarantineStore) Delete(id string) error {
	res := q.db.Delete(&QuarantineRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrQuarantineNotFound
	}
	return nil
}

// List returns all records, most recently moved first.
func (q *QuarantineStore) List() ([]QuarantineRecord, error) {
	var recs []QuarantineRecord
	if err := q.db.Order("moved_at desc").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Count returns the number of files currently in quarantine.
func (q *QuarantineStore) Count() (int64, error) {
	var n int64
	err := q.db.Model(&QuarantineRecord{}).Count(&n).Error
	return n, err
}
