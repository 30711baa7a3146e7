package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"
)

var ErrWhitelistNotFound = errors.New("whitelist entry not found")

// Whitelist exempts paths from scanning. Directory entries cover every
// descendant by prefix; file entries match exactly. Safe for concurrent
// scan-side reads and control-surface writes.
type Whitelist struct {
	db *gorm.DB
}

func NewWhitelist(db *gorm.DB) *Whitelist {
	return &Whitelist{db: db}
}

// Add inserts a whitelist entry. The path is normalized to absolute form.
// Adding an already-whitelisted path is a no-op.
func (w *Whitelist) Add(path, kind string) (*WhitelistEntry, error) {
	if kind != KindFile && kind != KindDirectory {
		return nil, errors.New("whitelist kind must be file or directory")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	entry := &WhitelistEntry{Path: filepath.Clean(abs), Kind: kind}
	err = w.db.Where(WhitelistEntry{Path: entry.Path}).FirstOrCreate(entry).Error
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AddAuto inserts an entry inferring the kind from the filesystem: existing
// directories become directory entries, everything else a file entry.
func (w *Whitelist) AddAuto(path string) (*WhitelistEntry, error) {
	kind := KindFile
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		kind = KindDirectory
	}
	return w.Add(path, kind)
}

// Remove deletes the entry for the given path.
func (w *Whitelist) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	res := w.db.Delete(&WhitelistEntry{}, "path = ?", filepath.Clean(abs))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrWhitelistNotFound
	}
	return nil
}

// Clear removes every whitelist entry.
func (w *Whitelist) Clear() error {
	return w.db.Where("1 = 1").Delete(&WhitelistEntry{}).Error
}

// List returns all entries in insertion order.
func (w *Whitelist) List() ([]WhitelistEntry, error) {
	var entries []WhitelistEntry
	if err := w.db.Order("id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// IsWhitelisted reports whether the path is exempt from scanning: an exact
// match on a file entry, or a descendant of (or equal to) a directory entry.
func (w *Whitelist) IsWhitelisted(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	abs = filepath.Clean(abs)

	entries, err := w.List()
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if abs == entry.Path {
			return true, nil
		}
		if entry.Kind == KindDirectory && strings.HasPrefix(abs, entry.Path+string(filepath.Separator)) {
			return true, nil
		}
	}
	return false, nil
}
