package scan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// FileIdentity is the stable key for a file under observation: its absolute
// path plus a change fingerprint (size and modification time). Two events
// for the same path with the same fingerprint are the same identity; a
// genuinely rewritten file at the same path gets a new one. A rewrite that
// lands with identical size and mtime is treated as the same identity — a
// deliberate policy choice, covered by tests.
type FileIdentity struct {
	Path    string
	Size    int64
	ModTime int64 // unix nanoseconds
}

// Identify stats the file and builds its identity.
func Identify(path string) (FileIdentity, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileIdentity{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileIdentity{}, err
	}
	return FileIdentity{
		Path:    filepath.Clean(abs),
		Size:    info.Size(),
		ModTime: info.ModTime().UnixNano(),
	}, nil
}

// Key returns a compact cache key for the identity.
func (id FileIdentity) Key() string {
	sum := xxhash.Sum64String(fmt.Sprintf("%s|%d|%d", id.Path, id.Size, id.ModTime))
	return fmt.Sprintf("%016x", sum)
}
