package enforce

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRestoreConflict is returned when a restore target is already occupied.
// The quarantined file is never allowed to overwrite it.
var ErrRestoreConflict = errors.New("restore target already exists")

// Mover executes file moves into and out of the quarantine root. It is the
// only component that writes to watched paths or the quarantine directory.
// Same-volume moves use rename; cross-device moves fall back to
// copy+verify+delete so a failure never leaves two live copies or none.
type Mover struct {
	root string
	log  *zap.Logger
}

// NewMover ensures the quarantine root exists. An unusable root is a startup
// error.
func NewMover(root string, log *zap.Logger) (*Mover, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create quarantine root %s: %w", abs, err)
	}
	return &Mover{root: abs, log: log}, nil
}

// Root returns the absolute quarantine directory. The watch pipeline uses it
// to keep quarantined files from being rescanned.
func (m *Mover) Root() string {
	return m.root
}

// Quarantine moves the file into the quarantine root under a unique name and
// returns the destination path and the content checksum recorded for later
// verification. The checksum is taken from the quarantined copy itself, so a
// restore verifies against the bytes that actually landed rather than a
// snapshot of the source taken before the move.
func (m *Mover) Quarantine(path string) (string, string, error) {
	dest := filepath.Join(m.root, uuid.NewString()+"_"+filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		// Cross-device move: the copy is verified against the source before
		// the source is deleted, so the pre-move checksum is authoritative.
		sum, cerr := checksumFile(path)
		if cerr != nil {
			return "", "", cerr
		}
		if cerr := m.moveByCopy(path, dest, sum); cerr != nil {
			return "", "", cerr
		}
		m.log.Info("file quarantined",
			zap.String("path", path),
			zap.String("quarantine_path", dest))
		return dest, sum, nil
	}

	sum, err := checksumFile(dest)
	if err != nil {
		// Without a trustworthy checksum there is no quarantine record to
		// make; undo the move rather than strand the file.
		if rerr := os.Rename(dest, path); rerr != nil {
			m.log.Error("failed to undo quarantine move",
				zap.String("quarantine_path", dest), zap.Error(rerr))
		}
		return "", "", err
	}
	m.log.Info("file quarantined",
		zap.String("path", path),
		zap.String("quarantine_path", dest))
	return dest, sum, nil
}

// quarantineNamePattern matches basenames produced by Quarantine: a UUID, an
// underscore, then the original name.
var quarantineNamePattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}_`)

// IsQuarantineName reports whether a basename follows the quarantine naming
// scheme. Copies of quarantined files that end up outside the quarantine root
// keep this name; scanning them again would quarantine the same content under
// a second identity.
func IsQuarantineName(name string) bool {
	return quarantineNamePattern.MatchString(name)
}

// Restore moves a quarantined file back to its original path. The target must
// not exist; a conflict is surfaced, never overwritten.
func (m *Mover) Restore(quarantinePath, originalPath string) error {
	if _, err := os.Lstat(originalPath); err == nil {
		return fmt.Errorf("%w: %s", ErrRestoreConflict, originalPath)
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(originalPath), 0o750); err != nil {
		return err
	}
	sum, err := checksumFile(quarantinePath)
	if err != nil {
		return err
	}
	if err := m.move(quarantinePath, originalPath, sum); err != nil {
		return err
	}
	m.log.Info("file restored",
		zap.String("quarantine_path", quarantinePath),
		zap.String("path", originalPath))
	return nil
}

// move renames when source and destination share a volume, otherwise copies,
// verifies the checksum and only then deletes the source. A failed copy never
// leaves a partial destination behind.
func (m *Mover) move(src, dst, wantSum string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return m.moveByCopy(src, dst, wantSum)
}

func (m *Mover) moveByCopy(src, dst, wantSum string) error {
	if err := copyFile(src, dst); err != nil {
		// Clean up a partial copy, but never a pre-existing occupant.
		if !errors.Is(err, os.ErrExist) {
			os.Remove(dst)
		}
		return err
	}
	gotSum, err := checksumFile(dst)
	if err != nil {
		os.Remove(dst)
		return err
	}
	if gotSum != wantSum {
		os.Remove(dst)
		return fmt.Errorf("checksum mismatch moving %s: %s != %s", src, gotSum, wantSum)
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
