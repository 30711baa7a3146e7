package enforce

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMover(t *testing.T) *Mover {
	t.Helper()
	m, err := NewMover(filepath.Join(t.TempDir(), "quarantine"), zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestQuarantineUniqueNames(t *testing.T) {
	m := newTestMover(t)
	dir := t.TempDir()

	p1 := filepath.Join(dir, "dup.txt")
	require.NoError(t, os.WriteFile(p1, []byte("one"), 0o644))
	q1, _, err := m.Quarantine(p1)
	require.NoError(t, err)

	// Same basename from a fresh file must not collide.
	require.NoError(t, os.WriteFile(p1, []byte("two"), 0o644))
	q2, _, err := m.Quarantine(p1)
	require.NoError(t, err)

	require.NotEqual(t, q1, q2)
	one, err := os.ReadFile(q1)
	require.NoError(t, err)
	require.Equal(t, "one", string(one))
	two, err := os.ReadFile(q2)
	require.NoError(t, err)
	require.Equal(t, "two", string(two))
}

func TestQuarantineChecksumStable(t *testing.T) {
	m := newTestMover(t)
	p := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("payload"), 0o644))

	qpath, sum, err := m.Quarantine(p)
	require.NoError(t, err)

	// The recorded checksum matches the quarantined bytes.
	got, err := checksumFile(qpath)
	require.NoError(t, err)
	require.Equal(t, sum, got)
}

func TestQuarantineChecksumTakenFromDestination(t *testing.T) {
	m := newTestMover(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("origin bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(m.root, "data.txt"), []byte("landed bytes"), 0o644))

	// A relative symlink resolves to a different target once renamed into the
	// quarantine root, so a checksum snapshotted before the move goes stale.
	link := filepath.Join(dir, "leak.txt")
	require.NoError(t, os.Symlink("data.txt", link))

	qpath, sum, err := m.Quarantine(link)
	require.NoError(t, err)
	got, err := checksumFile(qpath)
	require.NoError(t, err)
	require.Equal(t, got, sum)
}

func TestIsQuarantineName(t *testing.T) {
	m := newTestMover(t)
	p := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	qpath, _, err := m.Quarantine(p)
	require.NoError(t, err)

	require.True(t, IsQuarantineName(filepath.Base(qpath)))
	require.False(t, IsQuarantineName("a.txt"))
	require.False(t, IsQuarantineName("not-a-uuid_a.txt"))
	require.False(t, IsQuarantineName("12345678-1234-1234-1234-123456789abc"))
}

func TestRestoreRefusesOccupiedTarget(t *testing.T) {
	m := newTestMover(t)
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("original"), 0o644))

	qpath, _, err := m.Quarantine(p)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(p, []byte("occupant"), 0o644))
	err = m.Restore(qpath, p)
	require.ErrorIs(t, err, ErrRestoreConflict)

	// Neither side was touched.
	occ, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, "occupant", string(occ))
	_, err = os.Stat(qpath)
	require.NoError(t, err)
}

func TestRestoreRecreatesMissingParent(t *testing.T) {
	m := newTestMover(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	p := filepath.Join(sub, "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("data"), 0o644))

	qpath, _, err := m.Quarantine(p)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(sub))

	require.NoError(t, m.Restore(qpath, p))
	content, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, "data", string(content))
}

func TestCopyFallbackVerifies(t *testing.T) {
	m := newTestMover(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("verified payload"), 0o644))

	sum, err := checksumFile(src)
	require.NoError(t, err)

	// Exercise the copy path directly; rename is covered everywhere else.
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, copyFile(src, dst))
	got, err := checksumFile(dst)
	require.NoError(t, err)
	require.Equal(t, sum, got)

	// A wrong expected checksum must refuse to delete the source.
	dst2 := filepath.Join(dir, "dst2.txt")
	err = m.moveByCopy(src, dst2, "0000000000000000")
	require.Error(t, err)
	_, err = os.Stat(src)
	require.NoError(t, err)
	_, err = os.Stat(dst2)
	require.True(t, os.IsNotExist(err))
}

func TestCopyNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("existing"), 0o644))

	require.Error(t, copyFile(src, dst))
	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "existing", string(content))
}
