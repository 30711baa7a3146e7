package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"), nil)
	require.NoError(t, err)
	return db
}

func newAlert(path string, rules ...string) *Alert {
	return &Alert{
		ID:           uuid.NewString(),
		FilePath:     path,
		OriginPath:   filepath.Dir(path),
		MatchedRules: rules,
		PolicyMode:   ModeBlock,
		Status:       StatusPending,
	}
}

func TestAlertLedgerAppendAndGet(t *testing.T) {
	ledger := NewAlertLedger(openTestDB(t), 200)

	alert := newAlert("/watch/report.txt", "Email")
	require.NoError(t, ledger.Append(alert))

	got, err := ledger.Get(alert.ID)
	require.NoError(t, err)
	require.Equal(t, "/watch/report.txt", got.FilePath)
	require.Equal(t, StringArray{"Email"}, got.MatchedRules)
	require.Equal(t, StatusPending, got.Status)
}

func TestAlertLedgerGetMissing(t *testing.T) {
	ledger := NewAlertLedger(openTestDB(t), 200)
	_, err := ledger.Get("nope")
	require.ErrorIs(t, err, ErrAlertNotFound)
}

func TestAlertLedgerListOrderAndFilter(t *testing.T) {
	ledger := NewAlertLedger(openTestDB(t), 200)

	a := newAlert("/watch/a.txt", "Email")
	a.CreatedAt = time.Now().Add(-2 * time.Second)
	b := newAlert("/usb/b.txt", "Aadhaar")
	b.CreatedAt = time.Now().Add(-1 * time.Second)
	require.NoError(t, ledger.Append(a))
	require.NoError(t, ledger.Append(b))

	all, err := ledger.List(ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, a.ID, all[0].ID, "insertion order preserved")

	byRule, err := ledger.List(ListFilter{Query: "aadhaar"})
	require.NoError(t, err)
	require.Len(t, byRule, 1)
	require.Equal(t, b.ID, byRule[0].ID)

	byPath, err := ledger.List(ListFilter{Query: "a.txt"})
	require.NoError(t, err)
	require.Len(t, byPath, 1)

	none, err := ledger.List(ListFilter{Query: "zzz"})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestAlertLedgerTrim(t *testing.T) {
	ledger := NewAlertLedger(openTestDB(t), 3)

	base := time.Now().Add(-time.Minute)
	var first *Alert
	for i := 0; i < 5; i++ {
		a := newAlert("/watch/f.txt", "Email")
		a.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if i == 0 {
			first = a
		}
		require.NoError(t, ledger.Append(a))
	}

	all, err := ledger.List(ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3, "history capped")

	_, err = ledger.Get(first.ID)
	require.ErrorIs(t, err, ErrAlertNotFound, "oldest alert trimmed")
}

func TestAlertLedgerUpdateStatus(t *testing.T) {
	ledger := NewAlertLedger(openTestDB(t), 200)

	alert := newAlert("/watch/x.txt", "Email")
	require.NoError(t, ledger.Append(alert))
	require.NoError(t, ledger.UpdateStatus(alert.ID, StatusAllowed))

	got, err := ledger.Get(alert.ID)
	require.NoError(t, err)
	require.Equal(t, StatusAllowed, got.Status)

	require.ErrorIs(t, ledger.UpdateStatus("missing", StatusDismissed), ErrAlertNotFound)
}

func TestWhitelistMatching(t *testing.T) {
	wl := NewWhitelist(openTestDB(t))

	_, err := wl.Add("/data/exports", KindDirectory)
	require.NoError(t, err)
	_, err = wl.Add("/data/ok.txt", KindFile)
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{"/data/exports", true},
		{"/data/exports/inner/deep.txt", true},
		{"/data/exportsfoo/file.txt", false}, // prefix must stop at a separator
		{"/data/ok.txt", true},
		{"/data/ok.txt.bak", false},
		{"/elsewhere/file.txt", false},
	}
	for _, test := range tests {
		got, err := wl.IsWhitelisted(test.path)
		require.NoError(t, err)
		require.Equal(t, test.want, got, "path %s", test.path)
	}
}

func TestWhitelistAddIdempotent(t *testing.T) {
	wl := NewWhitelist(openTestDB(t))
	_, err := wl.Add("/data/a.txt", KindFile)
	require.NoError(t, err)
	_, err = wl.Add("/data/a.txt", KindFile)
	require.NoError(t, err)

	entries, err := wl.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWhitelistRemoveAndClear(t *testing.T) {
	wl := NewWhitelist(openTestDB(t))
	_, err := wl.Add("/data/a.txt", KindFile)
	require.NoError(t, err)
	_, err = wl.Add("/data/b", KindDirectory)
	require.NoError(t, err)

	require.NoError(t, wl.Remove("/data/a.txt"))
	require.ErrorIs(t, wl.Remove("/data/a.txt"), ErrWhitelistNotFound)

	require.NoError(t, wl.Clear())
	entries, err := wl.List()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWhitelistRejectsBadKind(t *testing.T) {
	wl := NewWhitelist(openTestDB(t))
	_, err := wl.Add("/data/a.txt", "glob")
	require.Error(t, err)
}

func TestQuarantineStoreRoundTrip(t *testing.T) {
	qs := NewQuarantineStore(openTestDB(t))

	rec := &QuarantineRecord{
		ID:             uuid.NewString(),
		OriginalPath:   "/watch/report.txt",
		QuarantinePath: "/quarantine/abc_report.txt",
		MatchedRule:    "Email",
		SizeBytes:      42,
		Checksum:       "deadbeef",
		MovedAt:        time.Now(),
	}
	require.NoError(t, qs.Create(rec))

	got, err := qs.Get(rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec.OriginalPath, got.OriginalPath)
	require.Equal(t, rec.QuarantinePath, got.QuarantinePath)

	n, err := qs.Count()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	require.NoError(t, qs.Delete(rec.ID))
	_, err = qs.Get(rec.ID)
	require.ErrorIs(t, err, ErrQuarantineNotFound)
	require.ErrorIs(t, qs.Delete(rec.ID), ErrQuarantineNotFound)
}

func TestSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	s, err := LoadSettings(db, ModeBlock)
	require.NoError(t, err)
	require.Equal(t, ModeBlock, s.PolicyMode())

	require.NoError(t, s.SetPolicyMode(ModeWarn))
	scanTime := time.Now().Truncate(time.Second)
	require.NoError(t, s.SetLastScanTime(scanTime))

	// Reload from the same database, as after a restart.
	reloaded, err := LoadSettings(db, ModeBlock)
	require.NoError(t, err)
	require.Equal(t, ModeWarn, reloaded.PolicyMode())
	require.True(t, reloaded.LastScanTime().Equal(scanTime))

	require.Error(t, s.SetPolicyMode("audit"))
}
