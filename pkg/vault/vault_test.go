package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "kxMq2rTz#vN9-master"

func newUnlockedVault(t *testing.T) *Vault {
	t.Helper()
	v := New(t.TempDir())
	require.NoError(t, v.Init(testPassword))
	t.Cleanup(v.Lock)
	return v
}

func TestInitCreatesFiles(t *testing.T) {
	dir := t.TempDir()
	v := New(dir)
	require.NoError(t, v.Init(testPassword))
	defer v.Lock()

	assert.FileExists(t, filepath.Join(dir, DBFileName))
	assert.FileExists(t, filepath.Join(dir, MetaFileName))
	assert.True(t, v.Exists())
	assert.False(t, v.IsLocked())

	info, err := os.Stat(filepath.Join(dir, DBFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FileMode), info.Mode().Perm())
}

func TestInitTwiceFails(t *testing.T) {
	v := newUnlockedVault(t)
	v.Lock()
	assert.ErrorIs(t, New(v.Path()).Init("another-password"), ErrVaultAlreadyExists)
}

func TestInitMetadataFailureRollsBack(t *testing.T) {
	dir := t.TempDir()

	// A directory squatting on the metadata path makes writeMeta fail
	// after the database has been created.
	require.NoError(t, os.Mkdir(filepath.Join(dir, MetaFileName), DirMode))

	v := New(dir)
	require.Error(t, v.Init(testPassword))

	assert.NoFileExists(t, filepath.Join(dir, DBFileName))
	assert.False(t, v.Exists())
	assert.True(t, v.IsLocked())

	// With the obstruction gone, a retry initializes from scratch.
	require.NoError(t, os.Remove(filepath.Join(dir, MetaFileName)))
	require.NoError(t, v.Init(testPassword))
	defer v.Lock()
	assert.False(t, v.IsLocked())
}

func TestInitEmptyPassword(t *testing.T) {
	v := New(t.TempDir())
	assert.ErrorIs(t, v.Init(""), ErrEmptyPassword)
	assert.ErrorIs(t, v.Init("   "), ErrEmptyPassword)
	assert.False(t, v.Exists())
}

func TestUnlockRoundTrip(t *testing.T) {
	v := newUnlockedVault(t)
	v.Lock()
	assert.True(t, v.IsLocked())

	require.NoError(t, v.Unlock(testPassword))
	assert.False(t, v.IsLocked())
}

func TestUnlockWrongPassword(t *testing.T) {
	v := newUnlockedVault(t)
	v.Lock()

	assert.ErrorIs(t, v.Unlock("not-the-password"), ErrInvalidPassword)
	assert.True(t, v.IsLocked())

	// The right password still works after a failed attempt.
	require.NoError(t, v.Unlock(testPassword))
}

func TestUnlockMissingVault(t *testing.T) {
	v := New(t.TempDir())
	assert.ErrorIs(t, v.Unlock(testPassword), ErrVaultNotFound)
}

func TestUnlockWhileUnlocked(t *testing.T) {
	v := newUnlockedVault(t)
	assert.ErrorIs(t, v.Unlock(testPassword), ErrVaultAlreadyUnlocked)
}

func TestLockedOperationsRejected(t *testing.T) {
	v := newUnlockedVault(t)
	v.Lock()

	_, err := v.Records()
	assert.ErrorIs(t, err, ErrVaultLocked)
	_, err = v.ContentValue(1)
	assert.ErrorIs(t, err, ErrVaultLocked)
	assert.ErrorIs(t, v.SaveRecord(&Record{Title: "x", Subtitle: "y"}, nil), ErrVaultLocked)
	assert.ErrorIs(t, v.DeleteRecord(1), ErrVaultLocked)
	assert.ErrorIs(t, v.ChangeMasterPassword(testPassword, "Qm9$Lp2@Wz5!Kx7#"), ErrVaultLocked)
}

func TestDestroy(t *testing.T) {
	v := newUnlockedVault(t)
	require.NoError(t, v.Destroy())

	assert.False(t, v.Exists())
	assert.True(t, v.IsLocked())
	_, err := os.Stat(v.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestChangeMasterPassword(t *testing.T) {
	v := newUnlockedVault(t)

	record := Record{Title: "Mail", Subtitle: "personal", Category: CategoryLogin}
	contents := []Content{
		{Label: "Password", Kind: "Password", Required: true, Value: "kxMq2rTz#vN9"},
	}
	require.NoError(t, v.SaveRecord(&record, contents))

	const newPassword = "Qm9$Lp2@Wz5!Kx7#"
	require.NoError(t, v.ChangeMasterPassword(testPassword, newPassword))
	v.Lock()

	// Old password no longer opens the vault, the new one does, and data
	// written before the change is still readable.
	assert.ErrorIs(t, v.Unlock(testPassword), ErrInvalidPassword)
	require.NoError(t, v.Unlock(newPassword))

	value, err := v.ContentValue(contents[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "kxMq2rTz#vN9", value)
}

func TestChangeMasterPasswordWrongOld(t *testing.T) {
	v := newUnlockedVault(t)
	err := v.ChangeMasterPassword("not-the-password", "Qm9$Lp2@Wz5!Kx7#")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	// The failed attempt must not have re-keyed anything.
	v.Lock()
	require.NoError(t, v.Unlock(testPassword))
}

func TestChangeMasterPasswordWeakNew(t *testing.T) {
	v := newUnlockedVault(t)
	assert.ErrorIs(t, v.ChangeMasterPassword(testPassword, "abc"), ErrWeakPassword)
	assert.ErrorIs(t, v.ChangeMasterPassword(testPassword, "password"), ErrWeakPassword)
	assert.ErrorIs(t, v.ChangeMasterPassword(testPassword, ""), ErrEmptyPassword)

	v.Lock()
	require.NoError(t, v.Unlock(testPassword))
}

func TestUnlockCorruptKeyTable(t *testing.T) {
	v := newUnlockedVault(t)
	_, err := v.db.Exec("DELETE FROM vault_keys")
	require.NoError(t, err)
	v.Lock()

	assert.ErrorIs(t, v.Unlock(testPassword), ErrVaultCorrupted)
}

func TestSnapshot(t *testing.T) {
	v := newUnlockedVault(t)
	record := Record{Title: "Mail", Subtitle: "personal", Category: CategoryLogin}
	require.NoError(t, v.SaveRecord(&record, nil))

	dst := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, v.Snapshot(dst))
	assert.FileExists(t, dst)

	// The snapshot is a usable vault database on its own.
	v.Lock()
	snap := New(filepath.Dir(dst))
	require.NoError(t, os.Rename(dst, filepath.Join(filepath.Dir(dst), DBFileName)))
	require.NoError(t, snap.Unlock(testPassword))
	defer snap.Lock()

	records, err := snap.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Mail", records[0].Title)
}

func TestSettings(t *testing.T) {
	v := newUnlockedVault(t)

	_, err := v.Setting("cloud_address")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	require.NoError(t, v.SaveSetting("cloud_address", "backup.example.com:22"))
	got, err := v.Setting("cloud_address")
	require.NoError(t, err)
	assert.Equal(t, "backup.example.com:22", got)

	require.NoError(t, v.SaveSetting("cloud_address", "other.example.com:2022"))
	got, err = v.Setting("cloud_address")
	require.NoError(t, err)
	assert.Equal(t, "other.example.com:2022", got)

	require.NoError(t, v.DeleteSetting("cloud_address"))
	_, err = v.Setting("cloud_address")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	// Deleting a missing setting is not an error.
	require.NoError(t, v.DeleteSetting("cloud_address"))
}

func TestBreachCache(t *testing.T) {
	v := newUnlockedVault(t)
	const hash = "5BAA61E4C9B93F3F0682250B6CF8331B7EE68FD8"

	_, found, err := v.BreachStatus(hash)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, v.StoreBreachStatus(hash, true))
	exposed, found, err := v.BreachStatus(hash)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, exposed)

	require.NoError(t, v.StoreBreachStatus(hash, false))
	exposed, found, err = v.BreachStatus(hash)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, exposed)
}

func TestBreachCacheExpiry(t *testing.T) {
	v := newUnlockedVault(t)
	const hash = "0018A45C4D1DEF81644B54AB7F969B88D65AD985"

	require.NoError(t, v.StoreBreachStatus(hash, true))

	// Age the row past the TTL; it must read as a miss and be purged on the
	// next unlock.
	stale := BreachCacheTTL * 2
	_, err := v.db.Exec("UPDATE breach_cache SET checked_at = checked_at - ?", int64(stale.Seconds()))
	require.NoError(t, err)

	_, found, err := v.BreachStatus(hash)
	require.NoError(t, err)
	assert.False(t, found)

	v.Lock()
	require.NoError(t, v.Unlock(testPassword))
	var count int
	require.NoError(t, v.db.QueryRow("SELECT COUNT(*) FROM breach_cache").Scan(&count))
	assert.Equal(t, 0, count)
}
