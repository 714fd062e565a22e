// Package vault provides the encrypted local store for records and their
// typed contents. All row data is encrypted with AES-256-GCM before it
// reaches SQLite; the data keys are wrapped by a key derived from the
// master password, so changing the master password never rewrites row
// ciphertexts.
package vault

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	_ "modernc.org/sqlite"

	"github.com/strongroom/strongroom/pkg/crypto"
	"github.com/strongroom/strongroom/pkg/security"
)

const (
	// DBFileName is the SQLite database file inside the vault directory.
	DBFileName = "vault.db"
	// MetaFileName is the plaintext metadata file (format version, creation
	// time). It never holds secrets.
	MetaFileName = "vault.meta"

	// FileMode restricts vault files to the owner.
	FileMode = 0600
	// DirMode restricts the vault directory to the owner.
	DirMode = 0700

	// FormatVersion identifies the on-disk layout.
	FormatVersion = "1"

	// MinPasswordScore is the strength floor a new master password must
	// reach when changing the master password.
	MinPasswordScore = 40

	// BreachCacheTTL bounds how long a cached breach verdict is served
	// before a fresh remote lookup is required.
	BreachCacheTTL = 24 * time.Hour
)

// Errors
var (
	ErrVaultAlreadyExists   = errors.New("vault: vault already exists at this path")
	ErrVaultNotFound        = errors.New("vault: vault not found at this path")
	ErrVaultLocked          = errors.New("vault: vault is locked")
	ErrVaultAlreadyUnlocked = errors.New("vault: vault is already unlocked")
	ErrInvalidPassword      = errors.New("vault: invalid master password")
	ErrEmptyPassword        = errors.New("vault: password cannot be empty")
	ErrWeakPassword         = errors.New("vault: new master password is too weak")
	ErrVaultCorrupted       = errors.New("vault: vault is corrupted")
	ErrRecordNotFound       = errors.New("vault: record not found")
	ErrContentNotFound      = errors.New("vault: content not found")
	ErrContentRequired      = errors.New("vault: required content cannot be deleted")
	ErrSettingNotFound      = errors.New("vault: setting not found")
)

// vaultMeta is the plaintext sidecar describing the vault file format.
type vaultMeta struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Vault manages one encrypted vault directory. The zero state is locked;
// Init or Unlock transitions it to unlocked, Lock and Destroy transition it
// back. All methods are safe for concurrent use.
type Vault struct {
	path   string
	dek    []byte // data key for titles, labels and non-sensitive values
	fek    []byte // field key for sensitive values, independent of the DEK
	db     *sql.DB
	mu     sync.RWMutex
	logger *log.Entry
}

// New creates a Vault handle for the given directory. Nothing is opened or
// created until Init or Unlock.
func New(path string) *Vault {
	return &Vault{
		path:   path,
		logger: log.WithField("component", "vault"),
	}
}

// Path returns the vault directory.
func (v *Vault) Path() string {
	return v.path
}

// DatabasePath returns the path of the encrypted database file.
func (v *Vault) DatabasePath() string {
	return filepath.Join(v.path, DBFileName)
}

// Exists reports whether a vault database is present on disk.
func (v *Vault) Exists() bool {
	_, err := os.Stat(v.DatabasePath())
	return err == nil
}

// IsLocked reports whether the vault is locked.
func (v *Vault) IsLocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dek == nil
}

// Init creates a new vault protected by masterPassword and leaves it
// unlocked. The master password is used to derive a key-encryption key
// which wraps two freshly generated data keys.
func (v *Vault) Init(masterPassword string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if strings.TrimSpace(masterPassword) == "" {
		return ErrEmptyPassword
	}
	if v.exists() {
		return ErrVaultAlreadyExists
	}

	if err := os.MkdirAll(v.path, DirMode); err != nil {
		return fmt.Errorf("vault: failed to create vault directory: %w", err)
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return fmt.Errorf("vault: failed to generate salt: %w", err)
	}

	password := crypto.NormalizePassword(masterPassword)
	kek := crypto.DeriveKey(password, salt)
	crypto.SecureWipe(password)
	defer crypto.SecureWipe(kek)

	dek, err := crypto.NewKey()
	if err != nil {
		return fmt.Errorf("vault: failed to generate data key: %w", err)
	}
	fek, err := crypto.NewKey()
	if err != nil {
		crypto.SecureWipe(dek)
		return fmt.Errorf("vault: failed to generate field key: %w", err)
	}

	wrappedDEK, err := crypto.Seal(kek, dek)
	if err == nil {
		var wrappedFEK []byte
		wrappedFEK, err = crypto.Seal(kek, fek)
		if err == nil {
			err = v.createDatabase(salt, wrappedDEK, wrappedFEK)
		}
	}
	if err != nil {
		crypto.SecureWipe(dek)
		crypto.SecureWipe(fek)
		return err
	}

	if err := v.writeMeta(); err != nil {
		crypto.SecureWipe(dek)
		crypto.SecureWipe(fek)
		// Roll the half-created vault back; a retry must see no vault.
		v.db.Close()
		v.db = nil
		os.Remove(v.DatabasePath())
		return err
	}

	v.dek = dek
	v.fek = fek
	v.logger.Info("vault initialized")
	return nil
}

// Unlock opens an existing vault with the master password. A wrong password
// yields ErrInvalidPassword; an unreadable key table yields
// ErrVaultCorrupted. Stale breach cache rows are purged on success.
func (v *Vault) Unlock(masterPassword string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.exists() {
		return ErrVaultNotFound
	}
	if v.dek != nil {
		return ErrVaultAlreadyUnlocked
	}

	db, err := openDatabase(v.DatabasePath())
	if err != nil {
		return fmt.Errorf("vault: failed to open database: %w", err)
	}

	var salt, wrappedDEK, wrappedFEK []byte
	err = db.QueryRow("SELECT kek_salt, encrypted_dek, encrypted_fek FROM vault_keys WHERE id = 1").
		Scan(&salt, &wrappedDEK, &wrappedFEK)
	if err != nil {
		db.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVaultCorrupted
		}
		return fmt.Errorf("%w: failed to read key table: %v", ErrVaultCorrupted, err)
	}
	if len(salt) != crypto.SaltLength {
		db.Close()
		return ErrVaultCorrupted
	}

	password := crypto.NormalizePassword(masterPassword)
	kek := crypto.DeriveKey(password, salt)
	crypto.SecureWipe(password)
	defer crypto.SecureWipe(kek)

	dek, err := crypto.Open(kek, wrappedDEK)
	if err != nil {
		db.Close()
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("vault: failed to unwrap data key: %w", err)
	}
	fek, err := crypto.Open(kek, wrappedFEK)
	if err != nil {
		crypto.SecureWipe(dek)
		db.Close()
		return ErrVaultCorrupted
	}

	v.dek = dek
	v.fek = fek
	v.db = db

	if err := v.purgeBreachCache(); err != nil {
		v.logger.WithError(err).Warn("failed to purge stale breach cache")
	}

	v.logger.Info("vault unlocked")
	return nil
}

// Lock closes the vault and wipes key material from memory.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lockLocked()
}

func (v *Vault) lockLocked() {
	if v.dek != nil {
		crypto.SecureWipe(v.dek)
		v.dek = nil
	}
	if v.fek != nil {
		crypto.SecureWipe(v.fek)
		v.fek = nil
	}
	if v.db != nil {
		v.db.Close()
		v.db = nil
	}
}

// Destroy locks the vault and deletes the vault directory, returning the
// store to its uninitialized state. The remote copy, if any, is untouched.
func (v *Vault) Destroy() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.lockLocked()
	if err := os.RemoveAll(v.path); err != nil {
		return fmt.Errorf("vault: failed to remove vault directory: %w", err)
	}
	v.logger.Info("vault destroyed")
	return nil
}

// ChangeMasterPassword re-wraps the data keys under a key derived from
// newPassword. The old password must verify and the new one must satisfy
// the strength floor. The re-key is a single transaction: on any failure
// the previous password keeps working. Row ciphertexts are not rewritten.
func (v *Vault) ChangeMasterPassword(oldPassword, newPassword string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dek == nil {
		return ErrVaultLocked
	}
	if strings.TrimSpace(newPassword) == "" {
		return ErrEmptyPassword
	}
	if security.Score(newPassword) < MinPasswordScore {
		return ErrWeakPassword
	}

	var salt, wrappedDEK []byte
	err := v.db.QueryRow("SELECT kek_salt, encrypted_dek FROM vault_keys WHERE id = 1").
		Scan(&salt, &wrappedDEK)
	if err != nil {
		return fmt.Errorf("%w: failed to read key table: %v", ErrVaultCorrupted, err)
	}

	oldNorm := crypto.NormalizePassword(oldPassword)
	oldKEK := crypto.DeriveKey(oldNorm, salt)
	crypto.SecureWipe(oldNorm)
	check, err := crypto.Open(oldKEK, wrappedDEK)
	crypto.SecureWipe(oldKEK)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("vault: failed to verify old password: %w", err)
	}
	crypto.SecureWipe(check)

	newSalt, err := crypto.NewSalt()
	if err != nil {
		return fmt.Errorf("vault: failed to generate salt: %w", err)
	}
	newNorm := crypto.NormalizePassword(newPassword)
	newKEK := crypto.DeriveKey(newNorm, newSalt)
	crypto.SecureWipe(newNorm)
	defer crypto.SecureWipe(newKEK)

	newWrappedDEK, err := crypto.Seal(newKEK, v.dek)
	if err != nil {
		return fmt.Errorf("vault: failed to wrap data key: %w", err)
	}
	newWrappedFEK, err := crypto.Seal(newKEK, v.fek)
	if err != nil {
		return fmt.Errorf("vault: failed to wrap field key: %w", err)
	}

	tx, err := v.db.Begin()
	if err != nil {
		return fmt.Errorf("vault: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"UPDATE vault_keys SET kek_salt = ?, encrypted_dek = ?, encrypted_fek = ? WHERE id = 1",
		newSalt, newWrappedDEK, newWrappedFEK,
	)
	if err != nil {
		return fmt.Errorf("vault: failed to update key table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vault: failed to commit re-key: %w", err)
	}

	v.logger.Info("master password changed")
	return nil
}

// Snapshot writes a consistent copy of the database file to dst using
// VACUUM INTO. The copy carries the same encryption as the live file.
func (v *Vault) Snapshot(dst string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.db == nil {
		return ErrVaultLocked
	}
	if _, err := v.db.Exec("VACUUM INTO ?", dst); err != nil {
		return fmt.Errorf("vault: failed to snapshot database: %w", err)
	}
	return nil
}

func (v *Vault) exists() bool {
	_, err := os.Stat(v.DatabasePath())
	return err == nil
}

func (v *Vault) writeMeta() error {
	meta := vaultMeta{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: failed to marshal metadata: %w", err)
	}
	path := filepath.Join(v.path, MetaFileName)
	if err := os.WriteFile(path, data, FileMode); err != nil {
		return fmt.Errorf("vault: failed to write metadata file: %w", err)
	}
	return nil
}

func (v *Vault) createDatabase(salt, wrappedDEK, wrappedFEK []byte) error {
	dbPath := v.DatabasePath()
	db, err := openDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("vault: failed to create database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return fmt.Errorf("vault: failed to create tables: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return fmt.Errorf("vault: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO vault_keys(id, kek_salt, encrypted_dek, encrypted_fek) VALUES(1, ?, ?, ?)",
		salt, wrappedDEK, wrappedFEK,
	)
	if err != nil {
		db.Close()
		return fmt.Errorf("vault: failed to store wrapped keys: %w", err)
	}
	if err := tx.Commit(); err != nil {
		db.Close()
		return fmt.Errorf("vault: failed to commit key table: %w", err)
	}

	if err := os.Chmod(dbPath, FileMode); err != nil {
		db.Close()
		return fmt.Errorf("vault: failed to set database permissions: %w", err)
	}

	v.db = db
	return nil
}

// openDatabase opens the SQLite file with a single connection so writes are
// serialized at the driver level.
func openDatabase(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS vault_keys (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		kek_salt BLOB NOT NULL,
		encrypted_dek BLOB NOT NULL,
		encrypted_fek BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title BLOB NOT NULL,
		subtitle BLOB NOT NULL,
		category TEXT NOT NULL,
		created INTEGER NOT NULL,
		last_modified INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS contents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id INTEGER NOT NULL,
		label BLOB NOT NULL,
		position INTEGER NOT NULL,
		required INTEGER NOT NULL,
		kind TEXT NOT NULL,
		value BLOB NOT NULL,
		FOREIGN KEY (record_id) REFERENCES records(id)
			ON UPDATE CASCADE ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS settings (
		name TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS breach_cache (
		hash TEXT PRIMARY KEY,
		exposed INTEGER NOT NULL,
		checked_at INTEGER NOT NULL
	);`
	_, err := db.Exec(schema)
	return err
}

// sealValue encrypts a string with the given key.
func sealValue(key []byte, value string) ([]byte, error) {
	return crypto.Seal(key, []byte(value))
}

// openValue decrypts a row blob back to a string.
func openValue(key []byte, blob []byte) (string, error) {
	plaintext, err := crypto.Open(key, blob)
	if err != nil {
		return "", err
	}
	value := string(plaintext)
	crypto.SecureWipe(plaintext)
	return value, nil
}
