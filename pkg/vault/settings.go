package vault

import (
	"database/sql"
	"errors"
	"fmt"
)

// Setting returns the decrypted value of a named setting.
func (v *Vault) Setting(name string) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.dek == nil {
		return "", ErrVaultLocked
	}

	var blob []byte
	err := v.db.QueryRow("SELECT value FROM settings WHERE name = ?", name).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("vault: failed to load setting: %w", err)
	}

	value, err := openValue(v.dek, blob)
	if err != nil {
		return "", fmt.Errorf("vault: failed to decrypt setting: %w", err)
	}
	return value, nil
}

// SaveSetting stores a named setting, encrypted, replacing any previous
// value.
func (v *Vault) SaveSetting(name, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dek == nil {
		return ErrVaultLocked
	}

	blob, err := sealValue(v.dek, value)
	if err != nil {
		return fmt.Errorf("vault: failed to encrypt setting: %w", err)
	}

	_, err = v.db.Exec(
		"INSERT INTO settings(name, value) VALUES(?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value",
		name, blob,
	)
	if err != nil {
		return fmt.Errorf("vault: failed to save setting: %w", err)
	}
	return nil
}

// DeleteSetting removes a named setting. Missing settings are not an error.
func (v *Vault) DeleteSetting(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dek == nil {
		return ErrVaultLocked
	}

	if _, err := v.db.Exec("DELETE FROM settings WHERE name = ?", name); err != nil {
		return fmt.Errorf("vault: failed to delete setting: %w", err)
	}
	return nil
}
