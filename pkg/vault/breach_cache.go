package vault

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BreachStatus returns the cached breach verdict for a password hash.
// Verdicts older than BreachCacheTTL are treated as misses. Implements
// security.BreachCache.
func (v *Vault) BreachStatus(hash string) (exposed, found bool, err error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.dek == nil {
		return false, false, ErrVaultLocked
	}

	cutoff := time.Now().Add(-BreachCacheTTL).Unix()
	err = v.db.QueryRow(
		"SELECT exposed FROM breach_cache WHERE hash = ? AND checked_at > ?", hash, cutoff,
	).Scan(&exposed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("vault: failed to query breach cache: %w", err)
	}
	return exposed, true, nil
}

// StoreBreachStatus records a breach verdict for a password hash.
// Implements security.BreachCache.
func (v *Vault) StoreBreachStatus(hash string, exposed bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dek == nil {
		return ErrVaultLocked
	}

	_, err := v.db.Exec(
		"INSERT INTO breach_cache(hash, exposed, checked_at) VALUES(?, ?, ?) "+
			"ON CONFLICT(hash) DO UPDATE SET exposed = excluded.exposed, checked_at = excluded.checked_at",
		hash, exposed, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("vault: failed to store breach verdict: %w", err)
	}
	return nil
}

// purgeBreachCache drops verdicts older than BreachCacheTTL. Called with
// v.mu held.
func (v *Vault) purgeBreachCache() error {
	cutoff := time.Now().Add(-BreachCacheTTL).Unix()
	if _, err := v.db.Exec("DELETE FROM breach_cache WHERE checked_at <= ?", cutoff); err != nil {
		return fmt.Errorf("vault: failed to purge breach cache: %w", err)
	}
	return nil
}
