// Package totp generates time-based one-time passwords for vault contents
// holding a shared secret.
package totp

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/strongroom/strongroom/pkg/field"
)

// Period is the TOTP time step in seconds.
const Period = 30

// ErrUnknownContent is returned when no secret is registered for a content
// id.
var ErrUnknownContent = errors.New("totp: no secret registered for content")

// Manager holds the decoded shared secrets of the currently open record's
// TOTP contents, keyed by content id. Secrets live only in memory and the
// set is cleared whenever the record view changes or the vault locks.
type Manager struct {
	mu      sync.RWMutex
	secrets map[int64]string
	now     func() time.Time
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		secrets: make(map[int64]string),
		now:     time.Now,
	}
}

// SetSecret registers the shared secret for a content id. The secret is
// canonicalized to unpadded uppercase base32 and rejected if it does not
// decode or is too short.
func (m *Manager) SetSecret(id int64, secret string) error {
	canonical, err := field.ParseTOTPSecret(secret)
	if err != nil {
		return fmt.Errorf("totp: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[id] = canonical
	return nil
}

// Remove drops the secret for a content id, if present.
func (m *Manager) Remove(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, id)
}

// Reset drops all registered secrets.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets = make(map[int64]string)
}

// Code computes the current code for a content id and the seconds remaining
// in its window. The code is recomputed on every call; callers poll rather
// than cache across windows.
func (m *Manager) Code(id int64) (string, int, error) {
	m.mu.RLock()
	secret, ok := m.secrets[id]
	m.mu.RUnlock()
	if !ok {
		return "", 0, ErrUnknownContent
	}

	now := m.now()
	code, err := totp.GenerateCode(secret, now)
	if err != nil {
		return "", 0, fmt.Errorf("totp: generate code: %w", err)
	}

	remaining := Period - int(now.Unix()%Period)
	return code, remaining, nil
}
