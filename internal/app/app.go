// Package app wires the vault engine into the command surface consumed by
// the UI layer. Each exported method corresponds to one UI command; the
// package owns no state beyond the assembled services.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/strongroom/strongroom/internal/config"
	"github.com/strongroom/strongroom/pkg/cloud"
	"github.com/strongroom/strongroom/pkg/field"
	"github.com/strongroom/strongroom/pkg/security"
	"github.com/strongroom/strongroom/pkg/totp"
	"github.com/strongroom/strongroom/pkg/vault"
)

// Window modes returned by InitializeWindow.
const (
	WindowRegister = "Register"
	WindowLogin    = "Login"
	WindowMain     = "Main"
)

// Errors
var (
	ErrPasswordMismatch = errors.New("app: passwords do not match")
	ErrNotPassword      = errors.New("app: content is not a password")
	ErrNotBankCard      = errors.New("app: content is not a bank card number")
)

// App assembles the vault, the security services and the sync service
// behind the UI command surface.
type App struct {
	cfg    *config.Config
	vault  *vault.Vault
	totp   *totp.Manager
	breach *security.BreachChecker
	cloud  *cloud.Service
	logger *log.Entry
}

// New builds the application services from configuration.
func New(cfg *config.Config) *App {
	v := vault.New(cfg.Storage.DataDir)
	return &App{
		cfg:    cfg,
		vault:  v,
		totp:   totp.NewManager(),
		breach: security.NewBreachChecker(cfg.Breach.ServiceURL, v),
		cloud:  cloud.NewService(v, cfg.Cloud.RemoteFolder, vault.DBFileName),
		logger: log.WithField("component", "app"),
	}
}

// Vault exposes the underlying vault for callers that need direct access,
// such as the CLI.
func (a *App) Vault() *vault.Vault {
	return a.vault
}

// InitializeWindow selects the UI mode: Register when no vault exists,
// Login when one exists but is locked, Main when a session is active.
func (a *App) InitializeWindow() string {
	switch {
	case !a.vault.Exists():
		return WindowRegister
	case a.vault.IsLocked():
		return WindowLogin
	default:
		return WindowMain
	}
}

// Register creates the vault and opens the first session.
func (a *App) Register(password, confirm string) error {
	if strings.TrimSpace(password) == "" {
		return vault.ErrEmptyPassword
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return a.vault.Init(password)
}

// Login opens a session against the existing vault.
func (a *App) Login(password string) error {
	return a.vault.Unlock(password)
}

// StartOver destroys the vault and all local data, returning the app to
// the Register mode. The UI confirms with the user before calling this.
func (a *App) StartOver() error {
	a.totp.Reset()
	return a.vault.Destroy()
}

// ChangePassword re-keys the vault. The new password and its confirmation
// must match; the old one must verify.
func (a *App) ChangePassword(oldPassword, newPassword, confirm string) error {
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	return a.vault.ChangeMasterPassword(oldPassword, newPassword)
}

// Close locks the vault and clears in-memory secrets. Called on app exit.
func (a *App) Close() {
	a.totp.Reset()
	a.vault.Lock()
}

// GetAllRecords lists all records, most recently modified first.
func (a *App) GetAllRecords() ([]vault.Record, error) {
	return a.vault.Records()
}

// SaveRecord persists a record with its contents and returns the record
// id.
func (a *App) SaveRecord(record *vault.Record, contents []vault.Content) (int64, error) {
	if err := a.vault.SaveRecord(record, contents); err != nil {
		return 0, err
	}
	return record.ID, nil
}

// DeleteRecord removes a record and its contents.
func (a *App) DeleteRecord(id int64) error {
	return a.vault.DeleteRecord(id)
}

// GetAllContentForRecord returns a record's contents. An unsaved record
// gets the default template for its category. TOTP secrets found in a
// saved record are loaded into the TOTP manager so GetTOTPCode can serve
// them; the previous set is dropped.
func (a *App) GetAllContentForRecord(record vault.Record) ([]vault.Content, error) {
	if record.ID == 0 {
		return vault.DefaultContent(record.Category), nil
	}

	contents, err := a.vault.ContentsForRecord(record.ID)
	if err != nil {
		return nil, err
	}

	a.totp.Reset()
	for _, c := range contents {
		if c.Kind != field.TOTPSecret {
			continue
		}
		secret, err := a.vault.ContentValue(c.ID)
		if err != nil {
			return nil, err
		}
		if err := a.totp.SetSecret(c.ID, secret); err != nil {
			a.logger.WithError(err).WithField("content", c.ID).Warn("skipping invalid TOTP secret")
		}
	}
	return contents, nil
}

// DeleteContent removes one content field from its record.
func (a *App) DeleteContent(id int64) error {
	if err := a.vault.DeleteContent(id); err != nil {
		return err
	}
	a.totp.Remove(id)
	return nil
}

// GetContentValue returns the decrypted value of one content field.
func (a *App) GetContentValue(id int64) (string, error) {
	return a.vault.ContentValue(id)
}

// Validate checks a value against its kind and returns a user-displayable
// message, or "" when valid.
func (a *App) Validate(kind, value string) string {
	return field.Validate(field.Kind(kind), value)
}

// PasswordStrength scores a password from 0 to 100.
func (a *App) PasswordStrength(password string) int {
	return security.Score(password)
}

// CheckPassword classifies a stored password as Common, Exposed or Ok.
func (a *App) CheckPassword(ctx context.Context, id int64) (security.BreachStatus, error) {
	content, err := a.vault.Content(id)
	if err != nil {
		return "", err
	}
	if content.Kind != field.Password {
		return "", ErrNotPassword
	}
	return a.breach.Check(ctx, content.Value), nil
}

// GetCompromisedRecords returns the ids of records holding at least one
// password that is common or exposed.
func (a *App) GetCompromisedRecords(ctx context.Context) ([]int64, error) {
	records, err := a.vault.Records()
	if err != nil {
		return nil, err
	}

	var compromised []int64
	for _, record := range records {
		contents, err := a.vault.ContentsForRecord(record.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range contents {
			if c.Kind != field.Password {
				continue
			}
			status, err := a.CheckPassword(ctx, c.ID)
			if err != nil {
				return nil, err
			}
			if status == security.BreachCommon || status == security.BreachExposed {
				compromised = append(compromised, record.ID)
				break
			}
		}
	}
	return compromised, nil
}

// GeneratePassword returns a random password drawn from the selected
// character classes.
func (a *App) GeneratePassword(length int, numbers, uppercase, lowercase, symbols bool) (string, error) {
	return security.GeneratePassword(length, numbers, uppercase, lowercase, symbols)
}

// GetTOTPCode returns the current code and the seconds left in its window
// for a TOTP content loaded by GetAllContentForRecord.
func (a *App) GetTOTPCode(id int64) (string, int, error) {
	return a.totp.Code(id)
}

// CardType names the card network of a stored bank card number.
func (a *App) CardType(id int64) (string, error) {
	content, err := a.vault.Content(id)
	if err != nil {
		return "", err
	}
	if content.Kind != field.BankCardNumber {
		return "", ErrNotBankCard
	}
	return field.CardNetwork(content.Value), nil
}

// CloudData returns the configured sync address and username for display.
func (a *App) CloudData() (address, username string, err error) {
	return a.cloud.Data()
}

// EnableCloud configures sync and performs the initial upload.
func (a *App) EnableCloud(address, username, password string) error {
	return a.cloud.Enable(address, username, password)
}

// DisableCloud discards the sync configuration.
func (a *App) DisableCloud() error {
	return a.cloud.Disable()
}

// SaveToCloud pushes the encrypted database to the sync host and returns a
// display status.
func (a *App) SaveToCloud() (string, error) {
	status, err := a.cloud.Upload()
	if err != nil {
		// Sync failures never block local use; surface them as status text.
		a.logger.WithError(err).Warn("cloud upload failed")
		return fmt.Sprintf("Sync failed: %v", err), nil
	}
	return status, nil
}

// RestoreFromCloud replaces the local vault with the remote copy. The
// download completes before the local database is touched, then the
// session is closed and the remote file moved into place; the caller must
// log in again with the remote vault's master password.
func (a *App) RestoreFromCloud() error {
	dbPath := a.vault.DatabasePath()
	staging := dbPath + ".download"
	if err := a.cloud.Download(staging); err != nil {
		return err
	}

	a.totp.Reset()
	a.vault.Lock()

	if err := os.Rename(staging, dbPath); err != nil {
		os.Remove(staging)
		return fmt.Errorf("app: failed to replace local vault: %w", err)
	}
	a.logger.Info("vault restored from remote copy")
	return nil
}
