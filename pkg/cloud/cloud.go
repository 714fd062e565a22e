// Package cloud replicates the encrypted vault database to a remote host
// over SFTP. Replication is best effort: the vault stays fully usable when
// the remote is unreachable.
package cloud

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
)

// Settings keys under which the sync configuration is stored. They live in
// the vault's encrypted settings table, so credentials never touch disk in
// plaintext.
const (
	settingEnabled  = "cloud"
	settingAddress  = "cloud_address"
	settingUsername = "cloud_username"
	settingPassword = "cloud_password"
)

// DefaultPort is appended to addresses given without a port.
const DefaultPort = "22"

// remoteTimeout bounds every remote operation, connection and transfer
// alike.
const remoteTimeout = 30 * time.Second

// StatusSyncing is returned by Upload when another upload is already in
// flight; the new request is dropped, not queued.
const StatusSyncing = "Sync in progress"

// Errors
var (
	ErrInvalidAddress = errors.New("cloud: invalid address")
	ErrInvalidConfig  = errors.New("cloud: invalid configuration")
	ErrConnection     = errors.New("cloud: connection failed")
	ErrAuth           = errors.New("cloud: authentication failed")
	ErrNotEnabled     = errors.New("cloud: sync is not enabled")
	ErrNoRemoteCopy   = errors.New("cloud: no remote copy exists")
)

// Config holds the sync target. Password is write-once: it is persisted on
// Enable and never read back out through Data.
type Config struct {
	Address  string `validate:"required"`
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Store is the vault surface the sync service needs: encrypted settings
// plus a consistent database snapshot.
type Store interface {
	Setting(name string) (string, error)
	SaveSetting(name, value string) error
	DeleteSetting(name string) error
	Snapshot(dst string) error
}

// DialFunc opens an SFTP session to addr. Injected so tests can run against
// an in-memory remote.
type DialFunc func(addr string, cfg Config) (RemoteFS, error)

// RemoteFS is the slice of SFTP the service uses.
type RemoteFS interface {
	Stat(path string) (os.FileInfo, error)
	Mkdir(path string) error
	Remove(path string) error
	Rename(oldPath, newPath string) error
	Create(path string) (io.WriteCloser, error)
	Open(path string) (io.ReadCloser, error)
	Close() error
}

// Service replicates the vault database file into a remote folder. One
// upload may be in flight at a time.
type Service struct {
	store     Store
	folder    string
	fileName  string
	dial      DialFunc
	validate  *validator.Validate
	uploading atomic.Bool
	logger    *log.Entry
}

// NewService creates a sync service uploading fileName into the remote
// directory folder.
func NewService(store Store, folder, fileName string) *Service {
	return &Service{
		store:    store,
		folder:   folder,
		fileName: fileName,
		dial:     dialSFTP,
		validate: validator.New(),
		logger:   log.WithField("component", "cloud"),
	}
}

// NormalizeAddress validates a sync address and appends the default SSH
// port when none is given.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", ErrInvalidAddress
	}

	if _, port, err := net.SplitHostPort(address); err == nil && port != "" {
		return address, nil
	}

	// Raw IPv6 addresses need brackets before a port can be attached.
	if strings.Count(address, ":") >= 2 {
		if strings.HasPrefix(address, "[") {
			return "", ErrInvalidAddress
		}
		return net.JoinHostPort(address, DefaultPort), nil
	}
	if strings.Contains(address, ":") {
		return "", ErrInvalidAddress
	}
	return net.JoinHostPort(address, DefaultPort), nil
}

// Enabled reports whether sync is configured.
func (s *Service) Enabled() bool {
	value, err := s.store.Setting(settingEnabled)
	return err == nil && value == "true"
}

// Data returns the configured address and username for display. The
// password is never returned.
func (s *Service) Data() (address, username string, err error) {
	if !s.Enabled() {
		return "", "", ErrNotEnabled
	}
	if address, err = s.store.Setting(settingAddress); err != nil {
		return "", "", fmt.Errorf("cloud: failed to load address: %w", err)
	}
	if username, err = s.store.Setting(settingUsername); err != nil {
		return "", "", fmt.Errorf("cloud: failed to load username: %w", err)
	}
	return address, username, nil
}

// Enable verifies the target with a full handshake, persists the
// configuration and performs the initial upload. Nothing is persisted when
// the handshake fails.
func (s *Service) Enable(address, username, password string) error {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return err
	}

	cfg := Config{Address: normalized, Username: username, Password: password}
	if err := s.validate.Struct(&cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	remote, err := s.dial(normalized, cfg)
	if err != nil {
		return err
	}
	remote.Close()

	if err := s.store.SaveSetting(settingEnabled, "true"); err != nil {
		return fmt.Errorf("cloud: failed to persist configuration: %w", err)
	}
	if err := s.store.SaveSetting(settingAddress, normalized); err != nil {
		return fmt.Errorf("cloud: failed to persist configuration: %w", err)
	}
	if err := s.store.SaveSetting(settingUsername, username); err != nil {
		return fmt.Errorf("cloud: failed to persist configuration: %w", err)
	}
	if err := s.store.SaveSetting(settingPassword, password); err != nil {
		return fmt.Errorf("cloud: failed to persist configuration: %w", err)
	}

	s.logger.WithField("address", normalized).Info("cloud sync enabled")

	if _, err := s.Upload(); err != nil {
		return err
	}
	return nil
}

// Disable discards the sync configuration. The remote copy is left in
// place.
func (s *Service) Disable() error {
	if err := s.store.SaveSetting(settingEnabled, "false"); err != nil {
		return fmt.Errorf("cloud: failed to disable sync: %w", err)
	}
	for _, name := range []string{settingAddress, settingUsername, settingPassword} {
		if err := s.store.DeleteSetting(name); err != nil {
			return fmt.Errorf("cloud: failed to clear configuration: %w", err)
		}
	}
	s.logger.Info("cloud sync disabled")
	return nil
}

// Upload pushes a snapshot of the database file to the remote folder,
// rotating the previous remote copy to a .backup file first. The returned
// status is display text. A second call while an upload is in flight
// returns StatusSyncing without queueing.
func (s *Service) Upload() (string, error) {
	if !s.uploading.CompareAndSwap(false, true) {
		return StatusSyncing, nil
	}
	defer s.uploading.Store(false)

	cfg, err := s.config()
	if err != nil {
		return "", err
	}

	snapshot, err := s.snapshotLocal()
	if err != nil {
		return "", err
	}
	defer os.Remove(snapshot)

	remote, err := s.dial(cfg.Address, cfg)
	if err != nil {
		return "", err
	}
	defer remote.Close()

	if _, err := remote.Stat(s.folder); err != nil {
		if err := remote.Mkdir(s.folder); err != nil {
			return "", fmt.Errorf("cloud: failed to create remote folder: %w", err)
		}
	}

	remotePath := path.Join(s.folder, s.fileName)
	backupPath := remotePath + ".backup"

	if _, err := remote.Stat(remotePath); err == nil {
		// Ignore the remove error: the backup may simply not exist yet.
		_ = remote.Remove(backupPath)
		if err := remote.Rename(remotePath, backupPath); err != nil {
			return "", fmt.Errorf("cloud: failed to rotate remote backup: %w", err)
		}
	}

	src, err := os.Open(snapshot)
	if err != nil {
		return "", fmt.Errorf("cloud: failed to open snapshot: %w", err)
	}
	defer src.Close()

	dst, err := remote.Create(remotePath)
	if err != nil {
		return "", fmt.Errorf("cloud: failed to create remote file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("cloud: failed to upload database: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("cloud: failed to finish upload: %w", err)
	}

	s.logger.Info("database uploaded")
	return "Last sync: " + time.Now().Format("15:04:05"), nil
}

// Download fetches the remote copy of the database into dst. The file is
// written next to dst first and moved into place only when the transfer
// completed, so a broken connection never leaves a truncated dst behind.
// The caller decides what to do with the file; the service never touches
// the live database.
func (s *Service) Download(dst string) error {
	cfg, err := s.config()
	if err != nil {
		return err
	}

	remote, err := s.dial(cfg.Address, cfg)
	if err != nil {
		return err
	}
	defer remote.Close()

	remotePath := path.Join(s.folder, s.fileName)
	if _, err := remote.Stat(remotePath); err != nil {
		return ErrNoRemoteCopy
	}

	src, err := remote.Open(remotePath)
	if err != nil {
		return fmt.Errorf("cloud: failed to open remote file: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return fmt.Errorf("cloud: failed to create download file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("cloud: failed to download database: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cloud: failed to finish download: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cloud: failed to restrict download file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cloud: failed to place download: %w", err)
	}

	s.logger.Info("database downloaded")
	return nil
}

func (s *Service) config() (Config, error) {
	if !s.Enabled() {
		return Config{}, ErrNotEnabled
	}

	var cfg Config
	var err error
	if cfg.Address, err = s.store.Setting(settingAddress); err != nil {
		return Config{}, fmt.Errorf("cloud: failed to load address: %w", err)
	}
	if cfg.Username, err = s.store.Setting(settingUsername); err != nil {
		return Config{}, fmt.Errorf("cloud: failed to load username: %w", err)
	}
	if cfg.Password, err = s.store.Setting(settingPassword); err != nil {
		return Config{}, fmt.Errorf("cloud: failed to load password: %w", err)
	}
	return cfg, nil
}

// snapshotLocal writes a consistent copy of the database to a temporary
// file and returns its path. The caller removes it.
func (s *Service) snapshotLocal() (string, error) {
	tmp, err := os.CreateTemp("", "vault-sync-*.db")
	if err != nil {
		return "", fmt.Errorf("cloud: failed to create snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	// VACUUM INTO refuses to overwrite an existing file.
	if err := os.Remove(tmpPath); err != nil {
		return "", fmt.Errorf("cloud: failed to prepare snapshot file: %w", err)
	}
	if err := s.store.Snapshot(tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("cloud: failed to snapshot database: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("cloud: failed to restrict snapshot file: %w", err)
	}
	return filepath.Clean(tmpPath), nil
}
