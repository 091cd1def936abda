package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	pErrors "github.com/zhubert/parley/internal/errors"
)

// Backend modes.
const (
	BackendLocal  = "local"  // embedded store in this process
	BackendRemote = "remote" // websocket relay at ServerURL
)

// Store drivers understood by the store package.
const (
	DriverBolt     = "bolt"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

const (
	defaultListenAddr = "127.0.0.1:7420"
	defaultServerURL  = "ws://127.0.0.1:7420/ws"
)

// Config holds the application configuration
type Config struct {
	Backend     string `json:"backend,omitempty"`      // "local" or "remote"
	DataDir     string `json:"data_dir,omitempty"`     // Root for the embedded store and blobs
	StoreDriver string `json:"store_driver,omitempty"` // bolt, sqlite3, postgres, mysql
	StoreDSN    string `json:"store_dsn,omitempty"`    // Required for postgres and mysql
	ServerURL   string `json:"server_url,omitempty"`   // Relay websocket URL in remote mode

	LastEmail            string `json:"last_email,omitempty"`            // Prefills the sign-in form
	Theme                string `json:"theme,omitempty"`                 // Last seen theme, used before sign-in
	NotificationsEnabled bool   `json:"notifications_enabled,omitempty"` // Desktop notifications for background chats

	// parley serve
	ListenAddr string `json:"listen_addr,omitempty"`
	JWTSecret  string `json:"jwt_secret,omitempty"`

	mu       sync.RWMutex
	filePath string
}

// Dir returns the parley home directory. PARLEY_HOME overrides ~/.parley.
func Dir() (string, error) {
	if d := os.Getenv("PARLEY_HOME"); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".parley"), nil
}

// Path returns the path to the default config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default location, or returns defaults if
// it doesn't exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, pErrors.ConfigLoadFailed("~/.parley", err)
	}
	return LoadFile(path)
}

// LoadFile reads the config at path, or returns defaults if it doesn't exist.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{filePath: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.ensureInitialized()
		return cfg, nil
	}
	if err != nil {
		return nil, pErrors.ConfigLoadFailed(path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, pErrors.ConfigLoadFailed(path, err)
	}

	// Must happen before Validate() since Validate() only reads
	cfg.ensureInitialized()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ensureInitialized fills defaults for empty fields. Not thread-safe; only
// called from Load before the Config is shared.
func (c *Config) ensureInitialized() {
	if c.Backend == "" {
		c.Backend = BackendLocal
	}
	if c.StoreDriver == "" {
		c.StoreDriver = DriverBolt
	}
	if c.DataDir == "" && c.filePath != "" {
		c.DataDir = filepath.Join(filepath.Dir(c.filePath), "data")
	}
	if c.ServerURL == "" {
		c.ServerURL = defaultServerURL
	}
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.Theme == "" {
		c.Theme = "light"
	}
}

// Validate checks that the config is internally consistent.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.Backend {
	case BackendLocal, BackendRemote:
	default:
		return pErrors.ConfigInvalid(fmt.Sprintf("unknown backend %q", c.Backend))
	}

	switch c.StoreDriver {
	case DriverBolt, DriverSQLite:
	case DriverPostgres, DriverMySQL:
		if c.StoreDSN == "" {
			return pErrors.ConfigInvalid(fmt.Sprintf("store driver %s requires store_dsn", c.StoreDriver))
		}
	default:
		return pErrors.ConfigInvalid(fmt.Sprintf("unknown store driver %q", c.StoreDriver))
	}

	if c.Backend == BackendRemote {
		if !strings.HasPrefix(c.ServerURL, "ws://") && !strings.HasPrefix(c.ServerURL, "wss://") {
			return pErrors.ConfigInvalid(fmt.Sprintf("server_url must be a ws:// or wss:// URL, got %q", c.ServerURL))
		}
	}

	switch c.Theme {
	case "light", "dark":
	default:
		return pErrors.ConfigInvalid(fmt.Sprintf("unknown theme %q", c.Theme))
	}

	return nil
}

// Save writes the config to disk atomically.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.filePath == "" {
		return pErrors.ConfigInvalid("config has no file path")
	}
	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return pErrors.ConfigSaveFailed(c.filePath, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return pErrors.ConfigSaveFailed(c.filePath, err)
	}

	tmp := c.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return pErrors.ConfigSaveFailed(c.filePath, err)
	}
	if err := os.Rename(tmp, c.filePath); err != nil {
		os.Remove(tmp)
		return pErrors.ConfigSaveFailed(c.filePath, err)
	}
	return nil
}

// FilePath returns where the config is saved.
func (c *Config) FilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filePath
}

// GetBackend returns the backend mode
func (c *Config) GetBackend() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Backend
}

// SetBackend sets the backend mode
func (c *Config) SetBackend(mode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Backend = mode
}

// GetDataDir returns the data directory for the embedded store and blobs
func (c *Config) GetDataDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.DataDir
}

// GetStore returns the store driver and DSN
func (c *Config) GetStore() (driver, dsn string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.StoreDriver, c.StoreDSN
}

// GetServerURL returns the relay websocket URL
func (c *Config) GetServerURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerURL
}

// SetServerURL sets the relay websocket URL
func (c *Config) SetServerURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ServerURL = url
}

// GetLastEmail returns the email of the last successful sign-in
func (c *Config) GetLastEmail() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LastEmail
}

// SetLastEmail records the email of the last successful sign-in
func (c *Config) SetLastEmail(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastEmail = email
}

// GetTheme returns the last seen theme
func (c *Config) GetTheme() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Theme
}

// SetTheme sets the last seen theme
func (c *Config) SetTheme(theme string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Theme = theme
}

// GetNotificationsEnabled returns whether desktop notifications are enabled
func (c *Config) GetNotificationsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.NotificationsEnabled
}

// SetNotificationsEnabled sets whether desktop notifications are enabled
func (c *Config) SetNotificationsEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.NotificationsEnabled = enabled
}

// GetListenAddr returns the address `parley serve` binds to
func (c *Config) GetListenAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ListenAddr
}

// SetListenAddr sets the address `parley serve` binds to
func (c *Config) SetListenAddr(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ListenAddr = addr
}

// EnsureJWTSecret returns the token signing secret, generating one on first
// use. The second return value reports whether a new secret was created and
// the config needs saving.
func (c *Config) EnsureJWTSecret() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.JWTSecret != "" {
		return c.JWTSecret, false
	}
	c.JWTSecret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	return c.JWTSecret, true
}
