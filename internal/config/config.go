// Package config loads regctl settings from a TOML file and reads the
// per-instance JSON config that the agent itself uses.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the settings file inside the state directory.
const FileName = "regctl.toml"

// Environment overrides.
const (
	EnvConfig = "REGCTL_CONFIG"
	EnvHome   = "REGCTL_HOME"
)

// Duration is a time.Duration written as "5s" or "200ms" in TOML.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full regctl configuration.
type Config struct {
	ManagerProcess     string `toml:"manager_process"`
	AgentProcess       string `toml:"agent_process"`
	ManifestFile       string `toml:"manifest_file"`
	VersionFile        string `toml:"version_file"`
	DatabaseFile       string `toml:"database_file"`
	InstanceConfigFile string `toml:"instance_config_file"`

	// ManagerDir pins the manager installation and skips its discovery.
	ManagerDir string `toml:"manager_dir"`
	// DriveRoots empty means every fixed drive.
	DriveRoots  []string `toml:"drive_roots"`
	CommonRoots []string `toml:"common_roots"`
	Excluded    []string `toml:"excluded"`

	ManagerDepth  int `toml:"manager_depth"`
	DriveDepth    int `toml:"drive_depth"`
	InstanceDepth int `toml:"instance_depth"`

	LockWait     Duration `toml:"lock_wait"`
	LockRetries  int      `toml:"lock_retries"`
	RetryDelay   Duration `toml:"retry_delay"`
	ReleaseDelay Duration `toml:"release_delay"`

	RefreshPath string   `toml:"refresh_path"`
	HTTPTimeout Duration `toml:"http_timeout"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ManagerProcess:     "regdesk.exe",
		AgentProcess:       "regagent.exe",
		ManifestFile:       "profiles.json",
		VersionFile:        "version.txt",
		DatabaseFile:       "agent.db",
		InstanceConfigFile: "config.json",
		CommonRoots: []string{
			`C:\RegDesk`,
			`C:\Program Files\RegDesk`,
			`C:\Program Files (x86)\RegDesk`,
			`C:\ProgramData\RegDesk`,
		},
		ManagerDepth:  3,
		DriveDepth:    4,
		InstanceDepth: 5,
		LockWait:      Duration(5 * time.Second),
		LockRetries:   3,
		RetryDelay:    Duration(time.Second),
		ReleaseDelay:  Duration(200 * time.Millisecond),
		RefreshPath:   "/api/shift/refresh",
		HTTPTimeout:   Duration(10 * time.Second),
		LogLevel:      "info",
	}
}

// StateDir returns the directory holding the settings file, the log and
// the console lock. REGCTL_HOME overrides it.
func StateDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(base, "regctl"), nil
}

// Path returns the settings file to load: explicit, then REGCTL_CONFIG,
// then the state directory default.
func Path(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the settings file at path over the defaults. A missing file
// yields the defaults; a missing explicitly named file is an error.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values discovery cannot work with.
func (c *Config) Validate() error {
	if c.AgentProcess == "" {
		return errors.New("agent_process must be set")
	}
	if c.ManagerProcess == "" {
		return errors.New("manager_process must be set")
	}
	for name, v := range map[string]int{
		"manager_depth":  c.ManagerDepth,
		"drive_depth":    c.DriveDepth,
		"instance_depth": c.InstanceDepth,
		"lock_retries":   c.LockRetries,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, v)
		}
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("http_timeout must be positive")
	}
	return nil
}

// Save writes cfg as TOML, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return f.Close()
}
