package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Dir and File locate the configuration relative to a working directory.
const (
	Dir  = ".bulkcase"
	File = "config.yaml"
)

// Config is the bulkcase configuration.
type Config struct {
	Version  string         `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Batch    BatchConfig    `yaml:"batch"`
	Search   SearchConfig   `yaml:"search"`
	Retry    RetryConfig    `yaml:"retry"`
	Tasks    TasksConfig    `yaml:"tasks"`
	Identity IdentityConfig `yaml:"identity"`
}

// DatabaseConfig locates the SQLite database. An empty path means the
// default under the home directory.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// BatchConfig bounds automatic batch creation.
type BatchConfig struct {
	MinSize        int `yaml:"min_size"`
	MaxSize        int `yaml:"max_size"`
	MaxCasesPerRun int `yaml:"max_cases_per_run"`
}

// SearchConfig controls store paging.
type SearchConfig struct {
	PageSize int `yaml:"page_size"`
}

// RetryConfig controls the per-case retry rule.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

// TasksConfig sets how often each periodic task runs. Zero disables a task.
type TasksConfig struct {
	CreateBulkBatch          time.Duration `yaml:"create_bulk_batch"`
	RetryFailedScheduling    time.Duration `yaml:"retry_failed_scheduling"`
	RetryFailedPronouncement time.Duration `yaml:"retry_failed_pronouncement"`
	MigrateBulkCaseSchema    time.Duration `yaml:"migrate_bulk_case_schema"`
}

// IdentityConfig is who the engine acts as.
type IdentityConfig struct {
	// ServiceCredentialEnv names an environment variable holding the
	// credential; it wins over ServiceCredential when set.
	ServiceCredential    string   `yaml:"service_credential,omitempty"`
	ServiceCredentialEnv string   `yaml:"service_credential_env,omitempty"`
	SystemUserID         string   `yaml:"system_user_id"`
	SystemUserName       string   `yaml:"system_user_name"`
	SystemUserRoles      []string `yaml:"system_user_roles,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: "1",
		Log:     LogConfig{Level: "info", Format: "json"},
		Batch:   BatchConfig{MinSize: 2, MaxSize: 50, MaxCasesPerRun: 250},
		Search:  SearchConfig{PageSize: 50},
		Retry:   RetryConfig{MaxAttempts: 3},
		Tasks: TasksConfig{
			CreateBulkBatch:          time.Hour,
			RetryFailedScheduling:    30 * time.Minute,
			RetryFailedPronouncement: 30 * time.Minute,
			MigrateBulkCaseSchema:    6 * time.Hour,
		},
		Identity: IdentityConfig{
			SystemUserID:    "system-bulk-case",
			SystemUserName:  "Bulk case system user",
			SystemUserRoles: []string{"caseworker-system"},
		},
	}
}

// Path returns the config file path under dir.
func Path(dir string) string {
	return filepath.Join(dir, Dir, File)
}

// LoadConfig reads .bulkcase/config.yaml from dir. Keys missing from the
// file keep their defaults.
func LoadConfig(dir string) (*Config, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", Path(dir), err)
	}

	return cfg, nil
}

// LoadOrDefault is LoadConfig, falling back to Default when dir has no config.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := LoadConfig(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// SaveConfig writes config.yaml to dir.
func SaveConfig(dir string, cfg *Config) error {
	cfgDir := filepath.Join(dir, Dir)
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", Dir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(Path(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks the values the engine cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.Batch.MinSize < 1:
		return fmt.Errorf("batch.min_size must be at least 1")
	case c.Batch.MaxSize < c.Batch.MinSize:
		return fmt.Errorf("batch.max_size (%d) is below batch.min_size (%d)", c.Batch.MaxSize, c.Batch.MinSize)
	case c.Search.PageSize < 1:
		return fmt.Errorf("search.page_size must be at least 1")
	case c.Retry.MaxAttempts < 1:
		return fmt.Errorf("retry.max_attempts must be at least 1")
	case c.Retry.Backoff < 0:
		return fmt.Errorf("retry.backoff must not be negative")
	case c.Identity.SystemUserID == "":
		return fmt.Errorf("identity.system_user_id is required")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}
