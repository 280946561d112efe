package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethpandaops/benchreport/pkg/benchmark"
	"github.com/ethpandaops/benchreport/pkg/cpufreq"
	"github.com/ethpandaops/benchreport/pkg/fsutil"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix of environment variable overrides, e.g.
	// BENCHREPORT_GLOBAL_LOG_LEVEL.
	EnvPrefix = "BENCHREPORT"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultResultsDir is the default directory for run results.
	DefaultResultsDir = "./results"

	// DefaultS3Region is the region used when none is configured.
	DefaultS3Region = "us-east-1"

	// DefaultS3Prefix is the key prefix run directories are uploaded under.
	DefaultS3Prefix = "results/runs"

	// DefaultUploadConcurrency bounds parallel object uploads.
	DefaultUploadConcurrency = 4

	// DefaultStoreDriver is the default history database driver.
	DefaultStoreDriver = "sqlite"

	// DefaultSQLitePath is the default history database file.
	DefaultSQLitePath = "benchreport.db"
)

// Config is the root configuration for benchreport.
type Config struct {
	Global      GlobalConfig       `yaml:"global" mapstructure:"global"`
	Report      ReportConfig       `yaml:"report" mapstructure:"report"`
	CPU         CPUConfig          `yaml:"cpu" mapstructure:"cpu"`
	Executables []ExecutableConfig `yaml:"executables" mapstructure:"executables"`
	Jobs        []map[string]any   `yaml:"jobs" mapstructure:"jobs"`
	Results     ResultsConfig      `yaml:"results" mapstructure:"results"`
	Store       *StoreConfig       `yaml:"store,omitempty" mapstructure:"store"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// ReportConfig controls the human-readable report.
type ReportConfig struct {
	Compare bool `yaml:"compare" mapstructure:"compare"`
}

// CPUConfig selects where the CPU clock frequency is read from.
type CPUConfig struct {
	Source            string `yaml:"source" mapstructure:"source"`
	CPUInfoPath       string `yaml:"cpuinfo_path,omitempty" mapstructure:"cpuinfo_path"`
	SysfsPath         string `yaml:"sysfs_path,omitempty" mapstructure:"sysfs_path"`
	FrequencyOverride string `yaml:"frequency_override,omitempty" mapstructure:"frequency_override"`
}

// ExecutableConfig declares one benchmarked executable. Order is column order.
type ExecutableConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version,omitempty" mapstructure:"version"`
}

// ResultsConfig contains result output settings.
type ResultsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
	// Owner is a "UID:GID" pair that written run directories are handed to.
	Owner  string               `yaml:"owner,omitempty" mapstructure:"owner"`
	Upload *ResultsUploadConfig `yaml:"upload,omitempty" mapstructure:"upload"`
}

// ResultsUploadConfig contains remote upload targets.
type ResultsUploadConfig struct {
	S3 *S3UploadConfig `yaml:"s3,omitempty" mapstructure:"s3"`
}

// S3UploadConfig contains S3-compatible storage settings.
type S3UploadConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	StorageClass    string `yaml:"storage_class,omitempty" mapstructure:"storage_class"`
	ACL             string `yaml:"acl,omitempty" mapstructure:"acl"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	// Concurrency bounds parallel PutObject calls.
	Concurrency int `yaml:"concurrency,omitempty" mapstructure:"concurrency"`
	// RequestsPerSecond limits the PutObject rate; zero disables the limit.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" mapstructure:"requests_per_second"`
}

// StoreConfig contains run history database settings.
type StoreConfig struct {
	Enabled  bool                 `yaml:"enabled" mapstructure:"enabled"`
	Driver   string               `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteDatabaseConfig `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig       `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteDatabaseConfig contains SQLite settings.
type SQLiteDatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// Load reads one or more configuration files, later files overriding
// earlier ones, then applies BENCHREPORT_ environment overrides.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return nil, errors.New("no config file given")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for i, path := range paths {
		v.SetConfigFile(path)

		read := v.MergeInConfig
		if i == 0 {
			read = v.ReadInConfig
		}

		if err := read(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// setDefaults registers scalar defaults so env overrides resolve for keys
// absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("global.log_level", DefaultLogLevel)
	v.SetDefault("report.compare", true)
	v.SetDefault("cpu.source", cpufreq.SourceAuto)
	v.SetDefault("cpu.cpuinfo_path", cpufreq.DefaultCPUInfoPath)
	v.SetDefault("cpu.sysfs_path", cpufreq.DefaultSysfsCPUPath)
	v.SetDefault("cpu.frequency_override", "")
	v.SetDefault("results.dir", DefaultResultsDir)
}

// applyDefaults sets default values for optional sections.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Results.Dir == "" {
		c.Results.Dir = DefaultResultsDir
	}

	if s3 := c.S3(); s3 != nil {
		if s3.Region == "" {
			s3.Region = DefaultS3Region
		}

		if s3.Prefix == "" {
			s3.Prefix = DefaultS3Prefix
		}

		if s3.Concurrency <= 0 {
			s3.Concurrency = DefaultUploadConcurrency
		}
	}

	if c.Store != nil {
		if c.Store.Driver == "" {
			c.Store.Driver = DefaultStoreDriver
		}

		if c.Store.Driver == "sqlite" && c.Store.SQLite.Path == "" {
			c.Store.SQLite.Path = DefaultSQLitePath
		}

		if c.Store.Driver == "postgres" {
			if c.Store.Postgres.Port == 0 {
				c.Store.Postgres.Port = 5432
			}

			if c.Store.Postgres.SSLMode == "" {
				c.Store.Postgres.SSLMode = "disable"
			}
		}
	}
}

// S3 returns the S3 upload settings, or nil when none are configured.
func (c *Config) S3() *S3UploadConfig {
	if c.Results.Upload == nil {
		return nil
	}

	return c.Results.Upload.S3
}

// ResultsOwner parses the configured owner of written results, nil when unset.
func (c *Config) ResultsOwner() (*fsutil.Owner, error) {
	return fsutil.ParseOwner(c.Results.Owner)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Executables) == 0 {
		return fmt.Errorf("at least one executable must be configured")
	}

	seen := make(map[string]struct{}, len(c.Executables))

	for i, exec := range c.Executables {
		if exec.Name == "" {
			return fmt.Errorf("executable %d: name is required", i)
		}

		if _, exists := seen[exec.Name]; exists {
			return fmt.Errorf("executable %d: duplicate name %q", i, exec.Name)
		}

		seen[exec.Name] = struct{}{}
	}

	if len(c.Jobs) == 0 {
		return fmt.Errorf("at least one job must be configured")
	}

	if _, err := cpufreq.NewSource(c.SourceConfig()); err != nil {
		return fmt.Errorf("cpu: %w", err)
	}

	if _, err := c.ResultsOwner(); err != nil {
		return fmt.Errorf("results: %w", err)
	}

	if s3 := c.S3(); s3 != nil && s3.Enabled {
		if s3.Bucket == "" {
			return fmt.Errorf("results.upload.s3: bucket is required")
		}

		if s3.RequestsPerSecond < 0 {
			return fmt.Errorf("results.upload.s3: requests_per_second must not be negative")
		}
	}

	if c.Store != nil && c.Store.Enabled {
		if err := c.Store.Validate(); err != nil {
			return fmt.Errorf("store: %w", err)
		}
	}

	return nil
}

// Validate checks the database settings.
func (s *StoreConfig) Validate() error {
	switch s.Driver {
	case "sqlite":
		if s.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "postgres":
		if s.Postgres.Host == "" || s.Postgres.Database == "" {
			return fmt.Errorf("postgres host and database are required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", s.Driver)
	}

	return nil
}

// SourceConfig returns the CPU frequency source settings.
func (c *Config) SourceConfig() *cpufreq.SourceConfig {
	return &cpufreq.SourceConfig{
		Kind:         c.CPU.Source,
		CPUInfoPath:  c.CPU.CPUInfoPath,
		SysfsPath:    c.CPU.SysfsPath,
		OverrideFreq: c.CPU.FrequencyOverride,
	}
}

// BenchmarkExecutables returns the configured executables in column order.
func (c *Config) BenchmarkExecutables() []benchmark.Executable {
	execs := make([]benchmark.Executable, 0, len(c.Executables))
	for _, e := range c.Executables {
		execs = append(execs, benchmark.Executable{Name: e.Name, Version: e.Version})
	}

	return execs
}
