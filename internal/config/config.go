// Package config loads runtime settings from an optional YAML file and
// BOARDHOUSE_* environment overrides. Settings are read once at startup.
//
//	BOARDHOUSE_MODE:             emulation|hosted (default emulation)
//	BOARDHOUSE_BACKING_DRIVER:   memory|sqlite|postgres|blob (default sqlite)
//	BOARDHOUSE_SQLITE_PATH:      sqlite file (default ./boardhouse.db)
//	BOARDHOUSE_POSTGRES_DSN:     DSN when the backing driver is postgres
//	BOARDHOUSE_BLOB_DRIVER:      fs|s3|memory, object store for the blob backing driver
//	BOARDHOUSE_BLOB_FS_ROOT:     directory for the fs object store
//	BOARDHOUSE_BLOB_S3_BUCKET, BOARDHOUSE_BLOB_S3_REGION, BOARDHOUSE_BLOB_S3_ENDPOINT,
//	BOARDHOUSE_BLOB_S3_PATH_STYLE: S3 object store settings
//	BOARDHOUSE_SEED:             install demo accounts on first start (default true)
//	BOARDHOUSE_LOG_LEVEL:        logrus level name (default info)
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"boardhouse/internal/backing"
	"boardhouse/internal/blob"
)

// Mode selects the backend implementation.
type Mode string

const (
	ModeEmulation Mode = "emulation" // in-process emulation over the backing slots
	ModeHosted    Mode = "hosted"    // the real hosted services
)

// Config is the full runtime configuration.
type Config struct {
	Mode       Mode          `yaml:"mode"`
	LogLevel   string        `yaml:"log_level"`
	Seed       bool          `yaml:"seed"`
	BcryptCost int           `yaml:"bcrypt_cost"`
	Backing    BackingConfig `yaml:"backing"`
	Blob       BlobConfig    `yaml:"blob"`
}

// BackingConfig selects the slot driver.
type BackingConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Prefix      string `yaml:"prefix"`
}

// BlobConfig configures the object store used by the blob backing driver.
type BlobConfig struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config holds bucket settings. Credentials come from the AWS default chain.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Mode:     ModeEmulation,
		LogLevel: "info",
		Seed:     true,
		Backing: BackingConfig{
			Driver:     string(backing.DriverSQLite),
			SQLitePath: "boardhouse.db",
		},
		Blob: BlobConfig{Driver: string(blob.DriverFilesystem), FSRoot: "./blobdata"},
	}
}

// Load reads path (skipped when empty) over the defaults, applies the process
// environment and validates the result.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
		return nil
	}
	mode := string(c.Mode)
	str("BOARDHOUSE_MODE", &mode)
	c.Mode = Mode(mode)
	str("BOARDHOUSE_LOG_LEVEL", &c.LogLevel)
	str("BOARDHOUSE_BACKING_DRIVER", &c.Backing.Driver)
	str("BOARDHOUSE_SQLITE_PATH", &c.Backing.SQLitePath)
	str("BOARDHOUSE_POSTGRES_DSN", &c.Backing.PostgresDSN)
	str("BOARDHOUSE_BLOB_DRIVER", &c.Blob.Driver)
	str("BOARDHOUSE_BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("BOARDHOUSE_BLOB_S3_BUCKET", &c.Blob.S3.Bucket)
	str("BOARDHOUSE_BLOB_S3_REGION", &c.Blob.S3.Region)
	str("BOARDHOUSE_BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint)
	if err := boolean("BOARDHOUSE_BLOB_S3_PATH_STYLE", &c.Blob.S3.PathStyle); err != nil {
		return err
	}
	return boolean("BOARDHOUSE_SEED", &c.Seed)
}

// Validate rejects unknown modes and drivers.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeEmulation, ModeHosted:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	switch backing.DriverKind(c.Backing.Driver) {
	case backing.DriverMemory, backing.DriverSQLite, backing.DriverBlob:
	case backing.DriverPostgres:
		if c.Backing.PostgresDSN == "" {
			return errors.New("postgres backing requires a DSN")
		}
	default:
		return fmt.Errorf("unknown backing driver %q", c.Backing.Driver)
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Backing.Driver == string(backing.DriverBlob) && c.Blob.S3.Bucket == "" {
			return errors.New("s3 blob driver requires a bucket")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	return nil
}

// BackingOptions translates the settings into a backing.Config.
func (c Config) BackingOptions() backing.Config {
	return backing.Config{
		Driver:      backing.DriverKind(c.Backing.Driver),
		SQLitePath:  c.Backing.SQLitePath,
		PostgresDSN: c.Backing.PostgresDSN,
		BlobPrefix:  c.Backing.Prefix,
		Blob: blob.Config{
			Driver: blob.Driver(c.Blob.Driver),
			FSRoot: c.Blob.FSRoot,
			S3: blob.S3Config{
				Bucket:    c.Blob.S3.Bucket,
				Region:    c.Blob.S3.Region,
				Endpoint:  c.Blob.S3.Endpoint,
				PathStyle: c.Blob.S3.PathStyle,
			},
		},
	}
}
