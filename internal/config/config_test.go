package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"boardhouse/internal/backing"
	"boardhouse/internal/blob"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadWithEnv("", envMap(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModeEmulation || !cfg.Seed || cfg.Backing.Driver != "sqlite" || cfg.Blob.Driver != "fs" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boardhouse.yaml")
	doc := "mode: emulation\nseed: false\nbackingx: 1\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWithEnv(path, envMap(nil)); err == nil {
		t.Fatalf("expected unknown field error")
	}

	doc = "seed: false\nlog_level: debug\nbacking:\n  driver: blob\n  prefix: state/\nblob:\n  driver: s3\n  s3:\n    bucket: from-file\n    region: eu-west-1\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		"BOARDHOUSE_BLOB_S3_BUCKET":     "from-env",
		"BOARDHOUSE_BLOB_S3_PATH_STYLE": "true",
		"BOARDHOUSE_SEED":               "",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Seed || cfg.LogLevel != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	bc := cfg.BackingOptions()
	if bc.Driver != backing.DriverBlob || bc.BlobPrefix != "state/" || bc.Blob.Driver != blob.DriverS3 {
		t.Fatalf("unexpected backing options %+v", bc)
	}
	if bc.Blob.S3.Bucket != "from-env" || bc.Blob.S3.Region != "eu-west-1" || !bc.Blob.S3.PathStyle {
		t.Fatalf("env override not applied: %+v", bc.Blob.S3)
	}
}

func TestEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWithEnv(path, envMap(nil)); err != nil {
		t.Fatalf("empty file should load defaults: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]map[string]string{
		"mode":           {"BOARDHOUSE_MODE": "offline"},
		"backing driver": {"BOARDHOUSE_BACKING_DRIVER": "mysql"},
		"postgres dsn":   {"BOARDHOUSE_BACKING_DRIVER": "postgres"},
		"blob driver":    {"BOARDHOUSE_BLOB_DRIVER": "gcs"},
		"s3 bucket":      {"BOARDHOUSE_BACKING_DRIVER": "blob", "BOARDHOUSE_BLOB_DRIVER": "s3"},
		"seed flag":      {"BOARDHOUSE_SEED": "maybe"},
	}
	for name, env := range cases {
		if _, err := LoadWithEnv("", envMap(env)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	cfg, err := LoadWithEnv("", envMap(map[string]string{
		"BOARDHOUSE_MODE":           "hosted",
		"BOARDHOUSE_BACKING_DRIVER": "postgres",
		"BOARDHOUSE_POSTGRES_DSN":   "postgres://localhost/boardhouse",
	}))
	if err != nil || cfg.Mode != ModeHosted {
		t.Fatalf("unexpected result %+v %v", cfg, err)
	}
}

func TestMissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("expected read error, got %v", err)
	}
}
