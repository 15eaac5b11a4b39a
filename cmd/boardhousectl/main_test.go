package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"boardhouse/internal/platform"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "boardhouse.yaml")
	doc := fmt.Sprintf("log_level: error\nbcrypt_cost: 4\nbacking:\n  driver: blob\nblob:\n  driver: fs\n  fs_root: %s\n", filepath.Join(dir, "slots"))
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(func(string) (string, bool) { return "", false })
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, cfgPath, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func TestDocumentCommands(t *testing.T) {
	cfg := writeConfig(t)
	mustRun(t, cfg, "set", "items", `{"alpha":{"featured":true,"price":5},"beta":{"featured":false,"price":9}}`)
	mustRun(t, cfg, "update", "items/beta", `{"price":7}`)

	out := mustRun(t, cfg, "get", "items/beta/price")
	if strings.TrimSpace(out) != "7" {
		t.Fatalf("unexpected get output %q", out)
	}
	out = mustRun(t, cfg, "query", "items", "--child", "featured", "--equal", "true")
	if !strings.Contains(out, `"alpha"`) || strings.Contains(out, `"beta"`) {
		t.Fatalf("unexpected query output %q", out)
	}
	key := strings.TrimSpace(mustRun(t, cfg, "push", "notifications", `{"read":false}`))
	if key == "" {
		t.Fatalf("push printed no key")
	}
	if out := mustRun(t, cfg, "get", "notifications/"+key+"/read"); strings.TrimSpace(out) != "false" {
		t.Fatalf("pushed value missing: %q", out)
	}
	mustRun(t, cfg, "remove", "items")
	if out := mustRun(t, cfg, "get", "items"); strings.TrimSpace(out) != "null" {
		t.Fatalf("expected null after remove, got %q", out)
	}
	if _, err := runCLI(t, cfg, "set", "items", "{not json"); err == nil {
		t.Fatalf("expected invalid JSON error")
	}
}

func TestIdentityCommands(t *testing.T) {
	cfg := writeConfig(t)
	if out := mustRun(t, cfg, "seed"); !strings.Contains(out, "admin@boardhouse.local") {
		t.Fatalf("expected demo accounts listed, got %q", out)
	}
	if out := mustRun(t, cfg, "seed"); !strings.Contains(out, "already present") {
		t.Fatalf("second seed should be a no-op, got %q", out)
	}
	if out := mustRun(t, cfg, "whoami"); strings.TrimSpace(out) != "signed out" {
		t.Fatalf("unexpected whoami %q", out)
	}
	mustRun(t, cfg, "register", "--name", "Rae", "rae@x.com", "secret1")
	if out := mustRun(t, cfg, "whoami"); !strings.Contains(out, "rae@x.com") {
		t.Fatalf("session not restored across runs: %q", out)
	}
	mustRun(t, cfg, "signout")
	if _, err := runCLI(t, cfg, "signin", "rae@x.com", "nope-nope"); err == nil {
		t.Fatalf("expected bad credential")
	}
	if out := mustRun(t, cfg, "signin", "RAE@x.com", "secret1"); !strings.Contains(out, "Rae (user)") {
		t.Fatalf("unexpected signin output %q", out)
	}
}

func TestBlobCommands(t *testing.T) {
	cfg := writeConfig(t)
	file := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(file, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out := mustRun(t, cfg, "upload", "notes/hello.txt", file); !strings.Contains(out, "text/plain") {
		t.Fatalf("unexpected upload output %q", out)
	}
	out := mustRun(t, cfg, "url", "notes/hello.txt")
	if strings.TrimSpace(out) != "data:text/plain;base64,aGVsbG8=" {
		t.Fatalf("unexpected url %q", out)
	}
	if out := mustRun(t, cfg, "url", "missing"); strings.TrimSpace(out) != "" {
		t.Fatalf("missing blob should print an empty line, got %q", out)
	}
}

func TestTraceAndMetricsFlags(t *testing.T) {
	cfg := writeConfig(t)
	out := mustRun(t, cfg, "--trace", "set", "flags/a", "1")
	if !strings.Contains(out, `"operation":"docstore.set"`) || !strings.Contains(out, `"status":"success"`) {
		t.Fatalf("expected a docstore.set span, got %q", out)
	}
	out = mustRun(t, cfg, "--metrics", "get", "flags/a")
	if !strings.Contains(out, `boardhouse_operations_total{operation="docstore.get",status="success"} 1`) {
		t.Fatalf("expected docstore.get counter, got %q", out)
	}
	if !strings.Contains(out, "boardhouse_operation_duration_seconds") {
		t.Fatalf("expected latency histogram, got %q", out)
	}
}

func TestRegisterStampsProfileWithAppClock(t *testing.T) {
	cfg := writeConfig(t)
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := platform.WithClock(platform.ClockFunc(func() time.Time { return at }))
	exec := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		root := newRootCmd(func(string) (string, bool) { return "", false }, clock)
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"--config", cfg}, args...))
		if err := root.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("%v: %v\n%s", args, err, out.String())
		}
		return out.String()
	}
	var owner struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal([]byte(exec("register", "clock@x.com", "secret1")), &owner); err != nil || owner.Key == "" {
		t.Fatalf("decode owner: %v", err)
	}
	got := strings.TrimSpace(exec("get", "users/"+owner.Key+"/createdAt"))
	if got != strconv.FormatInt(at.UnixMilli(), 10) {
		t.Fatalf("createdAt %s, want %d", got, at.UnixMilli())
	}
}
