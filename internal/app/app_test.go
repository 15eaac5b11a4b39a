package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"boardhouse/internal/auth"
	"boardhouse/internal/backing"
	"boardhouse/internal/config"
	"boardhouse/internal/platform"
	"boardhouse/internal/seed"
	"boardhouse/internal/storage"
	"boardhouse/internal/tree"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.BcryptCost = 4
	cfg.LogLevel = "error"
	cfg.Backing.Driver = string(backing.DriverBlob)
	cfg.Blob.FSRoot = filepath.Join(t.TempDir(), "blobs")
	return cfg
}

func TestHostedModeUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = config.ModeHosted
	if _, err := Open(context.Background(), cfg); !errors.Is(err, ErrHostedUnavailable) {
		t.Fatalf("expected ErrHostedUnavailable, got %v", err)
	}
	if _, err := OpenWithDriver(context.Background(), cfg, backing.NewMemory()); !errors.Is(err, ErrHostedUnavailable) {
		t.Fatalf("expected ErrHostedUnavailable, got %v", err)
	}
}

func TestOpenSeedsAndSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	metrics := platform.NewExpvarMetricsRecorder("app_test_restart")

	a, err := Open(ctx, cfg, platform.WithMetricsRecorder(metrics))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if n := a.Credentials.Len(ctx); n != len(seed.Accounts()) {
		t.Fatalf("expected seeded accounts, have %d", n)
	}
	admin := seed.Accounts()[0]
	owner, err := a.Auth.SignIn(ctx, admin.Email, admin.Password)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if err := a.DB.Set(ctx, a.DB.Ref("landingContent/heroTitle"), tree.String("Rooms near campus")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := a.Storage.Put(ctx, a.Storage.Ref("landing/hero.txt"), strings.NewReader("hero"), storage.PutOptions{}).Wait(ctx); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	results := metrics.Snapshot().Results
	if results["seed.run"]["success"] != 1 || results["auth.sign_in"]["success"] != 1 || results["docstore.set"]["success"] == 0 {
		t.Fatalf("expected instrumented operations, got %+v", results)
	}

	b, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = b.Close() }()
	if n := b.Credentials.Len(ctx); n != len(seed.Accounts()) {
		t.Fatalf("reseeding duplicated accounts: %d", n)
	}
	var restored *auth.Owner
	defer b.Auth.OnAuthChange(ctx, func(o *auth.Owner) { restored = o })()
	if restored == nil || restored.Key != owner.Key {
		t.Fatalf("session not restored: %+v", restored)
	}
	snap, err := b.DB.Get(ctx, b.DB.Ref("landingContent/heroTitle"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !snap.Val().Equal(tree.String("Rooms near campus")) {
		t.Fatalf("document not restored: %v", snap.Val().ToAny())
	}
	if url := b.Storage.GetURL(ctx, b.Storage.Ref("landing/hero.txt")); !strings.HasPrefix(url, "data:text/plain;base64,") {
		t.Fatalf("blob not restored: %q", url)
	}
}

func TestSecondaryKeepsAdminSignedIn(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Seed = false
	a, err := OpenWithDriver(ctx, cfg, backing.NewMemory())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = a.Close() }()

	var ids Identity = a.Auth
	admin, err := ids.Register(ctx, "owner@x.com", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	staff, err := a.Secondary.Register(ctx, "staff@x.com", "secret2")
	if err != nil {
		t.Fatalf("secondary register: %v", err)
	}
	if err := a.DB.Set(ctx, a.DB.Ref(auth.ProfilePath(staff.Key)), tree.Object("role", "staff", "status", "active")); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if err := a.Secondary.SignOut(ctx); err != nil {
		t.Fatalf("sign out secondary: %v", err)
	}
	if cur, ok := ids.CurrentOwner(); !ok || cur.Key != admin.Key {
		t.Fatalf("admin session lost: %+v", cur)
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backing.Driver = "floppy"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Fatalf("expected validation error")
	}
}
