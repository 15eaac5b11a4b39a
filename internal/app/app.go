// Package app is the composition root. It builds the backing slots and every
// emulated service over them, and exposes the services through the same
// interfaces a hosted backend would satisfy.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"boardhouse/internal/auth"
	"boardhouse/internal/backing"
	"boardhouse/internal/config"
	"boardhouse/internal/docstore"
	"boardhouse/internal/platform"
	"boardhouse/internal/seed"
	"boardhouse/internal/storage"
	"boardhouse/internal/tree"
)

// ErrHostedUnavailable is returned when the configuration asks for the hosted
// backend, which this build does not connect to.
var ErrHostedUnavailable = errors.New("app: hosted backend not available in this build")

// Database is the document store surface.
type Database interface {
	Ref(path string) docstore.Ref
	Get(ctx context.Context, ref docstore.Ref) (docstore.Snapshot, error)
	Set(ctx context.Context, ref docstore.Ref, v tree.Value) error
	Update(ctx context.Context, ref docstore.Ref, partial tree.Value) error
	Remove(ctx context.Context, ref docstore.Ref) error
	Push(ref docstore.Ref) docstore.Ref
	Subscribe(ref docstore.Ref, onValue func(docstore.Snapshot), onError func(error)) docstore.Unsubscribe
}

// Identity is the surface of one identity instance.
type Identity interface {
	Register(ctx context.Context, email, password string) (auth.Owner, error)
	SignIn(ctx context.Context, email, password string) (auth.Owner, error)
	SignOut(ctx context.Context) error
	OnAuthChange(ctx context.Context, fn func(*auth.Owner)) auth.Unsubscribe
	CurrentOwner() (auth.Owner, bool)
}

// Blobs is the blob storage surface.
type Blobs interface {
	Ref(path string) storage.Ref
	Put(ctx context.Context, ref storage.Ref, r io.Reader, opts storage.PutOptions) *storage.Upload
	GetURL(ctx context.Context, ref storage.Ref) string
}

var (
	_ Database = (*docstore.Store)(nil)
	_ Identity = (*auth.Provider)(nil)
	_ Blobs    = (*storage.Store)(nil)
)

// App holds the wired services.
type App struct {
	Config      config.Config
	DB          *docstore.Store
	Credentials *auth.Credentials
	Auth        *auth.Provider
	Secondary   *auth.Provider
	Storage     *storage.Store
	Logger      platform.Logger
	Clock       platform.Clock

	slots *backing.Slots
}

// Open opens the configured backing and builds the services. Options apply
// to every service; without WithLogger a logrus logger at cfg.LogLevel is
// used.
func Open(ctx context.Context, cfg config.Config, opts ...platform.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == config.ModeHosted {
		return nil, ErrHostedUnavailable
	}
	logrusLogger, err := platform.NewLogrus(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	opts = append([]platform.Option{platform.WithLogger(platform.NewLogrusLogger(logrusLogger).With("mode", string(cfg.Mode)))}, opts...)
	in := platform.NewInstruments(opts...)

	driver, err := backing.Open(ctx, cfg.BackingOptions())
	if err != nil {
		return nil, fmt.Errorf("open backing: %w", err)
	}
	in.Logger.Info("backing opened", "driver", driver.Name())
	return build(ctx, cfg, driver, in, opts)
}

// OpenWithDriver wires the services over an already opened driver.
func OpenWithDriver(ctx context.Context, cfg config.Config, driver backing.Driver, opts ...platform.Option) (*App, error) {
	if cfg.Mode == config.ModeHosted {
		return nil, ErrHostedUnavailable
	}
	return build(ctx, cfg, driver, platform.NewInstruments(opts...), opts)
}

func build(ctx context.Context, cfg config.Config, driver backing.Driver, in platform.Instruments, opts []platform.Option) (*App, error) {
	slots := backing.NewSlots(driver, in.Logger)
	credOpts := []auth.CredentialsOption{auth.WithHashCost(cfg.BcryptCost)}
	creds := auth.NewCredentials(slots, credOpts...)
	store, err := storage.New(slots, opts...)
	if err != nil {
		_ = slots.Close()
		return nil, err
	}
	a := &App{
		Config:      cfg,
		DB:          docstore.Open(ctx, slots, opts...),
		Credentials: creds,
		Auth:        auth.NewPrimary(creds, slots, opts...),
		Secondary:   auth.NewSecondary(creds, opts...),
		Storage:     store,
		Logger:      in.Logger,
		Clock:       in.Clock,
		slots:       slots,
	}
	if cfg.Seed {
		if _, err := seed.Run(ctx, creds, a.DB, opts...); err != nil {
			_ = slots.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return a, nil
}

// Close releases the backing driver.
func (a *App) Close() error {
	return a.slots.Close()
}
