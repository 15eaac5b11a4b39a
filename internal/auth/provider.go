// Package auth is the emulated identity service: a credential index shared
// by independently constructed provider instances, each tracking its own
// signed-in owner. Only a session-backed instance persists its owner so a
// restart can resume without a new sign-in.
package auth

import (
	"context"
	"fmt"
	"sync"

	"boardhouse/internal/backing"
	"boardhouse/internal/docstore"
	"boardhouse/internal/platform"
	"boardhouse/internal/tree"
)

// Unsubscribe removes an auth listener. Calling it more than once is harmless.
type Unsubscribe func()

type sessionPointer struct {
	OwnerKey string `json:"ownerKey"`
}

type listener struct {
	id uint64
	fn func(*Owner)
}

// Provider is one identity instance.
type Provider struct {
	name    string
	creds   *Credentials
	session *backing.Slots
	in      platform.Instruments

	// persistMu orders transitions so the session slot always names the
	// latest current owner.
	persistMu sync.Mutex

	mu        sync.Mutex
	current   *Owner
	hydrated  bool
	nextID    uint64
	listeners []listener
}

// NewPrimary returns the instance whose owner is persisted in the session
// slot of slots.
func NewPrimary(creds *Credentials, slots *backing.Slots, opts ...platform.Option) *Provider {
	return &Provider{name: "primary", creds: creds, session: slots, in: platform.NewInstruments(opts...)}
}

// NewSecondary returns an instance over the same credentials that keeps its
// owner in memory only, so accounts can be created without disturbing the
// primary session.
func NewSecondary(creds *Credentials, opts ...platform.Option) *Provider {
	return &Provider{name: "secondary", creds: creds, in: platform.NewInstruments(opts...)}
}

// Name returns the instance name.
func (p *Provider) Name() string { return p.name }

// Register creates an account and signs it in.
func (p *Provider) Register(ctx context.Context, email, password string) (Owner, error) {
	var owner Owner
	err := p.in.Run(ctx, "auth.register", func(ctx context.Context) error {
		var err error
		owner, err = p.creds.Create(ctx, email, password)
		return err
	})
	if err != nil {
		return Owner{}, err
	}
	p.in.Logger.Info("account registered", "instance", p.name, "owner", owner.Key)
	p.transition(ctx, &owner)
	return owner, nil
}

// SignIn verifies the credentials and signs the owner in.
func (p *Provider) SignIn(ctx context.Context, email, password string) (Owner, error) {
	var owner Owner
	err := p.in.Run(ctx, "auth.sign_in", func(ctx context.Context) error {
		var err error
		owner, err = p.creds.Verify(ctx, email, password)
		return err
	})
	if err != nil {
		return Owner{}, err
	}
	p.in.Logger.Info("signed in", "instance", p.name, "owner", owner.Key)
	p.transition(ctx, &owner)
	return owner, nil
}

// SignOut clears the current owner.
func (p *Provider) SignOut(ctx context.Context) error {
	err := p.in.Run(ctx, "auth.sign_out", func(context.Context) error { return nil })
	p.in.Logger.Info("signed out", "instance", p.name)
	p.transition(ctx, nil)
	return err
}

// CurrentOwner returns the signed-in owner.
func (p *Provider) CurrentOwner() (Owner, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Owner{}, false
	}
	return *p.current, true
}

// OnAuthChange calls fn with the current owner (nil when signed out) before
// returning and again after every sign-in, registration or sign-out. The
// first call on a session-backed instance restores the persisted owner.
func (p *Provider) OnAuthChange(ctx context.Context, fn func(*Owner)) Unsubscribe {
	p.mu.Lock()
	needHydrate := p.session != nil && !p.hydrated
	p.hydrated = true
	p.mu.Unlock()
	if needHydrate {
		p.rehydrate(ctx)
	}

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, listener{id: id, fn: fn})
	current := copyOwner(p.current)
	p.mu.Unlock()

	p.call(fn, current)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			for i, l := range p.listeners {
				if l.id == id {
					p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (p *Provider) rehydrate(ctx context.Context) {
	p.persistMu.Lock()
	defer p.persistMu.Unlock()
	var ptr sessionPointer
	if !p.session.Load(ctx, backing.SlotSession, &ptr) || ptr.OwnerKey == "" {
		return
	}
	owner, ok := p.creds.Lookup(ctx, ptr.OwnerKey)
	if !ok {
		p.in.Logger.Warn("session owner not registered", "instance", p.name, "owner", ptr.OwnerKey)
		return
	}
	p.mu.Lock()
	if p.current == nil {
		p.current = &owner
	}
	p.mu.Unlock()
	p.in.Logger.Info("session restored", "instance", p.name, "owner", owner.Key)
}

// transition records the new owner, persists it when session-backed and
// notifies listeners in registration order outside the locks.
func (p *Provider) transition(ctx context.Context, owner *Owner) {
	p.persistMu.Lock()
	p.mu.Lock()
	p.current = copyOwner(owner)
	p.hydrated = true
	fns := make([]func(*Owner), len(p.listeners))
	for i, l := range p.listeners {
		fns[i] = l.fn
	}
	p.mu.Unlock()

	if p.session != nil {
		if owner != nil {
			p.session.Save(ctx, backing.SlotSession, sessionPointer{OwnerKey: owner.Key})
		} else {
			p.session.Clear(ctx, backing.SlotSession)
		}
	}
	p.persistMu.Unlock()
	for _, fn := range fns {
		p.call(fn, copyOwner(owner))
	}
}

func (p *Provider) call(fn func(*Owner), owner *Owner) {
	defer func() {
		if r := recover(); r != nil {
			p.in.Logger.Warn("auth listener panicked", "instance", p.name, "panic", r)
		}
	}()
	fn(owner)
}

func copyOwner(o *Owner) *Owner {
	if o == nil {
		return nil
	}
	cp := *o
	return &cp
}

// ProfileReader reads documents from the database.
type ProfileReader interface {
	Get(ctx context.Context, ref docstore.Ref) (docstore.Snapshot, error)
}

// Profile is the account document kept at users/<key>.
type Profile struct {
	DisplayName string
	Email       string
	Role        string
	Status      string
	CreatedAt   float64
}

// ProfilePath returns the document path of the profile for key.
func ProfilePath(key string) string { return tree.Join("users", key) }

// Profile loads the signed-in owner's profile. The role defaults to "user".
// It reports false when signed out or when no profile document exists.
func (p *Provider) Profile(ctx context.Context, db ProfileReader) (Profile, bool, error) {
	owner, ok := p.CurrentOwner()
	if !ok {
		return Profile{}, false, nil
	}
	snap, err := db.Get(ctx, docstore.NewRef(ProfilePath(owner.Key)))
	if err != nil {
		return Profile{}, false, fmt.Errorf("read profile %s: %w", owner.Key, err)
	}
	if !snap.Exists() {
		return Profile{}, false, nil
	}
	prof := Profile{Role: "user"}
	if s, ok := snap.Child("displayName").Val().AsString(); ok {
		prof.DisplayName = s
	}
	if s, ok := snap.Child("email").Val().AsString(); ok {
		prof.Email = s
	}
	if s, ok := snap.Child("role").Val().AsString(); ok && s != "" {
		prof.Role = s
	}
	if s, ok := snap.Child("status").Val().AsString(); ok {
		prof.Status = s
	}
	if n, ok := snap.Child("createdAt").Val().AsNumber(); ok {
		prof.CreatedAt = n
	}
	return prof, true, nil
}

// RequireActive returns the signed-in owner's profile, signing the owner out
// with ErrInactiveAccount when the profile is missing or marked inactive.
func (p *Provider) RequireActive(ctx context.Context, db ProfileReader) (Profile, error) {
	prof, ok, err := p.Profile(ctx, db)
	if err != nil {
		return Profile{}, err
	}
	if !ok || prof.Status == "inactive" {
		if err := p.SignOut(ctx); err != nil {
			return Profile{}, err
		}
		return Profile{}, newError(KindInactiveAccount, "account inactive, contact support")
	}
	return prof, nil
}
