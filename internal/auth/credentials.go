package auth

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"boardhouse/internal/backing"
	"boardhouse/internal/keys"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// Owner is an authenticated identity.
type Owner struct {
	Key   string `json:"key"`
	Email string `json:"email"`
}

type credentialRecord struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// credentialIndex is the persisted shape of the credentials slot.
type credentialIndex struct {
	ByEmail map[string]string           `json:"byEmail"`
	ByKey   map[string]credentialRecord `json:"byKey"`
}

// Credentials is the credential index shared by every identity instance. The
// slot is re-read on each call so instances over the same backing agree.
type Credentials struct {
	mu    sync.Mutex
	slots *backing.Slots
	keys  *keys.Generator
	cost  int
}

// CredentialsOption customises Credentials.
type CredentialsOption func(*Credentials)

// WithHashCost sets the bcrypt cost for stored passwords.
func WithHashCost(cost int) CredentialsOption {
	return func(c *Credentials) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			c.cost = cost
		}
	}
}

// WithKeyGenerator sets the owner key source.
func WithKeyGenerator(g *keys.Generator) CredentialsOption {
	return func(c *Credentials) {
		if g != nil {
			c.keys = g
		}
	}
}

// NewCredentials returns an index persisted in the credentials slot.
func NewCredentials(slots *backing.Slots, opts ...CredentialsOption) *Credentials {
	c := &Credentials{slots: slots, keys: keys.New(nil), cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeEmail trims and lowercases email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c *Credentials) load(ctx context.Context) credentialIndex {
	var idx credentialIndex
	if !c.slots.Load(ctx, backing.SlotCredentials, &idx) {
		// A partly decoded slot counts as empty.
		idx = credentialIndex{}
	}
	if idx.ByEmail == nil {
		idx.ByEmail = make(map[string]string)
	}
	if idx.ByKey == nil {
		idx.ByKey = make(map[string]credentialRecord)
	}
	return idx
}

// Signup is one account to create.
type Signup struct {
	Email    string
	Password string
}

// Create stores a new account and returns its owner.
func (c *Credentials) Create(ctx context.Context, email, password string) (Owner, error) {
	owners, err := c.CreateAll(ctx, []Signup{{Email: email, Password: password}})
	if err != nil {
		return Owner{}, err
	}
	return owners[0], nil
}

// CreateAll stores every signup in one index write. Nothing is stored when
// any signup is rejected.
func (c *Credentials) CreateAll(ctx context.Context, signups []Signup) ([]Owner, error) {
	for _, su := range signups {
		if utf8.RuneCountInString(su.Password) < MinPasswordLength {
			return nil, newError(KindWeakCredential, "password should be at least 6 characters")
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.load(ctx)
	owners := make([]Owner, 0, len(signups))
	for _, su := range signups {
		norm := NormalizeEmail(su.Email)
		if _, taken := idx.ByEmail[norm]; taken {
			return nil, newError(KindAlreadyRegistered, "the email address is already in use by another account")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), c.cost)
		if err != nil {
			return nil, err
		}
		owner := Owner{Key: c.keys.Next(), Email: norm}
		idx.ByEmail[norm] = owner.Key
		idx.ByKey[owner.Key] = credentialRecord{Email: norm, Password: string(hash)}
		owners = append(owners, owner)
	}
	c.slots.Save(ctx, backing.SlotCredentials, idx)
	return owners, nil
}

// Verify checks email and password against the index.
func (c *Credentials) Verify(ctx context.Context, email, password string) (Owner, error) {
	norm := NormalizeEmail(email)
	c.mu.Lock()
	idx := c.load(ctx)
	c.mu.Unlock()
	key, ok := idx.ByEmail[norm]
	if !ok {
		return Owner{}, newError(KindUnknownAccount, "there is no account for this email")
	}
	rec, ok := idx.ByKey[key]
	if !ok {
		return Owner{}, newError(KindUnknownAccount, "there is no account for this email")
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte(password)) != nil {
		return Owner{}, newError(KindBadCredential, "the password is invalid")
	}
	return Owner{Key: key, Email: rec.Email}, nil
}

// Lookup returns the owner registered under key.
func (c *Credentials) Lookup(ctx context.Context, key string) (Owner, bool) {
	c.mu.Lock()
	idx := c.load(ctx)
	c.mu.Unlock()
	rec, ok := idx.ByKey[key]
	if !ok {
		return Owner{}, false
	}
	return Owner{Key: key, Email: rec.Email}, true
}

// Len returns the number of registered accounts.
func (c *Credentials) Len(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.load(ctx).ByKey)
}
