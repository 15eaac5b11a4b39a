// Package seed installs the demo accounts the emulated backend starts with.
package seed

import (
	"context"
	"fmt"

	"boardhouse/internal/auth"
	"boardhouse/internal/docstore"
	"boardhouse/internal/platform"
	"boardhouse/internal/tree"
)

// Account is one demo login.
type Account struct {
	DisplayName string
	Email       string
	Password    string
	Role        string
}

var accounts = []Account{
	{DisplayName: "Demo Admin", Email: "admin@boardhouse.local", Password: "admin123", Role: "admin"},
	{DisplayName: "Demo Staff", Email: "staff@boardhouse.local", Password: "staff123", Role: "staff"},
	{DisplayName: "Demo Tenant", Email: "user@boardhouse.local", Password: "user1234", Role: "user"},
}

// Accounts returns the demo logins.
func Accounts() []Account {
	return append([]Account(nil), accounts...)
}

// Documents is the part of the database the seeder writes to.
type Documents interface {
	Set(ctx context.Context, ref docstore.Ref, v tree.Value) error
}

// Run creates the demo accounts and their users/<key> profiles when no
// account exists yet. It reports whether anything was written. The accounts
// are stored in a single credential write, so a rejected account leaves the
// index empty and a later Run starts over. Profiles are written afterwards;
// a profile write only fails when ctx is done, and the accounts then stay
// without profiles.
func Run(ctx context.Context, creds *auth.Credentials, db Documents, opts ...platform.Option) (bool, error) {
	in := platform.NewInstruments(opts...)
	if n := creds.Len(ctx); n > 0 {
		in.Logger.Debug("seed skipped", "accounts", n)
		return false, nil
	}
	err := in.Run(ctx, "seed.run", func(ctx context.Context) error {
		signups := make([]auth.Signup, len(accounts))
		for i, acct := range accounts {
			signups[i] = auth.Signup{Email: acct.Email, Password: acct.Password}
		}
		owners, err := creds.CreateAll(ctx, signups)
		if err != nil {
			return fmt.Errorf("seed accounts: %w", err)
		}
		for i, acct := range accounts {
			owner := owners[i]
			profile := tree.Object(
				"displayName", acct.DisplayName,
				"email", owner.Email,
				"role", acct.Role,
				"status", "active",
				"createdAt", in.Clock.Now().UnixMilli(),
			)
			if err := db.Set(ctx, docstore.NewRef(auth.ProfilePath(owner.Key)), profile); err != nil {
				return fmt.Errorf("seed profile %s: %w", acct.Role, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	in.Logger.Info("demo accounts seeded", "accounts", len(accounts))
	return true, nil
}
