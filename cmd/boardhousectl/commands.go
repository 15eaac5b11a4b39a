package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"boardhouse/internal/app"
	"boardhouse/internal/auth"
	"boardhouse/internal/seed"
	"boardhouse/internal/storage"
	"boardhouse/internal/tree"
)

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the demo accounts when none exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, false, func(ctx context.Context, a *app.App) error {
				seeded, err := seed.Run(ctx, a.Credentials, a.DB)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !seeded {
					fmt.Fprintln(out, "accounts already present, nothing seeded")
					return nil
				}
				for _, acct := range seed.Accounts() {
					fmt.Fprintf(out, "%-5s %s / %s\n", acct.Role, acct.Email, acct.Password)
				}
				return nil
			})
		},
	}
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Print the document at path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, true, func(ctx context.Context, a *app.App) error {
				snap, err := a.DB.Get(ctx, a.DB.Ref(args[0]))
				if err != nil {
					return err
				}
				return printSnapshot(cmd.OutOrStdout(), snap)
			})
		},
	}
}

func (c *cli) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <json>",
		Short: "Replace the document at path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseValue(args[1])
			if err != nil {
				return err
			}
			return c.run(cmd, true, func(ctx context.Context, a *app.App) error {
				return a.DB.Set(ctx, a.DB.Ref(args[0]), v)
			})
		},
	}
}

func (c *cli) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <path> <json-object>",
		Short: "Merge the top-level keys of an object into the document at path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseValue(args[1])
			if err != nil {
				return err
			}
			return c.run(cmd, true, func(ctx context.Context, a *app.App) error {
				return a.DB.Update(ctx, a.DB.Ref(args[0]), v)
			})
		},
	}
}

func (c *cli) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Delete the subtree at path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, true, func(ctx context.Context, a *app.App) error {
				return a.DB.Remove(ctx, a.DB.Ref(args[0]))
			})
		},
	}
}

func (c *cli) pushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <path> <json>",
		Short: "Append a value under a fresh key and print the key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseValue(args[1])
			if err != nil {
				return err
			}
			return c.run(cmd, true, func(ctx context.Context, a *app.App) error {
				child, err := a.DB.PushValue(ctx, a.DB.Ref(args[0]), v)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), child.Key())
				return nil
			})
		},
	}
}

func (c *cli) queryCmd() *cobra.Command {
	var child, equal string
	cmd := &cobra.Command{
		Use:   "query <path>",
		Short: "Print the children of path whose field equals a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseValue(equal)
			if err != nil {
				return err
			}
			return c.run(cmd, true, func(ctx context.Context, a *app.App) error {
				q := a.DB.Ref(args[0]).OrderByChild(child).EqualTo(v)
				snap, err := a.DB.Get(ctx, q)
				if err != nil {
					return err
				}
				return printSnapshot(cmd.OutOrStdout(), snap)
			})
		},
	}
	cmd.Flags().StringVar(&child, "child", "", "child field to compare")
	cmd.Flags().StringVar(&equal, "equal", "", "JSON value the field must equal")
	_ = cmd.MarkFlagRequired("child")
	_ = cmd.MarkFlagRequired("equal")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var displayName string
	cmd := &cobra.Command{
		Use:   "register <email> <password>",
		Short: "Create a tenant account and sign it in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, true, func(ctx context.Context, a *app.App) error {
				owner, err := a.Auth.Register(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if displayName == "" {
					displayName = owner.Email
				}
				profile := map[string]any{
					"displayName": displayName,
					"email":       owner.Email,
					"role":        "user",
					"status":      "active",
					"createdAt":   a.Clock.Now().UnixMilli(),
				}
				v, err := tree.FromAny(profile)
				if err != nil {
					return err
				}
				if err := a.DB.Set(ctx, a.DB.Ref(auth.ProfilePath(owner.Key)), v); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), owner)
			})
		},
	}
	cmd.Flags().StringVar(&displayName, "name", "", "display name stored in the profile")
	return cmd
}

func (c *cli) signInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signin <email> <password>",
		Short: "Sign in and persist the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, true, func(ctx context.Context, a *app.App) error {
				if _, err := a.Auth.SignIn(ctx, args[0], args[1]); err != nil {
					return err
				}
				prof, err := a.Auth.RequireActive(ctx, a.DB)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", prof.DisplayName, prof.Role)
				return nil
			})
		},
	}
}

func (c *cli) signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Clear the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, true, func(ctx context.Context, a *app.App) error {
				return a.Auth.SignOut(ctx)
			})
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the owner restored from the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, true, func(ctx context.Context, a *app.App) error {
				var current *auth.Owner
				a.Auth.OnAuthChange(ctx, func(o *auth.Owner) { current = o })()
				if current == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "signed out")
					return nil
				}
				return printJSON(cmd.OutOrStdout(), current)
			})
		},
	}
}

func (c *cli) uploadCmd() *cobra.Command {
	var mediaType string
	cmd := &cobra.Command{
		Use:   "upload <storage-path> <file>",
		Short: "Store a local file at a storage path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			return c.run(cmd, true, func(ctx context.Context, a *app.App) error {
				rec, err := a.Storage.Put(ctx, a.Storage.Ref(args[0]), f, storage.PutOptions{MediaType: mediaType}).Wait(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rec.Path, rec.MediaType)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mediaType, "type", "", "media type (detected from content when empty)")
	return cmd
}

func (c *cli) urlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <storage-path>",
		Short: "Print the download URL stored for a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, true, func(ctx context.Context, a *app.App) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.Storage.GetURL(ctx, a.Storage.Ref(args[0])))
				return nil
			})
		},
	}
}
