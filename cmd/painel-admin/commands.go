package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	redisadapter "github.com/gelatohub/painel/internal/adapters/redis"
	"github.com/gelatohub/painel/internal/bootstrap"
	"github.com/gelatohub/painel/internal/data"
	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/service"
)

func migrateCmd(app *adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables and functions the gateway owns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := app.openDB(cmd.Context())
			if err != nil {
				return err
			}
			return bootstrap.RunMigrations(cmd.Context(), db, app.logger)
		},
	}
}

func configCmd(app *adminApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and edit business configuration (configuracoes)",
	}

	configService := func(cmd *cobra.Command) (*service.ConfigService, error) {
		repo, err := app.configRepo(cmd.Context())
		if err != nil {
			return nil, err
		}
		return service.NewConfigService(service.ConfigServiceOptions{Repo: repo, Logger: app.logger}), nil
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := configService(cmd)
			if err != nil {
				return err
			}
			v, ok := svc.Get(cmd.Context(), args[0], false)
			if !ok {
				return fmt.Errorf("configuração %q não encontrada", args[0])
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		},
	}

	var description, category string
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Create or update a value; numbers and booleans are typed automatically",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := configService(cmd)
			if err != nil {
				return err
			}
			return svc.Set(cmd.Context(), args[0], parseValue(args[1]), description, category)
		},
	}
	set.Flags().StringVar(&description, "descricao", "", "description (defaults to the key)")
	set.Flags().StringVar(&category, "categoria", "", "category (defaults to geral)")

	del := &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := configService(cmd)
			if err != nil {
				return err
			}
			return svc.Delete(cmd.Context(), args[0])
		},
	}

	var listCategory string
	list := &cobra.Command{
		Use:   "list",
		Short: "List all values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := configService(cmd)
			if err != nil {
				return err
			}
			entries, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CHAVE\tVALOR\tTIPO\tCATEGORIA")
			for _, e := range entries {
				if listCategory != "" && e.Category != listCategory {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Key, e.Value, e.Type, e.Category)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&listCategory, "category", "", "only list one category")

	cmd.AddCommand(get, set, del, list)
	return cmd
}

// parseValue types a command-line value the way the web form would.
func parseValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		return d
	}
	return raw
}

func roleCmd(app *adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "role <user-id>",
		Short: "Resolve a user's profile exactly as the access gate would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.openDB(cmd.Context())
			if err != nil {
				return err
			}
			resolver := service.NewRoleResolver(service.RoleResolverOptions{
				Client: data.NewImpersonator(db, app.logger).For(args[0]),
				Logger: app.logger,
			})
			profile := resolver.ResolveProfile(cmd.Context())
			if profile == nil {
				return fmt.Errorf("no profile could be resolved for %s", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"profile":  profile,
				"is_admin": domainauth.IsAdminRole(profile.Role),
			})
		},
	}
}

func presenceCmd(app *adminApp) *cobra.Command {
	var ttl time.Duration
	var list bool
	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Show how many users are online",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rdb, err := app.openRedis(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := service.NewPresenceService(service.PresenceServiceOptions{
				Store:  redisadapter.NewPresenceStore(rdb),
				TTL:    ttl,
				Logger: app.logger,
			})
			if err != nil {
				return err
			}
			snap := svc.Online(cmd.Context())
			if !list {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), snap.Count)
				return err
			}
			return writeJSON(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", app.cfg.Presence.TTL, "heartbeats older than this are offline")
	cmd.Flags().BoolVar(&list, "list", false, "print the online users as JSON")
	return cmd
}

func signoutCmd(app *adminApp) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "signout <user-id>",
		Short: "Revoke a user's sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.openDB(cmd.Context())
			if err != nil {
				return err
			}
			scope := domainauth.ScopeGlobal
			if local {
				scope = domainauth.ScopeLocal
			}
			if err := data.NewImpersonator(db, app.logger).For(args[0]).SignOut(cmd.Context(), scope); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "signed out %s (%s)\n", args[0], scope)
			return err
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "revoke only the most recent session")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
