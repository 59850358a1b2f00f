// Command painel-admin runs maintenance tasks against the painel backend:
// schema migrations, configuration edits, role diagnostics, presence and
// forced sign-outs.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/gelatohub/painel/config"
	"github.com/gelatohub/painel/internal/adapters/supabase"
	"github.com/gelatohub/painel/internal/bootstrap"
	"github.com/gelatohub/painel/internal/data"
	"github.com/gelatohub/painel/internal/ports"
)

var errDirectDBRequired = errors.New("this command needs a direct database connection (set DB_ENABLED=true)")

// adminApp holds lazily opened connections shared by the subcommands.
// Tests replace the open functions.
type adminApp struct {
	logger *slog.Logger
	cfg    config.AppConfig

	openDB     func(ctx context.Context) (*sql.DB, error)
	openRedis  func(ctx context.Context) (redis.UniversalClient, error)
	configRepo func(ctx context.Context) (ports.ConfigRepository, error)

	closers []func() error
}

func newAdminApp(logger *slog.Logger, cfg config.AppConfig) *adminApp {
	a := &adminApp{logger: logger, cfg: cfg}
	a.openDB = a.connectDB
	a.openRedis = a.connectRedis
	a.configRepo = a.defaultConfigRepo
	return a
}

func (a *adminApp) connectDB(ctx context.Context) (*sql.DB, error) {
	if !a.cfg.Postgres.Enabled {
		return nil, errDirectDBRequired
	}
	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{DBConfig: a.cfg.Postgres, Logger: a.logger})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	return db, nil
}

//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func (a *adminApp) connectRedis(ctx context.Context) (redis.UniversalClient, error) {
	client, err := bootstrap.ConnectRedis(ctx, bootstrap.DatabaseConfig{RedisConfig: a.cfg.Redis, Logger: a.logger})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return client, nil
}

//nolint:ireturn // the repository depends on which backend is reachable.
func (a *adminApp) defaultConfigRepo(ctx context.Context) (ports.ConfigRepository, error) {
	if a.cfg.Postgres.Enabled {
		db, err := a.openDB(ctx)
		if err != nil {
			return nil, err
		}
		return data.NewConfigRepo(db), nil
	}
	if !a.cfg.Backend.IsConfigured() {
		return nil, errors.New("neither DB_ENABLED nor SUPABASE_URL/SUPABASE_ANON_KEY is configured")
	}
	client, err := supabase.New(supabase.Options{
		URL:     a.cfg.Backend.URL,
		AnonKey: a.cfg.Backend.AnonKey,
		Timeout: a.cfg.Backend.Timeout,
		Logger:  a.logger,
	})
	if err != nil {
		return nil, err
	}
	return supabase.NewConfigRepo(client, ""), nil
}

func (a *adminApp) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newRootCmd(app *adminApp) *cobra.Command {
	root := &cobra.Command{
		Use:           "painel-admin",
		Short:         "Maintenance tasks for the painel backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migrateCmd(app),
		configCmd(app),
		roleCmd(app),
		presenceCmd(app),
		signoutCmd(app),
	)
	return root
}

func main() {
	logger := bootstrap.InitLogger()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	app := newAdminApp(logger, cfg)
	runErr := newRootCmd(app).ExecuteContext(ctx)
	if cerr := app.close(); cerr != nil {
		logger.Error("close connections", "error", cerr)
	}
	stop()
	if runErr != nil {
		fmt.Fprintln(os.Stderr, "error:", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must exit with failure status when a command fails
	}
}
