package main

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/gelatohub/painel/config"
	redisadapter "github.com/gelatohub/painel/internal/adapters/redis"
	"github.com/gelatohub/painel/internal/domain/presence"
	"github.com/gelatohub/painel/internal/domain/settings"
	"github.com/gelatohub/painel/internal/mocks"
	"github.com/gelatohub/painel/internal/ports"
)

func execute(t *testing.T, app *adminApp, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(app)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func appWithRepo(repo ports.ConfigRepository) *adminApp {
	app := newAdminApp(slog.New(slog.DiscardHandler), config.AppConfig{})
	app.configRepo = func(context.Context) (ports.ConfigRepository, error) { return repo, nil }
	return app
}

func TestConfigCommands(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockConfigRepository(ctrl)

	t.Run("get", func(t *testing.T) {
		repo.EXPECT().Get(gomock.Any(), "custo_kwh").Return(settings.Entry{Key: "custo_kwh", Value: "0.85"}, nil)
		out, err := execute(t, appWithRepo(repo), "config", "get", "custo_kwh")
		require.NoError(t, err)
		assert.Equal(t, "0.85\n", out)
	})

	t.Run("set infers number", func(t *testing.T) {
		repo.EXPECT().Upsert(gomock.Any(), settings.Entry{
			Key:         "custo_kwh",
			Value:       "0.95",
			Type:        settings.TypeNumber,
			Description: "Custo do kWh",
			Category:    settings.DefaultCategory,
		}).Return(nil)
		_, err := execute(t, appWithRepo(repo), "config", "set", "custo_kwh", "0.95", "--descricao", "Custo do kWh")
		require.NoError(t, err)
	})

	t.Run("list filters by category", func(t *testing.T) {
		repo.EXPECT().List(gomock.Any()).Return([]settings.Entry{
			{Key: "custo_kwh", Value: "0.85", Type: settings.TypeNumber, Category: "custos"},
			{Key: "moeda", Value: "BRL", Type: settings.TypeString, Category: "geral"},
		}, nil)
		out, err := execute(t, appWithRepo(repo), "config", "list", "--category", "custos")
		require.NoError(t, err)
		assert.Contains(t, out, "custo_kwh")
		assert.NotContains(t, out, "moeda")
	})

	t.Run("delete", func(t *testing.T) {
		repo.EXPECT().Delete(gomock.Any(), "moeda").Return(nil)
		_, err := execute(t, appWithRepo(repo), "config", "delete", "moeda")
		require.NoError(t, err)
	})
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, "1", parseValue("1").(decimal.Decimal).String())
	assert.Equal(t, "BRL", parseValue("BRL"))
}

func TestDirectDBCommandsRequireDB(t *testing.T) {
	app := newAdminApp(slog.New(slog.DiscardHandler), config.AppConfig{})
	for _, args := range [][]string{{"role", "u-1"}, {"signout", "u-1"}, {"migrate"}} {
		_, err := execute(t, app, args...)
		require.ErrorIs(t, err, errDirectDBRequired, args)
	}
}

func TestPresenceCommand(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := redisadapter.NewPresenceStore(rdb)
	require.NoError(t, store.Track(context.Background(), presence.Entry{
		UserID: "u-1", Email: "dono@example.com", OnlineAt: time.Now().UTC(), Page: "index.html",
	}))

	app := newAdminApp(slog.New(slog.DiscardHandler), config.AppConfig{})
	app.openRedis = func(context.Context) (redis.UniversalClient, error) { return rdb, nil }
	app.openDB = func(context.Context) (*sql.DB, error) { return nil, errDirectDBRequired }

	out, err := execute(t, app, "presence")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = execute(t, app, "presence", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, `"dono@example.com"`)
}
