package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	redisadapter "github.com/gelatohub/painel/internal/adapters/redis"
	"github.com/gelatohub/painel/internal/adapters/supabase"
	"github.com/gelatohub/painel/internal/data/cryptoutil"
	"github.com/gelatohub/painel/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Backend     *supabase.Client
	RedisClient redis.UniversalClient
	SessionTTL  time.Duration
	// EncryptionKey seals stored sessions when set.
	EncryptionKey string
	Logger        *slog.Logger
}

// BuildAuthService creates the sign-in service backed by Supabase Auth and a
// Redis session store. Returns nil when either collaborator is missing.
func BuildAuthService(cfg AuthConfig) (*service.AuthService, error) {
	if cfg.RedisClient == nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("auth service disabled: redis client not configured")
		}
		return nil, nil
	}
	if cfg.Backend == nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("auth service disabled: Supabase not configured")
		}
		return nil, nil
	}

	store := redisadapter.NewSessionStore(cfg.RedisClient)
	if cfg.EncryptionKey != "" {
		enc, err := cryptoutil.FromPassphrase(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("session encryption: %w", err)
		}
		store.WithEncryptor(enc)
	} else if cfg.Logger != nil {
		cfg.Logger.Warn("SESSION_ENCRYPTION_KEY not set; sessions are stored unencrypted")
	}

	return service.NewAuthService(service.AuthServiceOptions{
		Authenticator: cfg.Backend,
		Provider:      supabase.NewOAuthProvider(cfg.Backend),
		Sessions:      store,
		SessionTTL:    cfg.SessionTTL,
		Logger:        cfg.Logger,
	}), nil
}
