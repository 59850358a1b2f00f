package config

import (
	"strings"
	"time"
)

// DBConfig contains direct PostgreSQL configuration. The gateway normally
// talks to the backend over REST; a direct connection is used by the admin
// CLI and, when enabled, by the configuration repository.
type DBConfig struct {
	Enabled  bool   `env:"ENABLED"  envDefault:"false"`
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	Name     string `env:"NAME"     envDefault:"postgres"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'require' against the hosted pooler

	// RunMigrationsOnStart creates the gateway-owned tables at startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS" envDefault:"false"`
}

// RedisConfig locates the Redis that holds sessions and presence.
//
// URI is either a redis:// or rediss:// URL (managed providers) or a plain
// host:port. With UseSentinel the master is discovered through
// SentinelNodes instead. Cluster mode is not offered: the presence store
// updates presence:online and presence:meta in one MULTI, and those keys
// live in different cluster slots.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
}

// CacheConfig controls the in-process configuration cache.
type CacheConfig struct {
	// Size is the maximum number of configuration keys kept in memory.
	Size int `env:"CONFIG_CACHE_SIZE" envDefault:"256"`

	// TTL bounds how stale a cached configuration value may get.
	TTL time.Duration `env:"CONFIG_CACHE_TTL" envDefault:"5m"`
}

// Sanitize applies guardrails to cache configuration values.
func (c *CacheConfig) Sanitize() {
	if c.Size < 1 {
		c.Size = 256
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
}

// RecordsConfig restricts which tables the generic record API may touch.
type RecordsConfig struct {
	Tables []string `env:"RECORD_TABLES" envDefault:"produtos,receitas,categorias,pedidos,insumos,despesas"`
}

// Sanitize trims and lowercases table names, dropping empties.
func (r *RecordsConfig) Sanitize() {
	out := r.Tables[:0]
	for _, t := range r.Tables {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	r.Tables = out
}
