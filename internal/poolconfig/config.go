// Package poolconfig loads the pool control binary's configuration
// from environment variables (with command-line flag fallbacks),
// following the same env-over-flag precedence as the teacher's own
// internal/config package, but built on the generics-based
// github.com/caarlos0/env/v11 instead of hand-rolled getString/getInt
// helpers.
package poolconfig

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries every parameter needed to stand up a pool.Pool and
// its admin HTTP surface.
type Config struct {
	// AdminAddr is the address the admin/stats HTTP server listens on.
	// No envDefault: precedence against its -admin-addr flag is
	// resolved by hand in Load, the same env-wins-over-flag order the
	// teacher's own config package uses.
	AdminAddr string `env:"ADMIN_ADDRESS"`

	// NumStripes is the pool's stripe count ("S").
	NumStripes int `env:"POOL_STRIPES" envDefault:"4"`
	// IdleTime is the pool's idle interval ("T"), at least 500ms.
	IdleTime time.Duration `env:"POOL_IDLE_TIME" envDefault:"30s"`
	// MaxResources is the pool's per-stripe cap ("M").
	MaxResources int `env:"POOL_MAX_RESOURCES" envDefault:"10"`
	// MaxUses bounds per-resource reuse when > 0 ("K"); 0 disables
	// bounded reuse and every resource is always reusable.
	MaxUses int `env:"POOL_MAX_USES" envDefault:"0"`

	// PostgresDSN, when set, backs the pgconn resource pool. Empty
	// disables that pool.
	PostgresDSN string `env:"POSTGRES_DSN"`
	// MigrationsPath points at the SQL migration files applied to
	// PostgresDSN before the pgconn pool is exercised.
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"./migrations/sql"`

	// AuditURL, when set, receives a POSTed snapshot of every registered
	// pool's StatsJSON once per second, retried via retryablehttp.
	AuditURL string `env:"AUDIT_URL"`

	// Dev selects the human-readable zap development encoder.
	Dev bool `env:"DEV" envDefault:"true"`
}

// Load parses environment variables first (filling defaults for the
// fields caarlos0/env owns), then flags, then resolves the three
// dual-source fields (AdminAddr, PostgresDSN, AuditURL) so that an
// environment variable always wins over its flag, and a flag always
// wins over the hardcoded default — the same precedence order as the
// teacher's own getString helper.
func Load(args []string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{}); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	fs := flag.NewFlagSet("poolctl", flag.ContinueOnError)
	adminAddr := fs.String("admin-addr", "localhost:8081", "admin/stats HTTP server address")
	dsn := fs.String("postgres-dsn", "", "Postgres DSN backing the pgconn resource pool")
	auditURL := fs.String("audit-url", "", "URL to receive periodic pool stats snapshots")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parsing flags: %w", err)
	}

	cfg.AdminAddr = firstNonEmpty(cfg.AdminAddr, *adminAddr)
	cfg.PostgresDSN = firstNonEmpty(cfg.PostgresDSN, *dsn)
	cfg.AuditURL = firstNonEmpty(cfg.AuditURL, *auditURL)

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
