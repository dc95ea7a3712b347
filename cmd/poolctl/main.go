// Command poolctl stands up the striped resource pool over pooled HTTP
// clients (and, if a Postgres DSN is configured, over real Postgres
// connections), serves its stats over an admin HTTP surface, and, if an
// audit URL is configured, periodically forwards a stats snapshot to it
// until it receives SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/levinOo/stripedpool/internal/adminhttp"
	"github.com/levinOo/stripedpool/internal/poolconfig"
	"github.com/levinOo/stripedpool/internal/poollog"
	"github.com/levinOo/stripedpool/pool"
	"github.com/levinOo/stripedpool/resource/httpclient"
	"github.com/levinOo/stripedpool/resource/pgconn"

	"github.com/hashicorp/go-retryablehttp"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// components bundles everything setup stands up so shutdown can tear
// it back down in the right order, the same grouping shape as the
// teacher's ServerComponents.
type components struct {
	admin      *http.Server
	sugar      *zap.SugaredLogger
	pgDB       *pgconn.DB
	pgPool     *pool.Pool[*sql.Conn]
	httpPool   *pool.Pool[*retryablehttp.Client]
	statsSaver *statsForwarder
}

func run(args []string) error {
	cfg, err := poolconfig.Load(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sugar := poollog.New(cfg.Dev)
	c, err := setup(cfg, sugar)
	if err != nil {
		return err
	}

	return serveUntilSignal(c)
}

func setup(cfg poolconfig.Config, sugar *zap.SugaredLogger) (*components, error) {
	sugar.Infow("starting poolctl",
		"adminAddr", cfg.AdminAddr, "stripes", cfg.NumStripes,
		"idleTime", cfg.IdleTime, "maxResources", cfg.MaxResources, "maxUses", cfg.MaxUses)

	pools := map[string]adminhttp.StatsSource{}
	c := &components{sugar: sugar}

	poolCfg := pool.Config{
		NumStripes:   cfg.NumStripes,
		IdleTime:     cfg.IdleTime,
		MaxResources: cfg.MaxResources,
		Log:          poollog.PoolAdapter(sugar),
	}

	if cfg.PostgresDSN != "" {
		if err := pgconn.RunMigrations(cfg.PostgresDSN, cfg.MigrationsPath); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		db, err := pgconn.Open(context.Background(), cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		c.pgDB = db

		var pgPool *pool.Pool[*sql.Conn]
		if cfg.MaxUses > 0 {
			pgPool, err = pool.NewBoundedReuse[*sql.Conn](db.Factory, db.Destroy(poollog.PoolAdapter(sugar)), poolCfg, cfg.MaxUses)
		} else {
			pgPool, err = pool.New[*sql.Conn](db.Factory, db.Destroy(poollog.PoolAdapter(sugar)), poolCfg)
		}
		if err != nil {
			return nil, fmt.Errorf("build postgres pool: %w", err)
		}
		c.pgPool = pgPool
		pools["postgres"] = pgPool
	}

	httpPool, err := pool.New[*retryablehttp.Client](
		httpclient.Factory(httpclient.Options{}),
		httpclient.Destroy,
		poolCfg,
	)
	if err != nil {
		return nil, fmt.Errorf("build http client pool: %w", err)
	}
	c.httpPool = httpPool
	pools["http"] = httpPool

	if cfg.AuditURL != "" {
		c.statsSaver = newStatsForwarder(pools, httpPool, cfg.AuditURL, reapNotifyInterval, sugar)
		c.statsSaver.Start()
	}

	router := adminhttp.NewRouter(pools, sugar)
	c.admin = &http.Server{Addr: cfg.AdminAddr, Handler: router}

	return c, nil
}

// reapNotifyInterval mirrors the reaper's own wake period: there is
// nothing to observe between sweeps that changes more often than that.
const reapNotifyInterval = 1 * time.Second

func serveUntilSignal(c *components) error {
	serverErr := make(chan error, 1)
	go func() {
		c.sugar.Infow("admin server started", "address", c.admin.Addr)
		if err := c.admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			c.sugar.Errorw("admin server error", "error", err)
			shutdown(c)
			return fmt.Errorf("admin server error: %w", err)
		}
	case <-quit:
		c.sugar.Infoln("shutting down poolctl...")
	}

	shutdown(c)
	return nil
}

func shutdown(c *components) {
	if c.statsSaver != nil {
		c.statsSaver.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.admin.Shutdown(ctx); err != nil {
		c.sugar.Errorw("admin server shutdown error", "error", err)
	}

	if c.httpPool != nil {
		c.httpPool.Close()
	}
	if c.pgPool != nil {
		c.pgPool.Close()
	}
	if c.pgDB != nil {
		if err := c.pgDB.Close(); err != nil {
			c.sugar.Errorw("error closing postgres", "error", err)
		}
	}

	c.sugar.Infoln("poolctl stopped gracefully")
}
