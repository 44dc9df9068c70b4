package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zaptv/zaptv/internal/cache"
	"github.com/zaptv/zaptv/internal/catalog"
	"github.com/zaptv/zaptv/internal/config"
	"github.com/zaptv/zaptv/internal/database"
	"github.com/zaptv/zaptv/internal/epg"
	internalhttp "github.com/zaptv/zaptv/internal/http"
	"github.com/zaptv/zaptv/internal/http/handlers"
	"github.com/zaptv/zaptv/internal/httpclient"
	"github.com/zaptv/zaptv/internal/observability"
	"github.com/zaptv/zaptv/internal/scheduler"
	"github.com/zaptv/zaptv/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the zaptv server",
	Long: `Start the zaptv HTTP server and API.

The server provides:
- REST API for the provider catalog and program guide
- Cache administration endpoints
- Health check endpoint
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8089, "Port to listen on")
	serveCmd.Flags().String("database", "zaptv.db", "Cache database DSN")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("database.dsn", serveCmd.Flags().Lookup("database"))
}

func runServe(_ *cobra.Command, _ []string) error {
	// The global viper was primed by initConfig and carries the bound
	// serve flags on top of file and environment values.
	cfg, err := config.LoadFromViper(viper.GetViper())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(cfg.Logging)
	observability.SetDefault(logger)

	logger.Info("starting zaptv",
		slog.String("version", version.Version),
		slog.String("provider_mode", cfg.Provider.Mode),
	)

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("opening cache database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating cache database: %w", err)
	}

	store := cache.New(cache.NewGormBackend(db), cfg.Cache.TTL, cfg.Cache.Namespace, logger)

	upstream := httpclient.New(httpclient.Config{
		Timeout:         cfg.Fetch.Timeout,
		RetryAttempts:   cfg.Fetch.RetryAttempts,
		RetryDelay:      cfg.Fetch.RetryDelay,
		MaxConcurrent:   cfg.Fetch.MaxConcurrent,
		MinInterval:     cfg.Fetch.MinInterval,
		RewriteProxyURL: cfg.Fetch.RewriteProxyURL,
		CORSProxies:     cfg.Fetch.CORSProxies,
		UserAgent:       version.UserAgent(),
		Logger:          logger,
	})

	fetcher := cache.NewCachingFetcher(store, upstream, providerKey(cfg.Provider), providerIdentity(cfg.Provider))

	service, err := catalog.New(cfg.Provider, fetcher, logger)
	if err != nil {
		// An unusable provider URL is fatal at construction, not at first use.
		return fmt.Errorf("building catalog: %w", err)
	}

	engine := epg.NewEngine(fetcher, guideURL(cfg.Provider, service), func(ctx context.Context) error {
		return store.Invalidate(ctx, fetcher.GuideKey())
	}, service, logger)

	sched := scheduler.New(logger)
	if cfg.EPG.Enabled {
		refresh := scheduler.Job{
			Name: "guide refresh",
			Spec: cfg.EPG.RefreshCron,
			Run: func(ctx context.Context) error {
				if !engine.ForceRefresh(ctx) {
					return fmt.Errorf("guide refresh failed")
				}
				return nil
			},
		}
		if err := sched.Schedule(refresh); err != nil {
			return fmt.Errorf("scheduling guide refresh: %w", err)
		}
	}
	sweep := scheduler.Job{
		Name: "cache sweep",
		Spec: "@hourly",
		Run: func(ctx context.Context) error {
			_, err := store.SweepExpired(ctx)
			return err
		},
	}
	if err := sched.Schedule(sweep); err != nil {
		return fmt.Errorf("scheduling cache sweep: %w", err)
	}

	server := internalhttp.NewServer(cfg.Server, logger, version.Version)
	handlers.NewHealthHandler(version.Version).WithDB(db).Register(server.API())
	handlers.NewCatalogHandler(service, logger).Register(server.API())
	handlers.NewEPGHandler(engine, logger).Register(server.API())
	handlers.NewCacheHandler(store, logger).Register(server.API())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start()

	err = server.ListenAndServe(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if stopErr := sched.Stop(stopCtx); stopErr != nil {
		logger.Warn("scheduler shutdown incomplete", slog.String("error", stopErr.Error()))
	}

	return err
}

// providerKey is the server segment of cache keys: the provider host, or the
// raw URL when it does not parse.
func providerKey(p config.ProviderConfig) string {
	target := p.URL
	if p.Mode == catalog.ModeM3U && p.M3UURL != "" {
		target = p.M3UURL
	}
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		return u.Host
	}
	return target
}

// providerIdentity is the identity segment of cache keys.
func providerIdentity(p config.ProviderConfig) string {
	if p.Username != "" {
		return p.Username
	}
	return "anonymous"
}

// guideURL picks the XMLTV document location: an explicit epg_url wins, then
// the panel's xmltv.php endpoint.
func guideURL(p config.ProviderConfig, service *catalog.Service) string {
	if p.EPGURL != "" {
		return p.EPGURL
	}
	return service.Client().XMLTVURL()
}
