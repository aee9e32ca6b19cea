// Command server starts the Cliptide API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cliptide/internal/api"
	"cliptide/internal/feedcache"
	"cliptide/internal/observability/logging"
	"cliptide/internal/observability/metrics"
	"cliptide/internal/server"
	"cliptide/internal/serverutil"
	"cliptide/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	feedRedisAddr := flag.String("feed-redis-addr", "", "Redis address for the home feed cache")
	feedRedisAddrs := flag.String("feed-redis-addrs", "", "comma separated Redis addresses for the home feed cache")
	feedRedisUsername := flag.String("feed-redis-username", "", "Redis username for the feed cache")
	feedRedisPassword := flag.String("feed-redis-password", "", "Redis password for the feed cache")
	feedRedisMasterName := flag.String("feed-redis-master-name", "", "Redis sentinel master name for the feed cache")
	feedRedisPoolSize := flag.Int("feed-redis-pool-size", 0, "maximum Redis connections for the feed cache")
	feedRedisTLSCA := flag.String("feed-redis-tls-ca", "", "path to Redis TLS CA certificate for the feed cache")
	feedRedisTLSCert := flag.String("feed-redis-tls-cert", "", "path to Redis TLS client certificate for the feed cache")
	feedRedisTLSKey := flag.String("feed-redis-tls-key", "", "path to Redis TLS client key for the feed cache")
	feedRedisTLSServerName := flag.String("feed-redis-tls-server-name", "", "override Redis TLS server name for the feed cache")
	feedRedisTLSSkipVerify := flag.Bool("feed-redis-tls-skip-verify", false, "skip Redis TLS verification for the feed cache")
	feedCacheTTL := flag.Duration("feed-cache-ttl", 0, "TTL for the cached home feed payload")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log output format (json or text)")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("CLIPTIDE_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("CLIPTIDE_LOG_FORMAT")),
	})

	listenAddr := firstNonEmpty(*addr, os.Getenv("CLIPTIDE_ADDR"), ":8080")
	postgresDefaultDSN := firstNonEmpty(*postgresDSN, os.Getenv("CLIPTIDE_POSTGRES_DSN"), os.Getenv("DATABASE_URL"))

	driver := strings.ToLower(firstNonEmpty(*storageDriver, os.Getenv("CLIPTIDE_STORAGE_DRIVER"), "json"))
	if driver == "json" && postgresDefaultDSN != "" && strings.TrimSpace(*storageDriver) == "" && os.Getenv("CLIPTIDE_STORAGE_DRIVER") == "" {
		driver = "postgres"
	}

	var (
		store storage.Repository
		err   error
	)
	switch driver {
	case "json":
		dataFile := firstNonEmpty(*dataPath, os.Getenv("CLIPTIDE_DATA"), "data/cliptide.json")
		store, err = storage.NewJSONRepository(dataFile)
	case "postgres":
		if postgresDefaultDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		var pgOptions []storage.Option
		maxConns := resolveInt(*postgresMaxConns, "CLIPTIDE_POSTGRES_MAX_CONNS")
		minConns := resolveInt(*postgresMinConns, "CLIPTIDE_POSTGRES_MIN_CONNS")
		if maxConns > 0 || minConns > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolLimits(int32(maxConns), int32(minConns)))
		}
		maxLifetime := resolveDuration(*postgresMaxConnLifetime, "CLIPTIDE_POSTGRES_MAX_CONN_LIFETIME")
		maxIdle := resolveDuration(*postgresMaxConnIdle, "CLIPTIDE_POSTGRES_MAX_CONN_IDLE")
		healthInterval := resolveDuration(*postgresHealthInterval, "CLIPTIDE_POSTGRES_HEALTH_INTERVAL")
		if maxLifetime > 0 || maxIdle > 0 || healthInterval > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolDurations(maxLifetime, maxIdle, healthInterval))
		}
		if acquireTimeout := resolveDuration(*postgresAcquireTimeout, "CLIPTIDE_POSTGRES_ACQUIRE_TIMEOUT"); acquireTimeout > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresAcquireTimeout(acquireTimeout))
		}
		if appName := firstNonEmpty(*postgresAppName, os.Getenv("CLIPTIDE_POSTGRES_APP_NAME")); appName != "" {
			pgOptions = append(pgOptions, storage.WithPostgresApplicationName(appName))
		}
		store, err = storage.NewPostgresRepository(postgresDefaultDSN, pgOptions...)
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(store)

	feedAddrs := splitAndTrim(firstNonEmpty(*feedRedisAddrs, os.Getenv("CLIPTIDE_FEED_REDIS_ADDRS")))
	feedAddr := firstNonEmpty(*feedRedisAddr, os.Getenv("CLIPTIDE_FEED_REDIS_ADDR"))
	var feed *feedcache.Cache
	if feedAddr != "" || len(feedAddrs) > 0 {
		feed, err = feedcache.New(feedcache.Config{
			Addr:       feedAddr,
			Addrs:      feedAddrs,
			Username:   firstNonEmpty(*feedRedisUsername, os.Getenv("CLIPTIDE_FEED_REDIS_USERNAME")),
			Password:   firstNonEmpty(*feedRedisPassword, os.Getenv("CLIPTIDE_FEED_REDIS_PASSWORD")),
			MasterName: firstNonEmpty(*feedRedisMasterName, os.Getenv("CLIPTIDE_FEED_REDIS_MASTER_NAME")),
			PoolSize:   resolveInt(*feedRedisPoolSize, "CLIPTIDE_FEED_REDIS_POOL_SIZE"),
			TTL:        resolveDuration(*feedCacheTTL, "CLIPTIDE_FEED_CACHE_TTL"),
			Logger:     logging.WithComponent(logger, "feedcache"),
			TLS: feedcache.TLSConfig{
				CAFile:             firstNonEmpty(*feedRedisTLSCA, os.Getenv("CLIPTIDE_FEED_REDIS_TLS_CA")),
				CertFile:           firstNonEmpty(*feedRedisTLSCert, os.Getenv("CLIPTIDE_FEED_REDIS_TLS_CERT")),
				KeyFile:            firstNonEmpty(*feedRedisTLSKey, os.Getenv("CLIPTIDE_FEED_REDIS_TLS_KEY")),
				ServerName:         firstNonEmpty(*feedRedisTLSServerName, os.Getenv("CLIPTIDE_FEED_REDIS_TLS_SERVER_NAME")),
				InsecureSkipVerify: resolveBool(*feedRedisTLSSkipVerify, "CLIPTIDE_FEED_REDIS_TLS_SKIP_VERIFY"),
			},
		})
		if err != nil {
			logger.Error("failed to initialise feed cache", "error", err)
			os.Exit(1)
		}
		handler.Feed = feed
	}

	recorder := metrics.Default()
	tlsCfg := server.TLSConfig{
		CertFile: firstNonEmpty(*tlsCert, os.Getenv("CLIPTIDE_TLS_CERT")),
		KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("CLIPTIDE_TLS_KEY")),
	}

	srv, err := server.New(handler, server.Config{
		Addr:    listenAddr,
		TLS:     tlsCfg,
		Logger:  logger,
		Metrics: recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Cliptide API listening", "addr", listenAddr, "storage_driver", driver)
	if tlsCfg.CertFile != "" && tlsCfg.KeyFile != "" {
		logger.Info("TLS enabled", "cert_file", tlsCfg.CertFile)
	}
	logger.Info("metrics endpoint available", "path", "/metrics")

	runErr := serverutil.Run(runCtx, serverutil.Config{
		Server:          srv.HTTPServer(),
		TLS:             serverutil.TLSConfig{CertFile: tlsCfg.CertFile, KeyFile: tlsCfg.KeyFile},
		ShutdownTimeout: 10 * time.Second,
	})
	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		logger.Error("server error", "error", runErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if feed != nil {
		if err := feed.Close(); err != nil {
			logger.Warn("failed to close feed cache", "error", err)
		}
	}

	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(ctx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}

	logger.Info("server stopped")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	return 0
}

func resolveBool(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}
	if env, ok := os.LookupEnv(envKey); ok {
		if value, err := strconv.ParseBool(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return false
}
