package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/checkout"
	"storefront/internal/db"
	"storefront/internal/domain/carts"
	"storefront/internal/domain/orders"
	"storefront/internal/domain/storage"
	"storefront/internal/params"
	"storefront/internal/ratelimiter"
	"storefront/internal/remote"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	return ratelimiter.Config{
		RequestsPerTimeFrame: envInt("RATELIMITER_REQUESTS_COUNT", 200),
		TimeFrame:            5 * time.Second,
		Enabled:              envBool("RATE_LIMITER_ENABLED", false),
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	core := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), zapcore.InfoLevel)

	return zap.New(core).Sugar(), nil
}

var version = "0.3.0"

func loadConfig() config {
	return config{
		addr: envString("ADDR", ":8080"),
		env:  envString("ENV", "development"),
		db: dbConfig{
			addr:        os.Getenv("DB_ADDR"),
			maxConns:    int32(envInt("DB_MAX_CONNS", 10)),
			maxIdleTime: envString("DB_MAX_IDLE_TIME", "15m"),
		},
		cart: cartConfig{
			store:    strings.ToLower(envString("CART_STORE", cartStoreMemory)),
			redis:    os.Getenv("REDIS_ADDR"),
			ttl:      envDuration("CART_TTL", 7*24*time.Hour),
			idleTime: envDuration("CART_IDLE_TIME", 2*time.Hour),
		},
		auth: authConfig{
			basic: basicConfig{
				user:     os.Getenv("AUTH_BASIC_USER"),
				passHash: os.Getenv("AUTH_BASIC_PASS_HASH"),
			},
			token: tokenConfig{
				secret: os.Getenv("AUTH_TOKEN_SECRET"),
				iss:    envString("AUTH_TOKEN_ISS", "storefront"),
			},
		},
		remote: remoteConfig{
			orderURL:        os.Getenv("ORDER_SERVICE_URL"),
			catalogURL:      os.Getenv("CATALOG_SERVICE_URL"),
			token:           os.Getenv("REMOTE_API_TOKEN"),
			checkoutTimeout: envDuration("CHECKOUT_TIMEOUT", 10*time.Second),
			refSecret:       os.Getenv("ORDER_REF_SECRET"),
		},
		cors:        corsConfig{allowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"https://*", "http://*"})},
		rateLimiter: LoadRateLimiterConfig(),
		pages: params.Limits{
			Default: envInt("PAGE_DEFAULT_LIMIT", params.DefaultLimit),
			Max:     envInt("PAGE_MAX_LIMIT", params.MaxLimit),
		},
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := loadConfig()

	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	if cfg.auth.token.secret == "" {
		logger.Fatal("AUTH_TOKEN_SECRET is required")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Database
	var pool *pgxpool.Pool
	if cfg.db.addr != "" {
		pool, err = db.New(ctx, cfg.db.addr, cfg.db.maxConns, cfg.db.maxIdleTime)
		if err != nil {
			logger.Fatal(err)
		}
		defer pool.Close()
		logger.Info("database connection pool established")
	}

	cartStore, err := newCartStore(ctx, cfg.cart, pool)
	if err != nil {
		logger.Fatal(err)
	}

	var store *storage.Container
	if pool != nil {
		store = storage.NewContainer(pool, cartStore)
	} else {
		store = storage.NewMemoryContainer(cartStore)
	}

	registry := carts.NewRegistry(store.Carts, cfg.cart.idleTime, logger)

	orderClient := remote.NewClient(cfg.remote.orderURL, cfg.remote.token, cfg.remote.checkoutTimeout)
	catalogClient := remote.NewClient(cfg.remote.catalogURL, cfg.remote.token, 5*time.Second)
	if !orderClient.Configured() {
		logger.Warn("ORDER_SERVICE_URL is not set, checkout will report the order service as unavailable")
	}

	checkoutSvc := checkout.NewService(
		registry,
		orderClient,
		store,
		orders.NewReferenceGenerator(cfg.remote.refSecret),
		cfg.remote.checkoutTimeout,
		logger,
	)

	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)
	if cfg.rateLimiter.Enabled {
		go rateLimiter.Run(ctx)
	}

	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         store,
		carts:         registry,
		checkout:      checkoutSvc,
		catalog:       remote.NewCatalog(catalogClient),
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
	}

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("active_carts", expvar.Func(func() any {
		return registry.Len()
	}))
	if pool != nil {
		expvar.Publish("database", expvar.Func(func() any {
			s := pool.Stat()
			return map[string]int32{
				"total_conns":    s.TotalConns(),
				"idle_conns":     s.IdleConns(),
				"acquired_conns": s.AcquiredConns(),
			}
		}))
	}

	app.sweepCartsEvery(ctx, 10*time.Minute)

	mux := app.mount()

	logger.Fatal(app.run(mux))
}

const (
	cartStoreMemory   = "memory"
	cartStorePostgres = "postgres"
	cartStoreRedis    = "redis"
)

// newCartStore returns nil for memory-only carts.
func newCartStore(ctx context.Context, cfg cartConfig, pool *pgxpool.Pool) (carts.SnapshotStore, error) {
	switch cfg.store {
	case cartStoreMemory, "":
		return nil, nil
	case cartStorePostgres:
		if pool == nil {
			return nil, fmt.Errorf("CART_STORE=postgres requires DB_ADDR")
		}
		return carts.NewRepositoryWithTTL(pool, cfg.ttl), nil
	case cartStoreRedis:
		if cfg.redis == "" {
			return nil, fmt.Errorf("CART_STORE=redis requires REDIS_ADDR")
		}
		rs := carts.NewRedisStore(cfg.redis, cfg.ttl)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown CART_STORE %q", cfg.store)
	}
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %d\n", key, def)
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %t\n", key, def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		fmt.Printf("Invalid %s, defaulting to %s\n", key, def)
		return def
	}
	return d
}

func envList(key string, def []string) []string {
	v := envString(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
