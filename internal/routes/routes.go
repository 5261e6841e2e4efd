package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/paycore/internal/cardrail"
	"github.com/congo-pay/paycore/internal/config"
	"github.com/congo-pay/paycore/internal/cryptorail"
	"github.com/congo-pay/paycore/internal/metrics"
	"github.com/congo-pay/paycore/internal/middleware"
	"github.com/congo-pay/paycore/internal/notification"
	"github.com/congo-pay/paycore/internal/orchestrator"
	"github.com/congo-pay/paycore/internal/pricefeed"
	"github.com/congo-pay/paycore/internal/txstore"
	"github.com/congo-pay/paycore/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// may be nil in development.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Registry defaults to a fresh registry when nil.
	Registry *prometheus.Registry
}

// Core is the payment core owned by the host process.
type Core struct {
	Payments *orchestrator.Service
	Crypto   *cryptorail.Service
	Prices   pricefeed.Cache
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*Core, error) {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	core, err := NewCore(ctx, d)
	if err != nil {
		return nil, err
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger, "/healthz", "/metrics"))

	// Health and metrics
	RegisterHealthRoutes(app, d)
	RegisterMetricsRoute(app, d.Registry)

	var idemStore middleware.IdempotencyStore
	if d.Cache != nil {
		idemStore = middleware.NewRedisIdempotencyStore(d.Cache)
	} else {
		idemStore = middleware.NewMemoryIdempotencyStore()
	}
	collaborator := middleware.CollaboratorAuth(d.Cfg.CollaboratorTokenHash)
	if d.Cfg.CollaboratorTokenHash == "" {
		d.Logger.Warn("collaborator endpoints are unauthenticated; set COLLABORATOR_TOKEN_HASH")
	}

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterPaymentRoutes(api, orchestrator.NewHandler(core.Payments), PaymentGuards{
		Idempotency:  middleware.Idempotency(idemStore, d.Cfg.IdempotencyTTL, d.Logger),
		RateLimit:    middleware.RateLimit(d.Cache, "process", d.Cfg.ProcessRateLimit),
		Collaborator: collaborator,
	})
	RegisterWalletRoutes(api, wallet.NewHandler(core.Crypto), collaborator)
	RegisterRateRoutes(api, pricefeed.NewHandler(core.Prices), collaborator)

	return core, nil
}

// NewCore builds the payment core on the configured backends, falling back to
// in-memory stores when Postgres or Redis are absent.
func NewCore(ctx context.Context, d Deps) (*Core, error) {
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if err := d.Registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}
	recorder, err := metrics.NewPrometheusRecorder(d.Registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	clk := clock.New()

	var prices pricefeed.Cache
	if d.Cache != nil {
		prices = pricefeed.NewRedis(d.Cache, clk)
	} else {
		prices = pricefeed.NewMemory(clk)
	}
	seed, err := pricefeed.ParseRates(d.Cfg.SeedRates)
	if err != nil {
		return nil, fmt.Errorf("parse SEED_RATES: %w", err)
	}
	if err := pricefeed.Seed(ctx, prices, seed); err != nil {
		return nil, err
	}

	var (
		store      txstore.Store
		walletRepo wallet.Repository
	)
	if d.DB != nil {
		pg := txstore.NewPostgres(d.DB)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure transaction schema: %w", err)
		}
		repo := wallet.NewPostgresRepository(d.DB)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure wallet schema: %w", err)
		}
		store = pg
		walletRepo = repo
	} else {
		store = txstore.NewMemory()
		walletRepo = wallet.NewMemoryRepository()
	}
	wallets := wallet.NewManager(walletRepo)
	if err := wallets.Load(ctx); err != nil {
		return nil, err
	}

	notifier := notification.NewLoggerNotifier(d.Logger)

	cryptoCfg := cryptorail.DefaultConfig()
	cryptoCfg.RateTolerance = d.Cfg.RateTolerance
	cryptoCfg.MaxRateAge = d.Cfg.RateMaxAge
	crypto := cryptorail.NewService(store, prices, wallets, cryptoCfg,
		cryptorail.WithClock(clk),
		cryptorail.WithLogger(d.Logger),
		cryptorail.WithMetrics(recorder),
		cryptorail.WithNotifier(notifier),
	)
	card := cardrail.NewService(cardrail.NewMemoryIntermediary(), d.Cfg.CardHomeCountry, d.Logger)

	return &Core{
		Payments: orchestrator.NewService(card, crypto, notifier, recorder, d.Logger),
		Crypto:   crypto,
		Prices:   prices,
	}, nil
}
