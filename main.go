package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"crm-entitlements/config"
	"crm-entitlements/database"
	adminapi "crm-entitlements/internal/api/admin"
	billingapi "crm-entitlements/internal/api/billing"
	"crm-entitlements/internal/api/entitlements"
	plansapi "crm-entitlements/internal/api/plans"
	stripewebhooks "crm-entitlements/internal/api/stripewebhook"
	routes "crm-entitlements/internal/app/http"
	"crm-entitlements/internal/app/http/middleware"
	"crm-entitlements/internal/domain/access"
	"crm-entitlements/internal/domain/billing"
	"crm-entitlements/internal/domain/gate"
	"crm-entitlements/internal/domain/lifecycle"
	"crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/domain/quota"
	"crm-entitlements/internal/domain/subscriptions"
	"crm-entitlements/internal/domain/usage"
	"crm-entitlements/internal/infra/stripe"
	"crm-entitlements/internal/logging"
)

type stores struct {
	subs    subscriptions.Store
	catalog plans.Catalog
	ledger  billing.Ledger
	usage   usage.Source
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.Logger()
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.Init(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Component: "entitlements"})
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage unavailable")
	}

	var (
		gw     lifecycle.Gateway
		prices plansapi.PriceSource
	)
	if cfg.StripeSecretKey != "" {
		sg, err := stripe.New(stripe.Config{SecretKey: cfg.StripeSecretKey, Timeout: cfg.GatewayTimeout, AppEnv: cfg.AppEnv})
		if err != nil {
			logger.Fatal().Err(err).Msg("stripe gateway")
		}
		gw, prices = sg, sg
	} else {
		logger.Warn().Msg("STRIPE_SECRET_KEY not set, billing provider disabled")
	}

	orch := lifecycle.New(st.subs, st.catalog, st.ledger, lifecycle.Options{
		Gateway:        gw,
		Logger:         &logger,
		StoreTimeout:   cfg.StoreTimeout,
		GatewayTimeout: cfg.GatewayTimeout,
	})
	q := quota.NewEvaluator(st.subs, st.catalog, st.usage, cfg.StoreTimeout)

	matrix := access.Default()
	g := gate.New(matrix, orch, q, gate.Policy{
		FailOpen:       cfg.GateFailOpen,
		ExemptPrefixes: cfg.GateExemptPaths,
	}).WithLogger(logger)

	var auths []middleware.Authenticator
	if cfg.JWTSecret != "" {
		auths = append(auths, middleware.NewJWTAuthenticator(cfg.JWTSecret))
	}
	if cfg.OIDCIssuer != "" {
		oa, err := middleware.NewOIDCAuthenticator(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			logger.Fatal().Err(err).Str("issuer", cfg.OIDCIssuer).Msg("oidc discovery failed")
		}
		auths = append(auths, oa)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "X-Entitlement-Degraded"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		Authenticators: auths,
		Gate:           g,
		Webhook:        stripewebhooks.NewHandler(stripe.NewVerifier(cfg.StripeWebhookSecret), orch),
		Billing:        billingapi.NewHandler(orch, st.catalog, st.ledger, cfg.AppURL),
		Plans:          plansapi.NewHandler(st.catalog, prices, cfg.StripeProductID),
		Admin:          adminapi.NewHandler(orch, st.subs, st.catalog, matrix),
		Entitlements:   entitlements.NewHandler(g, q),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.AppEnv).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := eg.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
	logger.Info().Msg("shut down")
}

// openStores uses PostgreSQL when DB_URL is set and in-memory stores
// otherwise. A reachable REDIS_URL puts the usage snapshot in front of the
// row counter.
func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	if cfg.DBURL == "" {
		logger.Warn().Msg("DB_URL not set, using in-memory stores")
		return &stores{
			subs:    subscriptions.NewMemoryStore(),
			catalog: plans.NewMemoryCatalog(plans.Defaults()...),
			ledger:  billing.NewMemoryLedger(),
			usage:   usage.Static{},
		}, nil
	}

	db, err := database.Open(cfg.DBURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if err := database.SeedPlans(ctx, db); err != nil {
		return nil, err
	}

	st := &stores{
		subs:    subscriptions.NewGormStore(db),
		catalog: plans.NewGormCatalog(db),
		ledger:  billing.NewGormLedger(db),
		usage:   usage.NewRowCounter(db),
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, counting usage from rows")
		} else {
			st.usage = usage.Fallback{
				Primary:   usage.NewRedisSnapshot(client, "usage:", cfg.UsageSnapshotTTL),
				Secondary: st.usage,
			}
		}
	}
	return st, nil
}
