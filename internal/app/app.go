// Package app wires the api-server together.
package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sambamart/storefront/internal/auth"
	"github.com/sambamart/storefront/internal/cache"
	"github.com/sambamart/storefront/internal/domain/catalog"
	"github.com/sambamart/storefront/internal/domain/order"
	"github.com/sambamart/storefront/internal/handler"
	"github.com/sambamart/storefront/internal/repository"
	"github.com/sambamart/storefront/pkg/health"
	"github.com/sambamart/storefront/pkg/httpmiddleware"
)

const serviceName = "sambamart-api"

// Run creates all dependencies, serves HTTP until ctx is done and shuts down
// gracefully. It is the single wiring point of the api-server. m is usually
// the *app.Telemetry of go-faster/sdk.
func Run(ctx context.Context, lg *zap.Logger, m httpmiddleware.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, m.TracerProvider())
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	probes := health.New()
	probes.Add(health.Check{Name: "postgres", Kind: health.Readiness, Timeout: 5 * time.Second, Func: health.Ping(pool)})
	probes.Add(health.Check{Name: "goroutines", Kind: health.Liveness, Func: health.Goroutines(10000)})

	products := repository.NewCatalogRepository(pool)
	orders := repository.NewOrderRepository(pool)

	// Browsing may be served from redis. Order pricing always reads products.
	var browse catalog.Reader = products
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return errors.Wrap(err, "create redis client")
		}
		defer func() { _ = client.Close() }()

		store := cache.NewRedisStore(client)
		browse = cache.NewCatalog(products, store, cfg.Catalog.CacheTTL)
		probes.Add(health.Check{Name: "redis", Kind: health.Readiness, Func: health.Ping(store)})
		lg.Info("Catalog cache enabled", zap.Duration("ttl", cfg.Catalog.CacheTTL))
	}

	policy, err := order.ParseUnknownProductPolicy(cfg.Orders.UnknownProducts)
	if err != nil {
		return errors.Wrap(err, "parse unknown product policy")
	}
	orderService, err := order.NewService(products, orders, order.Options{
		UnknownProducts: policy,
		StoreTimeout:    cfg.Orders.StoreTimeout,
		TracerProvider:  m.TracerProvider(),
		MeterProvider:   m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	authn, err := auth.NewJWT(auth.Config{
		Secret:   []byte(cfg.Auth.Secret),
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})
	if err != nil {
		return errors.Wrap(err, "create authenticator")
	}

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: newRouter(routerConfig{
			Logger:    lg,
			Telemetry: m,
			Probes:    probes,
			Limiter:   limiter,
			CORS: httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				Headers:          []string{"Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			},
			API: handler.NewHandler(browse, orderService).Routes(authn),
		}),
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return probes.Run(ctx, 10*time.Second)
	})
	g.Go(func() error {
		return limiter.Run(ctx)
	})
	g.Go(func() error {
		probes.SetReady(true)
		lg.Info("Server listening", zap.Stringer("addr", ln.Addr()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		probes.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

type routerConfig struct {
	Logger    *zap.Logger
	Telemetry httpmiddleware.Telemetry
	Probes    *health.Registry
	Limiter   *httpmiddleware.Limiter
	CORS      httpmiddleware.CORSConfig
	API       http.Handler
}

// newRouter serves the probes and mounts the API behind the rate limiter.
// Middlewares reading the matched route run on the router itself.
func newRouter(cfg routerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(
		httpmiddleware.LogRequests(),
		httpmiddleware.NameSpans(),
	)
	r.Get("/livez", cfg.Probes.Livez)
	r.Get("/readyz", cfg.Probes.Readyz)
	r.Group(func(r chi.Router) {
		r.Use(cfg.Limiter.Middleware())
		r.Mount("/", cfg.API)
	})

	return httpmiddleware.Wrap(r,
		httpmiddleware.InjectLogger(cfg.Logger),
		httpmiddleware.RequestID(),
		httpmiddleware.Recovery(),
		httpmiddleware.Instrument(serviceName, cfg.Telemetry),
		httpmiddleware.CORS(cfg.CORS),
	)
}
