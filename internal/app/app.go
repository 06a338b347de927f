package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/checkout-intent/internal/domain/checkout"
	"github.com/xenking/checkout-intent/internal/gateway/stripegw"
	"github.com/xenking/checkout-intent/internal/handler"
	"github.com/xenking/checkout-intent/pkg/health"
	"github.com/xenking/checkout-intent/pkg/httpmiddleware"
)

const (
	checkoutPath       = "/api/create-payment-intent"
	legacyCheckoutPath = "/.netlify/functions/create-payment-intent"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// Checkout handler. A gateway that cannot be built keeps the server up
	// and answers every checkout with an init error.
	checkoutHandler, initErr := newCheckoutHandler(lg, m, cfg)

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddReadinessCheck("payment_gateway", time.Second, health.StaticCheck(initErr))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle(checkoutPath, checkoutHandler)
	mux.Handle(legacyCheckoutPath, checkoutHandler)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Stripe calls may take up to the client timeout.
		WriteTimeout:   cfg.Stripe.Timeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.LogRequests(),
			httpmiddleware.Instrument("checkout-api", m),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowMethods:     []string{http.MethodPost, http.MethodOptions},
				AllowHeaders:     []string{"Content-Type"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
		),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-gCtx.Done()
		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})
	return g.Wait()
}

// newCheckoutHandler builds the payment gateway and checkout service. On
// failure it returns a handler reporting the error on every request along
// with the error itself.
func newCheckoutHandler(lg *zap.Logger, m *app.Telemetry, cfg *Config) (http.Handler, error) {
	gw, err := stripegw.New(stripegw.Config{
		SecretKey:      cfg.Stripe.SecretKey,
		APIBase:        cfg.Stripe.APIBase,
		Timeout:        cfg.Stripe.Timeout,
		Logger:         lg,
		TracerProvider: m.TracerProvider(),
	})
	if err != nil {
		lg.Error("Payment gateway unavailable", zap.Error(err))
		return handler.InitFailure(err), err
	}

	svc, err := checkout.NewService(gw, checkout.Options{
		MeterProvider:  m.MeterProvider(),
		TracerProvider: m.TracerProvider(),
	})
	if err != nil {
		err = errors.Wrap(err, "create checkout service")
		lg.Error("Checkout service unavailable", zap.Error(err))
		return handler.InitFailure(err), err
	}
	return handler.NewHandler(svc), nil
}
