package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appinventory "github.com/Zhima-Mochi/minishop-orders/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-orders/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-orders/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/kafka"
	"github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/outbox"
	infrapayment "github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/payment"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
	"github.com/Zhima-Mochi/minishop-orders/internal/pkg/config"
	"github.com/Zhima-Mochi/minishop-orders/internal/pkg/logging"
	"github.com/Zhima-Mochi/minishop-orders/internal/pkg/pagination"
	httppresentation "github.com/Zhima-Mochi/minishop-orders/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-orders/internal/presentation/worker"
)

func main() {
	if err := run(); err != nil {
		zap.L().Error("fatal", zap.Error(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	baseLogger, err := logging.NewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
	})
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)
	logger := zaplogger.New(baseLogger)

	oteltrace.InstallPropagator()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	tel := infraobs.New(oteltrace.New(cfg.ServiceName), logger, prometrics.New(reg, ""))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orderRepo := memory.NewOrderRepository()
	productRepo := memory.NewProductRepository()
	userRepo := memory.NewUserRepository()
	paymentRepo := memory.NewPaymentRepository()

	seed, err := config.LoadSeed(cfg.Catalog.SeedFile)
	if err != nil {
		return err
	}
	if err := memory.LoadCatalog(ctx, seed, productRepo, userRepo); err != nil {
		return err
	}
	logger.Info("catalog_seeded",
		observability.F("products", len(seed.Products)),
		observability.F("users", len(seed.Users)),
	)

	// In-memory event bus; every handler runs with an event-scoped logger.
	bus := outbox.NewBus(logger)
	bus.Use(workerpresentation.EventContext(logger))

	paymentService, err := apppayment.NewService(apppayment.Deps{
		Orders:    orderRepo,
		Payments:  paymentRepo,
		Processor: infrapayment.NewSimulatedGateway(),
		Events:    bus,
		Telemetry: tel,
	})
	if err != nil {
		return err
	}
	orderService, err := apporder.NewService(apporder.Deps{
		Orders:    orderRepo,
		Products:  productRepo,
		Users:     userRepo,
		Payments:  paymentService,
		Events:    bus,
		Telemetry: tel,
	})
	if err != nil {
		return err
	}

	appinventory.New(bus, cfg.Catalog.LowStockThreshold, tel).Start()

	if cfg.Kafka.Enabled() {
		writer, err := kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		relay := kafka.NewRelay(writer, tel)
		defer func() { _ = relay.Close() }()
		bus.SubscribeAll(relay.Handle)
		logger.Info("kafka_relay_enabled",
			observability.F("brokers", cfg.Kafka.Brokers),
			observability.F("topic", cfg.Kafka.Topic),
		)
	}

	bus.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		bus.Stop(stopCtx)
	}()

	router, err := httppresentation.NewRouter(httppresentation.Deps{
		Orders:         orderService,
		Payments:       paymentService,
		Telemetry:      tel,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Pagination: pagination.Options{
			DefaultLimit: cfg.Pagination.DefaultLimit,
			MaxLimit:     cfg.Pagination.MaxLimit,
		},
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http_server_error", observability.Err(err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.Err(err))
		return err
	}
	logger.Info("http_server_stopped")
	return nil
}
