package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logkey"
	"github.com/ariefcatur/go-storefront/internal/loyalty"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.ServiceName)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Loyalty ledger
	var ledger loyalty.Ledger = loyalty.NewMemory()
	if cfg.LoyaltyEnabled {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.ServiceName)
		if err != nil {
			log.Error("db connect", logkey.ERROR, err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("db migrate", logkey.ERROR, err)
			os.Exit(1)
		}
		ledger = &loyalty.Repo{DB: db}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Warn("redis unreachable, session carts will not persist", logkey.ERROR, err)
	}

	// Kafka
	bus := kafkax.NewBus(cfg.KafkaBrokers, events.Topics, 1024, log)
	bus.Start(ctx)

	client := backend.New(cfg.BackendBaseURL, cfg.BackendTimeout)
	// admin workflow notices; each cart keeps its own
	toasts := notify.NewCenter(cfg.ToastTTL, log)
	defer toasts.Close()

	carts := cart.NewRegistry(cart.Options{
		Remote:   cart.BackendRemote{Client: client},
		Local:    &redisx.CartStore{RDB: rdb, TTL: cfg.CartSessionTTL},
		Events:   bus,
		Producer: cfg.ServiceName,
		Log:      log,
		ToastTTL: cfg.ToastTTL,
		IdleTTL:  cfg.CartIdleTTL,
	})
	janitor := carts.Janitor(time.Minute)
	defer janitor.Stop()
	checkoutSvc := &checkout.Service{
		Backend:  client,
		Guard:    &redisx.Guard{RDB: rdb},
		Ledger:   ledger,
		Intents:  &redisx.PaymentIntents{RDB: rdb},
		Events:   bus,
		Producer: cfg.ServiceName,
		Log:      log,
	}
	workflow := &orders.Workflow{
		API:      client,
		Notify:   toasts,
		Events:   bus,
		Producer: cfg.ServiceName,
		Log:      log,
	}

	router := httpx.NewRouter()
	(&httpx.CartHandler{Carts: carts, Products: client, Log: log}).Register(router)
	(&httpx.CheckoutHandler{Service: checkoutSvc, Carts: carts, Log: log}).Register(router)
	(&httpx.CatalogHandler{API: client, Catalog: &catalog.Catalog{API: client, Log: log}, Log: log}).Register(router)
	(&httpx.OrdersHandler{API: client, Status: &redisx.StatusCache{RDB: rdb}, Log: log}).Register(router)
	(&httpx.AdminHandler{API: client, Workflow: workflow, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "backend", cfg.BackendBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", logkey.ERROR, err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	bus.Close() // flush pending events before the producers stop
	cancel()
}
