package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"storefront/pkg/admin"
	"storefront/pkg/cart"
	"storefront/pkg/config"
	"storefront/pkg/inventory/application"
	invmodel "storefront/pkg/inventory/domain/model"
	invservice "storefront/pkg/inventory/domain/service"
	"storefront/pkg/inventory/infra/feed"
	invpostgres "storefront/pkg/inventory/infra/postgres"
	"storefront/pkg/localstore"
	"storefront/pkg/notification"
	ordservice "storefront/pkg/order/domain/service"
	ordpostgres "storefront/pkg/order/infra/postgres"
	"storefront/pkg/order/transport"
	"storefront/pkg/payment"
	"storefront/pkg/storage/postgres"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	app := &cli.App{
		Name:  "storefront",
		Usage: "saree storefront with cross-context inventory coordination",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the storefront service",
				Action: func(c *cli.Context) error {
					return serve(c.Context, log)
				},
			},
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.WithError(err).Fatal("storefront exited")
	}
}

func serve(ctx context.Context, log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := postgres.Connect(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		return err
	}

	slots, err := localstore.New(cfg.StateDir)
	if err != nil {
		return err
	}

	stockStore := invpostgres.NewRepository(db)
	orderRepo := ordpostgres.NewRepository(db)
	basket := cart.New(slots)
	ledger := invservice.NewLedgerService(stockStore, log)

	slot := notification.NewSignalSlot(slots, log, cfg.PollInterval, cfg.SignalMaxAge)
	publishers := []notification.Publisher{slot}

	// The broadcast channel is optional: without it the bus still
	// converges through the store change feed and the polled slot.
	var broadcastCh *amqp.Channel
	if cfg.AMQPURL != "" {
		conn, ch, err := notification.SetupBroadcast(cfg.AMQPURL)
		if err != nil {
			log.WithError(err).Warn("broadcast channel unavailable")
		} else {
			defer conn.Close()
			publishers = append(publishers, notification.NewBroadcaster(ch))
			broadcastCh = ch
		}
	}

	bus := notification.NewBus(log, cfg.DebounceWindow, publishers...)
	if broadcastCh != nil {
		if err := notification.SubscribeBroadcast(ctx, broadcastCh, bus, log); err != nil {
			log.WithError(err).Warn("broadcast subscription failed")
		}
	}
	go slot.Poll(ctx, bus)

	listener := feed.NewListener(cfg.DatabaseDSN, log)
	sub, err := listener.Subscribe(ctx, func(invmodel.ProductChange) { bus.Trigger() })
	if err != nil {
		log.WithError(err).Warn("store change feed unavailable")
	} else {
		defer sub.Close()
	}

	cache := application.NewCache(stockStore, log)
	cache.Refresh(ctx)
	defer bus.OnInventoryChanged(func() { cache.Refresh(ctx) })()

	gateway := payment.NewGateway(cfg.RazorpayKeyID, cfg.RazorpaySecret)
	coordinator := ordservice.NewCoordinator(basket, ledger, orderRepo, gateway, bus, log)

	dashboard := admin.NewDashboard(stockStore, orderRepo, log)
	dashboard.Start(ctx, bus)

	router := mux.NewRouter()
	transport.NewHandler(coordinator, cache, basket).Register(router)
	payment.RegisterRoutes(router, gateway, log)
	dashboard.RegisterRoutes(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: transport.LogMiddleware(router)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", cfg.HTTPAddr).Info("storefront listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
