package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"genfity-pricing-service/internal/config"
	"genfity-pricing-service/internal/db"
	"genfity-pricing-service/internal/events"
	httpapi "genfity-pricing-service/internal/http"
	"genfity-pricing-service/internal/http/handlers"
	"genfity-pricing-service/internal/logger"
	"genfity-pricing-service/internal/merchant"
	"genfity-pricing-service/internal/orders"
	"genfity-pricing-service/internal/pricing"
	"genfity-pricing-service/internal/queue"
	"genfity-pricing-service/internal/storage"
	"genfity-pricing-service/internal/voucher"
	"genfity-pricing-service/internal/ws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	policy, err := voucher.ParsePolicy(cfg.DiscountRevalidationPolicy)
	if err != nil {
		log.Fatal("invalid discount revalidation policy", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
	})
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	hub := ws.NewHub(log, cfg.JWTSecret, cfg.WSHeartbeatInterval)

	var publisher events.Publisher = events.Nop{}
	var queueClient *queue.Client
	if cfg.RabbitMQURL != "" {
		qc, err := queue.New(cfg.RabbitMQURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq connection failed", zap.Error(err))
			}
			log.Warn("rabbitmq connection failed; continuing without events", zap.Error(err))
			qc = nil
		}
		if qc != nil {
			if err := queue.EnsurePricingTopology(qc); err != nil {
				if cfg.Env == "production" {
					log.Fatal("rabbitmq topology failed", zap.Error(err))
				}
				log.Warn("rabbitmq topology failed; continuing without events", zap.Error(err))
				_ = qc.Close()
				qc = nil
			}
		}
		queueClient = qc
	}

	if queueClient != nil {
		defer queueClient.Close()
		publisher = events.NewAMQPPublisher(queueClient)
		log.Info("rabbitmq enabled", zap.String("exchange", queue.EventsExchange))

		if cfg.RabbitMQWorkerMode == "daemon" {
			log.Info("stock fan-out enabled", zap.String("queue", queue.StockQueue))
			go func() {
				if err := queueClient.ConsumeWithRetry(ctx, queue.StockQueue, hub.HandleStockEvent, 3, 5*time.Second); err != nil {
					log.Error("stock consumer stopped", zap.Error(err))
				}
			}()
		} else {
			log.Info("stock fan-out disabled", zap.String("mode", cfg.RabbitMQWorkerMode))
		}
	} else {
		// Single instance: stock changes reach websocket clients in process.
		bus := events.NewBus()
		bus.Subscribe(events.StockChanged, hub.HandleStockEvent)
		publisher = bus
		log.Info("rabbitmq disabled; using in-process events")
	}

	merchants := merchant.PGLoader{DB: pool, Timezone: cfg.DefaultTimezone}
	svc := orders.NewService(
		orders.NewPGRepository(pool),
		merchants,
		pricing.PGCatalog{DB: pool},
		voucher.PGStore{DB: pool},
		publisher,
		log,
		orders.Options{Policy: policy, TrackingSecret: cfg.OrderTrackingTokenSecret},
	)

	h := &handlers.Handler{
		Orders:    svc,
		Merchants: merchants,
		Logger:    log,
	}

	if cfg.ObjectStore.Enabled() {
		store, err := storage.NewObjectStore(ctx, cfg.ObjectStore)
		if err != nil {
			log.Warn("object store unavailable; receipts will not be archived", zap.Error(err))
		} else {
			h.Receipts = store
		}
	}

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, pool, log, cfg, hub),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("pricing api ready", zap.String("base", "/api"))
		log.Info("stock ws ready", zap.String("path", "/ws/merchant/stock"))
		log.Info("pricing service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
