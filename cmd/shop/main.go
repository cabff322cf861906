package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/config"
	shophttp "github.com/fjod/go_shop/internal/http"
	"github.com/fjod/go_shop/internal/notification"
	"github.com/fjod/go_shop/internal/payment"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/service"
	"github.com/fjod/go_shop/pkg/circuitbreaker"
	"github.com/fjod/go_shop/pkg/logger"
	"github.com/fjod/go_shop/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Service: cfg.ServiceName,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("shop stopped with error")
	}
	log.Info().Msg("shop stopped")
}

// stores groups the persistence backends selected by configuration.
type stores struct {
	users    repository.UserRepository
	catalog  repository.ProductRepository
	carts    repository.CartRepository
	orders   repository.OrderRepository
	checkout repository.CheckoutStore
	health   func(ctx context.Context) error
	closers  []func() error
}

func (s *stores) close(log zerolog.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(log)

	cartCache, closeCache, err := openCartCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	channels := []notification.Channel{
		notification.NewEmailChannel(notification.LogMailer{Log: log}, cfg.MailFrom, cfg.ShopName, cfg.TrackingURL),
		notification.NewSMSChannel(notification.LogSMSSender{Log: log}, cfg.ShopName, cfg.TrackingURL, log),
	}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kafkaChannel := notification.NewKafkaChannel(
			notification.NewKafkaWriter(cfg.KafkaTopic, brokers...),
			circuitbreaker.New("kafka", cfg.BreakerFailures, cfg.BreakerTimeout,
				circuitbreaker.OnStateChange(func(name string, from, to circuitbreaker.State) {
					log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("kafka circuit breaker state changed")
				}),
			),
		)
		defer kafkaChannel.Close()
		channels = append(channels, kafkaChannel)
		log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("kafka notifications enabled")
	}
	dispatcher := notification.NewDispatcher(channels, notification.Config{
		Workers:    cfg.NotifyWorkers,
		BufferSize: cfg.NotifyBufferSize,
	}, m, log)

	carts := service.NewCartService(st.users, st.catalog, st.carts, cartCache, log)
	orders := service.NewOrderService(service.OrderServiceDeps{
		Users:    st.users,
		Catalog:  st.catalog,
		Carts:    carts,
		Orders:   st.orders,
		Checkout: st.checkout,
		Notifier: dispatcher,
		Metrics:  m,
		Log:      log,
	})
	payments := payment.NewDispatcher(payment.SimulatedProviders(), payment.BreakerConfig{
		FailureThreshold: cfg.BreakerFailures,
		OpenTimeout:      cfg.BreakerTimeout,
	}, m, log)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: shophttp.NewRouter(shophttp.RouterDeps{
			Carts:          carts,
			Orders:         orders,
			Catalog:        st.catalog,
			Payments:       payments,
			Metrics:        m,
			Log:            log,
			Health:         st.health,
			RequestTimeout: cfg.RequestTimeout,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The dispatcher outlives the server so events from in-flight requests are still delivered.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("cart_store", cfg.CartStore).Msg("shop listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopDispatch()

		log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.CartStore == config.CartStoreMemory {
		mem := repository.NewMemoryStore()
		seedMemoryStore(mem)
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return &stores{users: mem, catalog: mem, carts: mem, orders: mem, checkout: mem}, nil
	}

	port, err := strconv.Atoi(cfg.DBPort)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT %q: %w", cfg.DBPort, err)
	}
	sqlRepo, err := repository.NewSQLRepository(&repository.Credentials{
		Driver:            cfg.DBDriver,
		Path:              cfg.DBPath,
		Host:              cfg.DBHost,
		Port:              port,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		SSLMode:           cfg.DBSSLMode,
		MigrationsDirPath: cfg.MigrationDir,
	})
	if err != nil {
		return nil, err
	}
	st := &stores{
		users:   sqlRepo,
		catalog: sqlRepo,
		carts:   sqlRepo,
		orders:  sqlRepo,
		health:  sqlRepo.Ping,
		closers: []func() error{sqlRepo.Close},
	}

	if err := sqlRepo.RunMigrations(cfg.MigrationDir); err != nil {
		st.close(log)
		return nil, err
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("database migrations applied")

	if cfg.CartStore == config.CartStoreSQL {
		st.checkout = sqlRepo
		return st, nil
	}

	mongoCarts, mongoClient, err := repository.OpenMongoCarts(ctx, repository.MongoConfig{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		MaxPoolSize: cfg.MongoMaxPool,
		MinPoolSize: cfg.MongoMinPool,
		CartTTL:     cfg.MongoCartTTL,
	})
	if err != nil {
		st.close(log)
		return nil, err
	}
	st.closers = append(st.closers, func() error {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return mongoClient.Disconnect(disconnectCtx)
	})
	st.carts = mongoCarts
	st.health = func(ctx context.Context) error {
		if err := sqlRepo.Ping(ctx); err != nil {
			return err
		}
		return mongoClient.Ping(ctx, nil)
	}
	log.Info().Str("database", cfg.MongoDatabase).Msg("carts stored in MongoDB")
	return st, nil
}

func openCartCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) (cache.CartCache, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info().Msg("cart cache disabled")
		return cache.NopCache{}, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("redis ping succeeded")

	return cache.NewRedisCache(client, cfg.CartCacheTTL), func() { client.Close() }, nil
}
