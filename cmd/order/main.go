package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/ordershop/gateway"
	"github.com/example/ordershop/pkg/audit"
	"github.com/example/ordershop/pkg/config"
	"github.com/example/ordershop/pkg/discovery"
	"github.com/example/ordershop/pkg/events"
	"github.com/example/ordershop/pkg/grpc"
	"github.com/example/ordershop/pkg/logging"
	"github.com/example/ordershop/pkg/metrics"
	"github.com/example/ordershop/pkg/orders"
	"github.com/example/ordershop/pkg/repository"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config/config.yaml"), "path to the YAML config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting order service",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// MongoDB
	mongoRepo, err := repository.NewMongoRepository(ctx, &cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoRepo.Close(context.Background())

	orderRepo := mongoRepo.Orders()
	if err := orderRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("Failed to ensure order indexes", zap.Error(err))
	}

	// Redis
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}

	// MySQL
	db, err := repository.NewMySQL(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}
	users := repository.NewUserRepository(db, redisRepo, logger)

	// Audit actor
	recorder, err := audit.NewRecorder(mongoRepo.AuditLogs(), logger)
	if err != nil {
		logger.Fatal("Failed to start audit actor", zap.Error(err))
	}
	defer recorder.Stop()

	opts := []orders.Option{orders.WithAudit(recorder)}

	// Kafka
	if cfg.Kafka.Enabled {
		publisher := events.NewPublisher(events.NewWriter(&cfg.Kafka))
		defer publisher.Close()
		opts = append(opts, orders.WithEvents(publisher))
		logger.Info("Order events enabled", zap.String("topic", cfg.Kafka.Topic))
	}

	svc := orders.NewService(orderRepo, users, repository.NewCartStore(redisRepo), logger, opts...)

	gw := gateway.NewGateway(cfg, logger, svc,
		repository.NewSessionStore(redisRepo, cfg.Session.TTL),
		gateway.WithMetrics(metrics.NewServerMetrics("orders")),
		gateway.WithAuditTrail(recorder),
	)
	gw.SetupRoutes()

	health := grpc.NewHealthServer(orderRepo, cfg.Server.Name, cfg.GRPC.HealthInterval, logger)

	serverErr := make(chan error, 2)
	go func() {
		if err := gw.Start(); err != nil {
			serverErr <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		if err := health.Start(ctx, fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.GRPC.Port)); err != nil {
			serverErr <- fmt.Errorf("grpc: %w", err)
		}
	}()

	// Connect to etcd for service discovery
	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	var sd *discovery.ServiceDiscovery
	if cfg.Etcd.Enabled {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, logger)
		if err != nil {
			logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else if err := sd.Register(ctx, instance); err != nil {
			logger.Warn("Failed to register service", zap.Error(err))
		} else {
			logger.Info("Service registered in etcd",
				zap.String("name", instance.Name),
				zap.String("address", instance.Address()))
			logInstances(ctx, sd, instance.Name, logger)
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Error("Server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sd != nil {
		if err := sd.Deregister(shutdownCtx, instance); err != nil {
			logger.Error("Failed to deregister service", zap.Error(err))
		}
		sd.Close()
	}

	health.Stop()
	if err := gw.Shutdown(shutdownCtx); err != nil {
		logger.Error("Gateway shutdown failed", zap.Error(err))
	}

	logger.Info("Service stopped")
}

// logInstances reads the registration back from etcd.
func logInstances(ctx context.Context, sd *discovery.ServiceDiscovery, name string, logger *zap.Logger) {
	instances, err := sd.Discover(ctx, name)
	if err != nil {
		logger.Warn("Failed to list registered instances", zap.Error(err))
		return
	}
	addrs := make([]string, 0, len(instances))
	for _, instance := range instances {
		addrs = append(addrs, instance.Address())
	}
	logger.Info("Registered instances", zap.String("name", name), zap.Strings("addresses", addrs))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
