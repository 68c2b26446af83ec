package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/bidshop/gateway"
	"github.com/example/bidshop/pkg/actors"
	"github.com/example/bidshop/pkg/config"
	"github.com/example/bidshop/pkg/discovery"
	"github.com/example/bidshop/pkg/repository"
	"github.com/example/bidshop/pkg/service"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting bidshop server",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	// MySQL
	db, err := repository.NewMySQL(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}

	// Redis
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	ctx := context.Background()
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed, continuing without cache", zap.Error(err))
		redisRepo = nil
	}

	// MongoDB audit log
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Warn("MongoDB connection failed, continuing without audit log", zap.Error(err))
		mongoRepo = nil
	}

	// Event actors
	bus, err := actors.NewBus(logger, mongoRepo)
	if err != nil {
		logger.Fatal("Failed to start event actors", zap.Error(err))
	}

	// Repositories
	users := repository.NewUserRepository(db)
	products := repository.NewProductRepository(db)
	orders := repository.NewOrderRepository(db)
	auctions := repository.NewAuctionRepository(db)
	reviews := repository.NewReviewRepository(db)
	tx := repository.NewTxRunner(db)

	// Engines
	authSvc := service.NewAuthService(users, cfg.JWT, logger.Named("auth"))
	catalogSvc := service.NewCatalogService(products, reviews, redisRepo, bus, logger.Named("catalog"))
	orderSvc := service.NewOrderService(orders, products, tx, bus, cfg.Pricing, logger.Named("orders"))
	auctionSvc := service.NewAuctionService(auctions, tx, redisRepo, bus, cfg.Auction, logger.Named("auctions"))
	reviewSvc := service.NewReviewService(reviews, products, redisRepo, bus, cfg.Review, logger.Named("reviews"))

	// Service registration
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd)
	if err != nil {
		logger.Warn("Failed to connect to etcd, continuing without registration", zap.Error(err))
		sd = nil
	}
	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	if sd != nil {
		if err := sd.Register(ctx, instance); err != nil {
			logger.Warn("Failed to register service", zap.Error(err))
		} else {
			logger.Info("Service registered in etcd", zap.String("name", cfg.Server.Name))
		}
	}

	// Gateway
	gw := gateway.NewGateway(cfg, logger, authSvc, catalogSvc, orderSvc, auctionSvc, reviewSvc, mongoRepo)
	gw.SetupRoutes()

	gwErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			gwErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-gwErr:
		logger.Fatal("Gateway error", zap.Error(err))
	}

	if sd != nil {
		if err := sd.Deregister(ctx, instance); err != nil {
			logger.Error("Failed to deregister service", zap.Error(err))
		}
		sd.Close()
	}
	bus.Shutdown()
	if mongoRepo != nil {
		mongoRepo.Close(ctx)
	}
	if redisRepo != nil {
		redisRepo.Close()
	}

	logger.Info("Server stopped")
}
