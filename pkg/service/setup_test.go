package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/bidshop/pkg/config"
	"github.com/example/bidshop/pkg/models"
	"github.com/example/bidshop/pkg/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory DB.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, repository.Migrate(db))
	return db
}

func testPricing() config.PricingConfig {
	return config.PricingConfig{TaxRate: 0.0825, ProcessingFee: 4.99}
}

func testAuctionConfig() config.AuctionConfig {
	return config.AuctionConfig{
		MinIncrement:         1.0,
		DefaultDurationHours: 72,
		MaxDurationHours:     720,
	}
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:       newID(),
		Name:     name,
		Price:    price,
		Category: "electronics",
		Stock:    stock,
	}
	require.NoError(t, repository.NewProductRepository(db).Insert(context.Background(), product))
	return product
}

func newOrderService(db *gorm.DB) OrderService {
	return NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		repository.NewTxRunner(db),
		nil,
		testPricing(),
		zap.NewNop(),
	)
}

func newAuctionService(db *gorm.DB) AuctionService {
	return NewAuctionService(
		repository.NewAuctionRepository(db),
		repository.NewTxRunner(db),
		nil,
		nil,
		testAuctionConfig(),
		zap.NewNop(),
	)
}

func newReviewService(db *gorm.DB, cfg config.ReviewConfig) ReviewService {
	return NewReviewService(
		repository.NewReviewRepository(db),
		repository.NewProductRepository(db),
		nil,
		nil,
		cfg,
		zap.NewNop(),
	)
}
