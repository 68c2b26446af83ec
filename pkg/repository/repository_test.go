package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/bidshop/pkg/errs"
	"github.com/example/bidshop/pkg/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return db
}

func TestDecrementStock(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	product := &models.Product{ID: uuid.NewString(), Name: "Widget", Price: 10, Stock: 3}
	require.NoError(t, repo.Insert(ctx, product))

	require.NoError(t, repo.DecrementStock(ctx, product.ID, 2))

	got, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)

	err = repo.DecrementStock(ctx, product.ID, 2)
	assert.True(t, errs.IsKind(err, errs.KindConflict))

	err = repo.DecrementStock(ctx, "missing", 1)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestOrderNumbering(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	first, err := repo.NextNumber(ctx)
	require.NoError(t, err)
	second, err := repo.NextNumber(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

func TestOrderStatusUpdateChecksPriorStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := &models.Order{
		ID: uuid.NewString(), Number: "ORD-1", UserID: "u1",
		Status: models.OrderStatusPending, ShippingAddress: "1 Main St",
	}
	require.NoError(t, repo.Insert(ctx, order))

	require.NoError(t, repo.UpdateStatus(ctx, order.ID,
		models.OrderStatusPending, models.OrderStatusDelivered))

	// A second transition decided against the pre-move status loses the
	// race instead of overwriting the first one.
	err := repo.UpdateStatus(ctx, order.ID,
		models.OrderStatusPending, models.OrderStatusProcessing)
	assert.True(t, errs.IsKind(err, errs.KindConflict), "got %v", err)

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, got.Status)

	err = repo.UpdateStatus(ctx, "missing",
		models.OrderStatusPending, models.OrderStatusProcessing)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestTransactRollsBack(t *testing.T) {
	db := newTestDB(t)
	products := NewProductRepository(db)
	tx := NewTxRunner(db)
	ctx := context.Background()

	product := &models.Product{ID: uuid.NewString(), Name: "Widget", Price: 10, Stock: 5}
	require.NoError(t, products.Insert(ctx, product))

	err := tx.Transact(ctx, func(ctx context.Context) error {
		if err := products.DecrementStock(ctx, product.ID, 5); err != nil {
			return err
		}
		return errs.Internal(nil, "boom")
	})
	require.Error(t, err)

	got, err := products.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
}

func TestListExpiredAuctions(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuctionRepository(db)
	ctx := context.Background()

	expired := &models.Auction{
		ID: uuid.NewString(), SellerID: "s1", Title: "Old",
		StartingPrice: 10, CurrentPrice: 10,
		Status: models.AuctionStatusActive,
		EndsAt: time.Now().Add(-time.Hour),
	}
	live := &models.Auction{
		ID: uuid.NewString(), SellerID: "s1", Title: "Live",
		StartingPrice: 10, CurrentPrice: 10,
		Status: models.AuctionStatusActive,
		EndsAt: time.Now().Add(time.Hour),
	}
	closed := &models.Auction{
		ID: uuid.NewString(), SellerID: "s1", Title: "Closed",
		StartingPrice: 10, CurrentPrice: 10,
		Status: models.AuctionStatusEnded,
		EndsAt: time.Now().Add(-time.Hour),
	}
	for _, a := range []*models.Auction{expired, live, closed} {
		require.NoError(t, repo.Insert(ctx, a))
	}

	got, err := repo.ListExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expired.ID, got[0].ID)
}

func TestTopBid(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuctionRepository(db)
	ctx := context.Background()

	auctionID := uuid.NewString()

	top, err := repo.TopBid(ctx, auctionID)
	require.NoError(t, err)
	assert.Nil(t, top)

	for _, amount := range []float64{11, 15, 13} {
		require.NoError(t, repo.InsertBid(ctx, &models.Bid{
			ID: uuid.NewString(), AuctionID: auctionID, BidderID: "b", Amount: amount,
		}))
	}

	top, err = repo.TopBid(ctx, auctionID)
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, 15.0, top.Amount)
}

func TestReviewAggregate(t *testing.T) {
	db := newTestDB(t)
	repo := NewReviewRepository(db)
	ctx := context.Background()

	productID := uuid.NewString()

	avg, count, err := repo.Aggregate(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
	assert.Zero(t, count)

	insert := func(rating int, status string) {
		require.NoError(t, repo.Insert(ctx, &models.Review{
			ID: uuid.NewString(), ProductID: productID, UserID: uuid.NewString(),
			Rating: rating, Status: status,
		}))
	}
	insert(5, models.ReviewStatusApproved)
	insert(4, models.ReviewStatusApproved)
	insert(1, models.ReviewStatusPending)
	insert(1, models.ReviewStatusRejected)

	avg, count, err = repo.Aggregate(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, avg)
	assert.Equal(t, int64(2), count)
}
