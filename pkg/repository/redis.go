package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/example/bidshop/pkg/config"
	"github.com/example/bidshop/pkg/models"
)

const (
	productCacheTTL = 10 * time.Minute
	// Auctions reprice on every accepted bid, so their cache is short-lived.
	auctionCacheTTL = 30 * time.Second
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// ProductCache is the product detail view served to the storefront: the
// catalog row plus the derived review aggregate.
type ProductCache struct {
	Product     models.Product `json:"product"`
	Rating      float64        `json:"rating"`
	ReviewCount int64          `json:"review_count"`
}

func (r *RedisRepository) CacheProduct(ctx context.Context, view *ProductCache) error {
	key := fmt.Sprintf("product:%s", view.Product.ID)
	return r.SetJSON(ctx, key, view, productCacheTTL)
}

func (r *RedisRepository) GetProductCache(ctx context.Context, productID string) (*ProductCache, error) {
	key := fmt.Sprintf("product:%s", productID)
	var view ProductCache
	if err := r.GetJSON(ctx, key, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *RedisRepository) InvalidateProduct(ctx context.Context, productID string) error {
	return r.Del(ctx, fmt.Sprintf("product:%s", productID))
}

// AuctionCache is the auction detail view with its bid history.
type AuctionCache struct {
	Auction models.Auction `json:"auction"`
	Bids    []models.Bid   `json:"bids"`
}

func (r *RedisRepository) CacheAuction(ctx context.Context, view *AuctionCache) error {
	key := fmt.Sprintf("auction:%s", view.Auction.ID)
	return r.SetJSON(ctx, key, view, auctionCacheTTL)
}

func (r *RedisRepository) GetAuctionCache(ctx context.Context, auctionID string) (*AuctionCache, error) {
	key := fmt.Sprintf("auction:%s", auctionID)
	var view AuctionCache
	if err := r.GetJSON(ctx, key, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *RedisRepository) InvalidateAuction(ctx context.Context, auctionID string) error {
	return r.Del(ctx, fmt.Sprintf("auction:%s", auctionID))
}
