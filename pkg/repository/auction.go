package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/example/bidshop/pkg/errs"
	"github.com/example/bidshop/pkg/models"
)

type AuctionRepository interface {
	Insert(ctx context.Context, auction *models.Auction) error
	GetByID(ctx context.Context, id string) (*models.Auction, error)
	// List returns auctions newest-first, optionally filtered by status.
	List(ctx context.Context, status string) ([]models.Auction, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.Auction, error)
	// ListByBidder returns every auction the user has placed at least one
	// bid on, regardless of auction status.
	ListByBidder(ctx context.Context, bidderID string) ([]models.Auction, error)
	// ListExpired returns active auctions whose deadline has passed.
	ListExpired(ctx context.Context, now time.Time) ([]models.Auction, error)
	Update(ctx context.Context, auction *models.Auction) error
	InsertBid(ctx context.Context, bid *models.Bid) error
	// ListBids returns an auction's bids, highest amount first.
	ListBids(ctx context.Context, auctionID string) ([]models.Bid, error)
	// TopBid returns the highest bid, or nil when the auction has none.
	TopBid(ctx context.Context, auctionID string) (*models.Bid, error)
}

type auctionRepository struct {
	db *gorm.DB
}

func NewAuctionRepository(db *gorm.DB) AuctionRepository {
	return &auctionRepository{db: db}
}

func (r *auctionRepository) Insert(ctx context.Context, auction *models.Auction) error {
	if err := conn(ctx, r.db).Create(auction).Error; err != nil {
		return errs.Internal(err, "failed to insert auction")
	}
	return nil
}

func (r *auctionRepository) GetByID(ctx context.Context, id string) (*models.Auction, error) {
	var auction models.Auction
	if err := conn(ctx, r.db).Where("id = ?", id).First(&auction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("auction %s not found", id)
		}
		return nil, errs.Internal(err, "failed to get auction")
	}
	return &auction, nil
}

func (r *auctionRepository) List(ctx context.Context, status string) ([]models.Auction, error) {
	query := conn(ctx, r.db).Model(&models.Auction{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var auctions []models.Auction
	if err := query.Order("created_at DESC").Find(&auctions).Error; err != nil {
		return nil, errs.Internal(err, "failed to list auctions")
	}
	return auctions, nil
}

func (r *auctionRepository) ListBySeller(ctx context.Context, sellerID string) ([]models.Auction, error) {
	var auctions []models.Auction
	if err := conn(ctx, r.db).Where("seller_id = ?", sellerID).
		Order("created_at DESC").Find(&auctions).Error; err != nil {
		return nil, errs.Internal(err, "failed to list auctions")
	}
	return auctions, nil
}

func (r *auctionRepository) ListByBidder(ctx context.Context, bidderID string) ([]models.Auction, error) {
	var auctions []models.Auction
	err := conn(ctx, r.db).
		Where("id IN (?)", conn(ctx, r.db).Model(&models.Bid{}).
			Select("DISTINCT auction_id").Where("bidder_id = ?", bidderID)).
		Order("created_at DESC").Find(&auctions).Error
	if err != nil {
		return nil, errs.Internal(err, "failed to list auctions by bidder")
	}
	return auctions, nil
}

func (r *auctionRepository) ListExpired(ctx context.Context, now time.Time) ([]models.Auction, error) {
	var auctions []models.Auction
	err := conn(ctx, r.db).
		Where("status = ? AND ends_at <= ?", models.AuctionStatusActive, now).
		Find(&auctions).Error
	if err != nil {
		return nil, errs.Internal(err, "failed to list expired auctions")
	}
	return auctions, nil
}

func (r *auctionRepository) Update(ctx context.Context, auction *models.Auction) error {
	res := conn(ctx, r.db).Model(&models.Auction{}).Where("id = ?", auction.ID).
		Select("current_price", "bid_count", "status", "winner_id", "winner_name").
		Updates(auction)
	if res.Error != nil {
		return errs.Internal(res.Error, "failed to update auction")
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("auction %s not found", auction.ID)
	}
	return nil
}

func (r *auctionRepository) InsertBid(ctx context.Context, bid *models.Bid) error {
	if err := conn(ctx, r.db).Create(bid).Error; err != nil {
		return errs.Internal(err, "failed to insert bid")
	}
	return nil
}

func (r *auctionRepository) ListBids(ctx context.Context, auctionID string) ([]models.Bid, error) {
	var bids []models.Bid
	if err := conn(ctx, r.db).Where("auction_id = ?", auctionID).
		Order("amount DESC").Find(&bids).Error; err != nil {
		return nil, errs.Internal(err, "failed to list bids")
	}
	return bids, nil
}

func (r *auctionRepository) TopBid(ctx context.Context, auctionID string) (*models.Bid, error) {
	var bid models.Bid
	err := conn(ctx, r.db).Where("auction_id = ?", auctionID).
		Order("amount DESC").First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Internal(err, "failed to get top bid")
	}
	return &bid, nil
}
