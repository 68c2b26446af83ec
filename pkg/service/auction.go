package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/bidshop/pkg/actors"
	"github.com/example/bidshop/pkg/config"
	"github.com/example/bidshop/pkg/errs"
	"github.com/example/bidshop/pkg/models"
	"github.com/example/bidshop/pkg/repository"
)

type AuctionInput struct {
	Title         string
	Description   string
	Image         string
	Category      string
	StartingPrice float64
	DurationHours int
}

// AuctionDetail is an auction with its full bid history, highest first.
type AuctionDetail struct {
	Auction models.Auction `json:"auction"`
	Bids    []models.Bid   `json:"bids"`
}

type AuctionService interface {
	Create(ctx context.Context, caller Caller, input AuctionInput) (*models.Auction, error)
	Get(ctx context.Context, id string) (*AuctionDetail, error)
	PlaceBid(ctx context.Context, caller Caller, auctionID string, amount float64) (*models.Bid, error)
	Cancel(ctx context.Context, caller Caller, auctionID string) (*models.Auction, error)
	ListActive(ctx context.Context) ([]models.Auction, error)
	ListAll(ctx context.Context) ([]models.Auction, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.Auction, error)
	ListByBidder(ctx context.Context, bidderID string) ([]models.Auction, error)
}

type auctionService struct {
	auctions repository.AuctionRepository
	tx       repository.TxRunner
	cache    *repository.RedisRepository
	bus      *actors.Bus
	cfg      config.AuctionConfig
	locks    *keyedMutex
	logger   *zap.Logger
}

func NewAuctionService(
	auctions repository.AuctionRepository,
	tx repository.TxRunner,
	cache *repository.RedisRepository,
	bus *actors.Bus,
	cfg config.AuctionConfig,
	logger *zap.Logger,
) AuctionService {
	return &auctionService{
		auctions: auctions,
		tx:       tx,
		cache:    cache,
		bus:      bus,
		cfg:      cfg,
		locks:    newKeyedMutex(),
		logger:   logger,
	}
}

func (s *auctionService) Create(ctx context.Context, caller Caller, input AuctionInput) (*models.Auction, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, errs.Validation("auction title is required")
	}
	if input.StartingPrice <= 0 {
		return nil, errs.Validation("starting price must be positive")
	}
	duration := input.DurationHours
	if duration <= 0 {
		duration = s.cfg.DefaultDurationHours
	}
	if duration > s.cfg.MaxDurationHours {
		return nil, errs.Validation("auction duration cannot exceed %d hours", s.cfg.MaxDurationHours)
	}

	now := time.Now()
	auction := &models.Auction{
		ID:            newID(),
		SellerID:      caller.ID,
		SellerName:    caller.Name,
		Title:         input.Title,
		Description:   input.Description,
		Image:         input.Image,
		Category:      input.Category,
		StartingPrice: round2(input.StartingPrice),
		CurrentPrice:  round2(input.StartingPrice),
		BidCount:      0,
		Status:        models.AuctionStatusActive,
		EndsAt:        now.Add(time.Duration(duration) * time.Hour),
	}
	if err := s.auctions.Insert(ctx, auction); err != nil {
		return nil, err
	}

	s.logger.Info("Auction created",
		zap.String("auction_id", auction.ID),
		zap.String("seller_id", caller.ID),
		zap.Float64("starting_price", auction.StartingPrice),
		zap.Time("ends_at", auction.EndsAt))

	return auction, nil
}

func (s *auctionService) Get(ctx context.Context, id string) (*AuctionDetail, error) {
	if err := s.sweepExpired(ctx); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if view, err := s.cache.GetAuctionCache(ctx, id); err == nil {
			return &AuctionDetail{Auction: view.Auction, Bids: view.Bids}, nil
		}
	}

	auction, err := s.auctions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	bids, err := s.auctions.ListBids(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheAuction(ctx, &repository.AuctionCache{Auction: *auction, Bids: bids}); err != nil {
			s.logger.Warn("Failed to cache auction", zap.String("auction_id", id), zap.Error(err))
		}
	}
	return &AuctionDetail{Auction: *auction, Bids: bids}, nil
}

func (s *auctionService) PlaceBid(ctx context.Context, caller Caller, auctionID string, amount float64) (*models.Bid, error) {
	if err := s.sweepExpired(ctx); err != nil {
		return nil, err
	}

	// The accept/reject decision and the price update form one critical
	// section: two concurrent bids cannot both read the pre-bid price.
	mu := s.locks.get(auctionID)
	mu.Lock()
	defer mu.Unlock()

	auction, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction.Status != models.AuctionStatusActive || !auction.EndsAt.After(time.Now()) {
		return nil, errs.Conflict("auction %s is no longer accepting bids", auctionID)
	}
	if auction.SellerID == caller.ID {
		return nil, errs.Forbidden("sellers cannot bid on their own auction")
	}
	amount = round2(amount)
	if amount < round2(auction.CurrentPrice+s.cfg.MinIncrement) {
		return nil, errs.Validation("bid must be at least %.2f", auction.CurrentPrice+s.cfg.MinIncrement)
	}

	prevTop, err := s.auctions.TopBid(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	bid := &models.Bid{
		ID:         newID(),
		AuctionID:  auctionID,
		BidderID:   caller.ID,
		BidderName: caller.Name,
		Amount:     amount,
	}
	auction.CurrentPrice = amount
	auction.BidCount++

	err = s.tx.Transact(ctx, func(ctx context.Context) error {
		if err := s.auctions.InsertBid(ctx, bid); err != nil {
			return err
		}
		return s.auctions.Update(ctx, auction)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, auctionID)

	s.logger.Info("Bid placed",
		zap.String("auction_id", auctionID),
		zap.String("bidder_id", caller.ID),
		zap.Float64("amount", amount))

	event := &actors.BidPlaced{
		AuctionID: auctionID,
		BidID:     bid.ID,
		BidderID:  caller.ID,
		Amount:    amount,
		Title:     auction.Title,
	}
	if prevTop != nil {
		event.PrevBidderID = prevTop.BidderID
	}
	s.bus.Publish(event)

	return bid, nil
}

func (s *auctionService) Cancel(ctx context.Context, caller Caller, auctionID string) (*models.Auction, error) {
	if err := s.sweepExpired(ctx); err != nil {
		return nil, err
	}

	mu := s.locks.get(auctionID)
	mu.Lock()
	defer mu.Unlock()

	auction, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction.SellerID != caller.ID {
		return nil, errs.Forbidden("only the seller may cancel an auction")
	}
	if auction.Status != models.AuctionStatusActive {
		return nil, errs.Conflict("auction %s is already %s", auctionID, auction.Status)
	}

	auction.Status = models.AuctionStatusCancelled
	if err := s.auctions.Update(ctx, auction); err != nil {
		return nil, err
	}

	s.invalidate(ctx, auctionID)

	s.logger.Info("Auction cancelled",
		zap.String("auction_id", auctionID),
		zap.String("seller_id", caller.ID))

	s.bus.Publish(&actors.AuctionClosed{
		AuctionID:  auctionID,
		SellerID:   auction.SellerID,
		Status:     models.AuctionStatusCancelled,
		FinalPrice: auction.CurrentPrice,
		Title:      auction.Title,
	})

	return auction, nil
}

func (s *auctionService) ListActive(ctx context.Context) ([]models.Auction, error) {
	if err := s.sweepExpired(ctx); err != nil {
		return nil, err
	}
	return s.auctions.List(ctx, models.AuctionStatusActive)
}

func (s *auctionService) ListAll(ctx context.Context) ([]models.Auction, error) {
	if err := s.sweepExpired(ctx); err != nil {
		return nil, err
	}
	return s.auctions.List(ctx, "")
}

func (s *auctionService) ListBySeller(ctx context.Context, sellerID string) ([]models.Auction, error) {
	if err := s.sweepExpired(ctx); err != nil {
		return nil, err
	}
	return s.auctions.ListBySeller(ctx, sellerID)
}

func (s *auctionService) ListByBidder(ctx context.Context, bidderID string) ([]models.Auction, error) {
	if err := s.sweepExpired(ctx); err != nil {
		return nil, err
	}
	return s.auctions.ListByBidder(ctx, bidderID)
}

// sweepExpired closes every active auction whose deadline has passed. It
// runs at the top of each operation, so there is no background timer and a
// read after the deadline always sees the terminal status.
func (s *auctionService) sweepExpired(ctx context.Context) error {
	expired, err := s.auctions.ListExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	for i := range expired {
		if err := s.closeExpired(ctx, expired[i].ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *auctionService) closeExpired(ctx context.Context, auctionID string) error {
	mu := s.locks.get(auctionID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock: a concurrent sweep may already have closed it.
	auction, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return err
	}
	if auction.Status != models.AuctionStatusActive || auction.EndsAt.After(time.Now()) {
		return nil
	}

	top, err := s.auctions.TopBid(ctx, auctionID)
	if err != nil {
		return err
	}
	if top != nil {
		auction.Status = models.AuctionStatusSold
		auction.WinnerID = top.BidderID
		auction.WinnerName = top.BidderName
	} else {
		auction.Status = models.AuctionStatusEnded
	}

	if err := s.auctions.Update(ctx, auction); err != nil {
		return err
	}

	s.invalidate(ctx, auctionID)

	s.logger.Info("Auction closed",
		zap.String("auction_id", auctionID),
		zap.String("status", auction.Status),
		zap.String("winner_id", auction.WinnerID))

	s.bus.Publish(&actors.AuctionClosed{
		AuctionID:  auctionID,
		SellerID:   auction.SellerID,
		Status:     auction.Status,
		WinnerID:   auction.WinnerID,
		WinnerName: auction.WinnerName,
		FinalPrice: auction.CurrentPrice,
		Title:      auction.Title,
	})
	return nil
}

func (s *auctionService) invalidate(ctx context.Context, auctionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAuction(ctx, auctionID); err != nil {
		s.logger.Warn("Failed to invalidate auction cache",
			zap.String("auction_id", auctionID), zap.Error(err))
	}
}
