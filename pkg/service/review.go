package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/bidshop/pkg/actors"
	"github.com/example/bidshop/pkg/config"
	"github.com/example/bidshop/pkg/errs"
	"github.com/example/bidshop/pkg/models"
	"github.com/example/bidshop/pkg/repository"
)

type ReviewService interface {
	Submit(ctx context.Context, caller Caller, productID string, rating int, title, comment string) (*models.Review, error)
	ListApproved(ctx context.Context, productID string) ([]models.Review, error)
	ListAll(ctx context.Context, productID string) ([]models.Review, error)
	ListPending(ctx context.Context) ([]models.Review, error)
	SetStatus(ctx context.Context, caller Caller, reviewID, status string) (*models.Review, error)
	MarkHelpful(ctx context.Context, reviewID string) error
	// AverageRating is the 1-decimal mean over approved reviews, 0 when
	// there are none.
	AverageRating(ctx context.Context, productID string) (float64, error)
	HasReviewed(ctx context.Context, productID, userID string) (bool, error)
}

type reviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	cache    *repository.RedisRepository
	bus      *actors.Bus
	cfg      config.ReviewConfig
	logger   *zap.Logger
}

func NewReviewService(
	reviews repository.ReviewRepository,
	products repository.ProductRepository,
	cache *repository.RedisRepository,
	bus *actors.Bus,
	cfg config.ReviewConfig,
	logger *zap.Logger,
) ReviewService {
	return &reviewService{
		reviews:  reviews,
		products: products,
		cache:    cache,
		bus:      bus,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *reviewService) Submit(ctx context.Context, caller Caller, productID string, rating int, title, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errs.Validation("rating must be between 1 and 5")
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	status := models.ReviewStatusPending
	if s.cfg.AutoApprove {
		status = models.ReviewStatusApproved
	}

	review := &models.Review{
		ID:        newID(),
		ProductID: productID,
		UserID:    caller.ID,
		UserName:  caller.Name,
		Rating:    rating,
		Title:     title,
		Comment:   comment,
		Status:    status,
	}
	if err := s.reviews.Insert(ctx, review); err != nil {
		return nil, err
	}

	if status == models.ReviewStatusApproved {
		if err := s.refreshRating(ctx, productID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Review submitted",
		zap.String("review_id", review.ID),
		zap.String("product_id", productID),
		zap.Int("rating", rating),
		zap.String("status", status))

	return review, nil
}

func (s *reviewService) ListApproved(ctx context.Context, productID string) ([]models.Review, error) {
	return s.reviews.ListByProduct(ctx, productID, models.ReviewStatusApproved)
}

func (s *reviewService) ListAll(ctx context.Context, productID string) ([]models.Review, error) {
	return s.reviews.ListByProduct(ctx, productID, "")
}

func (s *reviewService) ListPending(ctx context.Context) ([]models.Review, error) {
	return s.reviews.ListPending(ctx)
}

func (s *reviewService) SetStatus(ctx context.Context, caller Caller, reviewID, status string) (*models.Review, error) {
	if !models.ValidReviewStatus(status) {
		return nil, errs.Validation("unknown review status %q", status)
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := s.reviews.UpdateStatus(ctx, reviewID, status); err != nil {
		return nil, err
	}
	review.Status = status

	// Approval changes feed straight into the product's displayed rating.
	if err := s.refreshRating(ctx, review.ProductID); err != nil {
		return nil, err
	}

	s.bus.Publish(&actors.ReviewModerated{
		ReviewID:  reviewID,
		ProductID: review.ProductID,
		Status:    status,
		ActorID:   caller.ID,
	})

	return review, nil
}

func (s *reviewService) MarkHelpful(ctx context.Context, reviewID string) error {
	return s.reviews.IncrementHelpful(ctx, reviewID)
}

func (s *reviewService) AverageRating(ctx context.Context, productID string) (float64, error) {
	avg, count, err := s.reviews.Aggregate(ctx, productID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	return round1(avg), nil
}

func (s *reviewService) HasReviewed(ctx context.Context, productID, userID string) (bool, error) {
	return s.reviews.Exists(ctx, productID, userID)
}

func (s *reviewService) refreshRating(ctx context.Context, productID string) error {
	rating, err := s.AverageRating(ctx, productID)
	if err != nil {
		return err
	}
	if err := s.products.SetRating(ctx, productID, rating); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
			s.logger.Warn("Failed to invalidate product cache",
				zap.String("product_id", productID), zap.Error(err))
		}
	}
	return nil
}
