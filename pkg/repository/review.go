package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/example/bidshop/pkg/errs"
	"github.com/example/bidshop/pkg/models"
)

type ReviewRepository interface {
	Insert(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id string) (*models.Review, error)
	// ListByProduct returns a product's reviews newest-first, optionally
	// filtered by status.
	ListByProduct(ctx context.Context, productID, status string) ([]models.Review, error)
	ListPending(ctx context.Context) ([]models.Review, error)
	UpdateStatus(ctx context.Context, id, status string) error
	IncrementHelpful(ctx context.Context, id string) error
	// Exists reports whether the user has a review for the product in any
	// status.
	Exists(ctx context.Context, productID, userID string) (bool, error)
	// Aggregate returns the mean rating and count over approved reviews.
	// The mean is 0 when no approved reviews exist.
	Aggregate(ctx context.Context, productID string) (float64, int64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Insert(ctx context.Context, review *models.Review) error {
	if err := conn(ctx, r.db).Create(review).Error; err != nil {
		return errs.Internal(err, "failed to insert review")
	}
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	if err := conn(ctx, r.db).Where("id = ?", id).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("review %s not found", id)
		}
		return nil, errs.Internal(err, "failed to get review")
	}
	return &review, nil
}

func (r *reviewRepository) ListByProduct(ctx context.Context, productID, status string) ([]models.Review, error) {
	query := conn(ctx, r.db).Where("product_id = ?", productID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var reviews []models.Review
	if err := query.Order("created_at DESC").Find(&reviews).Error; err != nil {
		return nil, errs.Internal(err, "failed to list reviews")
	}
	return reviews, nil
}

func (r *reviewRepository) ListPending(ctx context.Context) ([]models.Review, error) {
	var reviews []models.Review
	if err := conn(ctx, r.db).Where("status = ?", models.ReviewStatusPending).
		Order("created_at ASC").Find(&reviews).Error; err != nil {
		return nil, errs.Internal(err, "failed to list pending reviews")
	}
	return reviews, nil
}

func (r *reviewRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res := conn(ctx, r.db).Model(&models.Review{}).Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return errs.Internal(res.Error, "failed to update review status")
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("review %s not found", id)
	}
	return nil
}

func (r *reviewRepository) IncrementHelpful(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Model(&models.Review{}).Where("id = ?", id).
		Update("helpful", gorm.Expr("helpful + 1"))
	if res.Error != nil {
		return errs.Internal(res.Error, "failed to increment helpful counter")
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("review %s not found", id)
	}
	return nil
}

func (r *reviewRepository) Exists(ctx context.Context, productID, userID string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Review{}).
		Where("product_id = ? AND user_id = ?", productID, userID).
		Count(&count).Error
	if err != nil {
		return false, errs.Internal(err, "failed to check review existence")
	}
	return count > 0, nil
}

func (r *reviewRepository) Aggregate(ctx context.Context, productID string) (float64, int64, error) {
	var agg struct {
		Avg   float64
		Count int64
	}
	err := conn(ctx, r.db).Model(&models.Review{}).
		Where("product_id = ? AND status = ?", productID, models.ReviewStatusApproved).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Scan(&agg).Error
	if err != nil {
		return 0, 0, errs.Internal(err, "failed to aggregate ratings")
	}
	return agg.Avg, agg.Count, nil
}
