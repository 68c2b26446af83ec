package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/example/bidshop/pkg/errs"
	"github.com/example/bidshop/pkg/models"
)

type ProductRepository interface {
	Insert(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// List returns products newest-first. An empty category means all
	// categories; the storefront passes includeDisabled=false.
	List(ctx context.Context, category string, includeDisabled bool) ([]models.Product, error)
	SetDisabled(ctx context.Context, id string, disabled bool) error
	// DecrementStock atomically reduces stock, failing when fewer than qty
	// units remain.
	DecrementStock(ctx context.Context, id string, qty int) error
	SetRating(ctx context.Context, id string, rating float64) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Insert(ctx context.Context, product *models.Product) error {
	if err := conn(ctx, r.db).Create(product).Error; err != nil {
		return errs.Internal(err, "failed to insert product")
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	res := conn(ctx, r.db).Model(&models.Product{}).Where("id = ?", product.ID).
		Select("name", "description", "price", "image", "category", "stock", "disabled").
		Updates(product)
	if res.Error != nil {
		return errs.Internal(res.Error, "failed to update product")
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("product %s not found", product.ID)
	}
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := conn(ctx, r.db).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("product %s not found", id)
		}
		return nil, errs.Internal(err, "failed to get product")
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, category string, includeDisabled bool) ([]models.Product, error) {
	query := conn(ctx, r.db).Model(&models.Product{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if !includeDisabled {
		query = query.Where("disabled = ?", false)
	}

	var products []models.Product
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, errs.Internal(err, "failed to list products")
	}
	return products, nil
}

func (r *productRepository) SetDisabled(ctx context.Context, id string, disabled bool) error {
	res := conn(ctx, r.db).Model(&models.Product{}).Where("id = ?", id).
		Update("disabled", disabled)
	if res.Error != nil {
		return errs.Internal(res.Error, "failed to update product")
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("product %s not found", id)
	}
	return nil
}

func (r *productRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	// Guarded update: zero rows affected means the product is missing or
	// does not have qty units left. Disambiguate with a lookup.
	res := conn(ctx, r.db).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return errs.Internal(res.Error, "failed to decrement stock")
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return errs.Conflict("insufficient stock for product %s", id)
	}
	return nil
}

func (r *productRepository) SetRating(ctx context.Context, id string, rating float64) error {
	res := conn(ctx, r.db).Model(&models.Product{}).Where("id = ?", id).
		Update("rating", rating)
	if res.Error != nil {
		return errs.Internal(res.Error, "failed to update rating")
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("product %s not found", id)
	}
	return nil
}
