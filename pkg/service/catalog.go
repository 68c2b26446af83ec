package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/example/bidshop/pkg/actors"
	"github.com/example/bidshop/pkg/errs"
	"github.com/example/bidshop/pkg/models"
	"github.com/example/bidshop/pkg/repository"
)

type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Image       string
	Category    string
	Stock       int
}

// ProductDetail is the storefront product view: the catalog row plus its
// derived review aggregate.
type ProductDetail struct {
	Product     models.Product `json:"product"`
	Rating      float64        `json:"rating"`
	ReviewCount int64          `json:"review_count"`
}

type CatalogService interface {
	CreateProduct(ctx context.Context, caller Caller, input ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, caller Caller, id string, input ProductInput) (*models.Product, error)
	// DisableProduct hides a product from the storefront without deleting
	// it: order items keep pointing at it.
	DisableProduct(ctx context.Context, caller Caller, id string) error
	GetProduct(ctx context.Context, id string) (*ProductDetail, error)
	ListProducts(ctx context.Context, category string, includeDisabled bool) ([]models.Product, error)
}

type catalogService struct {
	products repository.ProductRepository
	reviews  repository.ReviewRepository
	cache    *repository.RedisRepository
	bus      *actors.Bus
	logger   *zap.Logger
}

func NewCatalogService(
	products repository.ProductRepository,
	reviews repository.ReviewRepository,
	cache *repository.RedisRepository,
	bus *actors.Bus,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		products: products,
		reviews:  reviews,
		cache:    cache,
		bus:      bus,
		logger:   logger,
	}
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return errs.Validation("product name is required")
	}
	if input.Price <= 0 {
		return errs.Validation("product price must be positive")
	}
	if input.Stock < 0 {
		return errs.Validation("product stock cannot be negative")
	}
	return nil
}

func (s *catalogService) CreateProduct(ctx context.Context, caller Caller, input ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          newID(),
		Name:        input.Name,
		Description: input.Description,
		Price:       round2(input.Price),
		Image:       input.Image,
		Category:    input.Category,
		Stock:       input.Stock,
	}
	if err := s.products.Insert(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name))

	s.bus.Publish(&actors.ProductChanged{
		ProductID: product.ID,
		Action:    "created",
		ActorID:   caller.ID,
	})

	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, caller Caller, id string, input ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Name = input.Name
	product.Description = input.Description
	product.Price = round2(input.Price)
	product.Image = input.Image
	product.Category = input.Category
	product.Stock = input.Stock

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	s.bus.Publish(&actors.ProductChanged{
		ProductID: id,
		Action:    "updated",
		ActorID:   caller.ID,
	})

	return product, nil
}

func (s *catalogService) DisableProduct(ctx context.Context, caller Caller, id string) error {
	if err := s.products.SetDisabled(ctx, id, true); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	s.bus.Publish(&actors.ProductChanged{
		ProductID: id,
		Action:    "disabled",
		ActorID:   caller.ID,
	})
	return nil
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*ProductDetail, error) {
	if s.cache != nil {
		if view, err := s.cache.GetProductCache(ctx, id); err == nil {
			return &ProductDetail{
				Product:     view.Product,
				Rating:      view.Rating,
				ReviewCount: view.ReviewCount,
			}, nil
		}
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	avg, count, err := s.reviews.Aggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	rating := 0.0
	if count > 0 {
		rating = round1(avg)
	}

	if s.cache != nil {
		err := s.cache.CacheProduct(ctx, &repository.ProductCache{
			Product:     *product,
			Rating:      rating,
			ReviewCount: count,
		})
		if err != nil {
			s.logger.Warn("Failed to cache product", zap.String("product_id", id), zap.Error(err))
		}
	}

	return &ProductDetail{Product: *product, Rating: rating, ReviewCount: count}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, category string, includeDisabled bool) ([]models.Product, error) {
	return s.products.List(ctx, category, includeDisabled)
}

func (s *catalogService) invalidate(ctx context.Context, productID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
		s.logger.Warn("Failed to invalidate product cache",
			zap.String("product_id", productID), zap.Error(err))
	}
}
