package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/example/bidshop/pkg/errs"
	"github.com/example/bidshop/pkg/models"
)

const orderCounter = "order_number"

type OrderRepository interface {
	// Insert writes the order and its items. Callers wrap it in a
	// transaction together with the stock decrements.
	Insert(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	// UpdateStatus moves an order from one status to another. The write
	// only lands while the stored status still equals from, so a transition
	// that raced another one surfaces as a conflict instead of overwriting
	// it.
	UpdateStatus(ctx context.Context, id, from, to string) error
	// NextNumber bumps the order counter and returns the new value.
	NextNumber(ctx context.Context) (int64, error)
	// Revenue sums totals over non-cancelled orders.
	Revenue(ctx context.Context) (float64, error)
	// Count counts non-cancelled orders.
	Count(ctx context.Context) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Insert(ctx context.Context, order *models.Order) error {
	if err := conn(ctx, r.db).Create(order).Error; err != nil {
		return errs.Internal(err, "failed to insert order")
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := conn(ctx, r.db).Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("order %s not found", id)
		}
		return nil, errs.Internal(err, "failed to get order")
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := conn(ctx, r.db).Preload("Items").
		Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, errs.Internal(err, "failed to list orders")
	}
	return orders, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	if err := conn(ctx, r.db).Preload("Items").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, errs.Internal(err, "failed to list orders")
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	// Zero rows affected means the order is missing or its status moved
	// since the caller read it. Disambiguate with a lookup.
	res := conn(ctx, r.db).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return errs.Internal(res.Error, "failed to update order status")
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return errs.Conflict("order %s is no longer %s", id, from)
	}
	return nil
}

func (r *orderRepository) NextNumber(ctx context.Context) (int64, error) {
	db := conn(ctx, r.db)

	res := db.Model(&models.Counter{}).Where("name = ?", orderCounter).
		Update("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, errs.Internal(res.Error, "failed to bump order counter")
	}
	if res.RowsAffected == 0 {
		counter := models.Counter{Name: orderCounter, Value: 1}
		if err := db.Create(&counter).Error; err != nil {
			return 0, errs.Internal(err, "failed to seed order counter")
		}
		return counter.Value, nil
	}

	var counter models.Counter
	if err := db.Where("name = ?", orderCounter).First(&counter).Error; err != nil {
		return 0, errs.Internal(err, "failed to read order counter")
	}
	return counter.Value, nil
}

func (r *orderRepository) Revenue(ctx context.Context) (float64, error) {
	var revenue float64
	err := conn(ctx, r.db).Model(&models.Order{}).
		Where("status <> ?", models.OrderStatusCancelled).
		Select("COALESCE(SUM(total), 0)").Scan(&revenue).Error
	if err != nil {
		return 0, errs.Internal(err, "failed to compute revenue")
	}
	return revenue, nil
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Order{}).
		Where("status <> ?", models.OrderStatusCancelled).
		Count(&count).Error
	if err != nil {
		return 0, errs.Internal(err, "failed to count orders")
	}
	return count, nil
}
