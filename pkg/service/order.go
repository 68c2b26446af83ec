package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/bidshop/pkg/actors"
	"github.com/example/bidshop/pkg/config"
	"github.com/example/bidshop/pkg/errs"
	"github.com/example/bidshop/pkg/models"
	"github.com/example/bidshop/pkg/repository"
)

// OrderItemInput is the caller-supplied purchase snapshot. The price is
// taken as given and never re-read from the catalog.
type OrderItemInput struct {
	ProductID       string
	Quantity        int
	PriceAtPurchase float64
}

type OrderStats struct {
	Revenue    float64 `json:"revenue"`
	OrderCount int64   `json:"order_count"`
}

type OrderService interface {
	Create(ctx context.Context, caller Caller, items []OrderItemInput, shippingAddress string) (*models.Order, error)
	List(ctx context.Context, caller Caller) ([]models.Order, error)
	Get(ctx context.Context, caller Caller, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, caller Caller, id, status string) (*models.Order, error)
	Stats(ctx context.Context) (*OrderStats, error)
}

type orderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	tx       repository.TxRunner
	bus      *actors.Bus
	pricing  config.PricingConfig
	logger   *zap.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	tx repository.TxRunner,
	bus *actors.Bus,
	pricing config.PricingConfig,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orders:   orders,
		products: products,
		tx:       tx,
		bus:      bus,
		pricing:  pricing,
		logger:   logger,
	}
}

func (s *orderService) Create(ctx context.Context, caller Caller, items []OrderItemInput, shippingAddress string) (*models.Order, error) {
	if len(items) == 0 {
		return nil, errs.Validation("order must contain at least one item")
	}
	if strings.TrimSpace(shippingAddress) == "" {
		return nil, errs.Validation("shipping address is required")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, errs.Validation("quantity for product %s must be positive", item.ProductID)
		}
		if item.PriceAtPurchase <= 0 {
			return nil, errs.Validation("price for product %s must be positive", item.ProductID)
		}
	}

	var subtotal float64
	for _, item := range items {
		subtotal += item.PriceAtPurchase * float64(item.Quantity)
	}
	subtotal = round2(subtotal)
	tax := round2(subtotal * s.pricing.TaxRate)
	fees := s.pricing.ProcessingFee
	total := round2(subtotal + tax + fees)

	order := &models.Order{
		ID:              newID(),
		UserID:          caller.ID,
		Status:          models.OrderStatusPending,
		Subtotal:        subtotal,
		Tax:             tax,
		Fees:            fees,
		Total:           total,
		ShippingAddress: shippingAddress,
	}
	for _, item := range items {
		order.Items = append(order.Items, models.OrderItem{
			ID:              newID(),
			OrderID:         order.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}

	// Order row, items and stock decrements commit or roll back together.
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		seq, err := s.orders.NextNumber(ctx)
		if err != nil {
			return err
		}
		order.Number = fmt.Sprintf("ORD-%d", seq)

		for _, item := range items {
			if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return s.orders.Insert(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("number", order.Number),
		zap.String("user_id", caller.ID),
		zap.Float64("total", order.Total))

	s.bus.Publish(&actors.OrderPlaced{
		OrderID: order.ID,
		Number:  order.Number,
		UserID:  caller.ID,
		Total:   order.Total,
	})

	return order, nil
}

func (s *orderService) List(ctx context.Context, caller Caller) ([]models.Order, error) {
	if caller.Admin {
		return s.orders.List(ctx)
	}
	return s.orders.ListByUser(ctx, caller.ID)
}

func (s *orderService) Get(ctx context.Context, caller Caller, id string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != caller.ID && !caller.Admin {
		return nil, errs.Forbidden("order %s belongs to another user", id)
	}

	// Join current catalog fields in for display. A product that has been
	// removed since purchase leaves the display fields empty; the snapshot
	// price is already on the item.
	for i := range order.Items {
		product, err := s.products.GetByID(ctx, order.Items[i].ProductID)
		if err != nil {
			if errs.IsKind(err, errs.KindNotFound) {
				continue
			}
			return nil, err
		}
		order.Items[i].ProductName = product.Name
		order.Items[i].ProductImage = product.Image
		order.Items[i].ProductCategory = product.Category
	}
	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, caller Caller, id, status string) (*models.Order, error) {
	if !caller.Admin {
		return nil, errs.Forbidden("only administrators may change order status")
	}
	if !models.ValidOrderStatus(status) {
		return nil, errs.Validation("unknown order status %q", status)
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionOrder(order.Status, status) {
		return nil, errs.Conflict("order %s cannot move from %s to %s", id, order.Status, status)
	}

	// The write re-checks the status it was read at, so two admins racing
	// the same order cannot both land their transition.
	if err := s.orders.UpdateStatus(ctx, id, order.Status, status); err != nil {
		return nil, err
	}
	order.Status = status

	s.logger.Info("Order status changed",
		zap.String("order_id", id),
		zap.String("status", status))

	s.bus.Publish(&actors.OrderStatusChanged{
		OrderID: id,
		Status:  status,
		ActorID: caller.ID,
	})

	return order, nil
}

func (s *orderService) Stats(ctx context.Context) (*OrderStats, error) {
	revenue, err := s.orders.Revenue(ctx)
	if err != nil {
		return nil, err
	}
	count, err := s.orders.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &OrderStats{Revenue: round2(revenue), OrderCount: count}, nil
}
