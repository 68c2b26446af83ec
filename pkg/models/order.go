package models

import (
	"time"
)

// Order statuses. pending -> processing -> shipped -> delivered is the
// forward path; cancelled is reachable from any non-terminal status.
// delivered and cancelled are terminal.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

var orderStatusRank = map[string]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

// ValidOrderStatus reports whether s is one of the five known statuses.
func ValidOrderStatus(s string) bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := orderStatusRank[s]
	return ok
}

// CanTransitionOrder reports whether an order may move from one status to
// the next: strictly forward along the fulfilment path, or to cancelled
// from any non-terminal status.
func CanTransitionOrder(from, to string) bool {
	if from == OrderStatusDelivered || from == OrderStatusCancelled {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	fromRank, ok := orderStatusRank[from]
	if !ok {
		return false
	}
	toRank, ok := orderStatusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

type Order struct {
	ID              string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Number          string      `gorm:"type:varchar(20);uniqueIndex;not null" json:"number"`
	UserID          string      `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Status          string      `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Subtotal        float64     `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Tax             float64     `gorm:"type:decimal(10,2);not null" json:"tax"`
	Fees            float64     `gorm:"type:decimal(10,2);not null" json:"fees"`
	Total           float64     `gorm:"type:decimal(10,2);not null" json:"total"`
	ShippingAddress string      `gorm:"type:text;not null" json:"shipping_address"`
	Items           []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt       time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a purchase-time snapshot: PriceAtPurchase never tracks later
// catalog changes. The Product* fields are joined in for display and are
// not stored.
type OrderItem struct {
	ID              string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID         string  `gorm:"type:varchar(36);not null;index" json:"order_id"`
	ProductID       string  `gorm:"type:varchar(36);not null" json:"product_id"`
	Quantity        int     `gorm:"not null" json:"quantity"`
	PriceAtPurchase float64 `gorm:"type:decimal(10,2);not null" json:"price_at_purchase"`

	ProductName     string `gorm:"-" json:"product_name,omitempty"`
	ProductImage    string `gorm:"-" json:"product_image,omitempty"`
	ProductCategory string `gorm:"-" json:"product_category,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Counter backs the sequential part of human-readable order numbers.
type Counter struct {
	Name  string `gorm:"primaryKey;type:varchar(30)"`
	Value int64  `gorm:"not null;default:0"`
}

func (Counter) TableName() string {
	return "counters"
}
