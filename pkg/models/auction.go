package models

import (
	"time"
)

// Auction statuses. active is the only non-terminal status: once an auction
// is sold, ended or cancelled it never changes again.
const (
	AuctionStatusActive    = "active"
	AuctionStatusSold      = "sold"      // deadline passed with at least one bid
	AuctionStatusEnded     = "ended"     // deadline passed without bids
	AuctionStatusCancelled = "cancelled" // withdrawn by the seller
)

type Auction struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SellerID      string    `gorm:"type:varchar(36);not null;index" json:"seller_id"`
	SellerName    string    `gorm:"type:varchar(100)" json:"seller_name"`
	Title         string    `gorm:"type:varchar(200);not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	Image         string    `gorm:"type:varchar(500)" json:"image"`
	Category      string    `gorm:"type:varchar(50);index" json:"category"`
	StartingPrice float64   `gorm:"type:decimal(10,2);not null" json:"starting_price"`
	CurrentPrice  float64   `gorm:"type:decimal(10,2);not null" json:"current_price"`
	BidCount      int       `gorm:"not null;default:0" json:"bid_count"`
	Status        string    `gorm:"type:varchar(20);default:'active';index:idx_auction_status_ends" json:"status"`
	WinnerID      string    `gorm:"type:varchar(36)" json:"winner_id,omitempty"`
	WinnerName    string    `gorm:"type:varchar(100)" json:"winner_name,omitempty"`
	EndsAt        time.Time `gorm:"not null;index:idx_auction_status_ends" json:"ends_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Auction) TableName() string {
	return "auctions"
}

// Bid is append-only: rows are never updated or deleted once written.
type Bid struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuctionID  string    `gorm:"type:varchar(36);not null;index" json:"auction_id"`
	BidderID   string    `gorm:"type:varchar(36);not null;index" json:"bidder_id"`
	BidderName string    `gorm:"type:varchar(100)" json:"bidder_name"`
	Amount     float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Bid) TableName() string {
	return "bids"
}
