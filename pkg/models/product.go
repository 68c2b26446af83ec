package models

import (
	"time"
)

type Product struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string    `gorm:"type:varchar(200);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Price       float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Image       string    `gorm:"type:varchar(500)" json:"image"`
	Category    string    `gorm:"type:varchar(50);index" json:"category"`
	Rating      float64   `gorm:"type:decimal(3,1);default:0" json:"rating"`
	Stock       int       `gorm:"not null;default:0" json:"stock"`
	Disabled    bool      `gorm:"default:false;index" json:"disabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
