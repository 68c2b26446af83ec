package models

import (
	"time"
)

const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

func ValidReviewStatus(s string) bool {
	switch s {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected:
		return true
	}
	return false
}

type Review struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ProductID string    `gorm:"type:varchar(36);not null;index" json:"product_id"`
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	UserName  string    `gorm:"type:varchar(100)" json:"user_name"`
	Rating    int       `gorm:"not null" json:"rating"`
	Title     string    `gorm:"type:varchar(200)" json:"title"`
	Comment   string    `gorm:"type:text" json:"comment"`
	Helpful   int       `gorm:"not null;default:0" json:"helpful"`
	Status    string    `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}
