package model

import "time"

type Product struct {
	Name     string `gorm:"primaryKey;size:128;not null"`
	Link     string `gorm:"not null"`
	Stock    int    `gorm:"not null"`
	Position int    `gorm:"index;not null"` // catalog order, for stable listings
}

type Order struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        int64  `gorm:"index;not null"`
	ProductName   string `gorm:"size:128;index;not null"`
	ProductLink   string
	Quantity      int `gorm:"not null"`
	CustomerName  string
	OrderRef      string
	PaymentMethod *string `gorm:"size:32"`
	PaymentInfo   *string
	ReviewSent    bool `gorm:"index;not null;default:false"`
	CreatedAt     time.Time
}
