package models

import (
	"time"
)

// Product represents a sellable catalog item. Prices used in payment
// calculations are always read from this table, never from the client.
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	SKU         string    `json:"sku" gorm:"uniqueIndex;not null"`
	Price       float64   `json:"price" gorm:"not null"`
	Description string    `json:"description"`
	Photo       string    `json:"photo"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
