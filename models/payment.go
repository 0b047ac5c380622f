package models

import (
	"time"
)

// Payment status constants
const (
	PaymentStatusPending             = "pending"
	PaymentStatusApproved            = "approved"
	PaymentStatusRejected            = "rejected"
	PaymentStatusWaitingStoreConfirm = "waiting_store_confirm"
	PaymentStatusConfirmed           = "confirmed"
	PaymentStatusFailed              = "failed"
)

// Payment is the durable record of one saga run. It is created in pending
// state before the provider call; only Status, IsConfirmed and CallbackData
// change afterwards. Rows are never deleted.
type Payment struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	ExternalID   *string    `json:"external_id" gorm:"uniqueIndex"`
	StoreOrderID string     `json:"store_order_id" gorm:"index;not null"`
	CustomerID   uint       `json:"customer_id" gorm:"not null"`
	Customer     Customer   `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	TotalSum     float64    `json:"total_sum" gorm:"not null"`
	Status       string     `json:"status" gorm:"default:'pending'"`
	IsConfirmed  bool       `json:"is_confirmed" gorm:"default:false"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	InvoiceData  string     `json:"-"` // JSON snapshot of the original request
	CallbackData string     `json:"-"` // JSON of the last provider callback
	CrmDealID    string     `json:"crm_deal_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Items []PaymentItem `json:"items,omitempty" gorm:"foreignKey:PaymentID"`
}

// PaymentItem snapshots one priced line of a Payment. Immutable after
// creation; corrections happen by creating a new Payment.
type PaymentItem struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	PaymentID  uint      `json:"payment_id" gorm:"index;not null"`
	ProductID  uint      `json:"product_id" gorm:"not null"`
	Product    Product   `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	CustomerID uint      `json:"customer_id" gorm:"index;not null"`
	Quantity   int       `json:"quantity" gorm:"not null"`
	UnitPrice  float64   `json:"unit_price" gorm:"not null"`
	TotalPrice float64   `json:"total_price" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
