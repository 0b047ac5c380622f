package models

import (
	"time"
)

// Customer is identified by phone. Resolution is get-or-create: the unique
// index on phone is the guarantee that concurrent first sightings of the
// same number end up with a single row.
type Customer struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Phone     string    `json:"phone" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CrmID     string    `json:"crm_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Payments []Payment `json:"payments,omitempty" gorm:"foreignKey:CustomerID"`
}
