package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/smartkasa/kasapay/models"
	"github.com/smartkasa/kasapay/utils"
	"gorm.io/gorm"
)

// ProductItemRequest is one cart line as sent by the client: a product
// reference and a quantity, never a price.
type ProductItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// CalculatedItem is one priced line of a calculation
type CalculatedItem struct {
	ProductID  uint    `json:"product_id"`
	Name       string  `json:"name"`
	SKU        string  `json:"sku"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// Calculation is the result of pricing a cart against the catalog
type Calculation struct {
	TotalSum     float64          `json:"total_sum"`
	Items        []CalculatedItem `json:"items"`
	CalculatedAt time.Time        `json:"calculated_at"`
}

// PricingService resolves authoritative unit prices from the product catalog
// and computes line totals. Read-only, safe to call concurrently.
type PricingService struct {
	db *gorm.DB
}

// NewPricingService creates a PricingService
func NewPricingService(db *gorm.DB) *PricingService {
	return &PricingService{db: db}
}

// Calculate prices the given cart. The whole calculation fails atomically:
// any unknown or inactive product, or non-positive quantity, yields an error
// and no partial totals.
func (s *PricingService) Calculate(items []ProductItemRequest) (*Calculation, error) {
	if len(items) == 0 {
		return nil, utils.ValidationErr("products list cannot be empty", nil)
	}

	calculated := make([]CalculatedItem, 0, len(items))
	var totalSum float64

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, utils.ValidationErr(
				fmt.Sprintf("quantity for product %d must be positive", item.ProductID), nil)
		}

		var product models.Product
		if err := s.db.First(&product, item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, utils.NotFoundErr(
					fmt.Sprintf("product %d not found", item.ProductID), nil)
			}
			return nil, utils.InternalErr("failed to load product", err)
		}
		if !product.IsActive {
			return nil, utils.ValidationErr(
				fmt.Sprintf("product %d (%s) is inactive", product.ID, product.SKU), nil)
		}

		totalPrice := product.Price * float64(item.Quantity)
		totalSum += totalPrice

		calculated = append(calculated, CalculatedItem{
			ProductID:  product.ID,
			Name:       product.Name,
			SKU:        product.SKU,
			Quantity:   item.Quantity,
			UnitPrice:  product.Price,
			TotalPrice: totalPrice,
		})
	}

	utils.LogInfo("Payment calculated: %.2f for %d products", totalSum, len(items))
	return &Calculation{
		TotalSum:     totalSum,
		Items:        calculated,
		CalculatedAt: time.Now().UTC(),
	}, nil
}
