package services

import (
	"testing"

	"github.com/smartkasa/kasapay/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingCalculate(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	pricing := NewPricingService(db)

	t.Run("totals come from the catalog", func(t *testing.T) {
		calc, err := pricing.Calculate([]ProductItemRequest{
			{ProductID: 1, Quantity: 1},
			{ProductID: 4, Quantity: 2},
		})
		require.NoError(t, err)

		assert.Equal(t, 42000.0, calc.TotalSum)
		require.Len(t, calc.Items, 2)

		assert.Equal(t, "TV", calc.Items[0].Name)
		assert.Equal(t, 25000.0, calc.Items[0].UnitPrice)
		assert.Equal(t, 25000.0, calc.Items[0].TotalPrice)

		assert.Equal(t, "Headphones", calc.Items[1].Name)
		assert.Equal(t, 2, calc.Items[1].Quantity)
		assert.Equal(t, 8500.0, calc.Items[1].UnitPrice)
		assert.Equal(t, 17000.0, calc.Items[1].TotalPrice)
		assert.False(t, calc.CalculatedAt.IsZero())
	})

	t.Run("unknown product fails the whole calculation", func(t *testing.T) {
		calc, err := pricing.Calculate([]ProductItemRequest{
			{ProductID: 1, Quantity: 1},
			{ProductID: 999, Quantity: 1},
		})
		assert.Nil(t, calc)
		require.Error(t, err)
		assert.True(t, utils.IsNotFoundError(err))
		assert.Contains(t, err.Error(), "product 999 not found")
	})

	t.Run("inactive product is rejected", func(t *testing.T) {
		calc, err := pricing.Calculate([]ProductItemRequest{{ProductID: 3, Quantity: 1}})
		assert.Nil(t, calc)
		require.Error(t, err)
		assert.True(t, utils.IsValidationError(err))
	})

	t.Run("non-positive quantity is rejected", func(t *testing.T) {
		for _, qty := range []int{0, -1} {
			calc, err := pricing.Calculate([]ProductItemRequest{{ProductID: 1, Quantity: qty}})
			assert.Nil(t, calc)
			require.Error(t, err)
			assert.True(t, utils.IsValidationError(err))
		}
	})

	t.Run("empty cart is rejected", func(t *testing.T) {
		calc, err := pricing.Calculate(nil)
		assert.Nil(t, calc)
		require.Error(t, err)
		assert.True(t, utils.IsValidationError(err))
	})
}
