package services

import (
	"context"
	"sync"
	"testing"

	"github.com/smartkasa/kasapay/models"
	"github.com/smartkasa/kasapay/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates on first sighting, returns existing afterwards", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewCustomerService(db, nil, testPhoneRule)

		first, err := svc.ResolveOrCreate(ctx, "+380501234567", CustomerHints{Email: "a@example.com"})
		require.NoError(t, err)
		assert.NotZero(t, first.ID)
		assert.Equal(t, "a@example.com", first.Email)

		// Hints never overwrite an existing customer.
		second, err := svc.ResolveOrCreate(ctx, "+380501234567", CustomerHints{Email: "b@example.com"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "a@example.com", second.Email)

		var count int64
		require.NoError(t, db.Model(&models.Customer{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("rejects phones outside the rule", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewCustomerService(db, nil, testPhoneRule)

		for _, phone := range []string{"", "0501234567", "+38050123456", "+3805012345678", "+38050123456a"} {
			_, err := svc.ResolveOrCreate(ctx, phone, CustomerHints{})
			require.Error(t, err, "phone %q", phone)
			assert.True(t, utils.IsValidationError(err), "phone %q", phone)
		}
	})

	t.Run("concurrent first-time resolution yields one row", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewCustomerService(db, nil, testPhoneRule)

		const workers = 8
		var wg sync.WaitGroup
		ids := make([]uint, workers)
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				c, err := svc.ResolveOrCreate(ctx, "+380671112233", CustomerHints{})
				if err != nil {
					errs[i] = err
					return
				}
				ids[i] = c.ID
			}(i)
		}
		wg.Wait()

		var winner uint
		for i := 0; i < workers; i++ {
			if errs[i] != nil {
				continue
			}
			if winner == 0 {
				winner = ids[i]
			}
			assert.Equal(t, winner, ids[i])
		}
		require.NotZero(t, winner, "at least one resolution must succeed")

		var count int64
		require.NoError(t, db.Model(&models.Customer{}).Where("phone = ?", "+380671112233").Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("links a CRM contact best-effort", func(t *testing.T) {
		db := newTestDB(t)
		crm := newFakeCRM()
		svc := NewCustomerService(db, crm, testPhoneRule)

		customer, err := svc.ResolveOrCreate(ctx, "+380931112233", CustomerHints{FirstName: "Olena"})
		require.NoError(t, err)
		assert.NotEmpty(t, customer.CrmID)

		var stored models.Customer
		require.NoError(t, db.First(&stored, customer.ID).Error)
		assert.Equal(t, customer.CrmID, stored.CrmID)
	})

	t.Run("CRM failure never fails resolution", func(t *testing.T) {
		db := newTestDB(t)
		crm := newFakeCRM()
		crm.failAll = true
		svc := NewCustomerService(db, crm, testPhoneRule)

		customer, err := svc.ResolveOrCreate(ctx, "+380441112233", CustomerHints{})
		require.NoError(t, err)
		assert.Empty(t, customer.CrmID)
	})
}

func TestCustomerUpdate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewCustomerService(db, nil, testPhoneRule)

	a, err := svc.ResolveOrCreate(ctx, "+380501111111", CustomerHints{})
	require.NoError(t, err)
	b, err := svc.ResolveOrCreate(ctx, "+380502222222", CustomerHints{})
	require.NoError(t, err)

	t.Run("moving to a taken phone conflicts", func(t *testing.T) {
		_, err := svc.Update(b.ID, a.Phone, CustomerHints{})
		require.Error(t, err)
		assert.True(t, utils.IsConflictError(err))
	})

	t.Run("partial update keeps untouched fields", func(t *testing.T) {
		updated, err := svc.Update(a.ID, "", CustomerHints{FirstName: "Ivan"})
		require.NoError(t, err)
		assert.Equal(t, "Ivan", updated.FirstName)
		assert.Equal(t, "+380501111111", updated.Phone)
	})

	t.Run("unknown customer is not found", func(t *testing.T) {
		_, err := svc.Update(9999, "", CustomerHints{})
		require.Error(t, err)
		assert.True(t, utils.IsNotFoundError(err))
	})
}
