package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/manga-store/manga-store-api/models"
)

func TestIsRevenueRecognized(t *testing.T) {
	now := time.Now().UTC()
	cutoff := RevenueCutoff(now)
	before := now.Add(-2 * time.Hour)
	after := now.Add(-10 * time.Minute)

	tests := []struct {
		name     string
		order    *models.Order
		expected bool
	}{
		{
			"Delivered two hours ago counts",
			&models.Order{Status: models.OrderDelivered, DeliveredAt: &before},
			true,
		},
		{
			"Delivered ten minutes ago does not count yet",
			&models.Order{Status: models.OrderDelivered, DeliveredAt: &after},
			false,
		},
		{
			"Non-delivered order never counts",
			&models.Order{Status: models.OrderShipped, DeliveredAt: &before},
			false,
		},
		{
			"Missing delivered_at falls back to status_changed_at",
			&models.Order{Status: models.OrderDelivered, StatusChangedAt: &before},
			true,
		},
		{
			"Missing both falls back to updated_at",
			&models.Order{Status: models.OrderDelivered, UpdatedAt: before},
			true,
		},
		{
			"Falls back to created_at last",
			&models.Order{Status: models.OrderDelivered, CreatedAt: before},
			true,
		},
		{
			"Nil order",
			nil,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRevenueRecognized(tt.order, cutoff))
		})
	}
}

func TestComputeRecognizedRevenue(t *testing.T) {
	db := newTestDB(t)

	matured := time.Now().UTC().Add(-2 * time.Hour)
	young := time.Now().UTC().Add(-10 * time.Minute)

	orders := []models.Order{
		{OrderNumber: "CMD-20250602-AAAA0001", UserID: 1, TotalAmount: 40, Status: models.OrderDelivered, ShippingAddress: "a", DeliveredAt: &matured},
		{OrderNumber: "CMD-20250602-AAAA0002", UserID: 1, TotalAmount: 60, Status: models.OrderDelivered, ShippingAddress: "a", DeliveredAt: &matured},
		// Inside the grace window: not recognized yet.
		{OrderNumber: "CMD-20250602-AAAA0003", UserID: 1, TotalAmount: 25, Status: models.OrderDelivered, ShippingAddress: "a", DeliveredAt: &young},
		// Not delivered at all.
		{OrderNumber: "CMD-20250602-AAAA0004", UserID: 1, TotalAmount: 99, Status: models.OrderPending, ShippingAddress: "a"},
	}
	for i := range orders {
		assert.NoError(t, db.Create(&orders[i]).Error)
	}

	revenue, err := ComputeRecognizedRevenue(db)
	assert.NoError(t, err)
	assert.InDelta(t, 100.0, revenue, 1e-9)
}

func TestRecognizedSpendForUser(t *testing.T) {
	db := newTestDB(t)

	matured := time.Now().UTC().Add(-2 * time.Hour)
	young := time.Now().UTC().Add(-5 * time.Minute)

	orders := []models.Order{
		{OrderNumber: "CMD-20250602-BBBB0001", UserID: 7, TotalAmount: 30, Status: models.OrderDelivered, ShippingAddress: "a", DeliveredAt: &matured},
		{OrderNumber: "CMD-20250602-BBBB0002", UserID: 7, TotalAmount: 20, Status: models.OrderDelivered, ShippingAddress: "a", DeliveredAt: &young},
		// Another customer's order must not leak in.
		{OrderNumber: "CMD-20250602-BBBB0003", UserID: 8, TotalAmount: 75, Status: models.OrderDelivered, ShippingAddress: "a", DeliveredAt: &matured},
	}
	for i := range orders {
		assert.NoError(t, db.Create(&orders[i]).Error)
	}

	spend, err := RecognizedSpendForUser(db, 7)
	assert.NoError(t, err)
	assert.InDelta(t, 30.0, spend, 1e-9)
}
