package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/manga-store/manga-store-api/models"
)

var (
	regularAdmin = &models.User{ID: 1, IsAdmin: true}
	superAdmin   = &models.User{ID: 2, IsAdmin: true, IsSuperAdmin: true}
)

func createOrderWithStatus(t *testing.T, db *gorm.DB, status models.OrderStatus, changedAgo time.Duration) *models.Order {
	t.Helper()

	changedAt := time.Now().UTC().Add(-changedAgo)
	order := models.Order{
		OrderNumber:     GenerateOrderNumber(changedAt),
		UserID:          1,
		TotalAmount:     42,
		Status:          status,
		ShippingAddress: "12 Main St",
		StatusChangedAt: &changedAt,
	}
	if status == models.OrderDelivered {
		order.DeliveredAt = &changedAt
	}
	assert.NoError(t, db.Create(&order).Error)
	return &order
}

func TestUpdateOrderStatus_InvalidStatus(t *testing.T) {
	db := newTestDB(t)
	order := createOrderWithStatus(t, db, models.OrderPending, 0)

	err := UpdateOrderStatus(db, order, models.OrderStatus("teleported"), regularAdmin)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestUpdateOrderStatus_WithinEditWindow(t *testing.T) {
	db := newTestDB(t)
	order := createOrderWithStatus(t, db, models.OrderPending, 30*time.Minute)

	assert.NoError(t, UpdateOrderStatus(db, order, models.OrderConfirmed, regularAdmin))

	var fresh models.Order
	assert.NoError(t, db.First(&fresh, order.ID).Error)
	assert.Equal(t, models.OrderConfirmed, fresh.Status)
}

func TestUpdateOrderStatus_LockedAfterWindow(t *testing.T) {
	db := newTestDB(t)
	order := createOrderWithStatus(t, db, models.OrderConfirmed, 2*time.Hour)

	err := UpdateOrderStatus(db, order, models.OrderShipped, regularAdmin)
	assert.ErrorIs(t, err, ErrStatusLocked)

	var fresh models.Order
	assert.NoError(t, db.First(&fresh, order.ID).Error)
	assert.Equal(t, models.OrderConfirmed, fresh.Status)
}

func TestUpdateOrderStatus_SuperAdminBypassesLock(t *testing.T) {
	db := newTestDB(t)
	order := createOrderWithStatus(t, db, models.OrderConfirmed, 2*time.Hour)

	assert.NoError(t, UpdateOrderStatus(db, order, models.OrderShipped, superAdmin))

	var fresh models.Order
	assert.NoError(t, db.First(&fresh, order.ID).Error)
	assert.Equal(t, models.OrderShipped, fresh.Status)
}

func TestUpdateOrderStatus_DeliveredSetsAnchor(t *testing.T) {
	db := newTestDB(t)
	order := createOrderWithStatus(t, db, models.OrderShipped, 10*time.Minute)

	assert.NoError(t, UpdateOrderStatus(db, order, models.OrderDelivered, regularAdmin))

	var fresh models.Order
	assert.NoError(t, db.First(&fresh, order.ID).Error)
	assert.Equal(t, models.OrderDelivered, fresh.Status)
	assert.NotNil(t, fresh.DeliveredAt)
	assert.WithinDuration(t, time.Now().UTC(), *fresh.DeliveredAt, 5*time.Second)

	// A durable task is enqueued for the deferred deduction.
	var count int64
	assert.NoError(t, db.Model(&models.StockDeductionTask{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateOrderStatus_RevertClearsAnchor(t *testing.T) {
	db := newTestDB(t)
	order := createOrderWithStatus(t, db, models.OrderDelivered, 10*time.Minute)

	assert.NoError(t, UpdateOrderStatus(db, order, models.OrderShipped, regularAdmin))

	var fresh models.Order
	assert.NoError(t, db.First(&fresh, order.ID).Error)
	assert.Equal(t, models.OrderShipped, fresh.Status)
	assert.Nil(t, fresh.DeliveredAt)
}

func TestUpdateOrderStatus_RevertKeepsAnchorOnceDeducted(t *testing.T) {
	db := newTestDB(t)
	order := createOrderWithStatus(t, db, models.OrderDelivered, 10*time.Minute)
	assert.NoError(t, db.Model(order).Update("stock_deducted", true).Error)
	order.StockDeducted = true

	assert.NoError(t, UpdateOrderStatus(db, order, models.OrderShipped, regularAdmin))

	// Deduction has settled; the historical anchor stays.
	var fresh models.Order
	assert.NoError(t, db.First(&fresh, order.ID).Error)
	assert.Equal(t, models.OrderShipped, fresh.Status)
	assert.NotNil(t, fresh.DeliveredAt)
}

func TestUpdateOrderStatus_SameValueRefreshesWindow(t *testing.T) {
	db := newTestDB(t)
	order := createOrderWithStatus(t, db, models.OrderConfirmed, 50*time.Minute)
	staleChangedAt := *order.StatusChangedAt

	// Re-submitting the same status is accepted and extends the edit lock.
	assert.NoError(t, UpdateOrderStatus(db, order, models.OrderConfirmed, regularAdmin))

	var fresh models.Order
	assert.NoError(t, db.First(&fresh, order.ID).Error)
	assert.Equal(t, models.OrderConfirmed, fresh.Status)
	assert.NotNil(t, fresh.StatusChangedAt)
	assert.True(t, fresh.StatusChangedAt.After(staleChangedAt))
}

func TestUpdateOrderStatus_DeliveredCreditsAssignments(t *testing.T) {
	db := newTestDB(t)

	deliverer := models.Deliverer{Auth0ID: "auth0|courier", Email: "courier@example.com", FirstName: "Cody", LastName: "Rider"}
	assert.NoError(t, db.Create(&deliverer).Error)

	order := createOrderWithStatus(t, db, models.OrderShipped, 5*time.Minute)
	assignment := models.DeliveryAssignment{
		OrderID:     order.ID,
		DelivererID: deliverer.ID,
		Status:      models.AssignmentDelivered,
	}
	assert.NoError(t, db.Create(&assignment).Error)

	assert.NoError(t, UpdateOrderStatus(db, order, models.OrderDelivered, regularAdmin))

	var fresh models.Deliverer
	assert.NoError(t, db.First(&fresh, deliverer.ID).Error)
	assert.Greater(t, fresh.CommissionDue, 0.0)

	var freshAssignment models.DeliveryAssignment
	assert.NoError(t, db.First(&freshAssignment, assignment.ID).Error)
	assert.True(t, freshAssignment.CommissionRecorded)
}

func TestUpdateOrderStatus_SendsNotification(t *testing.T) {
	db := newTestDB(t)

	mock := NewMockEmailSender()
	SetEmailSender(mock)
	defer SetEmailSender(nil)

	customer := models.User{Auth0ID: "auth0|client", Email: "client@example.com", FirstName: "Cleo", LastName: "Buyer"}
	assert.NoError(t, db.Create(&customer).Error)

	changedAt := time.Now().UTC()
	order := models.Order{
		OrderNumber:     GenerateOrderNumber(changedAt),
		UserID:          customer.ID,
		TotalAmount:     42,
		Status:          models.OrderPending,
		ShippingAddress: "12 Main St",
		StatusChangedAt: &changedAt,
	}
	assert.NoError(t, db.Create(&order).Error)

	assert.NoError(t, UpdateOrderStatus(db, &order, models.OrderConfirmed, regularAdmin))

	sent := mock.Sent()
	assert.Len(t, sent, 1)
	assert.Equal(t, "client@example.com", sent[0].To)
	assert.Contains(t, sent[0].Subject, order.OrderNumber)

	// Same-value refresh does not notify again.
	assert.NoError(t, UpdateOrderStatus(db, &order, models.OrderConfirmed, regularAdmin))
	assert.Len(t, mock.Sent(), 1)
}
