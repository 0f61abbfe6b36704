package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/manga-store/manga-store-api/models"
)

func createDeliveredOrder(t *testing.T, db *gorm.DB, deliveredAgo time.Duration, productQty, orderedQty int) (*models.Order, *models.Product) {
	t.Helper()

	category := models.Category{Name: "Shonen " + time.Now().Format("150405.000000000")}
	assert.NoError(t, db.Create(&category).Error)

	product := models.Product{
		Name:       "One Piece Vol. 1 " + time.Now().Format("150405.000000000"),
		Price:      9.99,
		Quantity:   productQty,
		CategoryID: category.ID,
		IsActive:   true,
	}
	assert.NoError(t, db.Create(&product).Error)

	deliveredAt := time.Now().UTC().Add(-deliveredAgo)
	order := models.Order{
		OrderNumber:     GenerateOrderNumber(deliveredAt),
		UserID:          1,
		TotalAmount:     product.Price * float64(orderedQty),
		Status:          models.OrderDelivered,
		ShippingAddress: "12 Main St",
		DeliveredAt:     &deliveredAt,
		Items: []models.OrderItem{
			{ProductID: product.ID, Quantity: orderedQty, Price: product.Price},
		},
	}
	assert.NoError(t, db.Create(&order).Error)

	return &order, &product
}

func TestScheduleStockDeduction(t *testing.T) {
	db := newTestDB(t)
	order, _ := createDeliveredOrder(t, db, 0, 10, 2)

	assert.NoError(t, ScheduleStockDeduction(db, order))

	var task models.StockDeductionTask
	assert.NoError(t, db.Where("order_id = ?", order.ID).First(&task).Error)
	assert.WithinDuration(t, order.DeliveredAt.Add(StockDeductionGrace), task.DueAt, time.Second)

	// Re-scheduling upserts the same row rather than duplicating it.
	assert.NoError(t, ScheduleStockDeduction(db, order))
	var count int64
	assert.NoError(t, db.Model(&models.StockDeductionTask{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestScheduleStockDeduction_SkipsNonDelivered(t *testing.T) {
	db := newTestDB(t)

	order := models.Order{
		OrderNumber:     "CMD-20250602-00000001",
		UserID:          1,
		TotalAmount:     10,
		Status:          models.OrderShipped,
		ShippingAddress: "12 Main St",
	}
	assert.NoError(t, db.Create(&order).Error)

	assert.NoError(t, ScheduleStockDeduction(db, &order))

	var count int64
	assert.NoError(t, db.Model(&models.StockDeductionTask{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestDeductStockIfDue_BeforeGrace(t *testing.T) {
	db := newTestDB(t)
	// Delivered 59 minutes ago: still inside the correction window.
	order, product := createDeliveredOrder(t, db, 59*time.Minute, 10, 3)

	deducted, err := DeductStockIfDue(db, order.ID)
	assert.NoError(t, err)
	assert.False(t, deducted)

	var fresh models.Product
	assert.NoError(t, db.First(&fresh, product.ID).Error)
	assert.Equal(t, 10, fresh.Quantity)
}

func TestDeductStockIfDue_AfterGrace(t *testing.T) {
	db := newTestDB(t)
	// Delivered 61 minutes ago: the window has elapsed.
	order, product := createDeliveredOrder(t, db, 61*time.Minute, 10, 3)
	assert.NoError(t, ScheduleStockDeduction(db, order))

	deducted, err := DeductStockIfDue(db, order.ID)
	assert.NoError(t, err)
	assert.True(t, deducted)

	var fresh models.Product
	assert.NoError(t, db.First(&fresh, product.ID).Error)
	assert.Equal(t, 7, fresh.Quantity)

	var freshOrder models.Order
	assert.NoError(t, db.First(&freshOrder, order.ID).Error)
	assert.True(t, freshOrder.StockDeducted)

	// The task row is consumed.
	var count int64
	assert.NoError(t, db.Model(&models.StockDeductionTask{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// A second run changes nothing: the deduction happened exactly once.
	deducted, err = DeductStockIfDue(db, order.ID)
	assert.NoError(t, err)
	assert.False(t, deducted)
	assert.NoError(t, db.First(&fresh, product.ID).Error)
	assert.Equal(t, 7, fresh.Quantity)
}

func TestDeductStockIfDue_FloorsAtZero(t *testing.T) {
	db := newTestDB(t)
	// Ordered more than is on hand; stock never goes negative.
	order, product := createDeliveredOrder(t, db, 2*time.Hour, 2, 5)

	deducted, err := DeductStockIfDue(db, order.ID)
	assert.NoError(t, err)
	assert.True(t, deducted)

	var fresh models.Product
	assert.NoError(t, db.First(&fresh, product.ID).Error)
	assert.Equal(t, 0, fresh.Quantity)
}

func TestDeductStockIfDue_RevertedDelivery(t *testing.T) {
	db := newTestDB(t)
	order, product := createDeliveredOrder(t, db, 2*time.Hour, 10, 3)
	assert.NoError(t, db.Model(order).Updates(map[string]interface{}{
		"status":       models.OrderShipped,
		"delivered_at": nil,
	}).Error)

	deducted, err := DeductStockIfDue(db, order.ID)
	assert.NoError(t, err)
	assert.False(t, deducted)

	var fresh models.Product
	assert.NoError(t, db.First(&fresh, product.ID).Error)
	assert.Equal(t, 10, fresh.Quantity)
}

func TestReconcileDueStockDeductions(t *testing.T) {
	db := newTestDB(t)
	// Two matured orders, one still inside the window, one not delivered.
	matured1, product1 := createDeliveredOrder(t, db, 2*time.Hour, 10, 1)
	matured2, product2 := createDeliveredOrder(t, db, 90*time.Minute, 5, 2)
	young, productYoung := createDeliveredOrder(t, db, 10*time.Minute, 8, 4)

	processed, err := ReconcileDueStockDeductions(db)
	assert.NoError(t, err)
	assert.Equal(t, 2, processed)

	// Fresh destination per lookup: gorm folds a stale primary key on the
	// struct into the WHERE clause.
	var fresh1, fresh2, freshYoung models.Product
	assert.NoError(t, db.First(&fresh1, product1.ID).Error)
	assert.Equal(t, 9, fresh1.Quantity)
	assert.NoError(t, db.First(&fresh2, product2.ID).Error)
	assert.Equal(t, 3, fresh2.Quantity)
	assert.NoError(t, db.First(&freshYoung, productYoung.ID).Error)
	assert.Equal(t, 8, freshYoung.Quantity)

	var order1, order2, orderYoung models.Order
	assert.NoError(t, db.First(&order1, matured1.ID).Error)
	assert.True(t, order1.StockDeducted)
	assert.NoError(t, db.First(&order2, matured2.ID).Error)
	assert.True(t, order2.StockDeducted)
	assert.NoError(t, db.First(&orderYoung, young.ID).Error)
	assert.False(t, orderYoung.StockDeducted)

	// Sweep is idempotent.
	processed, err = ReconcileDueStockDeductions(db)
	assert.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestStockDeductionWorker_RunDueTasks(t *testing.T) {
	db := newTestDB(t)
	order, product := createDeliveredOrder(t, db, 2*time.Hour, 10, 2)
	assert.NoError(t, ScheduleStockDeduction(db, order))

	worker := NewStockDeductionWorker(db, time.Minute)
	worker.RunDueTasks()

	var fresh models.Product
	assert.NoError(t, db.First(&fresh, product.ID).Error)
	assert.Equal(t, 8, fresh.Quantity)
}

func TestStockDeductionWorker_DropsStaleTask(t *testing.T) {
	db := newTestDB(t)
	order, product := createDeliveredOrder(t, db, 2*time.Hour, 10, 2)
	assert.NoError(t, ScheduleStockDeduction(db, order))

	// Delivery gets reverted after the task was enqueued.
	assert.NoError(t, db.Model(order).Updates(map[string]interface{}{
		"status":       models.OrderCancelled,
		"delivered_at": nil,
	}).Error)

	worker := NewStockDeductionWorker(db, time.Minute)
	worker.RunDueTasks()

	var fresh models.Product
	assert.NoError(t, db.First(&fresh, product.ID).Error)
	assert.Equal(t, 10, fresh.Quantity)

	var count int64
	assert.NoError(t, db.Model(&models.StockDeductionTask{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
