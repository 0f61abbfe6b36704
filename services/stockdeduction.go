package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/manga-store/manga-store-api/models"
)

// StockDeductionGrace is the correction window between a delivery and the
// moment its stock is actually deducted. Revenue recognition uses the same
// window so counted sales and deducted stock stay in lockstep.
const StockDeductionGrace = time.Hour

// ScheduleStockDeduction enqueues a deferred deduction for a delivered order.
// No-op unless the order is delivered and not yet deducted. The task row is
// durable: it survives restarts, unlike an in-process timer.
func ScheduleStockDeduction(db *gorm.DB, order *models.Order) error {
	if order == nil || order.StockDeducted || order.Status != models.OrderDelivered {
		return nil
	}

	if order.DeliveredAt == nil {
		now := time.Now().UTC()
		order.DeliveredAt = &now
		if err := db.Model(order).Update("delivered_at", now).Error; err != nil {
			return fmt.Errorf("failed to set delivered_at for order %d: %w", order.ID, err)
		}
	}

	task := models.StockDeductionTask{
		OrderID: order.ID,
		DueAt:   order.DeliveredAt.Add(StockDeductionGrace),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"due_at"}),
	}).Create(&task).Error
}

// DeductStockIfDue applies the deferred deduction for one order if the grace
// period has elapsed. Idempotent: all preconditions are re-checked inside the
// transaction, and stock never goes negative. Returns true when stock was
// deducted.
func DeductStockIfDue(db *gorm.DB, orderID uint) (bool, error) {
	deducted := false
	err := db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			return err
		}

		if order.StockDeducted || order.Status != models.OrderDelivered || order.DeliveredAt == nil {
			return nil
		}
		if time.Now().UTC().Before(order.DeliveredAt.Add(StockDeductionGrace)) {
			return nil
		}

		if err := deductOrderItems(tx, &order); err != nil {
			return err
		}
		if err := tx.Model(&order).Update("stock_deducted", true).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).
			Delete(&models.StockDeductionTask{}).Error; err != nil {
			return err
		}
		deducted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("stock deduction failed for order %d: %w", orderID, err)
	}
	return deducted, nil
}

// ReconcileDueStockDeductions sweeps all matured delivered orders and deducts
// their stock in a single transaction. This sweep is the actual correctness
// guarantee; the task queue and its poller only reduce latency. Returns the
// number of orders deducted.
func ReconcileDueStockDeductions(db *gorm.DB) (int, error) {
	cutoff := time.Now().UTC().Add(-StockDeductionGrace)
	processed := 0

	err := db.Transaction(func(tx *gorm.DB) error {
		var due []models.Order
		if err := tx.Preload("Items").
			Where("status = ? AND stock_deducted = ? AND delivered_at IS NOT NULL AND delivered_at <= ?",
				models.OrderDelivered, false, cutoff).
			Find(&due).Error; err != nil {
			return err
		}

		for i := range due {
			order := &due[i]
			if err := deductOrderItems(tx, order); err != nil {
				return err
			}
			if err := tx.Model(order).Update("stock_deducted", true).Error; err != nil {
				return err
			}
			if err := tx.Where("order_id = ?", order.ID).
				Delete(&models.StockDeductionTask{}).Error; err != nil {
				return err
			}
			processed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("stock deduction sweep failed: %w", err)
	}
	return processed, nil
}

// deductOrderItems decrements each ordered product's stock, floored at zero
func deductOrderItems(tx *gorm.DB, order *models.Order) error {
	for _, item := range order.Items {
		var product models.Product
		if err := tx.First(&product, item.ProductID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return err
		}
		remaining := product.Quantity - item.Quantity
		if remaining < 0 {
			remaining = 0
		}
		if err := tx.Model(&product).Update("quantity", remaining).Error; err != nil {
			return err
		}
	}
	return nil
}

// StockDeductionWorker polls the due-at task queue and applies matured
// deductions. It replaces per-order in-process timers with a periodic poll of
// the durable task table.
type StockDeductionWorker struct {
	db       *gorm.DB
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewStockDeductionWorker creates a worker polling at the given interval
func NewStockDeductionWorker(db *gorm.DB, interval time.Duration) *StockDeductionWorker {
	return &StockDeductionWorker{
		db:       db,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop in a background goroutine
func (w *StockDeductionWorker) Start() {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.RunDueTasks()
			case <-w.stop:
				return
			}
		}
	}()
}

// Stop terminates the polling loop and waits for it to finish
func (w *StockDeductionWorker) Stop() {
	close(w.stop)
	<-w.done
}

// RunDueTasks processes every task whose due time has passed
func (w *StockDeductionWorker) RunDueTasks() {
	var tasks []models.StockDeductionTask
	if err := w.db.Where("due_at <= ?", time.Now().UTC()).Find(&tasks).Error; err != nil {
		log.Printf("Failed to load due stock deduction tasks: %v", err)
		return
	}

	for _, task := range tasks {
		var order models.Order
		if err := w.db.First(&order, task.OrderID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				// Order is gone; the task has nothing left to do.
				if delErr := w.db.Delete(&models.StockDeductionTask{}, task.ID).Error; delErr != nil {
					log.Printf("Failed to drop orphan stock deduction task %d: %v", task.ID, delErr)
				}
				continue
			}
			log.Printf("Failed to load order %d for stock deduction: %v", task.OrderID, err)
			continue
		}

		if order.Status != models.OrderDelivered || order.StockDeducted {
			// Delivery was reverted or the sweep already handled it.
			// Re-delivery re-enqueues a fresh task.
			if delErr := w.db.Delete(&models.StockDeductionTask{}, task.ID).Error; delErr != nil {
				log.Printf("Failed to drop stale stock deduction task %d: %v", task.ID, delErr)
			}
			continue
		}

		if _, err := DeductStockIfDue(w.db, task.OrderID); err != nil {
			// Left pending; the next poll or the reconciliation sweep retries.
			log.Printf("Deferred stock deduction failed for order %d: %v", task.OrderID, err)
		}
	}
}
