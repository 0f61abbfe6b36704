package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/manga-store/manga-store-api/models"
)

// StatusEditLock is the window after the last status change during which
// non-super-admin actors may still modify an order's status.
const StatusEditLock = time.Hour

var (
	// ErrInvalidOrderStatus is returned for a status outside the closed set
	ErrInvalidOrderStatus = errors.New("invalid order status")
	// ErrStatusLocked is returned when the edit-lock window has expired for
	// a non-super-admin actor
	ErrStatusLocked = errors.New("order status locked after edit window")
)

// UpdateOrderStatus applies an admin-driven order status transition.
//
// Rules:
//   - the new status must belong to the closed status set;
//   - after one hour since the last status change, only super admins may
//     still change the status;
//   - entering delivered sets delivered_at, the anchor for revenue
//     recognition and deferred stock deduction;
//   - leaving delivered clears delivered_at while stock has not been
//     deducted yet (the transition stays reversible inside the grace window);
//   - status_changed_at is refreshed on every accepted submission, including
//     a same-value one (observed behavior, kept as-is: it extends the edit
//     lock window);
//   - reaching delivered credits commission on every assignment that is
//     itself delivered and schedules the deferred stock deduction;
//   - a change notifies the customer by email, best-effort.
func UpdateOrderStatus(db *gorm.DB, order *models.Order, newStatus models.OrderStatus, actor *models.User) error {
	if _, ok := models.ParseOrderStatus(string(newStatus)); !ok {
		return ErrInvalidOrderStatus
	}

	now := time.Now().UTC()

	lockRef := order.CreatedAt
	if order.StatusChangedAt != nil {
		lockRef = *order.StatusChangedAt
	} else if !order.UpdatedAt.IsZero() {
		lockRef = order.UpdatedAt
	}
	if !actor.IsSuperAdmin && now.Sub(lockRef) > StatusEditLock {
		return ErrStatusLocked
	}

	oldStatus := order.Status
	order.Status = newStatus
	if newStatus == models.OrderDelivered && oldStatus != models.OrderDelivered {
		order.DeliveredAt = &now
	} else if oldStatus == models.OrderDelivered && newStatus != models.OrderDelivered && !order.StockDeducted {
		order.DeliveredAt = nil
	}
	order.StatusChangedAt = &now

	if err := db.Model(order).Select("status", "delivered_at", "status_changed_at").
		Updates(map[string]interface{}{
			"status":            order.Status,
			"delivered_at":      order.DeliveredAt,
			"status_changed_at": order.StatusChangedAt,
		}).Error; err != nil {
		return fmt.Errorf("failed to update order %d status: %w", order.ID, err)
	}

	if newStatus == models.OrderDelivered {
		creditDeliveredAssignments(db, order)

		if err := ScheduleStockDeduction(db, order); err != nil {
			log.Printf("Failed to schedule stock deduction for order %d: %v", order.ID, err)
		}
		// Immediate attempt covers orders re-marked delivered after the
		// grace period already elapsed.
		if _, err := DeductStockIfDue(db, order.ID); err != nil {
			log.Printf("Immediate stock deduction attempt failed for order %d: %v", order.ID, err)
		}
	}

	if oldStatus != newStatus {
		notifyStatusChange(db, order, newStatus)
	}

	return nil
}

// creditDeliveredAssignments credits commission for every assignment on the
// order that is itself delivered and not yet recorded
func creditDeliveredAssignments(db *gorm.DB, order *models.Order) {
	var assignments []models.DeliveryAssignment
	if err := db.Where("order_id = ?", order.ID).Find(&assignments).Error; err != nil {
		log.Printf("Failed to load assignments for order %d: %v", order.ID, err)
		return
	}
	for i := range assignments {
		if _, err := CreditAssignment(db, &assignments[i], order); err != nil {
			log.Printf("Failed to credit commission for assignment %d: %v", assignments[i].ID, err)
		}
	}
}

// notifyStatusChange emails the order's owner about the new status.
// Failure to send is logged and never fails the transition.
func notifyStatusChange(db *gorm.DB, order *models.Order, newStatus models.OrderStatus) {
	sender := GetEmailSender()
	if sender == nil {
		return
	}

	var customer models.User
	if err := db.First(&customer, order.UserID).Error; err != nil {
		log.Printf("Failed to load customer for order %d status email: %v", order.ID, err)
		return
	}

	subject := fmt.Sprintf("Update on your order #%s", order.OrderNumber)
	body := fmt.Sprintf(
		"Hello %s,\n\nThe status of your order #%s has been updated.\nNew status: %s\n\nThank you for shopping with us,\nManga Store",
		customer.FirstName, order.OrderNumber, newStatus)

	if err := sender.Send(customer.Email, subject, body); err != nil {
		log.Printf("Failed to send status email for order %d: %v", order.ID, err)
	}
}
