package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/manga-store/manga-store-api/models"
)

// RevenueCutoff returns the instant before which a delivery must have
// happened for its revenue to be recognized (the same grace window as the
// deferred stock deduction).
func RevenueCutoff(now time.Time) time.Time {
	return now.UTC().Add(-StockDeductionGrace)
}

// IsRevenueRecognized reports whether a delivered order counts as realized
// sales at the given cutoff. The reference timestamp falls back through
// delivered_at, status_changed_at, updated_at and created_at.
func IsRevenueRecognized(order *models.Order, cutoff time.Time) bool {
	if order == nil || order.Status != models.OrderDelivered {
		return false
	}
	var ref time.Time
	switch {
	case order.DeliveredAt != nil:
		ref = *order.DeliveredAt
	case order.StatusChangedAt != nil:
		ref = *order.StatusChangedAt
	case !order.UpdatedAt.IsZero():
		ref = order.UpdatedAt
	case !order.CreatedAt.IsZero():
		ref = order.CreatedAt
	default:
		return false
	}
	return !ref.After(cutoff)
}

// ComputeRecognizedRevenue sums the totals of all orders delivered at least
// one grace period ago.
func ComputeRecognizedRevenue(db *gorm.DB) (float64, error) {
	cutoff := RevenueCutoff(time.Now())
	var revenue float64
	err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("status = ? AND delivered_at IS NOT NULL AND delivered_at <= ?",
			models.OrderDelivered, cutoff).
		Scan(&revenue).Error
	if err != nil {
		return 0, err
	}
	return revenue, nil
}

// RecognizedSpendForUser sums a single customer's recognized order totals,
// used by the admin clients view.
func RecognizedSpendForUser(db *gorm.DB, userID uint) (float64, error) {
	cutoff := RevenueCutoff(time.Now())
	var spent float64
	err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("user_id = ? AND status = ? AND delivered_at IS NOT NULL AND delivered_at <= ?",
			userID, models.OrderDelivered, cutoff).
		Scan(&spent).Error
	if err != nil {
		return 0, err
	}
	return spent, nil
}
