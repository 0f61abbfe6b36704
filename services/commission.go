package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/manga-store/manga-store-api/models"
)

// Commission scheme: tiered base per delivery, Sunday bonus proportional to
// the order value, and a flat bonus per block of 8 deliveries in an ISO week.
const (
	lowTierCommission = 3.0
	midTierCommission = 4.0
	highTierThreshold = 80.0
	lowTierThreshold  = 25.0
	highTierRate      = 0.02
	sundayBonusRate   = 0.05
	WeeklyBlockSize   = 8
	WeeklyBlockBonus  = 5.0
)

// BaseCommission returns the tiered per-delivery commission for an order total
func BaseCommission(total float64) float64 {
	switch {
	case total <= lowTierThreshold:
		return lowTierCommission
	case total < highTierThreshold:
		return midTierCommission
	default:
		return midTierCommission + highTierRate*total
	}
}

// CommissionFor returns the full commission earned for one delivery: the
// tiered base plus the Sunday bonus when the completion timestamp falls on a
// Sunday (UTC).
func CommissionFor(total float64, completedAt time.Time) float64 {
	commission := BaseCommission(total)
	if completedAt.UTC().Weekday() == time.Sunday {
		commission += sundayBonusRate * total
	}
	return commission
}

// WeekStart returns Monday 00:00 UTC of the ISO week containing t
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return day.AddDate(0, 0, -offset)
}

// OutstandingWeeklyBonuses returns how many $5 blocks are still payable given
// the number of deliveries completed this week and the blocks already paid
func OutstandingWeeklyBonuses(completedCount, paidCount int) int {
	outstanding := completedCount/WeeklyBlockSize - paidCount
	if outstanding < 0 {
		return 0
	}
	return outstanding
}

// CreditAssignment credits the courier's commission for one completed
// delivery. It is idempotent: CommissionRecorded guards against double
// crediting, and nothing happens until both the assignment and its parent
// order are delivered. Returns true when a credit was applied.
func CreditAssignment(db *gorm.DB, assignment *models.DeliveryAssignment, order *models.Order) (bool, error) {
	if assignment.CommissionRecorded {
		return false, nil
	}
	if assignment.Status != models.AssignmentDelivered || order.Status != models.OrderDelivered {
		return false, nil
	}

	// The bonus is keyed off the completion timestamp, not the crediting
	// moment: a Sunday delivery credited on Monday still earns the bonus.
	if assignment.CompletedAt == nil {
		now := time.Now().UTC()
		assignment.CompletedAt = &now
	}
	amount := CommissionFor(order.TotalAmount, *assignment.CompletedAt)

	err := db.Transaction(func(tx *gorm.DB) error {
		assignment.CommissionRecorded = true
		assignment.PayoutStatus = models.PayoutPending
		if err := tx.Save(assignment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Deliverer{}).
			Where("id = ?", assignment.DelivererID).
			UpdateColumn("commission_due", gorm.Expr("commission_due + ?", amount)).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to credit assignment %d: %w", assignment.ID, err)
	}
	return true, nil
}

// WeeklyBonusOutstanding computes how many unpaid $5 blocks the courier has
// earned in the ISO week containing now.
func WeeklyBonusOutstanding(db *gorm.DB, deliverer *models.Deliverer, now time.Time) (int, error) {
	weekStart := WeekStart(now)
	weekEnd := weekStart.AddDate(0, 0, 7)

	var completed int64
	err := db.Model(&models.DeliveryAssignment{}).
		Where("deliverer_id = ? AND completed_at >= ? AND completed_at < ?",
			deliverer.ID, weekStart, weekEnd).
		Count(&completed).Error
	if err != nil {
		return 0, err
	}

	// A payment recorded against an earlier week does not count: crossing
	// into a new week implicitly resets the paid counter.
	paid := 0
	if deliverer.LastBonusWeekStart != nil && deliverer.LastBonusWeekStart.Equal(weekStart) {
		paid = deliverer.WeeklyBonusPaidCount
	}

	return OutstandingWeeklyBonuses(int(completed), paid), nil
}

// PayWeeklyBonus credits all outstanding weekly block bonuses to the
// courier's balance. Idempotent within an ISO week: repeating the action
// pays nothing until another full block of deliveries is completed.
func PayWeeklyBonus(db *gorm.DB, deliverer *models.Deliverer, now time.Time) (int, float64, error) {
	outstanding, err := WeeklyBonusOutstanding(db, deliverer, now)
	if err != nil {
		return 0, 0, err
	}
	if outstanding == 0 {
		return 0, 0, nil
	}

	weekStart := WeekStart(now)
	paid := 0
	if deliverer.LastBonusWeekStart != nil && deliverer.LastBonusWeekStart.Equal(weekStart) {
		paid = deliverer.WeeklyBonusPaidCount
	}
	amount := float64(outstanding) * WeeklyBlockBonus

	err = db.Transaction(func(tx *gorm.DB) error {
		deliverer.CommissionDue += amount
		deliverer.LastBonusWeekStart = &weekStart
		deliverer.WeeklyBonusPaidCount = paid + outstanding
		return tx.Save(deliverer).Error
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to pay weekly bonus for deliverer %d: %w", deliverer.ID, err)
	}
	return outstanding, amount, nil
}

// PayAllCommissions settles every unpaid assignment of the courier and zeroes
// the running balance. Coarse all-or-nothing settlement, no partial payouts.
func PayAllCommissions(db *gorm.DB, deliverer *models.Deliverer) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var toPay []models.DeliveryAssignment
		if err := tx.Where("deliverer_id = ? AND payout_status <> ?",
			deliverer.ID, models.PayoutPaid).Find(&toPay).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		for i := range toPay {
			a := &toPay[i]
			a.PayoutStatus = models.PayoutPaid
			a.CommissionRecorded = true
			if a.CompletedAt == nil {
				a.CompletedAt = &now
			}
			if err := tx.Save(a).Error; err != nil {
				return err
			}
		}

		deliverer.CommissionDue = 0
		return tx.Save(deliverer).Error
	})
}
