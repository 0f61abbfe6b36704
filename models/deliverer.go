package models

import (
	"time"

	"gorm.io/gorm"
)

// Deliverer represents a delivery courier with a running commission balance.
// LastBonusWeekStart and WeeklyBonusPaidCount together make the weekly block
// bonus idempotent across repeated payout requests within the same ISO week.
type Deliverer struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	Auth0ID              string          `gorm:"uniqueIndex;not null" json:"auth0_id"`
	Email                string          `gorm:"uniqueIndex;not null" json:"email"`
	FirstName            string          `gorm:"not null" json:"first_name"`
	LastName             string          `gorm:"not null" json:"last_name"`
	Phone                string          `json:"phone"`
	Address              string          `json:"address"`
	ProfilePicture       string          `gorm:"default:'default_profile.svg'" json:"profile_picture"`
	IsActive             bool            `json:"is_active"`
	CommissionDue        float64         `gorm:"default:0" json:"commission_due"`
	Status               DelivererStatus `gorm:"type:varchar(20);default:'available'" json:"status"`
	LastBonusWeekStart   *time.Time      `json:"last_bonus_week_start"`
	WeeklyBonusPaidCount int             `gorm:"default:0" json:"weekly_bonus_paid_count"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	DeletedAt            gorm.DeletedAt  `gorm:"index" json:"-"`

	Assignments []DeliveryAssignment `gorm:"foreignKey:DelivererID" json:"-"`
}

// TableName specifies the table name for the Deliverer model
func (Deliverer) TableName() string {
	return "deliverers"
}
