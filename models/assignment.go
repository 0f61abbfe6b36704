package models

import (
	"time"

	"gorm.io/gorm"
)

// DeliveryAssignment links an order to a courier.
// CommissionRecorded guards commission crediting so it happens at most once
// per assignment, however many times the status is re-submitted.
type DeliveryAssignment struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	OrderID            uint             `gorm:"not null;index" json:"order_id"`
	Order              Order            `gorm:"foreignKey:OrderID" json:"order"`
	DelivererID        uint             `gorm:"not null;index" json:"deliverer_id"`
	Deliverer          Deliverer        `gorm:"foreignKey:DelivererID" json:"deliverer"`
	Status             AssignmentStatus `gorm:"type:varchar(20);default:'assigned'" json:"status"`
	Note               string           `json:"note"`
	PayoutStatus       PayoutStatus     `gorm:"type:varchar(20);default:'pending'" json:"payout_status"`
	CommissionRecorded bool             `gorm:"default:false" json:"commission_recorded"`
	CompletedAt        *time.Time       `json:"completed_at"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	DeletedAt          gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name for the DeliveryAssignment model
func (DeliveryAssignment) TableName() string {
	return "delivery_assignments"
}
