package models

import "time"

// StockDeductionTask is one pending deferred stock deduction.
// The table is the durable replacement for in-process timers: a poller picks
// up due tasks, and the reconciliation sweep remains the source of truth if a
// task row is ever lost.
type StockDeductionTask struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	DueAt     time.Time `gorm:"not null;index" json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the StockDeductionTask model
func (StockDeductionTask) TableName() string {
	return "stock_deduction_tasks"
}
