package models

import "time"

// ActivityLog records a mutating back-office action for the audit trail
type ActivityLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Action     string    `gorm:"not null" json:"action"`
	ActorID    *uint     `gorm:"index" json:"actor_id"`
	ActorEmail string    `json:"actor_email"`
	ActorName  string    `json:"actor_name"`
	Extra      string    `json:"extra"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for the ActivityLog model
func (ActivityLog) TableName() string {
	return "activity_logs"
}
