package models

import (
	"time"

	"gorm.io/gorm"
)

// Category groups products in the storefront catalog
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Icon        string         `json:"icon"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Products []Product `gorm:"foreignKey:CategoryID" json:"-"`
}

// TableName specifies the table name for the Category model
func (Category) TableName() string {
	return "categories"
}
