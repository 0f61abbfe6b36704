package models

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a catalog item with on-hand stock.
// Quantity is decremented exactly once per delivered order, deferred by the
// stock-deduction grace period. IsActive carries no column default: gorm skips
// zero-value fields on create when one is set, which would silently turn an
// inactive create into an active product.
type Product struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"uniqueIndex;not null" json:"name"`
	Description  string         `json:"description"`
	Price        float64        `gorm:"not null" json:"price"`
	ComparePrice *float64       `json:"compare_price"` // struck-through price, nullable
	Quantity     int            `gorm:"default:0" json:"quantity"`
	Images       string         `json:"images"` // JSON array of image URLs
	IsFeatured   bool           `gorm:"default:false" json:"is_featured"`
	IsActive     bool           `json:"is_active"`
	CategoryID   uint           `gorm:"not null;index" json:"category_id"`
	Category     Category       `gorm:"foreignKey:CategoryID" json:"category"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
