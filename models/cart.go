package models

import (
	"time"

	"gorm.io/gorm"
)

// Cart is the persisted cart of an authenticated customer
type Cart struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Items []CartItem `gorm:"foreignKey:CartID" json:"items"`
}

// TableName specifies the table name for the Cart model
func (Cart) TableName() string {
	return "carts"
}

// CartItem is one product line inside a persisted cart
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;index" json:"cart_id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"`
	Quantity  int       `gorm:"default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the CartItem model
func (CartItem) TableName() string {
	return "cart_items"
}

// GuestCartLine is one product line held in an anonymous visitor's session.
// Guest carts are merged into the user's persisted cart on login.
type GuestCartLine struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}
