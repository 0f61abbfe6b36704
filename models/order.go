package models

import (
	"time"

	"gorm.io/gorm"
)

// Order represents a placed customer order.
//
// DeliveredAt anchors both revenue recognition and the deferred stock
// deduction: StockDeducted can only flip to true once, after the order has
// been delivered for at least the grace period.
type Order struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	OrderNumber       string         `gorm:"uniqueIndex;not null" json:"order_number"` // CMD-YYYYMMDD-<8HEX>
	UserID            uint           `gorm:"not null;index" json:"user_id"`
	Customer          User           `gorm:"foreignKey:UserID" json:"customer"`
	TotalAmount       float64        `gorm:"not null" json:"total_amount"`
	Status            OrderStatus    `gorm:"type:varchar(20);default:'pending'" json:"status"`
	ShippingAddress   string         `gorm:"not null" json:"shipping_address"`
	BillingAddress    string         `json:"billing_address"`
	ShippingLatitude  *float64       `json:"shipping_latitude"`
	ShippingLongitude *float64       `json:"shipping_longitude"`
	ShippingGeocoded  string         `json:"shipping_geocoded"`
	Notes             string         `json:"notes"`
	DeliveredAt       *time.Time     `json:"delivered_at"`
	StockDeducted     bool           `gorm:"default:false" json:"stock_deducted"`
	StatusChangedAt   *time.Time     `json:"status_changed_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	Items       []OrderItem          `gorm:"foreignKey:OrderID" json:"items"`
	Assignments []DeliveryAssignment `gorm:"foreignKey:OrderID" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a quantity/price snapshot taken at order time.
// Price is never re-read from the live product.
type OrderItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Price     float64   `gorm:"not null" json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
