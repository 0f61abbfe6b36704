package models

import "time"

// ShopSettings is the single-row store configuration used by the storefront
// and the PDF documents.
type ShopSettings struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ShopName        string    `gorm:"default:'Manga Store'" json:"shop_name"`
	ShopEmail       string    `json:"shop_email"`
	ShopPhone       string    `json:"shop_phone"`
	ShopAddress     string    `json:"shop_address"`
	FacebookURL     string    `json:"facebook_url"`
	WhatsappNumber  string    `json:"whatsapp_number"`
	TelegramURL     string    `json:"telegram_url"`
	Currency        string    `gorm:"default:'USD'" json:"currency"`
	TaxRate         float64   `gorm:"default:0" json:"tax_rate"`
	ShippingCost    float64   `gorm:"default:0" json:"shipping_cost"`
	ShippingCostOut float64   `gorm:"default:0" json:"shipping_cost_out"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for the ShopSettings model
func (ShopSettings) TableName() string {
	return "shop_settings"
}
