package controllers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/models"
	"github.com/manga-store/manga-store-api/services"
)

// CheckoutRequest represents the request body for placing an order.
// Coordinates picked on the storefront map take precedence; geocoding only
// runs when they are absent.
type CheckoutRequest struct {
	ShippingAddress   string   `json:"shipping_address" binding:"required"`
	BillingAddress    string   `json:"billing_address"`
	Notes             string   `json:"notes"`
	ShippingLatitude  *float64 `json:"shipping_latitude"`
	ShippingLongitude *float64 `json:"shipping_longitude"`
	ShippingGeocoded  string   `json:"shipping_geocoded"`
}

// Checkout handles POST /api/v1/orders - turns the user's cart into an order.
// Stock is re-checked against current quantities and item prices are
// snapshotted; the actual deduction is deferred until delivery.
func Checkout(c *gin.Context) {
	user, ok := findUserByToken(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	db := config.GetDB()
	var cart models.Cart
	if err := db.Preload("Items.Product").Where("user_id = ?", user.ID).First(&cart).Error; err != nil {
		respondError(c, http.StatusBadRequest, "EMPTY_CART", "Your cart is empty")
		return
	}
	if len(cart.Items) == 0 {
		respondError(c, http.StatusBadRequest, "EMPTY_CART", "Your cart is empty")
		return
	}

	var order models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		total := 0.0
		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			var product models.Product
			if err := tx.First(&product, line.ProductID).Error; err != nil {
				return &checkoutError{"PRODUCT_NOT_FOUND", fmt.Sprintf("Product %d no longer exists", line.ProductID)}
			}
			if !product.IsActive {
				return &checkoutError{"PRODUCT_UNAVAILABLE", fmt.Sprintf("%s is no longer available", product.Name)}
			}
			if line.Quantity > product.Quantity {
				return &checkoutError{"INSUFFICIENT_STOCK", fmt.Sprintf("Not enough stock for %s", product.Name)}
			}

			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				Price:     product.Price, // snapshot, never re-read
			})
			total += product.Price * float64(line.Quantity)
		}

		order = models.Order{
			OrderNumber:       services.GenerateOrderNumber(time.Now()),
			UserID:            user.ID,
			TotalAmount:       total,
			Status:            models.OrderPending,
			ShippingAddress:   req.ShippingAddress,
			BillingAddress:    req.BillingAddress,
			Notes:             req.Notes,
			ShippingLatitude:  req.ShippingLatitude,
			ShippingLongitude: req.ShippingLongitude,
			ShippingGeocoded:  req.ShippingGeocoded,
			Items:             items,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		if ce, ok := err.(*checkoutError); ok {
			respondError(c, http.StatusConflict, ce.code, ce.message)
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to place order")
		return
	}

	if order.ShippingLatitude == nil || order.ShippingLongitude == nil {
		geocodeOrderAddress(db, &order)
	}
	sendOrderConfirmation(user, &order)

	if err := db.Preload("Items.Product").Preload("Customer").First(&order, order.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load order details")
		return
	}

	respondData(c, http.StatusCreated, order)
}

// ListMyOrders handles GET /api/v1/orders - lists the user's orders
func ListMyOrders(c *gin.Context) {
	user, ok := findUserByToken(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var orders []models.Order
	err := db.Preload("Items.Product").
		Where("user_id = ?", user.ID).
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch orders")
		return
	}
	respondData(c, http.StatusOK, orders)
}

// GetMyOrder handles GET /api/v1/orders/:id - fetches one of the user's orders
func GetMyOrder(c *gin.Context) {
	user, ok := findUserByToken(c)
	if !ok {
		return
	}

	order, ok := findOwnOrder(c, user.ID)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, order)
}

// GetMyOrderInvoice handles GET /api/v1/orders/:id/invoice - returns the
// order invoice as a PDF download
func GetMyOrderInvoice(c *gin.Context) {
	user, ok := findUserByToken(c)
	if !ok {
		return
	}

	order, ok := findOwnOrder(c, user.ID)
	if !ok {
		return
	}

	settings, err := loadShopSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch shop settings")
		return
	}

	pdfBytes, err := services.GenerateInvoicePDF(order, settings)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "PDF_ERROR", "Failed to generate invoice")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", order.OrderNumber))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// findOwnOrder loads the order named by the :id parameter, scoped to the
// given user. Writes the error response itself on failure.
func findOwnOrder(c *gin.Context, userID uint) (*models.Order, bool) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	db := config.GetDB()
	var order models.Order
	err := db.Preload("Items.Product").Preload("Customer").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return nil, false
	}
	return &order, true
}

// geocodeOrderAddress resolves the shipping address to coordinates.
// Best-effort: failures are logged and the order keeps unset coordinates.
func geocodeOrderAddress(db *gorm.DB, order *models.Order) {
	geocoder := services.GetGeocoder()
	if geocoder == nil {
		return
	}
	result, err := geocoder.Geocode(order.ShippingAddress)
	if err != nil {
		log.Printf("Failed to geocode address for order %s: %v", order.OrderNumber, err)
		return
	}

	updates := map[string]interface{}{
		"shipping_latitude":  result.Latitude,
		"shipping_longitude": result.Longitude,
		"shipping_geocoded":  result.DisplayName,
	}
	if err := db.Model(order).Updates(updates).Error; err != nil {
		log.Printf("Failed to save coordinates for order %s: %v", order.OrderNumber, err)
		return
	}
	order.ShippingLatitude = &result.Latitude
	order.ShippingLongitude = &result.Longitude
	order.ShippingGeocoded = result.DisplayName
}

// sendOrderConfirmation emails the customer. Best-effort, failures are logged.
func sendOrderConfirmation(user *models.User, order *models.Order) {
	sender := services.GetEmailSender()
	if sender == nil {
		return
	}
	subject := fmt.Sprintf("Order %s received", order.OrderNumber)
	body := fmt.Sprintf(
		"Hello %s,\n\nWe received your order %s for a total of %.2f. We will let you know once it ships.\n",
		user.FirstName, order.OrderNumber, order.TotalAmount,
	)
	if err := sender.Send(user.Email, subject, body); err != nil {
		log.Printf("Failed to send confirmation for order %s: %v", order.OrderNumber, err)
	}
}

// checkoutError carries a response code for a stock or availability failure
// detected inside the checkout transaction
type checkoutError struct {
	code    string
	message string
}

func (e *checkoutError) Error() string {
	return e.message
}
