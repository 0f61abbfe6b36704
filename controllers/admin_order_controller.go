package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/middleware"
	"github.com/manga-store/manga-store-api/models"
	"github.com/manga-store/manga-store-api/services"
)

// UpdateOrderStatusRequest represents the request body for a status change
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AssignDelivererRequest represents the request body for assigning a courier
type AssignDelivererRequest struct {
	DelivererID uint `json:"deliverer_id" binding:"required"`
}

// AdminListOrders handles GET /api/v1/admin/orders. Overdue deferred stock
// deductions are reconciled before listing so the back office always sees
// settled quantities.
func AdminListOrders(c *gin.Context) {
	db := config.GetDB()

	if n, err := services.ReconcileDueStockDeductions(db); err != nil {
		log.Printf("Stock reconciliation failed: %v", err)
	} else if n > 0 {
		log.Printf("Reconciled %d overdue stock deductions", n)
	}

	query := db.Preload("Items.Product").Preload("Customer")
	if status := c.Query("status"); status != "" {
		parsed, ok := models.ParseOrderStatus(status)
		if !ok {
			respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown order status")
			return
		}
		query = query.Where("status = ?", parsed)
	}

	var orders []models.Order
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch orders")
		return
	}
	respondData(c, http.StatusOK, orders)
}

// AdminGetOrder handles GET /api/v1/admin/orders/:id
func AdminGetOrder(c *gin.Context) {
	order, ok := findOrderForAdmin(c)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, order)
}

// AdminUpdateOrderStatus handles PUT /api/v1/admin/orders/:id/status.
// Orders lock for edits one hour after the last status change; super admins
// bypass the lock.
func AdminUpdateOrderStatus(c *gin.Context) {
	order, ok := findOrderForAdmin(c)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	status, valid := models.ParseOrderStatus(req.Status)
	if !valid {
		respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown order status")
		return
	}

	actor, _ := middleware.CurrentUser(c)
	db := config.GetDB()
	if err := services.UpdateOrderStatus(db, order, status, actor); err != nil {
		switch {
		case errors.Is(err, services.ErrStatusLocked):
			respondError(c, http.StatusConflict, "STATUS_LOCKED", "Order can no longer be edited")
		case errors.Is(err, services.ErrInvalidOrderStatus):
			respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown order status")
		default:
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order status")
		}
		return
	}

	services.LogActivity(db, actor, "order.status", order.OrderNumber+" -> "+string(status))

	if err := db.Preload("Items.Product").Preload("Customer").First(order, order.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load order details")
		return
	}
	respondData(c, http.StatusOK, order)
}

// AdminAssignDeliverer handles POST /api/v1/admin/orders/:id/assign.
// Delivered orders cannot be reassigned.
func AdminAssignDeliverer(c *gin.Context) {
	order, ok := findOrderForAdmin(c)
	if !ok {
		return
	}

	if order.Status == models.OrderDelivered {
		respondError(c, http.StatusConflict, "ORDER_DELIVERED", "Delivered orders cannot be reassigned")
		return
	}

	var req AssignDelivererRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	db := config.GetDB()
	var deliverer models.Deliverer
	if err := db.First(&deliverer, req.DelivererID).Error; err != nil {
		respondError(c, http.StatusNotFound, "DELIVERER_NOT_FOUND", "Courier not found")
		return
	}
	if !deliverer.IsActive {
		respondError(c, http.StatusConflict, "DELIVERER_INACTIVE", "Courier account is disabled")
		return
	}

	// One active assignment per order: a re-assignment cancels the old one.
	var existing models.DeliveryAssignment
	err := db.Where("order_id = ? AND status NOT IN ?", order.ID,
		[]models.AssignmentStatus{models.AssignmentCancelled, models.AssignmentDelivered}).
		First(&existing).Error
	if err == nil {
		if existing.DelivererID == deliverer.ID {
			respondError(c, http.StatusConflict, "ALREADY_ASSIGNED", "Order is already assigned to this courier")
			return
		}
		if err := db.Model(&existing).Update("status", models.AssignmentCancelled).Error; err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to release previous assignment")
			return
		}
	}

	assignment := models.DeliveryAssignment{
		OrderID:      order.ID,
		DelivererID:  deliverer.ID,
		Status:       models.AssignmentAssigned,
		PayoutStatus: models.PayoutPending,
	}
	if err := db.Create(&assignment).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to assign courier")
		return
	}

	actor, _ := middleware.CurrentUser(c)
	services.LogActivity(db, actor, "order.assign", order.OrderNumber+" -> "+deliverer.Email)
	notifyAssignment(&deliverer, order)

	if err := db.Preload("Deliverer").Preload("Order").First(&assignment, assignment.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load assignment details")
		return
	}
	respondData(c, http.StatusCreated, assignment)
}

// AdminGetOrderInvoice handles GET /api/v1/admin/orders/:id/invoice
func AdminGetOrderInvoice(c *gin.Context) {
	order, ok := findOrderForAdmin(c)
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

	c.Header("Content-Disposition", "attachment; filename=invoice-"+order.OrderNumber+".pdf")
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// findOrderForAdmin loads the order named by the :id parameter without a
// user scope. Writes the error response itself on failure.
func findOrderForAdmin(c *gin.Context) (*models.Order, bool) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	db := config.GetDB()
	var order models.Order
	err := db.Preload("Items.Product").Preload("Customer").First(&order, orderID).Error
	if err != nil {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return nil, false
	}
	return &order, true
}

// notifyAssignment emails the courier about a new delivery. Best-effort.
func notifyAssignment(deliverer *models.Deliverer, order *models.Order) {
	sender := services.GetEmailSender()
	if sender == nil {
		return
	}
	body := "Hello " + deliverer.FirstName + ",\n\nOrder " + order.OrderNumber +
		" has been assigned to you. Shipping address: " + order.ShippingAddress + "\n"
	if err := sender.Send(deliverer.Email, "New delivery assignment", body); err != nil {
		log.Printf("Failed to notify courier %s for order %s: %v", deliverer.Email, order.OrderNumber, err)
	}
}
