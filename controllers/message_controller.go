package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/middleware"
	"github.com/manga-store/manga-store-api/models"
)

// CreateMessageRequest represents the request body for posting a message
type CreateMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// orderParticipant identifies who the caller is within an order conversation
type orderParticipant struct {
	role        string // client, admin, deliverer
	userID      *uint
	delivererID *uint
}

// ListOrderMessages handles GET /api/v1/orders/:id/messages - the
// conversation is visible to the customer, the back office and the
// assigned courier only
func ListOrderMessages(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, ok := resolveParticipant(c, orderID); !ok {
		return
	}

	db := config.GetDB()
	var messages []models.Message
	err := db.Preload("Sender").
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&messages).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch messages")
		return
	}
	respondData(c, http.StatusOK, messages)
}

// CreateOrderMessage handles POST /api/v1/orders/:id/messages
func CreateOrderMessage(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	participant, ok := resolveParticipant(c, orderID)
	if !ok {
		return
	}

	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Message text is required")
		return
	}

	message := models.Message{
		OrderID:     orderID,
		SenderID:    participant.userID,
		DelivererID: participant.delivererID,
		SenderRole:  participant.role,
		Text:        req.Text,
	}

	db := config.GetDB()
	if err := db.Create(&message).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create message")
		return
	}

	if err := db.Preload("Sender").First(&message, message.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load message details")
		return
	}
	respondData(c, http.StatusCreated, message)
}

// resolveParticipant checks that the caller belongs to the order's
// conversation and classifies them. Writes the error response itself when
// the caller has no business in the thread.
func resolveParticipant(c *gin.Context, orderID uint) (*orderParticipant, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return nil, false
	}

	db := config.GetDB()
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return nil, false
	}

	var user models.User
	if err := db.Where("auth0_id = ?", auth0ID).First(&user).Error; err == nil {
		if user.IsAdmin || user.IsSuperAdmin {
			return &orderParticipant{role: "admin", userID: &user.ID}, true
		}
		if order.UserID == user.ID {
			return &orderParticipant{role: "client", userID: &user.ID}, true
		}
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You are not part of this conversation")
		return nil, false
	}

	var deliverer models.Deliverer
	if err := db.Where("auth0_id = ?", auth0ID).First(&deliverer).Error; err == nil {
		var assignmentCount int64
		err := db.Model(&models.DeliveryAssignment{}).
			Where("order_id = ? AND deliverer_id = ? AND status <> ?",
				orderID, deliverer.ID, models.AssignmentCancelled).
			Count(&assignmentCount).Error
		if err == nil && assignmentCount > 0 {
			return &orderParticipant{role: "deliverer", delivererID: &deliverer.ID}, true
		}
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You are not assigned to this order")
		return nil, false
	}

	respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
	return nil, false
}
