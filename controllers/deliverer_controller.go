package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/middleware"
	"github.com/manga-store/manga-store-api/models"
	"github.com/manga-store/manga-store-api/services"
)

// UpdateAssignmentRequest represents a courier's status report on a delivery.
// The note is mandatory so every status change carries an explanation.
type UpdateAssignmentRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"required"`
}

// UpdateAvailabilityRequest represents a courier availability change
type UpdateAvailabilityRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListMyAssignments handles GET /api/v1/deliverer/assignments
func ListMyAssignments(c *gin.Context) {
	deliverer, ok := middleware.CurrentDeliverer(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Courier not found in context")
		return
	}

	db := config.GetDB()
	query := db.Preload("Order.Items.Product").Preload("Order.Customer").
		Where("deliverer_id = ?", deliverer.ID)
	if status := c.Query("status"); status != "" {
		parsed, ok := models.ParseAssignmentStatus(status)
		if !ok {
			respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown assignment status")
			return
		}
		query = query.Where("status = ?", parsed)
	}

	var assignments []models.DeliveryAssignment
	if err := query.Order("created_at desc").Find(&assignments).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch assignments")
		return
	}
	respondData(c, http.StatusOK, assignments)
}

// UpdateAssignmentStatus handles PUT /api/v1/deliverer/assignments/:id.
// Marking an assignment delivered records the completion time; the
// commission is credited once the parent order is delivered too.
func UpdateAssignmentStatus(c *gin.Context) {
	deliverer, ok := middleware.CurrentDeliverer(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Courier not found in context")
		return
	}

	assignmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Both status and note are required")
		return
	}

	status, valid := models.ParseAssignmentStatus(req.Status)
	if !valid {
		respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown assignment status")
		return
	}

	db := config.GetDB()
	var assignment models.DeliveryAssignment
	err := db.Preload("Order").
		Where("id = ? AND deliverer_id = ?", assignmentID, deliverer.ID).
		First(&assignment).Error
	if err != nil {
		respondError(c, http.StatusNotFound, "ASSIGNMENT_NOT_FOUND", "Assignment not found")
		return
	}

	if assignment.Status == models.AssignmentCancelled {
		respondError(c, http.StatusConflict, "ASSIGNMENT_CANCELLED", "Cancelled assignments cannot be updated")
		return
	}

	updates := map[string]interface{}{
		"status": status,
		"note":   req.Note,
	}
	if status == models.AssignmentDelivered && assignment.CompletedAt == nil {
		now := time.Now().UTC()
		updates["completed_at"] = now
		assignment.CompletedAt = &now
	}

	if err := db.Model(&assignment).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update assignment")
		return
	}
	assignment.Status = status
	assignment.Note = req.Note

	credited := false
	if status == models.AssignmentDelivered {
		credited, err = services.CreditAssignment(db, &assignment, &assignment.Order)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to credit commission")
			return
		}
	}

	respondData(c, http.StatusOK, gin.H{
		"assignment":          assignment,
		"commission_credited": credited,
	})
}

// UpdateMyAvailability handles PUT /api/v1/deliverer/availability
func UpdateMyAvailability(c *gin.Context) {
	deliverer, ok := middleware.CurrentDeliverer(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Courier not found in context")
		return
	}

	var req UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	status, valid := models.ParseDelivererStatus(req.Status)
	if !valid {
		respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown availability status")
		return
	}

	db := config.GetDB()
	if err := db.Model(deliverer).Update("status", status).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update availability")
		return
	}
	deliverer.Status = status

	respondData(c, http.StatusOK, deliverer)
}

// GetMyDelivererStats handles GET /api/v1/deliverer/stats - running balance
// plus a breakdown of the current month's completed deliveries
func GetMyDelivererStats(c *gin.Context) {
	deliverer, ok := middleware.CurrentDeliverer(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Courier not found in context")
		return
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	db := config.GetDB()
	var monthAssignments []models.DeliveryAssignment
	err := db.Preload("Order").
		Where("deliverer_id = ? AND status = ? AND completed_at >= ?",
			deliverer.ID, models.AssignmentDelivered, monthStart).
		Find(&monthAssignments).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch deliveries")
		return
	}

	monthEarnings := 0.0
	for _, a := range monthAssignments {
		completedAt := now
		if a.CompletedAt != nil {
			completedAt = *a.CompletedAt
		}
		monthEarnings += services.CommissionFor(a.Order.TotalAmount, completedAt)
	}

	bonusBlocks, err := services.WeeklyBonusOutstanding(db, deliverer, now)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute weekly bonus")
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"commission_due":           deliverer.CommissionDue,
		"month_deliveries":         len(monthAssignments),
		"month_earnings":           monthEarnings,
		"outstanding_bonus_blocks": bonusBlocks,
		"status":                   deliverer.Status,
	})
}

// GetMyDelivererProfile handles GET /api/v1/deliverer/me
func GetMyDelivererProfile(c *gin.Context) {
	deliverer, ok := middleware.CurrentDeliverer(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Courier not found in context")
		return
	}
	respondData(c, http.StatusOK, deliverer)
}
