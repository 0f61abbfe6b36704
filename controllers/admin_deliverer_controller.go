package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/middleware"
	"github.com/manga-store/manga-store-api/models"
	"github.com/manga-store/manga-store-api/services"
)

// DelivererRequest represents the request body for creating or updating a courier
type DelivererRequest struct {
	Auth0ID   string `json:"auth0_id"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	IsActive  *bool  `json:"is_active"`
}

// AdminListDeliverers handles GET /api/v1/admin/deliverers
func AdminListDeliverers(c *gin.Context) {
	db := config.GetDB()
	var deliverers []models.Deliverer
	if err := db.Order("created_at desc").Find(&deliverers).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch couriers")
		return
	}
	respondData(c, http.StatusOK, deliverers)
}

// AdminCreateDeliverer handles POST /api/v1/admin/deliverers - registers a
// courier and sends a welcome email
func AdminCreateDeliverer(c *gin.Context) {
	var req DelivererRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}
	if req.Auth0ID == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "auth0_id is required")
		return
	}

	deliverer := models.Deliverer{
		Auth0ID:   req.Auth0ID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		IsActive:  true,
		Status:    models.DelivererAvailable,
	}
	if req.IsActive != nil {
		deliverer.IsActive = *req.IsActive
	}

	db := config.GetDB()
	if err := db.Create(&deliverer).Error; err != nil {
		if isDuplicateKeyError(err) {
			respondError(c, http.StatusConflict, "DELIVERER_EXISTS", "A courier with this Auth0 ID or email already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create courier")
		return
	}

	if actor, ok := middleware.CurrentUser(c); ok {
		services.LogActivity(db, actor, "deliverer.create", deliverer.Email)
	}
	sendDelivererWelcome(&deliverer)

	respondData(c, http.StatusCreated, deliverer)
}

// AdminGetDeliverer handles GET /api/v1/admin/deliverers/:id - courier
// details with pending payout and paid history
func AdminGetDeliverer(c *gin.Context) {
	deliverer, ok := findDeliverer(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var pending []models.DeliveryAssignment
	err := db.Preload("Order").
		Where("deliverer_id = ? AND payout_status = ? AND commission_recorded = ?",
			deliverer.ID, models.PayoutPending, true).
		Order("completed_at asc").
		Find(&pending).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch pending payouts")
		return
	}

	var paid []models.DeliveryAssignment
	err = db.Preload("Order").
		Where("deliverer_id = ? AND payout_status = ?", deliverer.ID, models.PayoutPaid).
		Order("completed_at desc").
		Limit(100).
		Find(&paid).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch payout history")
		return
	}

	bonuses, err := services.WeeklyBonusOutstanding(db, deliverer, time.Now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute weekly bonus")
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"deliverer":                deliverer,
		"pending_assignments":      pending,
		"paid_assignments":         paid,
		"outstanding_bonus_blocks": bonuses,
	})
}

// AdminUpdateDeliverer handles PUT /api/v1/admin/deliverers/:id
func AdminUpdateDeliverer(c *gin.Context) {
	deliverer, ok := findDeliverer(c)
	if !ok {
		return
	}

	var req DelivererRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	updates := map[string]interface{}{
		"email":      req.Email,
		"first_name": req.FirstName,
		"last_name":  req.LastName,
		"phone":      req.Phone,
		"address":    req.Address,
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	db := config.GetDB()
	if err := db.Model(deliverer).Updates(updates).Error; err != nil {
		if isDuplicateKeyError(err) {
			respondError(c, http.StatusConflict, "DELIVERER_EXISTS", "A courier with this email already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update courier")
		return
	}

	if actor, ok := middleware.CurrentUser(c); ok {
		services.LogActivity(db, actor, "deliverer.update", deliverer.Email)
	}

	respondData(c, http.StatusOK, deliverer)
}

// AdminPayDeliverer handles POST /api/v1/admin/deliverers/:id/payout -
// settles every recorded pending commission and resets the balance
func AdminPayDeliverer(c *gin.Context) {
	deliverer, ok := findDeliverer(c)
	if !ok {
		return
	}

	db := config.GetDB()
	paidAmount := deliverer.CommissionDue
	if err := services.PayAllCommissions(db, deliverer); err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to settle commissions")
		return
	}

	if actor, ok := middleware.CurrentUser(c); ok {
		services.LogActivity(db, actor, "deliverer.payout", deliverer.Email)
	}

	respondData(c, http.StatusOK, gin.H{
		"paid_amount": paidAmount,
		"deliverer":   deliverer,
	})
}

// AdminPayWeeklyBonus handles POST /api/v1/admin/deliverers/:id/weekly-bonus.
// Pays $5 per full block of eight delivered assignments; already-paid blocks
// are never paid twice, even across repeated calls in the same week.
func AdminPayWeeklyBonus(c *gin.Context) {
	deliverer, ok := findDeliverer(c)
	if !ok {
		return
	}

	db := config.GetDB()
	blocks, amount, err := services.PayWeeklyBonus(db, deliverer, time.Now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to pay weekly bonus")
		return
	}

	if actor, ok := middleware.CurrentUser(c); ok {
		services.LogActivity(db, actor, "deliverer.weekly_bonus", deliverer.Email)
	}

	respondData(c, http.StatusOK, gin.H{
		"blocks_paid": blocks,
		"amount":      amount,
		"deliverer":   deliverer,
	})
}

// findDeliverer loads the courier named by the :id parameter.
// Writes the error response itself on failure.
func findDeliverer(c *gin.Context) (*models.Deliverer, bool) {
	delivererID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	db := config.GetDB()
	var deliverer models.Deliverer
	if err := db.First(&deliverer, delivererID).Error; err != nil {
		respondError(c, http.StatusNotFound, "DELIVERER_NOT_FOUND", "Courier not found")
		return nil, false
	}
	return &deliverer, true
}

// sendDelivererWelcome emails a newly registered courier. Best-effort.
func sendDelivererWelcome(deliverer *models.Deliverer) {
	sender := services.GetEmailSender()
	if sender == nil {
		return
	}
	body := "Hello " + deliverer.FirstName + ",\n\nYour courier account has been created. " +
		"Sign in with your registered email to see your assignments.\n"
	if err := sender.Send(deliverer.Email, "Welcome to the delivery team", body); err != nil {
		log.Printf("Failed to send welcome email to %s: %v", deliverer.Email, err)
	}
}
