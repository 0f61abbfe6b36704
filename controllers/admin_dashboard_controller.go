package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/models"
	"github.com/manga-store/manga-store-api/services"
)

// ClientSummary is one row of the back-office client list
type ClientSummary struct {
	models.User
	OrdersCount     int64   `json:"orders_count"`
	RecognizedSpend float64 `json:"recognized_spend"`
}

// AdminGetDashboard handles GET /api/v1/admin/dashboard - headline counters
// plus recognized revenue. Revenue only counts orders delivered for at least
// an hour, matching the stock deduction cutoff.
func AdminGetDashboard(c *gin.Context) {
	db := config.GetDB()

	if n, err := services.ReconcileDueStockDeductions(db); err != nil {
		log.Printf("Stock reconciliation failed: %v", err)
	} else if n > 0 {
		log.Printf("Reconciled %d overdue stock deductions", n)
	}

	var (
		ordersCount     int64
		pendingCount    int64
		deliveredCount  int64
		clientsCount    int64
		productsCount   int64
		deliverersCount int64
	)
	counts := []func() error{
		func() error { return db.Model(&models.Order{}).Count(&ordersCount).Error },
		func() error {
			return db.Model(&models.Order{}).Where("status = ?", models.OrderPending).Count(&pendingCount).Error
		},
		func() error {
			return db.Model(&models.Order{}).Where("status = ?", models.OrderDelivered).Count(&deliveredCount).Error
		},
		func() error {
			return db.Model(&models.User{}).Where("is_admin = ? AND is_super_admin = ?", false, false).Count(&clientsCount).Error
		},
		func() error { return db.Model(&models.Product{}).Count(&productsCount).Error },
		func() error { return db.Model(&models.Deliverer{}).Count(&deliverersCount).Error },
	}
	for _, count := range counts {
		if err := count(); err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute dashboard counters")
			return
		}
	}

	revenue, err := services.ComputeRecognizedRevenue(db)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute revenue")
		return
	}

	var lowStock []models.Product
	if err := db.Where("is_active = ? AND quantity <= ?", true, 5).Order("quantity asc").Limit(10).Find(&lowStock).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch low-stock products")
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"orders_count":       ordersCount,
		"pending_orders":     pendingCount,
		"delivered_orders":   deliveredCount,
		"clients_count":      clientsCount,
		"products_count":     productsCount,
		"deliverers_count":   deliverersCount,
		"recognized_revenue": revenue,
		"low_stock":          lowStock,
	})
}

// AdminListClients handles GET /api/v1/admin/clients - customers with their
// order counts and recognized spend
func AdminListClients(c *gin.Context) {
	db := config.GetDB()
	var clients []models.User
	err := db.Where("is_admin = ? AND is_super_admin = ?", false, false).
		Order("created_at desc").
		Find(&clients).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch clients")
		return
	}

	summaries := make([]ClientSummary, 0, len(clients))
	for _, client := range clients {
		var ordersCount int64
		if err := db.Model(&models.Order{}).Where("user_id = ?", client.ID).Count(&ordersCount).Error; err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count client orders")
			return
		}
		spend, err := services.RecognizedSpendForUser(db, client.ID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute client spend")
			return
		}
		summaries = append(summaries, ClientSummary{
			User:            client,
			OrdersCount:     ordersCount,
			RecognizedSpend: spend,
		})
	}

	respondData(c, http.StatusOK, summaries)
}

// AdminToggleClient handles PUT /api/v1/admin/clients/:id/active - enables
// or disables a customer account
func AdminToggleClient(c *gin.Context) {
	clientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var client models.User
	if err := db.Where("is_admin = ? AND is_super_admin = ?", false, false).First(&client, clientID).Error; err != nil {
		respondError(c, http.StatusNotFound, "CLIENT_NOT_FOUND", "Client not found")
		return
	}

	if err := db.Model(&client).Update("is_active", !client.IsActive).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update client")
		return
	}
	client.IsActive = !client.IsActive

	respondData(c, http.StatusOK, client)
}

// AdminGetStockCatalog handles GET /api/v1/admin/stock-catalog - returns the
// full product catalog as a PDF with QR codes
func AdminGetStockCatalog(c *gin.Context) {
	db := config.GetDB()
	var products []models.Product
	if err := db.Preload("Category").Order("name asc").Find(&products).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch products")
		return
	}

	settings, err := loadShopSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch shop settings")
		return
	}

	pdfBytes, err := services.GenerateStockCatalogPDF(products, settings)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "PDF_ERROR", "Failed to generate stock catalog")
		return
	}

	c.Header("Content-Disposition", "attachment; filename=stock-catalog.pdf")
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// AdminListActivity handles GET /api/v1/admin/activity - pages through the
// audit trail, newest first
func AdminListActivity(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid limit parameter")
			return
		}
		limit = parsed
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid offset parameter")
			return
		}
		offset = parsed
	}

	db := config.GetDB()
	var entries []models.ActivityLog
	err := db.Order("created_at desc").Limit(limit).Offset(offset).Find(&entries).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch activity log")
		return
	}
	respondData(c, http.StatusOK, entries)
}
