package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/middleware"
	"github.com/manga-store/manga-store-api/models"
	"github.com/manga-store/manga-store-api/services"
)

// CategoryRequest represents the request body for creating or updating a category
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Icon        string `json:"icon"`
	IsActive    *bool  `json:"is_active"`
}

// ProductRequest represents the request body for creating or updating a product
type ProductRequest struct {
	Name         string   `json:"name" binding:"required"`
	Description  string   `json:"description"`
	Price        float64  `json:"price" binding:"required,gt=0"`
	ComparePrice *float64 `json:"compare_price"`
	Quantity     *int     `json:"quantity"`
	Images       string   `json:"images"`
	IsFeatured   *bool    `json:"is_featured"`
	IsActive     *bool    `json:"is_active"`
	CategoryID   uint     `json:"category_id" binding:"required"`
}

// ListCategories handles GET /api/v1/categories - lists active categories
func ListCategories(c *gin.Context) {
	db := config.GetDB()
	var categories []models.Category
	if err := db.Where("is_active = ?", true).Order("name asc").Find(&categories).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch categories")
		return
	}
	respondData(c, http.StatusOK, categories)
}

// ListProducts handles GET /api/v1/products - lists active products with
// optional category and featured filters
func ListProducts(c *gin.Context) {
	db := config.GetDB()
	query := db.Preload("Category").Where("is_active = ?", true)

	if categoryID := c.Query("category_id"); categoryID != "" {
		id, err := strconv.ParseUint(categoryID, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid category_id")
			return
		}
		query = query.Where("category_id = ?", uint(id))
	}
	if c.Query("featured") == "true" {
		query = query.Where("is_featured = ?", true)
	}
	if search := c.Query("q"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var products []models.Product
	if err := query.Order("created_at desc").Find(&products).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch products")
		return
	}
	respondData(c, http.StatusOK, products)
}

// GetProduct handles GET /api/v1/products/:id - fetches one active product
func GetProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.Preload("Category").Where("is_active = ?", true).First(&product, productID).Error; err != nil {
		respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
		return
	}
	respondData(c, http.StatusOK, product)
}

// GetShopSettings handles GET /api/v1/settings - returns the storefront settings
func GetShopSettings(c *gin.Context) {
	settings, err := loadShopSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch shop settings")
		return
	}
	respondData(c, http.StatusOK, settings)
}

// AdminListCategories handles GET /api/v1/admin/categories - lists all
// categories including inactive ones
func AdminListCategories(c *gin.Context) {
	db := config.GetDB()
	var categories []models.Category
	if err := db.Order("name asc").Find(&categories).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch categories")
		return
	}
	respondData(c, http.StatusOK, categories)
}

// AdminCreateCategory handles POST /api/v1/admin/categories
func AdminCreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	category := models.Category{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Icon:        req.Icon,
		IsActive:    true,
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	db := config.GetDB()
	if err := db.Create(&category).Error; err != nil {
		if isDuplicateKeyError(err) {
			respondError(c, http.StatusConflict, "CATEGORY_EXISTS", "A category with this name already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category")
		return
	}

	if actor, ok := middleware.CurrentUser(c); ok {
		services.LogActivity(db, actor, "category.create", category.Name)
	}

	respondData(c, http.StatusCreated, category)
}

// AdminUpdateCategory handles PUT /api/v1/admin/categories/:id
func AdminUpdateCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	db := config.GetDB()
	var category models.Category
	if err := db.First(&category, categoryID).Error; err != nil {
		respondError(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"image":       req.Image,
		"icon":        req.Icon,
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := db.Model(&category).Updates(updates).Error; err != nil {
		if isDuplicateKeyError(err) {
			respondError(c, http.StatusConflict, "CATEGORY_EXISTS", "A category with this name already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category")
		return
	}

	if actor, ok := middleware.CurrentUser(c); ok {
		services.LogActivity(db, actor, "category.update", category.Name)
	}

	respondData(c, http.StatusOK, category)
}

// AdminDeleteCategory handles DELETE /api/v1/admin/categories/:id.
// Categories still referenced by products cannot be removed.
func AdminDeleteCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var category models.Category
	if err := db.First(&category, categoryID).Error; err != nil {
		respondError(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}

	var productCount int64
	if err := db.Model(&models.Product{}).Where("category_id = ?", category.ID).Count(&productCount).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check category usage")
		return
	}
	if productCount > 0 {
		respondError(c, http.StatusConflict, "CATEGORY_IN_USE", "Category still has products and cannot be deleted")
		return
	}

	if err := db.Delete(&category).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category")
		return
	}

	if actor, ok := middleware.CurrentUser(c); ok {
		services.LogActivity(db, actor, "category.delete", category.Name)
	}

	respondData(c, http.StatusOK, gin.H{"deleted": true})
}

// AdminListProducts handles GET /api/v1/admin/products - all products,
// inactive included
func AdminListProducts(c *gin.Context) {
	db := config.GetDB()
	var products []models.Product
	if err := db.Preload("Category").Order("created_at desc").Find(&products).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch products")
		return
	}
	respondData(c, http.StatusOK, products)
}

// AdminCreateProduct handles POST /api/v1/admin/products
func AdminCreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	db := config.GetDB()
	var category models.Category
	if err := db.First(&category, req.CategoryID).Error; err != nil {
		respondError(c, http.StatusBadRequest, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}

	product := models.Product{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		ComparePrice: req.ComparePrice,
		Images:       req.Images,
		CategoryID:   req.CategoryID,
		IsActive:     true,
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Quantity cannot be negative")
			return
		}
		product.Quantity = *req.Quantity
	}
	if req.IsFeatured != nil {
		product.IsFeatured = *req.IsFeatured
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := db.Create(&product).Error; err != nil {
		if isDuplicateKeyError(err) {
			respondError(c, http.StatusConflict, "PRODUCT_EXISTS", "A product with this name already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product")
		return
	}

	if err := db.Preload("Category").First(&product, product.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load product details")
		return
	}

	if actor, ok := middleware.CurrentUser(c); ok {
		services.LogActivity(db, actor, "product.create", product.Name)
	}

	respondData(c, http.StatusCreated, product)
}

// AdminUpdateProduct handles PUT /api/v1/admin/products/:id
func AdminUpdateProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
		return
	}

	if req.CategoryID != product.CategoryID {
		var category models.Category
		if err := db.First(&category, req.CategoryID).Error; err != nil {
			respondError(c, http.StatusBadRequest, "CATEGORY_NOT_FOUND", "Category not found")
			return
		}
	}

	updates := map[string]interface{}{
		"name":          req.Name,
		"description":   req.Description,
		"price":         req.Price,
		"compare_price": req.ComparePrice,
		"images":        req.Images,
		"category_id":   req.CategoryID,
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Quantity cannot be negative")
			return
		}
		updates["quantity"] = *req.Quantity
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := db.Model(&product).Updates(updates).Error; err != nil {
		if isDuplicateKeyError(err) {
			respondError(c, http.StatusConflict, "PRODUCT_EXISTS", "A product with this name already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product")
		return
	}

	if err := db.Preload("Category").First(&product, product.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load product details")
		return
	}

	if actor, ok := middleware.CurrentUser(c); ok {
		services.LogActivity(db, actor, "product.update", product.Name)
	}

	respondData(c, http.StatusOK, product)
}

// AdminDeleteProduct handles DELETE /api/v1/admin/products/:id (soft delete)
func AdminDeleteProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
		return
	}

	if err := db.Delete(&product).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product")
		return
	}

	if actor, ok := middleware.CurrentUser(c); ok {
		services.LogActivity(db, actor, "product.delete", product.Name)
	}

	respondData(c, http.StatusOK, gin.H{"deleted": true})
}

// AdminUpdateShopSettings handles PUT /api/v1/admin/settings
func AdminUpdateShopSettings(c *gin.Context) {
	settings, err := loadShopSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch shop settings")
		return
	}

	var req models.ShopSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	db := config.GetDB()
	updates := map[string]interface{}{
		"shop_name":         req.ShopName,
		"shop_email":        req.ShopEmail,
		"shop_phone":        req.ShopPhone,
		"shop_address":      req.ShopAddress,
		"facebook_url":      req.FacebookURL,
		"whatsapp_number":   req.WhatsappNumber,
		"telegram_url":      req.TelegramURL,
		"currency":          req.Currency,
		"tax_rate":          req.TaxRate,
		"shipping_cost":     req.ShippingCost,
		"shipping_cost_out": req.ShippingCostOut,
	}
	if err := db.Model(settings).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update shop settings")
		return
	}

	if actor, ok := middleware.CurrentUser(c); ok {
		services.LogActivity(db, actor, "settings.update", "")
	}

	respondData(c, http.StatusOK, settings)
}

// loadShopSettings fetches the settings row, creating the defaults on first use
func loadShopSettings() (*models.ShopSettings, error) {
	db := config.GetDB()
	var settings models.ShopSettings
	if err := db.First(&settings).Error; err != nil {
		settings = models.ShopSettings{ShopName: "Manga Store", Currency: "USD"}
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
	}
	return &settings, nil
}

// parseIDParam parses a positive integer path parameter, responding with a
// validation error on failure
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid "+name+" parameter")
		return 0, false
	}
	return uint(id), true
}
