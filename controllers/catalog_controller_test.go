package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/models"
)

func catalogAdminRouter() *gin.Engine {
	router := setupTestRouter()
	admin := router.Group("/admin", mockAuthMiddleware("auth0|admin", "", "token"))
	admin.POST("/categories", AdminCreateCategory)
	admin.PUT("/categories/:id", AdminUpdateCategory)
	admin.DELETE("/categories/:id", AdminDeleteCategory)
	admin.POST("/products", AdminCreateProduct)
	admin.PUT("/products/:id", AdminUpdateProduct)
	admin.DELETE("/products/:id", AdminDeleteProduct)
	return router
}

func TestListProducts_FiltersInactive(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	category := models.Category{Name: "Shonen"}
	assert.NoError(t, db.Create(&category).Error)

	products := []models.Product{
		{Name: "One Piece Vol. 1", Price: 9.99, Quantity: 10, CategoryID: category.ID, IsActive: true},
		{Name: "Out of Print", Price: 5.99, Quantity: 0, CategoryID: category.ID, IsActive: false},
	}
	for i := range products {
		assert.NoError(t, db.Create(&products[i]).Error)
	}

	router := setupTestRouter()
	router.GET("/products", ListProducts)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeResponse(t, w)
	data := response["data"].([]interface{})
	assert.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "One Piece Vol. 1", first["name"])
}

func TestListProducts_SearchFilter(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	category := models.Category{Name: "Shonen"}
	assert.NoError(t, db.Create(&category).Error)

	products := []models.Product{
		{Name: "One Piece Vol. 1", Price: 9.99, Quantity: 10, CategoryID: category.ID, IsActive: true},
		{Name: "Naruto Vol. 1", Price: 8.99, Quantity: 4, CategoryID: category.ID, IsActive: true},
	}
	for i := range products {
		assert.NoError(t, db.Create(&products[i]).Error)
	}

	router := setupTestRouter()
	router.GET("/products", ListProducts)

	req := httptest.NewRequest(http.MethodGet, "/products?q=Naruto", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeResponse(t, w)
	data := response["data"].([]interface{})
	assert.Len(t, data, 1)
}

func TestGetProduct_InactiveHidden(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	category := models.Category{Name: "Shonen"}
	assert.NoError(t, db.Create(&category).Error)
	product := models.Product{Name: "Out of Print", Price: 5.99, CategoryID: category.ID, IsActive: false}
	assert.NoError(t, db.Create(&product).Error)

	router := setupTestRouter()
	router.GET("/products/:id", GetProduct)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/products/%d", product.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminCreateProduct(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	createTestAdmin(t, db, "auth0|admin", false, "manage_products")
	category := models.Category{Name: "Shonen"}
	assert.NoError(t, db.Create(&category).Error)

	quantity := 12
	router := catalogAdminRouter()
	body, _ := json.Marshal(ProductRequest{
		Name:       "Berserk Deluxe Vol. 1",
		Price:      49.99,
		Quantity:   &quantity,
		CategoryID: category.ID,
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/products", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code, "Response body: %s", w.Body.String())
	response := decodeResponse(t, w)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "Berserk Deluxe Vol. 1", data["name"])
	assert.Equal(t, float64(12), data["quantity"])
}

func TestAdminCreateProduct_InactiveStaysHidden(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	createTestAdmin(t, db, "auth0|admin", false, "manage_products")
	category := models.Category{Name: "Shonen", IsActive: true}
	assert.NoError(t, db.Create(&category).Error)

	inactive := false
	router := catalogAdminRouter()
	router.GET("/products", ListProducts)

	body, _ := json.Marshal(ProductRequest{
		Name:       "Unreleased Vol. 1",
		Price:      9.99,
		CategoryID: category.ID,
		IsActive:   &inactive,
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/products", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code, "Response body: %s", w.Body.String())

	// The inactive flag survives the insert.
	var product models.Product
	assert.NoError(t, db.Where("name = ?", "Unreleased Vol. 1").First(&product).Error)
	assert.False(t, product.IsActive)

	// And the product does not leak onto the storefront.
	req = httptest.NewRequest(http.MethodGet, "/products", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeResponse(t, w)
	assert.Empty(t, response["data"])
}

func TestAdminCreateProduct_UnknownCategory(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	createTestAdmin(t, db, "auth0|admin", false, "manage_products")

	router := catalogAdminRouter()
	body, _ := json.Marshal(ProductRequest{Name: "Orphan", Price: 9.99, CategoryID: 42})
	req := httptest.NewRequest(http.MethodPost, "/admin/products", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decodeResponse(t, w)
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "CATEGORY_NOT_FOUND", errorData["code"])
}

func TestAdminDeleteCategory_InUse(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	createTestAdmin(t, db, "auth0|admin", false, "manage_products")
	category := models.Category{Name: "Shonen"}
	assert.NoError(t, db.Create(&category).Error)
	product := models.Product{Name: "One Piece Vol. 1", Price: 9.99, CategoryID: category.ID, IsActive: true}
	assert.NoError(t, db.Create(&product).Error)

	router := catalogAdminRouter()
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/admin/categories/%d", category.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	response := decodeResponse(t, w)
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "CATEGORY_IN_USE", errorData["code"])

	var count int64
	assert.NoError(t, db.Model(&models.Category{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAdminDeleteProduct_SoftDelete(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	createTestAdmin(t, db, "auth0|admin", false, "manage_products")
	category := models.Category{Name: "Shonen"}
	assert.NoError(t, db.Create(&category).Error)
	product := models.Product{Name: "One Piece Vol. 1", Price: 9.99, CategoryID: category.ID, IsActive: true}
	assert.NoError(t, db.Create(&product).Error)

	router := catalogAdminRouter()
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/admin/products/%d", product.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// Soft deleted: gone from normal queries, still present unscoped.
	var count int64
	assert.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.NoError(t, db.Unscoped().Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetShopSettings_CreatesDefaults(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	router := setupTestRouter()
	router.GET("/settings", GetShopSettings)

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeResponse(t, w)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "Manga Store", data["shop_name"])
	assert.Equal(t, "USD", data["currency"])
}
