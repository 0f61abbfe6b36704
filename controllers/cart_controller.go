package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/models"
	"github.com/manga-store/manga-store-api/services"
)

const guestCartSessionKey = "guest_cart"

// CartLineRequest represents the request body for adding a cart line
type CartLineRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

// UpdateCartItemRequest represents the request body for changing a line quantity
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// GetMyCart handles GET /api/v1/cart - returns the authenticated user's cart
func GetMyCart(c *gin.Context) {
	user, ok := findUserByToken(c)
	if !ok {
		return
	}

	db := config.GetDB()
	cart, err := services.GetOrCreateCart(db, user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch cart")
		return
	}

	if err := db.Preload("Items.Product").First(cart, cart.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch cart items")
		return
	}

	count, err := services.CartItemsCount(db, user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count cart items")
		return
	}

	respondData(c, http.StatusOK, gin.H{"cart": cart, "items_count": count})
}

// AddCartItem handles POST /api/v1/cart/items - adds a product to the cart
func AddCartItem(c *gin.Context) {
	user, ok := findUserByToken(c)
	if !ok {
		return
	}

	var req CartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	db := config.GetDB()
	if err := services.AddToCart(db, user.ID, req.ProductID, req.Quantity); err != nil {
		switch {
		case errors.Is(err, services.ErrProductUnavailable):
			respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found or unavailable")
		case errors.Is(err, services.ErrInsufficientStock):
			respondError(c, http.StatusConflict, "INSUFFICIENT_STOCK", "Not enough stock for the requested quantity")
		case errors.Is(err, services.ErrInvalidQuantity):
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Quantity must be positive")
		default:
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to add item to cart")
		}
		return
	}

	count, err := services.CartItemsCount(db, user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count cart items")
		return
	}

	respondData(c, http.StatusCreated, gin.H{"items_count": count})
}

// UpdateCartItem handles PUT /api/v1/cart/items/:id - changes a line quantity
func UpdateCartItem(c *gin.Context) {
	user, ok := findUserByToken(c)
	if !ok {
		return
	}

	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	db := config.GetDB()
	var item models.CartItem
	err := db.Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, user.ID).
		First(&item).Error
	if err != nil {
		respondError(c, http.StatusNotFound, "CART_ITEM_NOT_FOUND", "Cart item not found")
		return
	}

	var product models.Product
	if err := db.First(&product, item.ProductID).Error; err != nil {
		respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product no longer exists")
		return
	}
	if req.Quantity > product.Quantity {
		respondError(c, http.StatusConflict, "INSUFFICIENT_STOCK", "Not enough stock for the requested quantity")
		return
	}

	if err := db.Model(&item).Update("quantity", req.Quantity).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update cart item")
		return
	}

	respondData(c, http.StatusOK, item)
}

// RemoveCartItem handles DELETE /api/v1/cart/items/:id
func RemoveCartItem(c *gin.Context) {
	user, ok := findUserByToken(c)
	if !ok {
		return
	}

	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var item models.CartItem
	err := db.Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, user.ID).
		First(&item).Error
	if err != nil {
		respondError(c, http.StatusNotFound, "CART_ITEM_NOT_FOUND", "Cart item not found")
		return
	}

	if err := db.Delete(&item).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to remove cart item")
		return
	}

	respondData(c, http.StatusOK, gin.H{"deleted": true})
}

// GetGuestCart handles GET /api/v1/guest-cart - returns the session cart of
// an anonymous visitor
func GetGuestCart(c *gin.Context) {
	lines := readGuestCart(c)
	respondData(c, http.StatusOK, gin.H{"items": lines})
}

// AddGuestCartItem handles POST /api/v1/guest-cart/items - adds a product to
// the anonymous session cart. Stock is validated but not reserved.
func AddGuestCartItem(c *gin.Context) {
	var req CartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.Where("is_active = ?", true).First(&product, req.ProductID).Error; err != nil {
		respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found or unavailable")
		return
	}

	lines := readGuestCart(c)
	found := false
	for i := range lines {
		if lines[i].ProductID == req.ProductID {
			lines[i].Quantity += req.Quantity
			if lines[i].Quantity > product.Quantity {
				lines[i].Quantity = product.Quantity
			}
			found = true
			break
		}
	}
	if !found {
		quantity := req.Quantity
		if quantity > product.Quantity {
			quantity = product.Quantity
		}
		lines = append(lines, models.GuestCartLine{ProductID: req.ProductID, Quantity: quantity})
	}

	if err := writeGuestCart(c, lines); err != nil {
		respondError(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to save guest cart")
		return
	}

	respondData(c, http.StatusCreated, gin.H{"items": lines})
}

// RemoveGuestCartItem handles DELETE /api/v1/guest-cart/items/:id where :id
// is the product id
func RemoveGuestCartItem(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lines := readGuestCart(c)
	kept := lines[:0]
	for _, line := range lines {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}

	if err := writeGuestCart(c, kept); err != nil {
		respondError(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to save guest cart")
		return
	}

	respondData(c, http.StatusOK, gin.H{"items": kept})
}

// MergeGuestCart handles POST /api/v1/cart/merge - folds the anonymous
// session cart into the authenticated user's persisted cart, then clears
// the session. Merged quantities never exceed available stock.
func MergeGuestCart(c *gin.Context) {
	user, ok := findUserByToken(c)
	if !ok {
		return
	}

	lines := readGuestCart(c)
	db := config.GetDB()
	if err := services.MergeGuestCart(db, user.ID, lines); err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to merge guest cart")
		return
	}

	if err := writeGuestCart(c, nil); err != nil {
		respondError(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to clear guest cart")
		return
	}

	count, err := services.CartItemsCount(db, user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count cart items")
		return
	}

	respondData(c, http.StatusOK, gin.H{"merged": len(lines), "items_count": count})
}

// readGuestCart decodes the guest cart lines stored in the cookie session
func readGuestCart(c *gin.Context) []models.GuestCartLine {
	session := sessions.Default(c)
	raw, ok := session.Get(guestCartSessionKey).(string)
	if !ok || raw == "" {
		return nil
	}
	var lines []models.GuestCartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil
	}
	return lines
}

// writeGuestCart stores the guest cart lines back into the cookie session.
// Passing nil or an empty slice clears the cart.
func writeGuestCart(c *gin.Context, lines []models.GuestCartLine) error {
	session := sessions.Default(c)
	if len(lines) == 0 {
		session.Delete(guestCartSessionKey)
		return session.Save()
	}
	encoded, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	session.Set(guestCartSessionKey, string(encoded))
	return session.Save()
}
