package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/manga-store/manga-store-api/models"
)

func createProduct(t *testing.T, db *gorm.DB, name string, quantity int, active bool) *models.Product {
	t.Helper()

	category := models.Category{Name: "Seinen " + name}
	assert.NoError(t, db.Create(&category).Error)

	product := models.Product{
		Name:       name,
		Price:      12.5,
		Quantity:   quantity,
		IsActive:   active,
		CategoryID: category.ID,
	}
	assert.NoError(t, db.Create(&product).Error)
	return &product
}

func TestAddToCart(t *testing.T) {
	db := newTestDB(t)
	product := createProduct(t, db, "Berserk Vol. 1", 5, true)

	assert.NoError(t, AddToCart(db, 1, product.ID, 2))

	count, err := CartItemsCount(db, 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	// Adding the same product merges into one line.
	assert.NoError(t, AddToCart(db, 1, product.ID, 3))
	count, err = CartItemsCount(db, 1)
	assert.NoError(t, err)
	assert.Equal(t, 5, count)

	var lines int64
	assert.NoError(t, db.Model(&models.CartItem{}).Count(&lines).Error)
	assert.Equal(t, int64(1), lines)
}

func TestAddToCart_Validation(t *testing.T) {
	db := newTestDB(t)
	product := createProduct(t, db, "Berserk Vol. 2", 3, true)
	inactive := createProduct(t, db, "Berserk Vol. 3", 3, false)

	tests := []struct {
		name      string
		productID uint
		quantity  int
		expected  error
	}{
		{"Zero quantity", product.ID, 0, ErrInvalidQuantity},
		{"Negative quantity", product.ID, -1, ErrInvalidQuantity},
		{"Beyond stock", product.ID, 4, ErrInsufficientStock},
		{"Inactive product", inactive.ID, 1, ErrProductUnavailable},
		{"Unknown product", 9999, 1, ErrProductUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, AddToCart(db, 1, tt.productID, tt.quantity), tt.expected)
		})
	}
}

func TestAddToCart_CombinedQuantityCapped(t *testing.T) {
	db := newTestDB(t)
	product := createProduct(t, db, "Vagabond Vol. 1", 4, true)

	assert.NoError(t, AddToCart(db, 1, product.ID, 3))
	assert.ErrorIs(t, AddToCart(db, 1, product.ID, 2), ErrInsufficientStock)

	count, err := CartItemsCount(db, 1)
	assert.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMergeGuestCart(t *testing.T) {
	db := newTestDB(t)
	plenty := createProduct(t, db, "Naruto Vol. 1", 10, true)
	scarce := createProduct(t, db, "Naruto Vol. 2", 2, true)
	inactive := createProduct(t, db, "Naruto Vol. 3", 10, false)
	outOfStock := createProduct(t, db, "Naruto Vol. 4", 0, true)

	// The user already holds one line that the guest cart overlaps.
	assert.NoError(t, AddToCart(db, 1, plenty.ID, 4))

	lines := []models.GuestCartLine{
		{ProductID: plenty.ID, Quantity: 3},      // merges to 7
		{ProductID: scarce.ID, Quantity: 5},      // capped at 2
		{ProductID: inactive.ID, Quantity: 1},    // skipped
		{ProductID: outOfStock.ID, Quantity: 1},  // skipped
		{ProductID: 9999, Quantity: 1},            // unknown, skipped
		{ProductID: plenty.ID + 100, Quantity: 0}, // non-positive, skipped
	}
	assert.NoError(t, MergeGuestCart(db, 1, lines))

	cart, err := GetOrCreateCart(db, 1)
	assert.NoError(t, err)

	var items []models.CartItem
	assert.NoError(t, db.Where("cart_id = ?", cart.ID).Find(&items).Error)
	assert.Len(t, items, 2)

	quantities := map[uint]int{}
	for _, item := range items {
		quantities[item.ProductID] = item.Quantity
	}
	assert.Equal(t, 7, quantities[plenty.ID])
	assert.Equal(t, 2, quantities[scarce.ID])
}

func TestMergeGuestCart_OverlapCappedAtStock(t *testing.T) {
	db := newTestDB(t)
	product := createProduct(t, db, "Bleach Vol. 1", 5, true)

	assert.NoError(t, AddToCart(db, 1, product.ID, 4))

	// 4 in the cart + 3 from the guest session exceeds the 5 on hand.
	lines := []models.GuestCartLine{{ProductID: product.ID, Quantity: 3}}
	assert.NoError(t, MergeGuestCart(db, 1, lines))

	count, err := CartItemsCount(db, 1)
	assert.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestMergeGuestCart_EmptyIsNoop(t *testing.T) {
	db := newTestDB(t)

	assert.NoError(t, MergeGuestCart(db, 1, nil))

	var carts int64
	assert.NoError(t, db.Model(&models.Cart{}).Count(&carts).Error)
	assert.Equal(t, int64(0), carts)
}

func TestClearCart(t *testing.T) {
	db := newTestDB(t)
	product := createProduct(t, db, "One Punch Man Vol. 1", 5, true)

	assert.NoError(t, AddToCart(db, 1, product.ID, 2))
	assert.NoError(t, ClearCart(db, 1))

	count, err := CartItemsCount(db, 1)
	assert.NoError(t, err)
	assert.Equal(t, 0, count)

	// Clearing a user without a cart is fine too.
	assert.NoError(t, ClearCart(db, 42))
}
