package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/manga-store/manga-store-api/models"
)

var (
	// ErrInvalidQuantity is returned for a zero or negative quantity
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInsufficientStock is returned when a requested quantity exceeds the
	// available stock
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrProductUnavailable is returned for an inactive or missing product
	ErrProductUnavailable = errors.New("product unavailable")
)

// GetOrCreateCart fetches the user's persisted cart, creating it on first use
func GetOrCreateCart(db *gorm.DB, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := db.Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	cart = models.Cart{UserID: userID}
	if err := db.Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// CartItemsCount returns the total quantity across the user's cart lines,
// computed as a SQL aggregate to avoid stale in-memory state.
func CartItemsCount(db *gorm.DB, userID uint) (int, error) {
	var cart models.Cart
	if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var total int64
	err := db.Model(&models.CartItem{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("cart_id = ?", cart.ID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// AddToCart adds a product line to the user's cart, capping the combined
// quantity at the available stock.
func AddToCart(db *gorm.DB, userID, productID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductUnavailable
		}
		return err
	}
	if !product.IsActive {
		return ErrProductUnavailable
	}
	if product.Quantity < quantity {
		return ErrInsufficientStock
	}

	cart, err := GetOrCreateCart(db, userID)
	if err != nil {
		return err
	}

	var item models.CartItem
	err = db.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
	if err == nil {
		newQuantity := item.Quantity + quantity
		if newQuantity > product.Quantity {
			return ErrInsufficientStock
		}
		return db.Model(&item).Update("quantity", newQuantity).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	item = models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
	return db.Create(&item).Error
}

// MergeGuestCart folds an anonymous session cart into the user's persisted
// cart. Inactive or out-of-stock products are skipped; merged line quantities
// are capped at the available stock, never exceeding it.
func MergeGuestCart(db *gorm.DB, userID uint, lines []models.GuestCartLine) error {
	if len(lines) == 0 {
		return nil
	}

	cart, err := GetOrCreateCart(db, userID)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			if line.Quantity <= 0 {
				continue
			}

			var product models.Product
			if err := tx.First(&product, line.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}
			if !product.IsActive || product.Quantity <= 0 {
				continue
			}

			var item models.CartItem
			err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, line.ProductID).
				First(&item).Error
			switch {
			case err == nil:
				merged := item.Quantity + line.Quantity
				if merged > product.Quantity {
					merged = product.Quantity
				}
				if err := tx.Model(&item).Update("quantity", merged).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				quantity := line.Quantity
				if quantity > product.Quantity {
					quantity = product.Quantity
				}
				item = models.CartItem{CartID: cart.ID, ProductID: line.ProductID, Quantity: quantity}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}
		return nil
	})
}

// ClearCart removes every line from the user's cart
func ClearCart(db *gorm.DB, userID uint) error {
	var cart models.Cart
	if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
}
