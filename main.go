package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/controllers"
	"github.com/manga-store/manga-store-api/middleware"
	"github.com/manga-store/manga-store-api/models"
	"github.com/manga-store/manga-store-api/services"
	"github.com/manga-store/manga-store-api/utils"
)

func main() {
	log.Println("Starting Manga Store API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	config.SetConfig(cfg)

	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.User{},
		&models.Deliverer{},
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.DeliveryAssignment{},
		&models.StockDeductionTask{},
		&models.ShopSettings{},
		&models.ActivityLog{},
		&models.Message{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	if cfg.UploadDir != "" {
		utils.UploadDir = cfg.UploadDir
	}

	// Object storage is optional: without credentials uploads fall back to
	// the local upload directory.
	if _, err := services.InitS3Service(); err != nil {
		log.Printf("S3 storage unavailable, using local uploads: %v", err)
	}
	services.InitEmailSender(cfg)
	services.InitGeocoder(cfg)

	hub := services.NewSignalHub()
	go hub.Run()

	worker := services.NewStockDeductionWorker(db, time.Minute)
	worker.Start()
	defer worker.Stop()

	router := setupRouter(cfg, hub)

	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter wires middleware and all route groups
func setupRouter(cfg *config.Config, hub *services.SignalHub) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.PublicBaseURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	router.Use(sessions.Sessions("manga_store_session", store))

	authRequired := middleware.EnsureValidToken(cfg)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)

		// Public storefront
		v1.GET("/categories", controllers.ListCategories)
		v1.GET("/products", controllers.ListProducts)
		v1.GET("/products/:id", controllers.GetProduct)
		v1.GET("/settings", controllers.GetShopSettings)
		v1.GET("/uploads/:filename", controllers.GetUploadedImage)

		// Anonymous session cart
		v1.GET("/guest-cart", controllers.GetGuestCart)
		v1.POST("/guest-cart/items", controllers.AddGuestCartItem)
		v1.DELETE("/guest-cart/items/:id", controllers.RemoveGuestCartItem)

		// Authenticated customers
		authed := v1.Group("")
		authed.Use(authRequired)
		{
			authed.POST("/users", controllers.CreateUser)
			authed.GET("/users/me", controllers.GetMyProfile)
			authed.PUT("/users/me", controllers.UpdateMyProfile)
			authed.POST("/users/me/picture", controllers.UpdateMyProfilePicture)

			authed.GET("/cart", controllers.GetMyCart)
			authed.POST("/cart/items", controllers.AddCartItem)
			authed.PUT("/cart/items/:id", controllers.UpdateCartItem)
			authed.DELETE("/cart/items/:id", controllers.RemoveCartItem)
			authed.POST("/cart/merge", controllers.MergeGuestCart)

			authed.POST("/orders", controllers.Checkout)
			authed.GET("/orders", controllers.ListMyOrders)
			authed.GET("/orders/:id", controllers.GetMyOrder)
			authed.GET("/orders/:id/invoice", controllers.GetMyOrderInvoice)
			authed.GET("/orders/:id/messages", controllers.ListOrderMessages)
			authed.POST("/orders/:id/messages", controllers.CreateOrderMessage)
		}

		// Back office
		admin := v1.Group("/admin")
		admin.Use(authRequired)
		{
			admin.GET("/dashboard", middleware.RequireAdmin(""), controllers.AdminGetDashboard)
			admin.GET("/activity", middleware.RequireAdmin(""), controllers.AdminListActivity)
			admin.GET("/stock-catalog", middleware.RequireAdmin("manage_products"), controllers.AdminGetStockCatalog)
			admin.POST("/uploads", middleware.RequireAdmin("manage_products"), controllers.AdminUploadImage)

			admin.GET("/categories", middleware.RequireAdmin("manage_products"), controllers.AdminListCategories)
			admin.POST("/categories", middleware.RequireAdmin("manage_products"), controllers.AdminCreateCategory)
			admin.PUT("/categories/:id", middleware.RequireAdmin("manage_products"), controllers.AdminUpdateCategory)
			admin.DELETE("/categories/:id", middleware.RequireAdmin("manage_products"), controllers.AdminDeleteCategory)

			admin.GET("/products", middleware.RequireAdmin("manage_products"), controllers.AdminListProducts)
			admin.POST("/products", middleware.RequireAdmin("manage_products"), controllers.AdminCreateProduct)
			admin.PUT("/products/:id", middleware.RequireAdmin("manage_products"), controllers.AdminUpdateProduct)
			admin.DELETE("/products/:id", middleware.RequireAdmin("manage_products"), controllers.AdminDeleteProduct)

			admin.GET("/orders", middleware.RequireAdmin("manage_orders"), controllers.AdminListOrders)
			admin.GET("/orders/:id", middleware.RequireAdmin("manage_orders"), controllers.AdminGetOrder)
			admin.PUT("/orders/:id/status", middleware.RequireAdmin("manage_orders"), controllers.AdminUpdateOrderStatus)
			admin.POST("/orders/:id/assign", middleware.RequireAdmin("manage_orders"), controllers.AdminAssignDeliverer)
			admin.GET("/orders/:id/invoice", middleware.RequireAdmin("manage_orders"), controllers.AdminGetOrderInvoice)

			admin.GET("/clients", middleware.RequireAdmin("manage_clients"), controllers.AdminListClients)
			admin.PUT("/clients/:id/active", middleware.RequireAdmin("manage_clients"), controllers.AdminToggleClient)

			admin.GET("/deliverers", middleware.RequireAdmin("manage_deliverers"), controllers.AdminListDeliverers)
			admin.POST("/deliverers", middleware.RequireAdmin("manage_deliverers"), controllers.AdminCreateDeliverer)
			admin.GET("/deliverers/:id", middleware.RequireAdmin("manage_deliverers"), controllers.AdminGetDeliverer)
			admin.PUT("/deliverers/:id", middleware.RequireAdmin("manage_deliverers"), controllers.AdminUpdateDeliverer)
			admin.POST("/deliverers/:id/payout", middleware.RequireAdmin("manage_deliverers"), controllers.AdminPayDeliverer)
			admin.POST("/deliverers/:id/weekly-bonus", middleware.RequireAdmin("manage_deliverers"), controllers.AdminPayWeeklyBonus)

			admin.PUT("/settings", middleware.RequireAdmin(""), controllers.AdminUpdateShopSettings)
		}

		// Courier portal
		deliverer := v1.Group("/deliverer")
		deliverer.Use(authRequired, middleware.RequireDeliverer())
		{
			deliverer.GET("/me", controllers.GetMyDelivererProfile)
			deliverer.GET("/assignments", controllers.ListMyAssignments)
			deliverer.PUT("/assignments/:id", controllers.UpdateAssignmentStatus)
			deliverer.PUT("/availability", controllers.UpdateMyAvailability)
			deliverer.GET("/stats", controllers.GetMyDelivererStats)
		}
	}

	// Call signaling between admins and couriers
	router.GET("/ws/signal", authRequired, func(c *gin.Context) {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "Could not extract user information"},
			})
			return
		}
		if err := hub.ServeSignalWS(c.Writer, c.Request, userID); err != nil {
			log.Printf("Failed to upgrade signaling connection: %v", err)
		}
	})

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Manga Store API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
