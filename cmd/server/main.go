package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tavola-system/config"
	"tavola-system/internal/database"
	"tavola-system/internal/gateway/handlers"
	"tavola-system/internal/gateway/middleware"
	"tavola-system/internal/services/catalog"
	"tavola-system/internal/services/events"
	"tavola-system/internal/services/orders"
	"tavola-system/internal/services/reservations"
	"tavola-system/internal/services/tables"
	"tavola-system/internal/store"
)

func main() {
	cfg := config.LoadConfig()

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	var st store.Store
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		db, err := database.NewConnection(cfg.DB.DSN())
		if err != nil {
			log.Fatalf("Failed to connect to db: %v", err)
		}
		if err := database.MigrateStoreDB(db); err != nil {
			log.Fatalf("Failed to migrate store database: %v", err)
		}
		st = store.NewGormStore(db)
	case config.StoreBackendRedis:
		st = store.NewRedisStore(redisClient)
	default:
		log.Fatalf("Unknown store backend %q", cfg.Store.Backend)
	}

	publisher := events.NewRedisPublisher(redisClient)

	tablesSvc := tables.NewService(st, publisher)
	ordersSvc := orders.NewService(st, tablesSvc, publisher)
	reservationsSvc := reservations.NewService(st, publisher)
	catalogSvc := catalog.NewService(st, redisClient)

	tokenTTL := time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
	authHandler := handlers.NewAuthHTTPHandler(catalogSvc, tablesSvc, tokenTTL)
	tablesHandler := handlers.NewTablesHTTPHandler(tablesSvc, ordersSvc)
	ordersHandler := handlers.NewOrdersHTTPHandler(ordersSvc)
	reservationsHandler := handlers.NewReservationsHTTPHandler(reservationsSvc)
	catalogHandler := handlers.NewCatalogHTTPHandler(catalogSvc)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(cfg.HTTP.RateLimit))

	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/staff-login", authHandler.StaffLogin)
			auth.POST("/table-login", authHandler.TableLogin)
		}
	}

	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		tablesGroup := protected.Group("/tables")
		{
			tablesGroup.POST("", middleware.RequireStaff(), tablesHandler.CreateTable)
			tablesGroup.GET("", tablesHandler.ListTables)
			tablesGroup.POST("/:id/open", middleware.RequireStaff(), tablesHandler.OpenSession)
			tablesGroup.POST("/:id/acknowledge", middleware.RequireStaff(), tablesHandler.AcknowledgeServed)
			tablesGroup.POST("/:id/bill", tablesHandler.RequestBill)
			tablesGroup.POST("/:id/settle", middleware.RequireStaff(), tablesHandler.Settle)
			tablesGroup.POST("/:id/ready", middleware.RequireStaff(), tablesHandler.MarkReady)
			tablesGroup.GET("/:id/total", tablesHandler.RunningTotal)
		}

		ordersGroup := protected.Group("/orders")
		{
			ordersGroup.POST("", ordersHandler.SubmitOrder)
			ordersGroup.GET("", ordersHandler.ListOrders)
			ordersGroup.POST("/:id/advance", middleware.RequireStaff(), ordersHandler.Advance)
			ordersGroup.POST("/:id/lines/:line/complete", middleware.RequireStaff(), ordersHandler.MarkLineComplete)
			ordersGroup.POST("/:id/lines/:line/uncomplete", middleware.RequireStaff(), ordersHandler.UnmarkLineComplete)
			ordersGroup.GET("/history", middleware.RequireStaff(), ordersHandler.History)
		}

		reservationsGroup := protected.Group("/reservations")
		reservationsGroup.Use(middleware.RequireStaff())
		{
			reservationsGroup.POST("", reservationsHandler.Book)
			reservationsGroup.GET("", reservationsHandler.List)
			reservationsGroup.PUT("/:id", reservationsHandler.Reschedule)
			reservationsGroup.DELETE("/:id", reservationsHandler.Delete)
			reservationsGroup.POST("/:id/complete", reservationsHandler.Complete)
			reservationsGroup.GET("/history", reservationsHandler.History)
		}

		catalogGroup := protected.Group("/catalog")
		{
			catalogGroup.GET("/menu-items", catalogHandler.ListMenuItems)
			catalogGroup.POST("/menu-items", middleware.RequireStaff(), catalogHandler.CreateMenuItem)
			catalogGroup.PUT("/menu-items/:id", middleware.RequireStaff(), catalogHandler.UpdateMenuItem)
			catalogGroup.GET("/categories", catalogHandler.ListCategories)
			catalogGroup.POST("/categories", middleware.RequireStaff(), catalogHandler.CreateCategory)
			catalogGroup.GET("/config", middleware.RequireStaff(), catalogHandler.GetConfig)
			catalogGroup.PUT("/config", middleware.RequireStaff(), catalogHandler.UpdateConfig)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"backend":   cfg.Store.Backend,
			"timestamp": time.Now(),
		})
	})

	addr := ":" + cfg.HTTP.Port
	log.Printf("Tavola server listening on %s (store backend: %s)", addr, cfg.Store.Backend)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
