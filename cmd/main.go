package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"pim-service/internal/clients"
	"pim-service/internal/config"
	"pim-service/internal/events"
	"pim-service/internal/handlers"
	"pim-service/internal/importer"
	"pim-service/internal/middleware"
	"pim-service/internal/repository"
)

// @title PIM Service API
// @version 1.0.0
// @description Product information management service with spreadsheet import wizard
// @host localhost:8087
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
	} else {
		redisClient = redis.NewClient(redisOpts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
			redisClient = nil
		} else {
			log.Println("✓ Redis connected successfully")
		}
		cancel()
	}

	// Initialize repository
	catalogRepo := repository.NewCatalogRepository(db, redisClient)

	// Initialize event publisher only if NATS_URL is set
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
			eventsPublisher = nil
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer eventsPublisher.Close()

	// Initialize the import pipeline
	extractor := importer.NewAttributeExtractor()
	resolver := importer.NewIdentityResolver(extractor)
	grouper := importer.NewSimilarityGrouper(extractor)
	headerMapper := importer.NewHeaderMapper()
	mappingStore := importer.NewMappingStore(db, redisClient, logger)
	sessions := importer.NewSessionStore(cfg.SessionMaxAge)
	planner := importer.NewPlanner(catalogRepo, resolver, grouper, logger)

	var notifier importer.Notifier
	if eventsPublisher != nil {
		notifier = eventsPublisher
	}
	committer := importer.NewCommitter(catalogRepo, resolver, grouper, extractor, notifier, logger)

	// Shopify sync client (disabled unless credentials are configured)
	shopifyClient := clients.NewShopifyClient(cfg.ShopifyShopDomain, cfg.ShopifyAccessToken)
	if shopifyClient.Enabled() {
		log.Println("✓ Shopify sync enabled")
	}

	// Initialize handlers
	productsHandler := handlers.NewProductsHandler(catalogRepo, shopifyClient, cfg, logger)
	barcodesHandler := handlers.NewBarcodesHandler(catalogRepo, logger)
	importHandler := handlers.NewImportHandler(sessions, headerMapper, mappingStore, planner, committer, cfg, logger)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())

	// Health check endpoints
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	v1 := router.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			products.GET("", productsHandler.GetProducts)
			products.GET("/:id", productsHandler.GetProduct)
			products.POST("", productsHandler.CreateProduct)
			products.PUT("/:id", productsHandler.UpdateProduct)
			products.DELETE("/:id", productsHandler.DeleteProduct)
			products.GET("/:id/variants", productsHandler.GetVariants)
			products.POST("/:id/variants", productsHandler.CreateVariant)
			products.POST("/:id/sync", productsHandler.SyncProduct)
		}

		imports := v1.Group("/imports")
		{
			imports.GET("/fields", importHandler.GetFields)
			imports.GET("/template", importHandler.GetImportTemplate)
			imports.POST("", importHandler.StartImport)
			imports.GET("/:id", importHandler.GetImport)
			imports.POST("/:id/worksheets", importHandler.SelectWorksheets)
			imports.PUT("/:id/mapping", importHandler.ConfirmMapping)
			imports.POST("/:id/dry-run", importHandler.DryRun)
			imports.POST("/:id/commit", importHandler.Commit)
			imports.POST("/:id/back", importHandler.StepBack)
			imports.DELETE("/:id", importHandler.CancelImport)
		}

		barcodes := v1.Group("/barcodes")
		{
			barcodes.GET("/pool", barcodesHandler.PoolStatus)
			barcodes.POST("/pool", barcodesHandler.LoadPool)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("PIM service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
