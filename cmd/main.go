package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"groupbet/internal/auth"
	"groupbet/internal/clock"
	"groupbet/internal/config"
	"groupbet/internal/database"
	"groupbet/internal/events"
	"groupbet/internal/handlers"
	"groupbet/internal/jobs"
	"groupbet/internal/repository"
	"groupbet/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	initialBalance, err := decimal.NewFromString(cfg.App.InitialCreditBalance)
	if err != nil {
		log.Fatalf("Invalid INITIAL_CREDIT_BALANCE: %v", err)
	}

	// Initialize repository and services
	repo := repository.NewRepository(database.GetDB())
	settler := services.NewCreditLedgerSettler()
	publisher := events.NewLogPublisher()
	wagerService := services.NewWagerService(repo, settler, publisher, clock.Real())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(repo, initialBalance)
	wagerHandler := handlers.NewWagerHandler(wagerService)

	// Start deadline sweep jobs
	betCloser := jobs.NewBetCloser(wagerService, cfg.Scheduler.CloseExpiredInterval)
	go betCloser.Start()
	defer betCloser.Stop()

	resolutionSweeper := jobs.NewResolutionSweeper(wagerService, cfg.Scheduler.ProcessResolvableInterval)
	go resolutionSweeper.Start()
	defer resolutionSweeper.Stop()

	bettingReminder := jobs.NewBettingReminderNotifier(wagerService, cfg.Scheduler.NotifyBettingDeadlineInterval)
	go bettingReminder.Start()
	defer bettingReminder.Stop()

	resolutionReminder := jobs.NewResolutionReminderNotifier(wagerService, cfg.Scheduler.NotifyResolutionDeadlineInterval)
	go resolutionReminder.Start()
	defer resolutionReminder.Stop()

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	// Add additional frontend URL from environment if provided
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
	}

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.POST("/wagers", wagerHandler.CreateWager)
		api.GET("/wagers/:id", wagerHandler.GetWager)
		api.POST("/wagers/:id/join", wagerHandler.JoinWager)
		api.POST("/wagers/:id/resolve", wagerHandler.ResolveWager)
		api.POST("/wagers/:id/resolve-winners", wagerHandler.ResolveByWinners)
		api.POST("/wagers/:id/vote", wagerHandler.Vote)
		api.POST("/wagers/:id/vote-prediction", wagerHandler.VoteOnPrediction)
		api.POST("/wagers/:id/vote-winners", wagerHandler.VoteOnPredictionByWinners)
		api.POST("/wagers/:id/cancel", wagerHandler.CancelWager)
		api.POST("/wagers/:id/resolvers", wagerHandler.AssignResolver)
		api.DELETE("/wagers/:id/resolvers/:userId", wagerHandler.RevokeResolver)
		api.GET("/wagers/:id/can-resolve", wagerHandler.CanResolve)
		api.GET("/wagers/:id/votes", wagerHandler.GetVoteCounts)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
