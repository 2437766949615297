package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/application"
	"github.com/Kilat-Lodge/service-reservation/internal/config"
	bookingDomain "github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/reservation"
	reservationEvents "github.com/Kilat-Lodge/service-reservation/internal/events"
	"github.com/Kilat-Lodge/service-reservation/internal/handler"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/auth"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/database"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/health"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/kafka"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/logger"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/middleware"
	"github.com/Kilat-Lodge/service-reservation/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "service-reservation"

func main() {
	// Load configuration
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName, logger.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
	)

	// Load the property catalog
	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatal("failed to load catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
	}
	log.Info("catalog loaded",
		zap.Int("rooms", len(catalog.Rooms)),
		zap.Int("seasons", len(catalog.Seasons)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	var (
		db       *gorm.DB
		store    reservation.Store
		bookings bookingDomain.BookingRepository
		blocks   property.BlockRepository
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		mem := repository.NewMemoryStore()
		store, bookings, blocks = mem, mem, mem
		log.Warn("using in-memory store; data is lost on restart")
	default:
		db, err = database.Connect(database.PostgresConfig{
			Host:     cfg.DBConfig.Host,
			Port:     cfg.DBConfig.Port,
			User:     cfg.DBConfig.User,
			Password: cfg.DBConfig.Password,
			DBName:   cfg.DBConfig.DBName,
			SSLMode:  cfg.DBConfig.SSLMode,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := db.AutoMigrate(repository.Models()...); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		gormStore := repository.NewGormStore(db)
		if err := gormStore.EnsureRooms(ctx, catalog.RoomIDs()); err != nil {
			log.Fatal("failed to seed room locks", zap.Error(err))
		}
		store = gormStore
		bookings = repository.NewGormBookingRepository(db)
		blocks = repository.NewGormBlockRepository(db)
		log.Info("database migration completed")
	}

	// Initialize Kafka producer
	var producer kafka.Publisher = kafka.NopPublisher{}
	if len(cfg.KafkaConfig.Brokers) > 0 {
		producer = kafka.NewBreakerPublisher(kafka.NewProducer(cfg.KafkaConfig.Brokers, log), log)
	} else {
		log.Warn("no kafka brokers configured; events are not published")
	}
	defer func() { _ = producer.Close() }()

	// Initialize reservation core
	clock := reservation.NewClockPolicy(reservation.RealClock{}, reservation.CutoffRule{
		Month:      time.Month(cfg.Policy.CutoffMonth),
		Day:        cfg.Policy.CutoffDay,
		YearOffset: cfg.Policy.CutoffYearOffset,
	}, cfg.Location())
	bulkLimits := bookingDomain.GuestLimits{Floor: cfg.Policy.BulkFloor, Ceiling: cfg.Policy.BulkCeiling}
	pricing := bookingDomain.NewStandardPricingStrategy(bookingDomain.BaseTierPolicy(cfg.Policy.BaseTier), bulkLimits)
	resolver := reservation.NewConflictResolver(clock)
	gate := reservation.NewSeasonGate(catalog.Seasons, clock)
	holds := reservation.NewHoldStore(store, catalog, resolver, clock, reservation.HoldPolicy{
		TTL:       cfg.Policy.HoldTTL,
		Retention: cfg.Policy.HoldRetention,
		Bulk:      bulkLimits,
	}, log.Named("holds"))
	consolidator := reservation.NewBookingConsolidator(store, catalog, resolver, gate, pricing, cfg.Policy.BulkBaseFee, clock)

	go holds.Run(ctx, cfg.Policy.SweepInterval)

	// Initialize application services
	reservationService := application.NewReservationService(application.ReservationDeps{
		Catalog:      catalog,
		Index:        reservation.NewAvailabilityIndex(store, catalog, clock),
		Holds:        holds,
		Gate:         gate,
		Consolidator: consolidator,
		Pricing:      pricing,
		BulkBaseFee:  cfg.Policy.BulkBaseFee,
		Clock:        clock,
		Producer:     producer,
		Topic:        cfg.KafkaConfig.EventsTopic,
	}, log)
	bookingService := application.NewBookingService(
		bookings,
		blocks,
		catalog,
		clock,
		producer,
		cfg.KafkaConfig.EventsTopic,
		log,
	)

	// Start payment event consumer in a goroutine
	if len(cfg.KafkaConfig.Brokers) > 0 {
		groupID := cfg.KafkaConfig.GroupPrefix + "reservation-service"
		paymentConsumer := reservationEvents.NewPaymentEventConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			cfg.KafkaConfig.PaymentsTopic,
			bookingService,
			log,
		)
		defer func() { _ = paymentConsumer.Close() }()

		go func() {
			log.Info("starting payment event consumer")
			if err := paymentConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("payment event consumer error", zap.Error(err))
			}
		}()
	}

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	health.NewHandler(db, serviceName).RegisterRoutes(router)

	// Register routes
	handler.NewReservationHandler(reservationService).RegisterRoutes(&router.RouterGroup)
	handler.NewBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup)

	if cfg.JWTConfig.Secret != "" {
		jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.TokenTTL, cfg.JWTConfig.Issuer)
		handler.NewAdminBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup, jwtManager)
	} else {
		log.Warn("jwt.secret is empty; admin routes are disabled")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Stop the sweeper and the consumer
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
