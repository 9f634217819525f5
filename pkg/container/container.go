package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"themepark-backend/internal/config"
	infraCache "themepark-backend/internal/infrastructure/cache"
	"themepark-backend/internal/infrastructure/database"
	"themepark-backend/internal/infrastructure/events"
	"themepark-backend/pkg/cache"
	pkgdb "themepark-backend/pkg/database"
	"themepark-backend/pkg/jwt"
	"themepark-backend/pkg/logger"

	catalogHandler "themepark-backend/internal/domains/catalog/handler"
	catalogRepo "themepark-backend/internal/domains/catalog/repository"
	catalogService "themepark-backend/internal/domains/catalog/service"
	"themepark-backend/internal/domains/payment/gateway"
	"themepark-backend/internal/domains/payment/gateway/mock"
	paymentHandler "themepark-backend/internal/domains/payment/handler"
	paymentRepo "themepark-backend/internal/domains/payment/repository"
	paymentService "themepark-backend/internal/domains/payment/service"
	pricingHandler "themepark-backend/internal/domains/pricing/handler"
	pricingService "themepark-backend/internal/domains/pricing/service"
	promotionHandler "themepark-backend/internal/domains/promotion/handler"
	promotionRepo "themepark-backend/internal/domains/promotion/repository"
	promotionService "themepark-backend/internal/domains/promotion/service"
	reservationHandler "themepark-backend/internal/domains/reservation/handler"
	reservationRepo "themepark-backend/internal/domains/reservation/repository"
	reservationService "themepark-backend/internal/domains/reservation/service"
	visitorRepo "themepark-backend/internal/domains/visitor/repository"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container holds every dependency of the API and the worker. It is built
// once at startup, in layer order.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config      *config.Config
	DB          *database.PostgresDB
	Cache       cache.Cache
	TxManager   pkgdb.TxManager
	JWTManager  *jwt.Manager
	AsynqClient *asynq.Client
	Events      events.Publisher
	Gateway     gateway.Gateway

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	CatalogRepo     catalogRepo.Repository
	PromotionRepo   promotionRepo.Repository
	VisitorRepo     visitorRepo.Repository
	ReservationRepo reservationRepo.Repository
	TicketRepo      reservationRepo.TicketRepository
	RefundRepo      paymentRepo.RefundRepository

	// ========================================
	// SERVICE LAYER
	// ========================================
	CatalogService     catalogService.Service
	PricingService     pricingService.Service
	PromotionService   promotionService.ServiceInterface
	RefundService      paymentService.RefundService
	ReservationService reservationService.Service

	// ========================================
	// HANDLER LAYER
	// ========================================
	CatalogHandler         *catalogHandler.CatalogHandler
	PricingHandler         *pricingHandler.PricingHandler
	PromotionPublicHandler *promotionHandler.PublicHandler
	PromotionAdminHandler  *promotionHandler.AdminHandler
	ReservationHandler     *reservationHandler.ReservationHandler
	RefundHandler          *paymentHandler.RefundHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer builds the dependency graph.
//
// Initialization order:
// 1. Config
// 2. Infrastructure (DB, cache, queue client, events, gateway)
// 3. Repositories
// 4. Services
// 5. Handlers
func NewContainer() (*Container, error) {
	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	logger.Init(cfg.App.Environment)
	logger.Info("Config loaded", map[string]interface{}{"environment": cfg.App.Environment})

	// ========================================
	// STEP 2: INITIALIZE DATABASE
	// ========================================
	dbConfig, err := cfg.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}

	c.DB = db
	c.TxManager = pkgdb.NewTxManager(db.Pool)

	// ========================================
	// STEP 3: INITIALIZE INFRASTRUCTURE
	// ========================================
	c.Cache = c.connectCache(ctx)
	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	c.AsynqClient = asynq.NewClient(c.RedisClientOpt())
	c.Events = c.connectEvents()
	c.Gateway = mock.NewMockGateway()

	// ========================================
	// STEP 4..6: DOMAIN LAYERS
	// ========================================
	c.initRepositories()
	c.initServices()
	c.initHandlers()

	logger.Info("DI container initialized", nil)
	return c, nil
}

// RedisClientOpt is the asynq connection for the configured Redis.
func (c *Container) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Host,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	}
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

// connectCache prefers Redis and falls back to the in-process cache when
// Redis is unreachable. Cache failures are not fatal.
func (c *Container) connectCache(ctx context.Context) cache.Cache {
	redisCache := infraCache.NewRedisCache(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)
	if err := redisCache.Connect(ctx); err != nil {
		logger.Warn("Redis connection failed, using in-memory cache", map[string]interface{}{"error": err.Error()})
		_ = redisCache.Close()
		return cache.NewMemoryCache()
	}
	return redisCache
}

func (c *Container) connectEvents() events.Publisher {
	if c.Config.RabbitMQ.URL == "" {
		logger.Info("RABBITMQ_URL not set, domain events disabled", nil)
		return events.NoopPublisher{}
	}

	publisher, err := events.NewRabbitPublisher(c.Config.RabbitMQ.URL, c.Config.RabbitMQ.Exchange)
	if err != nil {
		logger.Warn("RabbitMQ connection failed, domain events disabled", map[string]interface{}{"error": err.Error()})
		return events.NoopPublisher{}
	}
	return publisher
}

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.CatalogRepo = catalogRepo.NewCachedRepository(
		catalogRepo.NewPostgresRepository(pool),
		c.Cache,
		c.Config.Pricing.CatalogCacheTTL,
	)
	c.PromotionRepo = promotionRepo.NewPostgresRepository(pool)
	c.VisitorRepo = visitorRepo.NewPostgresRepository(pool)
	c.ReservationRepo = reservationRepo.NewPostgresReservationRepository(pool)
	c.TicketRepo = reservationRepo.NewPostgresTicketRepository(pool)
	c.RefundRepo = paymentRepo.NewRefundRepository(pool)
}

func (c *Container) initServices() {
	c.CatalogService = catalogService.NewCatalogService(c.CatalogRepo, c.TxManager)
	c.PromotionService = promotionService.NewPromotionService(c.PromotionRepo, c.CatalogRepo)
	c.PricingService = pricingService.NewPricingService(c.CatalogRepo, c.PromotionRepo, c.VisitorRepo)

	c.RefundService = paymentService.NewRefundService(
		c.RefundRepo,
		c.ReservationRepo,
		c.TicketRepo,
		c.Gateway,
		c.TxManager,
		c.Events,
		paymentService.Options{
			FeePercent:   decimal.NewFromFloat(c.Config.Pricing.RefundFeePercent),
			BatchWorkers: c.Config.Pricing.BatchRefundWorkers,
		},
	)

	c.ReservationService = reservationService.NewReservationService(
		c.ReservationRepo,
		c.TicketRepo,
		c.CatalogRepo,
		c.PricingService,
		c.PromotionRepo,
		c.RefundService,
		c.Gateway,
		c.TxManager,
		c.AsynqClient,
		c.Events,
		reservationService.Options{
			TicketValidityDays: c.Config.Pricing.TicketValidityDays,
			PendingTTL:         c.Config.Pricing.PendingTTL,
		},
	)
}

func (c *Container) initHandlers() {
	c.CatalogHandler = catalogHandler.NewCatalogHandler(c.CatalogService)
	c.PricingHandler = pricingHandler.NewPricingHandler(c.PricingService)
	c.PromotionPublicHandler = promotionHandler.NewPublicHandler(c.PromotionService)
	c.PromotionAdminHandler = promotionHandler.NewAdminHandler(c.PromotionService)
	c.ReservationHandler = reservationHandler.NewReservationHandler(c.ReservationService)
	c.RefundHandler = paymentHandler.NewRefundHandler(c.RefundService)
}

// ========================================
// CLEANUP
// ========================================

// Cleanup releases connections on shutdown.
func (c *Container) Cleanup() {
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			logger.Error("Failed to close asynq client", err)
		}
	}

	if c.Events != nil {
		if err := c.Events.Close(); err != nil {
			logger.Error("Failed to close event publisher", err)
		}
	}

	if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
		if err := rc.Close(); err != nil {
			logger.Error("Failed to close Redis", err)
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Error("Failed to close database", err)
		}
	}

	logger.Info("Container cleanup completed", nil)
}
