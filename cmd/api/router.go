package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"themepark-backend/internal/shared/middleware"
	"themepark-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	limiter := middleware.NewRateLimiter(c.Config.RateLimit.RequestsPerSecond, c.Config.RateLimit.Burst)

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.ClientIPMiddleware(),
		middleware.Logger(),
		middleware.Metrics(),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(limiter))
	{
		v1.GET("/health", healthCheckHandler(c))

		auth := middleware.AuthMiddleware(c.JWTManager)
		admin := v1.Group("/admin", auth, middleware.AdminMiddleware())

		setupCatalogRoutes(v1, admin, c)
		setupPricingRoutes(v1, auth, c)
		setupPromotionRoutes(v1, admin, c)
		setupReservationRoutes(v1, admin, auth, c)
		setupRefundRoutes(v1, admin, auth, c)
	}

	return router
}

// ========================================
// CATALOG ROUTES
// ========================================
func setupCatalogRoutes(v1, admin *gin.RouterGroup, c *container.Container) {
	ticketTypes := v1.Group("/ticket-types")
	{
		ticketTypes.GET("", c.CatalogHandler.ListTicketTypes)
		ticketTypes.GET("/:id", c.CatalogHandler.GetTicketType)
		ticketTypes.GET("/:id/quote", c.PricingHandler.QuoteTicketType)
	}

	adminTicketTypes := admin.Group("/ticket-types")
	{
		adminTicketTypes.POST("", c.CatalogHandler.CreateTicketType)
		adminTicketTypes.PATCH("/:id/base-price", c.CatalogHandler.UpdateBasePrice)
		adminTicketTypes.GET("/:id/price-history", c.CatalogHandler.ListPriceHistory)
		adminTicketTypes.POST("/:id/price-rules", c.CatalogHandler.CreatePriceRule)
		adminTicketTypes.GET("/:id/price-rules", c.CatalogHandler.ListPriceRules)
	}
	admin.PUT("/price-rules/:id", c.CatalogHandler.UpdatePriceRule)
	admin.DELETE("/price-rules/:id", c.CatalogHandler.DeletePriceRule)
}

// ========================================
// PRICING ROUTES
// ========================================
func setupPricingRoutes(v1 *gin.RouterGroup, auth gin.HandlerFunc, c *container.Container) {
	v1.POST("/pricing/calculate", auth, c.PricingHandler.CalculatePrice)
}

// ========================================
// PROMOTION ROUTES
// ========================================
func setupPromotionRoutes(v1, admin *gin.RouterGroup, c *container.Container) {
	v1.GET("/promotions", c.PromotionPublicHandler.ListActivePromotions)

	promotions := admin.Group("/promotions")
	{
		promotions.POST("", c.PromotionAdminHandler.CreatePromotion)
		promotions.GET("", c.PromotionAdminHandler.ListPromotions)
		promotions.GET("/:id", c.PromotionAdminHandler.GetPromotion)
		promotions.PATCH("/:id", c.PromotionAdminHandler.UpdatePromotion)
		promotions.DELETE("/:id", c.PromotionAdminHandler.DeletePromotion)
		promotions.PATCH("/:id/status", c.PromotionAdminHandler.UpdatePromotionStatus)

		promotions.POST("/:id/conditions", c.PromotionAdminHandler.AddCondition)
		promotions.PUT("/:id/conditions/:index", c.PromotionAdminHandler.UpdateCondition)
		promotions.DELETE("/:id/conditions/:index", c.PromotionAdminHandler.RemoveCondition)
		promotions.POST("/:id/actions", c.PromotionAdminHandler.AddAction)
		promotions.PUT("/:id/actions/:index", c.PromotionAdminHandler.UpdateAction)
		promotions.DELETE("/:id/actions/:index", c.PromotionAdminHandler.RemoveAction)
	}
}

// ========================================
// RESERVATION ROUTES
// ========================================
func setupReservationRoutes(v1, admin *gin.RouterGroup, auth gin.HandlerFunc, c *container.Container) {
	reservations := v1.Group("/reservations", auth)
	{
		reservations.POST("", c.ReservationHandler.CreateReservation)
		reservations.GET("", c.ReservationHandler.ListReservations)
		reservations.GET("/:id", c.ReservationHandler.GetReservation)
		reservations.POST("/:id/pay", c.ReservationHandler.Pay)
		reservations.POST("/:id/cancel", c.ReservationHandler.Cancel)
	}

	// entry gate
	admin.POST("/tickets/use", c.ReservationHandler.UseTicket)
}

// ========================================
// REFUND ROUTES
// ========================================
func setupRefundRoutes(v1, admin *gin.RouterGroup, auth gin.HandlerFunc, c *container.Container) {
	refunds := v1.Group("/refunds", auth)
	{
		refunds.POST("", c.RefundHandler.RequestRefund)
		refunds.GET("", c.RefundHandler.ListMyRefunds)
		refunds.GET("/:id", c.RefundHandler.GetRefund)
	}

	adminRefunds := admin.Group("/refunds")
	{
		adminRefunds.POST("/batch", c.RefundHandler.BatchRefund)
		adminRefunds.GET("/pending", c.RefundHandler.ListPending)
		adminRefunds.POST("/:id/process", c.RefundHandler.ProcessRefund)
	}
}

// ========================================
// HEALTH CHECK HANDLER
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
		}

		// Check database
		dbStatus := "ok"
		if appCtx.DB == nil || appCtx.DB.Pool == nil {
			dbStatus = "disconnected"
			health["status"] = "degraded"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.DB.HealthCheck(ctx); err != nil {
				dbStatus = fmt.Sprintf("error: %v", err)
				health["status"] = "degraded"
			}
		}

		// Check cache
		cacheStatus := "ok"
		if appCtx.Cache == nil {
			cacheStatus = "disconnected"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.Cache.Ping(ctx); err != nil {
				cacheStatus = fmt.Sprintf("error: %v", err)
			}
		}

		health["services"] = gin.H{
			"database": dbStatus,
			"cache":    cacheStatus,
		}

		statusCode := http.StatusOK
		if dbStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, health)
	}
}
