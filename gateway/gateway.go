// Package gateway binds the engines to HTTP. It owns token handling and
// the error-kind to status mapping; everything behind it works with plain
// data.
package gateway

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/example/bidshop/pkg/config"
	"github.com/example/bidshop/pkg/errs"
	"github.com/example/bidshop/pkg/repository"
	"github.com/example/bidshop/pkg/service"
)

const callerKey = "caller"

type Gateway struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	auth     service.AuthService
	catalog  service.CatalogService
	orders   service.OrderService
	auctions service.AuctionService
	reviews  service.ReviewService
	audit    *repository.MongoRepository
}

func NewGateway(
	cfg *config.Config,
	logger *zap.Logger,
	auth service.AuthService,
	catalog service.CatalogService,
	orders service.OrderService,
	auctions service.AuctionService,
	reviews service.ReviewService,
	audit *repository.MongoRepository,
) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:   cfg,
		logger:   logger,
		router:   router,
		auth:     auth,
		catalog:  catalog,
		orders:   orders,
		auctions: auctions,
		reviews:  reviews,
		audit:    audit,
	}
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := g.router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", g.register)
			auth.POST("/login", g.login)
		}

		// Storefront reads need no token.
		v1.GET("/products", g.listProducts)
		v1.GET("/products/:id", g.getProduct)
		v1.GET("/products/:id/reviews", g.listProductReviews)
		v1.GET("/auctions", g.listActiveAuctions)
		v1.GET("/auctions/all", g.listAllAuctions)
		v1.GET("/auctions/:id", g.getAuction)

		authed := v1.Group("", g.authRequired())
		{
			authed.GET("/me", g.profile)

			authed.POST("/orders", g.createOrder)
			authed.GET("/orders", g.listOrders)
			authed.GET("/orders/:id", g.getOrder)

			authed.POST("/auctions", g.createAuction)
			authed.POST("/auctions/:id/bids", g.placeBid)
			authed.POST("/auctions/:id/cancel", g.cancelAuction)
			authed.GET("/auctions/mine", g.listMyAuctions)
			authed.GET("/auctions/bidding", g.listBiddingAuctions)

			authed.POST("/products/:id/reviews", g.submitReview)
			authed.GET("/products/:id/reviews/me", g.hasReviewed)
			authed.POST("/reviews/:id/helpful", g.markHelpful)
		}

		admin := v1.Group("/admin", g.authRequired(), g.adminRequired())
		{
			admin.GET("/products", g.adminListProducts)
			admin.POST("/products", g.createProduct)
			admin.PUT("/products/:id", g.updateProduct)
			admin.DELETE("/products/:id", g.disableProduct)

			admin.PUT("/orders/:id/status", g.updateOrderStatus)
			admin.GET("/stats", g.orderStats)
			admin.GET("/audit/:id", g.entityAuditLogs)

			admin.GET("/reviews/pending", g.listPendingReviews)
			admin.GET("/products/:id/reviews", g.adminListProductReviews)
			admin.PUT("/reviews/:id/status", g.setReviewStatus)
		}
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.logger.Info("Gateway starting", zap.String("address", addr))
	return g.router.Run(addr)
}

// Router exposes the underlying engine for tests.
func (g *Gateway) Router() *gin.Engine {
	return g.router
}

func (g *Gateway) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		caller, err := g.auth.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(callerKey, *caller)
		c.Next()
	}
}

func (g *Gateway) adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !callerFrom(c).Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin privilege required"})
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) service.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(service.Caller); ok {
			return caller
		}
	}
	return service.Caller{}
}

func (g *Gateway) writeError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		g.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
