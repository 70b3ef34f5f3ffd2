// @title       ordershop order service
// @version     1.0
// @BasePath    /api
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/example/ordershop/docs"
	"github.com/example/ordershop/pkg/config"
	"github.com/example/ordershop/pkg/metrics"
	"github.com/example/ordershop/pkg/models"
	"github.com/example/ordershop/pkg/orders"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// OrderService is the order use case layer the handlers call into.
type OrderService interface {
	PlaceOrder(ctx context.Context, identity models.Identity, req *orders.PlaceOrderRequest) (*models.Order, error)
	PlaceTestOrder(ctx context.Context) (*models.Order, error)
	ListForUser(ctx context.Context, identity models.Identity) ([]*models.Order, error)
	GetForUser(ctx context.Context, identity models.Identity, id string) (*models.Order, error)
	ListAll(ctx context.Context) ([]*models.Order, error)
	Count(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*models.OrderStats, error)
	UpdateStatus(ctx context.Context, identity models.Identity, id, status string) (*models.Order, error)
}

// SessionResolver maps a session cookie value to the signed in user.
type SessionResolver interface {
	Lookup(ctx context.Context, sid string) (models.Identity, error)
}

type AuditTrail interface {
	Trail(ctx context.Context, entityID string, limit int64) ([]*models.AuditLog, error)
}

type Gateway struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
	orders   OrderService
	sessions SessionResolver
	audit    AuditTrail
	metrics  *metrics.ServerMetrics
}

type Option func(*Gateway)

func WithMetrics(m *metrics.ServerMetrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithAuditTrail(a AuditTrail) Option {
	return func(g *Gateway) { g.audit = a }
}

func NewGateway(cfg *config.Config, logger *zap.Logger, svc OrderService, sessions SessionResolver, opts ...Option) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	g := &Gateway{
		config:   cfg,
		logger:   logger.Named("gateway"),
		router:   router,
		orders:   svc,
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(g)
	}

	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(g.logger))
	if g.metrics != nil {
		router.Use(g.metrics.Middleware())
	}
	router.Use(corsMiddleware(cfg.Server.CORSOrigins))

	return g
}

func (g *Gateway) SetupRoutes() {
	api := g.router.Group("/api")
	{
		api.GET("/health", g.health)

		orders := api.Group("/orders")
		{
			if g.config.Server.Diagnostics {
				orders.GET("/test", g.ping)
				orders.POST("/test-create", g.createTestOrder)
			}

			admin := orders.Group("/admin", g.requireAdmin())
			{
				admin.GET("/all", g.listAllOrders)
				admin.GET("/stats", g.orderStats)
				if g.audit != nil {
					admin.GET("/:id/audit", g.orderAudit)
				}
			}

			user := orders.Group("", g.requireAuth())
			{
				user.POST("", g.createOrder)
				user.POST("/create", g.createOrder)
				user.GET("", g.listOrders)
				user.GET("/:id", g.getOrder)
				user.PATCH("/:id/status", g.updateOrderStatus)
			}
		}

		if g.config.Server.Diagnostics {
			api.GET("/test/db", g.testDB)
		}
	}

	if g.metrics != nil {
		g.router.GET("/metrics", gin.WrapH(g.metrics.Handler()))
	}

	if g.config.Server.Swagger {
		g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
			ginSwagger.InstanceName(docs.SwaggerInfo.InstanceName())))
	}
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Start() error {
	addr := g.config.Server.Address()
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.logger.Info("Gateway starting", zap.String("address", addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}
