package http

import (
	"log/slog"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/softwareparlat/main/internal/http/handlers"
	"github.com/softwareparlat/main/internal/http/handlers/admin"
	"github.com/softwareparlat/main/internal/http/middleware"
	"github.com/softwareparlat/main/internal/modules/partners"
	"github.com/softwareparlat/main/internal/modules/payments"
	"github.com/softwareparlat/main/internal/modules/providerconfig"
)

type Deps struct {
	DB          *gorm.DB
	JWTSecret   []byte
	RateLimiter *middleware.RateLimiter // nil disables limiting

	Checkout       *payments.Service
	Reconciler     *payments.Reconciler
	Events         *payments.EventLog
	WebhookSecrets handlers.WebhookSecretSource
	Partners       *partners.Service
	ProviderConfig *providerconfig.Service

	// zero keeps the handler default, negative disables the window
	SignatureTolerance time.Duration
}

func NewRouter(logger *slog.Logger, d Deps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.ErrorHandler(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Authenticate(d.JWTSecret))

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(stdhttp.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(stdhttp.StatusOK, gin.H{"status": "ok"})
	})

	limited := func(c *gin.Context) { c.Next() }
	if d.RateLimiter != nil {
		limited = d.RateLimiter.Middleware()
	}

	api := r.Group("/api")

	wh := handlers.NewWebhookHandler(logger, d.Reconciler, d.Events, d.WebhookSecrets)
	if d.SignatureTolerance != 0 {
		wh.SignatureTolerance = d.SignatureTolerance
	}
	api.POST("/webhooks/mercadopago", limited, wh.Handle)

	ph := handlers.NewPaymentsHandler(d.Checkout)
	api.POST("/payments/create", limited, middleware.RequireAuth(), ph.Create)

	pt := handlers.NewPartnersHandler(d.Partners)
	partnerRoutes := api.Group("/partners", middleware.RequireAuth())
	partnerRoutes.POST("/register", pt.Register)
	partnerRoutes.GET("/dashboard", pt.Dashboard)

	pc := admin.NewProviderConfigHandler(d.ProviderConfig)
	adminRoutes := api.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))
	adminRoutes.GET("/provider-config", pc.Get)
	adminRoutes.PUT("/provider-config", pc.Update)
	adminRoutes.POST("/provider-config/test", pc.Test)

	return r
}
