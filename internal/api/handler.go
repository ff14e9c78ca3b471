package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/auth"
	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/checkout"
	"storefront-service/internal/service"
	"storefront-service/internal/util"
	"storefront-service/internal/wishlist"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// UserRegistry creates the user document on first sign-in
type UserRegistry interface {
	EnsureUser(ctx context.Context, id, email, role string) error
}

// Pinger reports whether a dependency is reachable
type Pinger func(ctx context.Context) error

// Deps are the services behind the HTTP API
type Deps struct {
	Catalog   *catalog.Store
	Carts     *cart.Service
	Wishlists *wishlist.Service
	Checkout  *checkout.Reconciler
	Orders    *service.OrderService
	Admin     *service.AdminService
	Profiles  *service.ProfileService
	Auth      *auth.Provider
	Users     UserRegistry
	Readiness map[string]Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	catalog   *catalog.Store
	carts     *cart.Service
	wishlists *wishlist.Service
	checkout  *checkout.Reconciler
	orders    *service.OrderService
	admin     *service.AdminService
	profiles  *service.ProfileService
	auth      *auth.Provider
	users     UserRegistry
	readiness map[string]Pinger
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		catalog:   deps.Catalog,
		carts:     deps.Carts,
		wishlists: deps.Wishlists,
		checkout:  deps.Checkout,
		orders:    deps.Orders,
		admin:     deps.Admin,
		profiles:  deps.Profiles,
		auth:      deps.Auth,
		users:     deps.Users,
		readiness: deps.Readiness,
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine, allowedOrigins []string) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	corsConfig := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", sessionHeader, idempotencyHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		// cookies are never sent cross-origin without an explicit allow list
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/products/:id/price", h.quotePrice)

		carts := v1.Group("/cart", optionalAuth(h.auth), requireSession())
		{
			carts.GET("", h.getCart)
			carts.POST("/items", h.addCartItem)
			carts.PATCH("/items/:lineId", h.updateCartItem)
			carts.DELETE("/items/:lineId", h.removeCartItem)
			carts.DELETE("", h.clearCart)
		}

		authed := v1.Group("", requireAuth(h.auth))
		{
			authed.POST("/session", h.signIn)
			authed.DELETE("/session", h.signOut)

			authed.GET("/wishlist", h.getWishlist)
			authed.POST("/wishlist", h.addToWishlist)
			authed.DELETE("/wishlist/:productId", h.removeFromWishlist)
			authed.POST("/wishlist/:productId/toggle", h.toggleWishlist)

			authed.GET("/profile", h.getProfile)
			authed.PUT("/profile", h.updateProfile)

			authed.GET("/checkout/shipping", h.checkoutShipping)
			authed.POST("/checkout", h.submitCheckout)
			authed.GET("/orders", h.listMyOrders)
			authed.GET("/orders/:id", h.getOrder)
		}

		admin := v1.Group("/admin", requireAuth(h.auth), requireRole(auth.RoleAdmin))
		{
			admin.GET("/dashboard", h.dashboard)
			admin.GET("/products", h.adminListProducts)
			admin.POST("/products", h.createProduct)
			admin.PUT("/products/:id", h.updateProduct)
			admin.DELETE("/products/:id", h.deleteProduct)
			admin.GET("/orders", h.adminListOrders)
			admin.PATCH("/orders/:id/status", h.updateOrderStatus)
			admin.GET("/users", h.listUsers)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the catalog is loaded and every dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	if _, loaded := h.catalog.Loaded(); loaded {
		checks["catalog"] = "ok"
	} else {
		checks["catalog"] = "not loaded"
		ready = false
	}

	for name, ping := range h.readiness {
		if err := ping(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not ready", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}

func pagination(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return limit, offset
}
