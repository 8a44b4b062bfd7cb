package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"oiko/internal/analytics"
	"oiko/internal/auth"
	"oiko/internal/checkout"
	"oiko/internal/metrics"
	"oiko/internal/middleware"
	"oiko/internal/orders"
	"oiko/internal/rewards"
	"oiko/internal/store"
)

// Notifier covers the emails sent directly from handlers.
type Notifier interface {
	TrialNotifier
	SubscriberNotifier
}

// Deps is everything the router wires into handlers.
type Deps struct {
	DB *mongo.Database

	Users       store.UserStore
	Products    store.ProductStore
	Designs     store.DesignStore
	Subscribers store.SubscriberStore
	Trials      store.TrialStore

	Tokens    *auth.Tokens
	Checkout  *checkout.Service
	Orders    *orders.Service
	Rewards   *rewards.Service
	Analytics *analytics.Service
	Webhooks  WebhookParser
	Images    ImageHost
	Mail      Notifier

	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	Limiter  *middleware.RateLimiter
	Logger   *zap.Logger

	Auth      AuthOptions
	TrialCity string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if d.Logger != nil {
		r.Use(middleware.RequestLogger(d.Logger))
	}
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	r.Use(middleware.SecurityHeaders())

	limited := func() gin.HandlerFunc {
		if d.Limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return d.Limiter.Middleware()
	}
	requireAuth := middleware.AuthGuard(d.Tokens, d.Users)
	optionalAuth := middleware.OptionalAuth(d.Tokens, d.Users)

	r.GET("/", Home())
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))
	}

	api := r.Group("/api")
	api.GET("/health", Health(d.DB))

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", limited(), Register(d.Users, d.Tokens, d.Auth))
		authGroup.POST("/login", limited(), Login(d.Users, d.Tokens, d.Auth))
		authGroup.POST("/logout", Logout(d.Auth))
		authGroup.GET("/me", requireAuth, GetMe())
	}

	api.GET("/categories", GetCategories())
	api.GET("/products", GetProducts(d.Products))
	api.GET("/products/:id", GetProduct(d.Products))

	user := api.Group("/user")
	user.Use(requireAuth)
	{
		user.GET("/profile", GetProfile())
		user.PUT("/profile", UpdateProfile(d.Users))
		user.GET("/addresses", GetUserAddresses())
		user.POST("/addresses", CreateUserAddress(d.Users))
		user.PUT("/addresses/:id", UpdateUserAddress(d.Users))
		user.DELETE("/addresses/:id", DeleteUserAddress(d.Users))
		user.PATCH("/addresses/:id/default", SetDefaultUserAddress(d.Users))
	}

	cart := api.Group("/cart")
	cart.Use(requireAuth)
	{
		cart.GET("", GetCart(d.Products))
		cart.POST("", AddCartItem(d.Users))
		cart.DELETE("", ClearCart(d.Users))
		cart.PUT("/:itemId", UpdateCartItem(d.Users))
		cart.DELETE("/:itemId", RemoveCartItem(d.Users))
	}

	wishlist := api.Group("/wishlist")
	wishlist.Use(requireAuth)
	{
		wishlist.GET("", GetWishlist(d.Products))
		wishlist.POST("", AddToWishlist(d.Users))
		wishlist.DELETE("/:productId", RemoveFromWishlist(d.Users))
	}

	api.POST("/checkout/payment-intent", optionalAuth, CreatePaymentIntent(d.Checkout))
	api.POST("/orders", optionalAuth, CreateOrder(d.Checkout))
	api.GET("/orders", requireAuth, GetOrders(d.Orders))
	api.GET("/orders/:id", requireAuth, GetOrder(d.Orders))
	api.POST("/webhooks/stripe", StripeWebhook(d.Webhooks, d.Checkout))

	rewardsGroup := api.Group("/rewards")
	rewardsGroup.Use(requireAuth)
	{
		rewardsGroup.GET("", GetRewards(d.Rewards))
		rewardsGroup.POST("/claim", ClaimReward(d.Rewards))
		rewardsGroup.POST("/birthday", ClaimBirthdayReward(d.Rewards))
		rewardsGroup.GET("/claims", GetRewardClaims(d.Rewards))
	}

	designs := api.Group("/designs")
	designs.Use(requireAuth)
	{
		designs.GET("", ListDesigns(d.Designs))
		designs.POST("", CreateDesign(d.Designs))
		designs.GET("/:id", GetDesign(d.Designs))
		designs.PUT("/:id", UpdateDesign(d.Designs, d.Images))
		designs.DELETE("/:id", DeleteDesign(d.Designs, d.Images))
	}

	api.POST("/upload", requireAuth, UploadImage(d.Images))
	api.DELETE("/upload/:publicId", requireAuth, DeleteImage(d.Images))

	api.POST("/trials", requireAuth, limited(), CreateTrial(d.Trials, d.Mail, d.TrialCity))
	api.GET("/trials", requireAuth, GetMyTrials(d.Trials))

	api.POST("/newsletter/subscribe", limited(), Subscribe(d.Subscribers, d.Mail))
	api.POST("/newsletter/unsubscribe", limited(), Unsubscribe(d.Subscribers))

	api.POST("/admin/login", limited(), AdminLogin(d.Users, d.Tokens, d.Auth))

	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(d.Tokens, d.Users))
	{
		admin.GET("/products", GetAllProducts(d.Products))
		admin.POST("/products", CreateProduct(d.Products))
		admin.PUT("/products/:id", UpdateProduct(d.Products))
		admin.DELETE("/products/:id", DeleteProduct(d.Products, d.Images))

		admin.GET("/orders", AdminListOrders(d.Orders))
		admin.GET("/orders/:id", AdminGetOrder(d.Orders))
		admin.PATCH("/orders/:id", AdminUpdateOrder(d.Orders))
		admin.DELETE("/orders/:id", DeleteOrder(d.Orders))

		admin.GET("/users", AdminListUsers(d.Users))
		admin.PATCH("/users/:id", AdminUpdateUser(d.Users))

		admin.GET("/analytics", GetAnalytics(d.Analytics))

		admin.GET("/trials", AdminListTrials(d.Trials))
		admin.PATCH("/trials/:id", AdminUpdateTrial(d.Trials))

		admin.GET("/subscribers", AdminListSubscribers(d.Subscribers))
	}

	return r
}
