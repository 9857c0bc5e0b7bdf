package routes

import (
	"net/http"

	"food-ordering-api/handlers"
	"food-ordering-api/middleware"
	"food-ordering-api/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	Auth        middleware.Authenticator
	UploadDir   string
	CORSOrigins []string
	Log         *zap.Logger
}

// NewRouter builds the engine with the shared middleware and every route.
func NewRouter(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(opts.Log), middleware.RequestLogger(opts.Log), middleware.CORS(opts.CORSOrigins))

	r.GET("/health", handlers.Health)
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Food Ordering API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   models.AllRoles,
		})
	})
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	SetupRoutes(r, h, opts.Auth)
	return r
}

func SetupRoutes(r *gin.Engine, h *handlers.Handler, auth middleware.Authenticator) {
	authed := middleware.AuthRequired(auth, h.Log)
	kitchen := middleware.RoleRequired(models.RoleStaff, models.RoleAdmin, models.RoleSuperAdmin, models.RoleDelivery)
	managers := middleware.RoleRequired(models.RoleAdmin, models.RoleSuperAdmin)
	superOnly := middleware.RoleRequired(models.RoleSuperAdmin)

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		public.GET("/state-machine", h.GetStateMachineInfo)
		public.GET("/foods", h.ListFoods)
		public.GET("/foods/:id", h.GetFood)
		public.GET("/admin/restaurants", h.ListRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
	}

	// ── Users ──────────────────────────────────────────────────────
	users := r.Group("/api/users")
	{
		users.POST("/register", h.Register)
		users.POST("/login", h.Login)
		users.GET("/me", authed, h.Me)
		users.GET("/profile/:id", authed, h.GetProfile)
		users.PUT("/profile/:id", authed, h.UpdateProfile)
		users.POST("/upload", authed, h.Upload)
	}

	// ── Foods ──────────────────────────────────────────────────────
	foods := r.Group("/api/foods")
	foods.Use(authed)
	{
		foods.POST("", middleware.RoleRequired(models.RoleAdmin, models.RoleStaff, models.RoleSuperAdmin), h.CreateFood)
		foods.PUT("/:id", managers, h.UpdateFood)
		foods.DELETE("/:id", managers, h.DeleteFood)
	}

	// ── Orders ─────────────────────────────────────────────────────
	orders := r.Group("/api/orders")
	orders.Use(authed)
	{
		orders.POST("", middleware.RoleRequired(models.RoleCustomer), h.PlaceOrder)
		orders.GET("/user/:userId", h.GetCustomerOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id/rating", middleware.RoleRequired(models.RoleCustomer), h.RateOrder)
		orders.DELETE("/:id", managers, h.DeleteOrder)
	}

	// ── Staff / delivery ───────────────────────────────────────────
	staff := r.Group("/api/staff")
	staff.Use(authed, kitchen)
	{
		staff.GET("/orders/pending", h.GetPendingOrders)
		staff.GET("/orders/managed", h.GetManagedOrders)
		staff.PATCH("/orders/:id/accept", h.AcceptOrder)
		staff.PATCH("/orders/:id/reject", h.RejectOrder)
		staff.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		staff.PATCH("/orders/:id/agree-delivery", h.AgreeDelivery)
		staff.PATCH("/orders/:id/reject-delivery", h.RejectDelivery)
		staff.GET("/stats", h.GetStats)
	}

	// ── Admin ──────────────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(authed)
	{
		admin.GET("/stats", kitchen, h.GetStats)
		admin.GET("/performance", kitchen, h.GetPerformance)
		admin.GET("/orders", kitchen, h.ListOrders)
		admin.GET("/my-restaurant", middleware.RoleRequired(models.RoleAdmin, models.RoleStaff, models.RoleDelivery), h.GetMyRestaurant)
		admin.GET("/top-restaurants", superOnly, h.GetTopRestaurants)
		admin.GET("/restaurants-with-stats", superOnly, h.GetRestaurantsWithStats)
		admin.POST("/restaurants", superOnly, h.CreateRestaurant)
		admin.PUT("/restaurants/:id", superOnly, h.UpdateRestaurant)
		admin.DELETE("/restaurants/:id", superOnly, h.DeleteRestaurant)
		admin.POST("/staff", managers, h.CreateStaff)
		admin.GET("/staff", managers, h.ListStaff)
		admin.DELETE("/staff/:id", managers, h.DeleteStaff)
	}

	// ── Messages ───────────────────────────────────────────────────
	messages := r.Group("/api/messages")
	messages.Use(authed)
	{
		messages.POST("", h.SendMessage)
		messages.POST("/reply", kitchen, h.ReplyMessage)
		messages.GET("/user/:userId", h.GetUserMessages)
		messages.GET("/restaurant/:restaurantId", kitchen, h.GetRestaurantMessages)
		messages.PATCH("/:id/read", h.MarkMessageRead)
		messages.GET("/ws", h.MessageStream)
	}
}
