package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cheongsim/delivery-app/board"
	"github.com/cheongsim/delivery-app/config"
	"github.com/cheongsim/delivery-app/controllers"
	"github.com/cheongsim/delivery-app/middlewares"
	"github.com/cheongsim/delivery-app/services"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/cheongsim/delivery-app/web"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errRouteNotFound = errors.New("route not found")

// Options berisi dependency yang dibutuhkan router
type Options struct {
	DB         *gorm.DB
	Config     *config.Config
	Dispatcher *services.Dispatcher
	Hub        *board.Hub
}

// imageOnly menolak akses /uploads selain file gambar
func imageOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !controllers.IsAllowedImage(c.Request.URL.Path) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func SetupRouter(opts Options) (*gin.Engine, error) {
	cfg := opts.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.ClientURL))

	// Inisialisasi service & controller
	orderService := services.NewOrderService(opts.DB, opts.Dispatcher, cfg.NotificationMode)
	salesService := services.NewSalesService(opts.DB)

	menuCtrl := controllers.NewMenuController(opts.DB, cfg.UploadDir, opts.Hub)
	riderCtrl := controllers.NewRiderController(opts.DB)
	orderCtrl := controllers.NewOrderController(orderService, opts.Hub)
	salesCtrl := controllers.NewSalesController(salesService)
	notificationCtrl := controllers.NewNotificationController(opts.Dispatcher)
	boardCtrl := controllers.NewBoardController(opts.Hub)
	adminCtrl, err := controllers.NewAdminController(cfg)
	if err != nil {
		return nil, err
	}

	// Melayani File Statis
	uploads := r.Group("/uploads", imageOnly())
	uploads.Static("/", cfg.UploadDir)

	r.StaticFS("/app", web.FS())
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/app/")
	})

	r.GET("/ping", func(c *gin.Context) {
		utils.RespondJSON(c, http.StatusOK, "pong", nil)
	})

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	api := r.Group("/api")

	api.GET("/menus", menuCtrl.GetAllMenus)
	api.GET("/menus/:id", menuCtrl.GetMenuByID)
	api.POST("/menus/:id/reviews", menuCtrl.AddReview)

	// Membuat order (Customer tidak perlu login), dibatasi per IP
	orderLimiter := middlewares.NewRateLimiter(cfg.OrderRateLimit)
	api.POST("/orders", orderLimiter.RateLimit(), orderCtrl.CreateOrder)
	api.GET("/orders/by-customer/:number", orderCtrl.GetOrdersByCustomer)
	api.GET("/orders/waiting-position/:number", orderCtrl.GetWaitingPosition)

	api.GET("/admin/status", adminCtrl.Status)
	api.POST("/admin/login", adminCtrl.Login)

	// ----------------------------------------------------------------
	//                      ADMIN ROUTES
	// ----------------------------------------------------------------
	admin := api.Group("")
	admin.Use(middlewares.AdminAuthMiddleware(cfg))

	admin.POST("/admin/logout", adminCtrl.Logout)

	// MENU
	admin.POST("/menus", menuCtrl.CreateMenu)
	admin.PUT("/menus/:id", menuCtrl.UpdateMenu)
	admin.DELETE("/menus/:id", menuCtrl.DeleteMenu)

	// RIDERS
	admin.GET("/riders", riderCtrl.GetAllRiders)
	admin.POST("/riders", riderCtrl.CreateRider)
	admin.GET("/riders/:id", riderCtrl.GetRiderByID)
	admin.PUT("/riders/:id", riderCtrl.UpdateRider)
	admin.DELETE("/riders/:id", riderCtrl.DeleteRider)

	// ORDERS
	admin.GET("/orders", orderCtrl.GetAllOrders)
	admin.GET("/orders/:id", orderCtrl.GetOrderByID)
	admin.PUT("/orders/:id", orderCtrl.UpdateOrder)
	admin.PATCH("/orders/:id/completion", orderCtrl.SetCompletion)
	admin.DELETE("/orders/:id", orderCtrl.DeleteOrder)

	// NOTIFICATIONS
	admin.GET("/notifications", notificationCtrl.GetNotifications)
	admin.GET("/notifications/metrics", notificationCtrl.GetMetrics)
	admin.POST("/notifications/:id/retry", notificationCtrl.RetryNotification)

	// SALES
	admin.GET("/sales/stats", salesCtrl.GetStats)
	admin.GET("/sales/chart.png", salesCtrl.GetChart)

	// Board WebSocket untuk layar staff
	admin.GET("/board/ws", boardCtrl.BoardHandler)

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			utils.RespondError(c, http.StatusNotFound, errRouteNotFound)
			return
		}
		c.AbortWithStatus(http.StatusNotFound)
	})

	return r, nil
}
