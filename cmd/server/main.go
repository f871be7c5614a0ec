package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fixhub-io/fixhub/internal/admin"
	"github.com/fixhub-io/fixhub/internal/alerts"
	"github.com/fixhub-io/fixhub/internal/auth"
	mware "github.com/fixhub-io/fixhub/internal/middleware"
	"github.com/fixhub-io/fixhub/internal/notify"
	"github.com/fixhub-io/fixhub/internal/order"
	"github.com/fixhub-io/fixhub/internal/payment"
	"github.com/fixhub-io/fixhub/internal/review"
	"github.com/fixhub-io/fixhub/internal/storage/postgres"
	"github.com/fixhub-io/fixhub/internal/stream"
	"github.com/fixhub-io/fixhub/internal/user"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx := context.Background()
	store, err := postgres.New(ctx, dsn)
	if err != nil {
		log.Fatalf("storage init: %v", err)
	}
	defer store.Close()

	// Email queue; best effort, orders still transition if Redis or SMTP
	// is down.
	alerts.Init()
	defer alerts.Close()
	if err := alerts.ConfigureMailerFromEnv(); err != nil {
		log.Printf("mailer not configured, emails will fail: %v", err)
	}

	// First-admin bootstrap: promote the configured account if it exists.
	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		if err := store.SetRole(ctx, email, "admin"); err != nil {
			log.Printf("admin bootstrap: could not promote %s: %v", email, err)
		}
	}

	hub := stream.NewHub(store)
	sink := notify.NewSink(store).WithHub(hub).WithMailer(alerts.Queue{}, store)

	orderSvc := order.NewService(store, sink)
	paymentSvc := payment.NewService(store, store, sink)
	reviewSvc := review.NewService(store, store, sink)

	orderH := order.NewHandler(orderSvc)
	paymentH := payment.NewHandler(paymentSvc)
	reviewH := review.NewHandler(reviewSvc)
	notifyH := notify.NewHandler(store)
	authH := auth.NewHandler(store, secret)
	userH := user.NewHandler(store)
	adminH := admin.NewHandler(orderSvc, store)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// Health and root routes
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "fixhub"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Public routes
	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", authH.Signup)
	authGroup.POST("/login", authH.Login)
	authGroup.POST("/bootstrap-admin", authH.BootstrapAdmin)

	e.GET("/user/:id/profile", userH.GetPublicProfile)
	e.GET("/providers/:id/reviews", reviewH.ListForProvider)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWT(secret))

	api.GET("/auth/me", authH.Me)
	api.PATCH("/user/profile", userH.UpdateProfile)

	api.POST("/marketplace/orders", orderH.Create, mware.RequireRoles("customer"))
	api.GET("/marketplace/orders/available", orderH.ListAvailable, mware.RequireRoles("provider"))
	api.GET("/marketplace/orders", orderH.ListMine)
	api.GET("/marketplace/orders/me", orderH.ListMine)
	api.GET("/marketplace/orders/:id", orderH.Get)
	api.POST("/marketplace/orders/:id/accept", orderH.Accept, mware.RequireRoles("provider"))
	api.POST("/marketplace/orders/:id/start", orderH.Start, mware.RequireRoles("provider"))
	api.POST("/marketplace/orders/:id/complete", orderH.Complete, mware.RequireRoles("provider"))
	api.POST("/marketplace/orders/:id/cancel", orderH.Cancel, mware.RequireRoles("customer"))
	api.POST("/marketplace/orders/:id/pay", paymentH.Pay, mware.RequireRoles("customer"))
	api.GET("/marketplace/orders/:id/payment", paymentH.GetForOrder)
	api.POST("/marketplace/orders/:id/review", reviewH.Create, mware.RequireRoles("customer"))
	api.GET("/marketplace/orders/:id/review", reviewH.GetForOrder)
	api.GET("/marketplace/orders/:id/stream", hub.ServeOrder)

	api.GET("/provider/earnings", paymentH.Earnings, mware.RequireRoles("provider"))

	api.GET("/notifications", notifyH.ListMine)
	api.POST("/notifications/:id/read", notifyH.MarkRead)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(mware.JWT(secret))
	adminGroup.Use(mware.AdminGuard)

	adminGroup.GET("/orders", adminH.ListOrders)
	adminGroup.POST("/orders/:id/approve", adminH.ApproveOrder)
	adminGroup.POST("/orders/:id/reject", adminH.RejectOrder)
	adminGroup.PATCH("/orders/:id", adminH.UpdateOrder)
	adminGroup.DELETE("/orders/:id", adminH.DeleteOrder)
	adminGroup.GET("/stats", adminH.DashboardStats)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
