// Package server assembles the fiber app: middleware chain and route table.
package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/auth"
	"github.com/fathima-sithara/quickads/internal/chat"
	"github.com/fathima-sithara/quickads/internal/handlers"
	"github.com/fathima-sithara/quickads/internal/middleware"
	"github.com/fathima-sithara/quickads/internal/ratelimit"
	"github.com/fathima-sithara/quickads/internal/utils"
)

type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
	AdminRole    string
}

type Deps struct {
	Handler  *handlers.Handler
	Verifier *auth.Verifier
	Limiter  ratelimit.Limiter
	Relay    *chat.Relay
	Log      *zap.Logger
}

// New builds the app with every route registered.
func New(conf Config, d Deps) *fiber.App {
	if conf.BodyLimit <= 0 {
		conf.BodyLimit = 32 << 20
	}
	app := fiber.New(fiber.Config{
		AppName:      "quickads",
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
		BodyLimit:    conf.BodyLimit,
		ErrorHandler: errorHandler(d.Log),
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(d.Log))
	app.Use(middleware.Metrics())

	RegisterRoutes(app, conf, d)
	return app
}

// RegisterRoutes wires the public, user and admin routes.
func RegisterRoutes(app *fiber.App, conf Config, d Deps) {
	h := d.Handler
	optional := middleware.JWT(d.Verifier, false, d.Log)
	required := middleware.JWT(d.Verifier, true, d.Log)

	app.Get("/healthz", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")
	if d.Limiter != nil {
		api.Use(middleware.RateLimit(d.Limiter, d.Log))
	}
	api.Get("/catalog", h.Catalog)
	api.Get("/ads", optional, h.Ads)
	api.Get("/ads/mine", required, h.MyAds)
	api.Post("/chat/ask", optional, h.Ask)

	otp := api.Group("/otp", required)
	otp.Get("/status", h.OTPStatus)
	otp.Post("/send", h.SendOTP)
	otp.Post("/verify", h.VerifyOTP)

	api.Get("/posts/gate", required, h.Gate)
	api.Post("/uploads", required, h.Upload)
	api.Post("/posts", required, h.RequireVerified, h.CreatePost)
	api.Put("/posts/:id", required, h.EditPost)
	api.Delete("/posts/:id", required, h.DeletePost)

	admin := api.Group("/admin", required, middleware.RequireRole(conf.AdminRole))
	admin.Get("/posts", h.AdminPosts)
	admin.Get("/posts/:id", h.AdminPost)
	admin.Post("/posts/:id/accept", h.AcceptPost)

	profile := api.Group("/profile", required)
	profile.Get("/", h.GetProfile)
	profile.Post("/", h.CreateProfile)
	profile.Put("/", h.UpdateProfile)
	profile.Get("/photo", h.GetProfilePhoto)
	profile.Post("/photo", h.CreateProfilePhoto)
	profile.Put("/photo", h.UpdateProfilePhoto)

	if d.Relay != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/chat", websocket.New(d.Relay.Handler))
	}
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return utils.JSONError(c, fe.Code, fe.Message)
		}
		log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return utils.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
