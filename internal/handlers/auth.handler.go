package handlers

import (
	"drivemate/internal/app"
	"drivemate/internal/handlers/middleware"
	"drivemate/internal/repositories"
	"drivemate/internal/services"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Handler
	authService *services.AuthService
	userRepo    repositories.UserRepository
	app         app.App
}

func NewAuthHandler(app app.App, router fiber.Router) *AuthHandler {
	log := logger.New("handlers").File("auth_handler")
	return &AuthHandler{
		authService: app.Services.Auth,
		userRepo:    app.Repos.User,
		app:         app,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *AuthHandler) Register() {
	auth := h.router.Group("/auth")
	auth.Get("/me", h.middleware.RequireAuth(h.authService), h.me)

	// Token minting for local development only; production tokens come from
	// the marketplace identity service.
	if h.app.Config.Environment == "development" {
		auth.Post("/dev-token", h.devToken)
	}
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	return c.JSON(fiber.Map{
		"user": user.ToProfile(),
	})
}

type devTokenRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) devToken(c *fiber.Ctx) error {
	log := h.log.Function("devToken")

	var req devTokenRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email is required",
		})
	}

	user, err := h.userRepo.GetByEmail(c.Context(), h.app.Database.SQL, req.Email)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "user not found",
		})
	}

	token, err := h.authService.GenerateToken(user.ID)
	if err != nil {
		log.Er("failed to generate token", err, "userID", user.ID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user.ToProfile(),
	})
}
