package handlers

import (
	"errors"

	"drivemate/internal/app"
	bookingController "drivemate/internal/controllers/booking"
	"drivemate/internal/handlers/middleware"
	"drivemate/internal/services"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type BookingHandler struct {
	Handler
	bookingController bookingController.BookingControllerInterface
	authService       *services.AuthService
}

func NewBookingHandler(app app.App, router fiber.Router) *BookingHandler {
	log := logger.New("handlers").File("booking_handler")
	return &BookingHandler{
		bookingController: app.Controllers.Booking,
		authService:       app.Services.Auth,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *BookingHandler) Register() {
	bookings := h.router.Group("/bookings", h.middleware.RequireAuth(h.authService))

	bookings.Get("", h.getUserBookings)
	bookings.Get("/:id", h.getBooking)
	bookings.Get("/:id/navigation", h.getNavigationTarget)
	bookings.Post("/:id/arrival", h.checkArrival)
}

func bookingStatusForError(err error) int {
	switch {
	case errors.Is(err, bookingController.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, bookingController.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, bookingController.ErrForbidden):
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

func respondBookingError(c *fiber.Ctx, err error, fallback string) error {
	status := bookingStatusForError(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = fallback
	}
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func (h *BookingHandler) getUserBookings(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	bookings, err := h.bookingController.GetUserBookings(c.Context(), user)
	if err != nil {
		return respondBookingError(c, err, "Failed to get bookings")
	}

	return c.JSON(fiber.Map{
		"bookings": bookings,
	})
}

func (h *BookingHandler) getBooking(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid booking ID",
		})
	}

	booking, err := h.bookingController.GetBooking(c.Context(), user, bookingID)
	if err != nil {
		return respondBookingError(c, err, "Failed to get booking")
	}

	return c.JSON(fiber.Map{
		"booking": booking,
	})
}

func (h *BookingHandler) getNavigationTarget(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid booking ID",
		})
	}

	target, err := h.bookingController.GetNavigationTarget(c.Context(), user, bookingID)
	if err != nil {
		return respondBookingError(c, err, "Failed to get navigation target")
	}

	return c.JSON(target)
}

func (h *BookingHandler) checkArrival(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid booking ID",
		})
	}

	var req bookingController.ArrivalCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	check, err := h.bookingController.CheckArrival(c.Context(), user, bookingID, &req)
	if err != nil {
		return respondBookingError(c, err, "Failed to check arrival")
	}

	return c.JSON(check)
}
