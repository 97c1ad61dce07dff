package handlers

import (
	"errors"
	"io"

	"drivemate/internal/app"
	handoverController "drivemate/internal/controllers/handover"
	"drivemate/internal/handlers/middleware"
	"drivemate/internal/services"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type HandoverHandler struct {
	Handler
	handoverController handoverController.HandoverControllerInterface
	authService        *services.AuthService
}

func NewHandoverHandler(app app.App, router fiber.Router) *HandoverHandler {
	log := logger.New("handlers").File("handover_handler")
	return &HandoverHandler{
		handoverController: app.Controllers.Handover,
		authService:        app.Services.Auth,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *HandoverHandler) Register() {
	handovers := h.router.Group("/handovers", h.middleware.RequireAuth(h.authService))

	handovers.Post("", h.startSession)
	handovers.Get("/:id/steps", h.getSteps)
	handovers.Post("/:id/steps/:stepName/complete", h.completeStep)
	handovers.Get("/:id/progress", h.getProgress)
	handovers.Post("/:id/type", h.resolveType)
	handovers.Post("/:id/finalize", h.finalize)
	handovers.Get("/:id/report", h.getReport)
	handovers.Post("/:id/damages", h.addDamage)
	handovers.Delete("/:id/damages/:damageId", h.removeDamage)
	handovers.Post("/:id/evidence", h.uploadEvidence)
	handovers.Post("/:id/evidence/presign", h.presignEvidence)
}

// statusForError maps controller sentinel errors onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, handoverController.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, handoverController.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, handoverController.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, handoverController.ErrConflict):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error, fallback string) error {
	status := statusForError(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = fallback
	}
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func sessionIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

func (h *HandoverHandler) startSession(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req handoverController.StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	response, err := h.handoverController.StartSession(c.Context(), user, &req)
	if err != nil {
		return respondError(c, err, "Failed to start handover session")
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

func (h *HandoverHandler) getSteps(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	sessionID, err := sessionIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	steps, err := h.handoverController.GetSteps(c.Context(), user, sessionID)
	if err != nil {
		return respondError(c, err, "Failed to get steps")
	}

	return c.JSON(fiber.Map{
		"steps": steps,
	})
}

func (h *HandoverHandler) completeStep(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	sessionID, err := sessionIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	var req handoverController.CompleteStepRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	step, err := h.handoverController.CompleteStep(
		c.Context(),
		user,
		sessionID,
		c.Params("stepName"),
		&req,
	)
	if err != nil {
		return respondError(c, err, "Failed to complete step")
	}

	return c.JSON(fiber.Map{
		"step": step,
	})
}

func (h *HandoverHandler) getProgress(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	sessionID, err := sessionIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	progress, err := h.handoverController.GetProgress(c.Context(), user, sessionID)
	if err != nil {
		return respondError(c, err, "Failed to get progress")
	}

	return c.JSON(progress)
}

func (h *HandoverHandler) resolveType(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	sessionID, err := sessionIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	var req handoverController.ResolveTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	response, err := h.handoverController.ResolveType(c.Context(), user, sessionID, &req)
	if err != nil {
		return respondError(c, err, "Failed to resolve handover type")
	}

	return c.JSON(response)
}

func (h *HandoverHandler) finalize(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	sessionID, err := sessionIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	result, err := h.handoverController.Finalize(c.Context(), user, sessionID)
	if err != nil {
		// Completed-but-degraded: the session is final even though the report
		// write failed, so the client still gets a routable result.
		if errors.Is(err, services.ErrFinalizationPartial) {
			return c.Status(fiber.StatusMultiStatus).JSON(fiber.Map{
				"result":  result,
				"warning": "session completed but condition report creation failed",
			})
		}
		return respondError(c, err, "Failed to finalize handover")
	}

	return c.JSON(fiber.Map{
		"result": result,
	})
}

func (h *HandoverHandler) getReport(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	sessionID, err := sessionIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	report, err := h.handoverController.GetReport(c.Context(), user, sessionID)
	if err != nil {
		return respondError(c, err, "Failed to get report")
	}

	return c.JSON(fiber.Map{
		"report": report,
	})
}

func (h *HandoverHandler) addDamage(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	sessionID, err := sessionIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	var req handoverController.DamageReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	damages, err := h.handoverController.AddDamageReport(c.Context(), user, sessionID, &req)
	if err != nil {
		return respondError(c, err, "Failed to add damage report")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"damages": damages,
	})
}

func (h *HandoverHandler) removeDamage(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	sessionID, err := sessionIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	damages, err := h.handoverController.RemoveDamageReport(
		c.Context(),
		user,
		sessionID,
		c.Params("damageId"),
	)
	if err != nil {
		return respondError(c, err, "Failed to remove damage report")
	}

	return c.JSON(fiber.Map{
		"damages": damages,
	})
}

func (h *HandoverHandler) uploadEvidence(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	sessionID, err := sessionIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	opened, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to read file",
		})
	}
	defer func() { _ = opened.Close() }()

	data, err := io.ReadAll(opened)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to read file",
		})
	}

	response, err := h.handoverController.UploadEvidence(
		c.Context(),
		user,
		sessionID,
		&handoverController.UploadEvidenceRequest{
			Filename:    file.Filename,
			ContentType: file.Header.Get("Content-Type"),
			Data:        data,
		},
	)
	if err != nil {
		return respondError(c, err, "Failed to upload evidence")
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

func (h *HandoverHandler) presignEvidence(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	sessionID, err := sessionIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	var req struct {
		Filename string `json:"filename"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	response, err := h.handoverController.PresignEvidence(c.Context(), user, sessionID, req.Filename)
	if err != nil {
		return respondError(c, err, "Failed to presign evidence upload")
	}

	return c.JSON(response)
}
