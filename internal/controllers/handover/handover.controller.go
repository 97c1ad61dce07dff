package handoverController

import (
	"context"
	"errors"

	"drivemate/config"
	"drivemate/internal/database"
	. "drivemate/internal/models"
	"drivemate/internal/repositories"
	"drivemate/internal/services"
	"drivemate/internal/storage"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
)

const (
	MaxEvidenceBytes     = 10 << 20
	MaxDamageDescription = 2000
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

type HandoverController struct {
	sessionService  *services.SessionService
	stepEngine      *services.StepEngineService
	progressService *services.ProgressService
	typeService     *services.HandoverTypeService
	finalization    *services.FinalizationService
	reportRepo      repositories.ConditionReportRepository
	evidenceStore   storage.EvidenceStore
	db              database.DB
	Config          config.Config
}

type StartSessionRequest struct {
	BookingID    uuid.UUID `json:"bookingId"`
	HandoverType *string   `json:"handoverType,omitempty"`
}

type StartSessionResponse struct {
	Session *HandoverSession          `json:"session"`
	Steps   []*HandoverStepCompletion `json:"steps"`
}

type CompleteStepRequest struct {
	CompletionData map[string]any `json:"completionData"`
}

type ResolveTypeRequest struct {
	HandoverType *string `json:"handoverType,omitempty"`
}

type ResolveTypeResponse struct {
	HandoverType string `json:"handoverType"`
}

type DamageReportRequest struct {
	Location    string   `json:"location"`
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	Photos      []string `json:"photos,omitempty"`
}

type UploadEvidenceRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

type UploadEvidenceResponse struct {
	URL string `json:"url"`
}

type PresignEvidenceResponse struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
}

type HandoverControllerInterface interface {
	StartSession(
		ctx context.Context,
		user *User,
		request *StartSessionRequest,
	) (*StartSessionResponse, error)
	GetSteps(
		ctx context.Context,
		user *User,
		sessionID uuid.UUID,
	) ([]*HandoverStepCompletion, error)
	CompleteStep(
		ctx context.Context,
		user *User,
		sessionID uuid.UUID,
		stepName string,
		request *CompleteStepRequest,
	) (*HandoverStepCompletion, error)
	GetProgress(ctx context.Context, user *User, sessionID uuid.UUID) (services.Progress, error)
	ResolveType(
		ctx context.Context,
		user *User,
		sessionID uuid.UUID,
		request *ResolveTypeRequest,
	) (*ResolveTypeResponse, error)
	Finalize(ctx context.Context, user *User, sessionID uuid.UUID) (services.FinalizeResult, error)
	GetReport(ctx context.Context, user *User, sessionID uuid.UUID) (*VehicleConditionReport, error)
	AddDamageReport(
		ctx context.Context,
		user *User,
		sessionID uuid.UUID,
		request *DamageReportRequest,
	) ([]DamageReport, error)
	RemoveDamageReport(
		ctx context.Context,
		user *User,
		sessionID uuid.UUID,
		damageID string,
	) ([]DamageReport, error)
	UploadEvidence(
		ctx context.Context,
		user *User,
		sessionID uuid.UUID,
		request *UploadEvidenceRequest,
	) (*UploadEvidenceResponse, error)
	PresignEvidence(
		ctx context.Context,
		user *User,
		sessionID uuid.UUID,
		filename string,
	) (*PresignEvidenceResponse, error)
}

func New(
	repos repositories.Repository,
	svc services.Service,
	evidenceStore storage.EvidenceStore,
	config config.Config,
	db database.DB,
) HandoverControllerInterface {
	return &HandoverController{
		sessionService:  svc.Session,
		stepEngine:      svc.StepEngine,
		progressService: svc.Progress,
		typeService:     svc.HandoverType,
		finalization:    svc.Finalization,
		reportRepo:      repos.ConditionReport,
		evidenceStore:   evidenceStore,
		db:              db,
		Config:          config,
	}
}

func parseHandoverType(raw *string) (*HandoverType, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t := HandoverType(*raw)
	if !t.Valid() {
		return nil, errors.New("handoverType must be pickup or return")
	}
	return &t, nil
}

func (c *HandoverController) StartSession(
	ctx context.Context,
	user *User,
	request *StartSessionRequest,
) (*StartSessionResponse, error) {
	log := logger.New("handoverController").Function("StartSession")

	if request.BookingID == uuid.Nil {
		return nil, log.ErrorWithType(ErrValidation, "bookingId is required")
	}

	handoverType, err := parseHandoverType(request.HandoverType)
	if err != nil {
		return nil, log.ErrorWithType(ErrValidation, "invalid handoverType", "error", err)
	}

	session, steps, err := c.sessionService.StartSession(ctx, request.BookingID, user.ID, handoverType)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			return nil, log.ErrorWithType(ErrNotFound, "booking not found", "bookingID", request.BookingID)
		case errors.Is(err, services.ErrNotParticipant):
			return nil, log.ErrorWithType(ErrForbidden, "user is not a booking participant", "userID", user.ID)
		case errors.Is(err, services.ErrInvalidHandoverType):
			return nil, log.ErrorWithType(ErrValidation, "invalid handoverType")
		}
		return nil, err
	}

	return &StartSessionResponse{Session: session, Steps: steps}, nil
}

func (c *HandoverController) GetSteps(
	ctx context.Context,
	user *User,
	sessionID uuid.UUID,
) ([]*HandoverStepCompletion, error) {
	log := logger.New("handoverController").Function("GetSteps")

	if _, err := c.authorizeSession(ctx, user, sessionID, log); err != nil {
		return nil, err
	}

	steps, err := c.stepEngine.GetSteps(ctx, sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return nil, log.ErrorWithType(ErrNotFound, "session not found", "sessionID", sessionID)
		}
		return nil, err
	}
	return steps, nil
}

func (c *HandoverController) CompleteStep(
	ctx context.Context,
	user *User,
	sessionID uuid.UUID,
	stepName string,
	request *CompleteStepRequest,
) (*HandoverStepCompletion, error) {
	log := logger.New("handoverController").Function("CompleteStep")

	if _, err := c.authorizeSession(ctx, user, sessionID, log); err != nil {
		return nil, err
	}

	step, err := c.stepEngine.CompleteStep(
		ctx,
		sessionID,
		HandoverStepName(stepName),
		request.CompletionData,
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownStep):
			return nil, log.ErrorWithType(ErrValidation, "unknown step", "stepName", stepName)
		case errors.Is(err, services.ErrSessionNotFound):
			return nil, log.ErrorWithType(ErrNotFound, "session not found", "sessionID", sessionID)
		case errors.Is(err, services.ErrSessionCompleted):
			return nil, log.ErrorWithType(ErrConflict, "session already completed", "sessionID", sessionID)
		case errors.Is(err, services.ErrStepNotSatisfied):
			return nil, log.ErrorWithType(
				ErrValidation,
				"step requirements not met",
				"stepName", stepName,
			)
		}
		return nil, err
	}

	return step, nil
}

func (c *HandoverController) GetProgress(
	ctx context.Context,
	user *User,
	sessionID uuid.UUID,
) (services.Progress, error) {
	log := logger.New("handoverController").Function("GetProgress")

	if _, err := c.authorizeSession(ctx, user, sessionID, log); err != nil {
		return services.Progress{}, err
	}

	progress, err := c.progressService.GetProgress(ctx, sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return services.Progress{}, log.ErrorWithType(
				ErrNotFound,
				"session not found",
				"sessionID", sessionID,
			)
		}
		return services.Progress{}, err
	}
	return progress, nil
}

func (c *HandoverController) ResolveType(
	ctx context.Context,
	user *User,
	sessionID uuid.UUID,
	request *ResolveTypeRequest,
) (*ResolveTypeResponse, error) {
	log := logger.New("handoverController").Function("ResolveType")

	if _, err := c.authorizeSession(ctx, user, sessionID, log); err != nil {
		return nil, err
	}

	explicit, err := parseHandoverType(request.HandoverType)
	if err != nil {
		return nil, log.ErrorWithType(ErrValidation, "invalid handoverType", "error", err)
	}

	resolved, err := c.typeService.ResolveType(ctx, sessionID, explicit)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			return nil, log.ErrorWithType(ErrNotFound, "session not found", "sessionID", sessionID)
		case errors.Is(err, services.ErrInvalidHandoverType):
			return nil, log.ErrorWithType(ErrValidation, "invalid handoverType")
		}
		return nil, err
	}

	return &ResolveTypeResponse{HandoverType: string(resolved)}, nil
}

func (c *HandoverController) Finalize(
	ctx context.Context,
	user *User,
	sessionID uuid.UUID,
) (services.FinalizeResult, error) {
	log := logger.New("handoverController").Function("Finalize")

	if _, err := c.authorizeSession(ctx, user, sessionID, log); err != nil {
		return services.FinalizeResult{}, err
	}

	result, err := c.finalization.Finalize(ctx, sessionID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			return services.FinalizeResult{}, log.ErrorWithType(
				ErrNotFound,
				"session not found",
				"sessionID", sessionID,
			)
		case errors.Is(err, services.ErrStepsIncomplete):
			return services.FinalizeResult{}, log.ErrorWithType(
				ErrConflict,
				"cannot finalize with incomplete steps",
				"sessionID", sessionID,
			)
		case errors.Is(err, services.ErrFinalizationPartial):
			// Session is completed; surface the partial result with the error so
			// the transport can report 207-style semantics.
			return result, err
		}
		return services.FinalizeResult{}, err
	}
	return result, nil
}

func (c *HandoverController) GetReport(
	ctx context.Context,
	user *User,
	sessionID uuid.UUID,
) (*VehicleConditionReport, error) {
	log := logger.New("handoverController").Function("GetReport")

	if _, err := c.authorizeSession(ctx, user, sessionID, log); err != nil {
		return nil, err
	}

	report, err := c.reportRepo.GetBySessionID(ctx, c.db.SQL, sessionID)
	if err != nil {
		return nil, log.ErrorWithType(ErrNotFound, "report not found", "sessionID", sessionID)
	}
	return report, nil
}

func (c *HandoverController) UploadEvidence(
	ctx context.Context,
	user *User,
	sessionID uuid.UUID,
	request *UploadEvidenceRequest,
) (*UploadEvidenceResponse, error) {
	log := logger.New("handoverController").Function("UploadEvidence")

	if _, err := c.authorizeSession(ctx, user, sessionID, log); err != nil {
		return nil, err
	}

	if request.Filename == "" {
		return nil, log.ErrorWithType(ErrValidation, "filename is required")
	}
	if len(request.Data) == 0 {
		return nil, log.ErrorWithType(ErrValidation, "file data is required")
	}
	if len(request.Data) > MaxEvidenceBytes {
		return nil, log.ErrorWithType(
			ErrValidation,
			"file exceeds maximum size",
			"size", len(request.Data),
			"max", MaxEvidenceBytes,
		)
	}

	url, err := c.evidenceStore.Upload(
		ctx,
		sessionID,
		request.Filename,
		request.ContentType,
		request.Data,
	)
	if err != nil {
		return nil, log.Error("failed to upload evidence", "error", err, "sessionID", sessionID)
	}

	return &UploadEvidenceResponse{URL: url}, nil
}

func (c *HandoverController) PresignEvidence(
	ctx context.Context,
	user *User,
	sessionID uuid.UUID,
	filename string,
) (*PresignEvidenceResponse, error) {
	log := logger.New("handoverController").Function("PresignEvidence")

	if _, err := c.authorizeSession(ctx, user, sessionID, log); err != nil {
		return nil, err
	}

	if filename == "" {
		return nil, log.ErrorWithType(ErrValidation, "filename is required")
	}

	uploadURL, publicURL, err := c.evidenceStore.PresignUpload(ctx, sessionID, filename)
	if err != nil {
		return nil, log.Error("failed to presign upload", "error", err, "sessionID", sessionID)
	}

	return &PresignEvidenceResponse{UploadURL: uploadURL, PublicURL: publicURL}, nil
}

func (c *HandoverController) authorizeSession(
	ctx context.Context,
	user *User,
	sessionID uuid.UUID,
	log logger.Logger,
) (*HandoverSession, error) {
	if sessionID == uuid.Nil {
		return nil, log.ErrorWithType(ErrValidation, "sessionId is required")
	}

	session, err := c.sessionService.GetSession(ctx, sessionID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			return nil, log.ErrorWithType(ErrNotFound, "session not found", "sessionID", sessionID)
		case errors.Is(err, services.ErrNotParticipant):
			return nil, log.ErrorWithType(
				ErrForbidden,
				"user is not a session participant",
				"sessionID", sessionID,
				"userID", user.ID,
			)
		}
		return nil, err
	}
	return session, nil
}
