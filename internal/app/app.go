package app

import (
	"context"

	"drivemate/config"
	"drivemate/internal/database"
	"drivemate/internal/events"
	"drivemate/internal/handlers/middleware"
	"drivemate/internal/jobs"
	"drivemate/internal/repositories"
	"drivemate/internal/services"
	"drivemate/internal/storage"
	"drivemate/internal/websockets"

	bookingController "drivemate/internal/controllers/booking"
	handoverController "drivemate/internal/controllers/handover"

	logger "github.com/Bparsons0904/goLogger"
)

type Controllers struct {
	Handover handoverController.HandoverControllerInterface
	Booking  bookingController.BookingControllerInterface
}

type App struct {
	Database    database.DB
	Middleware  middleware.Middleware
	Websocket   *websockets.Manager
	EventBus    *events.EventBus
	Config      config.Config
	Services    services.Service
	Repos       repositories.Repository
	Controllers Controllers
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.New()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events, config)

	repos := repositories.New(db)

	svc, err := services.New(db, config, eventBus)
	if err != nil {
		return &App{}, log.Err("failed to create services", err)
	}

	evidenceStore, err := storage.NewS3EvidenceStore(config)
	if err != nil {
		return &App{}, log.Err("failed to create evidence store", err)
	}

	websocket, err := websockets.New(db, eventBus, config, svc.Auth, repos.HandoverSession)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	middleware := middleware.New(db, eventBus, config, repos)
	handoverCtrl := handoverController.New(repos, svc, evidenceStore, config, db)
	bookingCtrl := bookingController.New(repos, svc, config, db)

	if config.SchedulerEnabled {
		reportFollowupJob := jobs.NewReportFollowupJob(
			db,
			repos.HandoverSession,
			svc.Finalization,
			services.Hourly,
		)
		if err := svc.Scheduler.AddJob(reportFollowupJob); err != nil {
			return &App{}, log.Err("failed to register report followup job", err)
		}
		log.Info("Registered report followup job with scheduler")
	}

	app := &App{
		Database:   db,
		Config:     config,
		Middleware: middleware,
		Websocket:  websocket,
		EventBus:   eventBus,
		Services:   svc,
		Repos:      repos,
		Controllers: Controllers{
			Handover: handoverCtrl,
			Booking:  bookingCtrl,
		},
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.Websocket,
		a.EventBus,
		a.Services.Transaction,
		a.Services.Session,
		a.Services.StepEngine,
		a.Services.Progress,
		a.Services.HandoverType,
		a.Services.Finalization,
		a.Services.Navigation,
		a.Services.Scheduler,
		a.Controllers.Handover,
		a.Controllers.Booking,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if a.Services.Scheduler != nil {
		if closeErr := a.Services.Scheduler.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
