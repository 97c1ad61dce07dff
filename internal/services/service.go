package services

import (
	"drivemate/config"
	"drivemate/internal/database"
	"drivemate/internal/events"
	"drivemate/internal/repositories"
)

type Service struct {
	Auth         *AuthService
	Transaction  *TransactionService
	Scheduler    *SchedulerService
	Session      *SessionService
	StepEngine   *StepEngineService
	Progress     *ProgressService
	HandoverType *HandoverTypeService
	Finalization *FinalizationService
	Navigation   *NavigationService
}

func New(db database.DB, config config.Config, eventBus *events.EventBus) (Service, error) {
	transactionService := NewTransactionService(db)
	repos := repositories.New(db)

	authService := NewAuthService(config)
	schedulerService := NewSchedulerService()
	stepEngineService := NewStepEngineService(
		db,
		repos.HandoverSession,
		repos.StepCompletion,
		transactionService,
		eventBus,
	)
	sessionService := NewSessionService(
		db,
		repos.HandoverSession,
		repos.Booking,
		stepEngineService,
		eventBus,
	)
	progressService := NewProgressService(db, repos.HandoverSession, repos.StepCompletion, eventBus)
	handoverTypeService := NewHandoverTypeService(db, repos.HandoverSession, repos.Booking)
	finalizationService := NewFinalizationService(
		db,
		repos.HandoverSession,
		repos.StepCompletion,
		repos.ConditionReport,
		transactionService,
		eventBus,
	)
	navigationService := NewNavigationService(db, repos.Booking, NewGoogleMapsProvider(), config)

	return Service{
		Auth:         authService,
		Transaction:  transactionService,
		Scheduler:    schedulerService,
		Session:      sessionService,
		StepEngine:   stepEngineService,
		Progress:     progressService,
		HandoverType: handoverTypeService,
		Finalization: finalizationService,
		Navigation:   navigationService,
	}, nil
}
