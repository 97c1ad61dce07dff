package repositories

import (
	"drivemate/internal/database"
)

type Repository struct {
	User            UserRepository
	Booking         BookingRepository
	HandoverSession HandoverSessionRepository
	StepCompletion  StepCompletionRepository
	ConditionReport ConditionReportRepository
}

func New(db database.DB) Repository {
	return Repository{
		User:            NewUserRepository(),
		Booking:         NewBookingRepository(db.Cache.General),
		HandoverSession: NewHandoverSessionRepository(),
		StepCompletion:  NewStepCompletionRepository(db.Cache.Handover),
		ConditionReport: NewConditionReportRepository(),
	}
}
