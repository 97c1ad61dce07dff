package jobs

import (
	"context"
	"errors"
	"time"

	"drivemate/internal/database"
	"drivemate/internal/repositories"
	"drivemate/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

// reportGracePeriod is how long a completed session may sit without a
// condition report before the job tries to heal it. Fresh finalizations are
// skipped so the job never races the request path.
const reportGracePeriod = 10 * time.Minute

// ReportFollowupJob retries condition report creation for sessions whose
// finalization completed but whose report write failed.
type ReportFollowupJob struct {
	db           database.DB
	sessionRepo  repositories.HandoverSessionRepository
	finalization *services.FinalizationService
	schedule     services.Schedule
	log          logger.Logger
}

func NewReportFollowupJob(
	db database.DB,
	sessionRepo repositories.HandoverSessionRepository,
	finalization *services.FinalizationService,
	schedule services.Schedule,
) *ReportFollowupJob {
	return &ReportFollowupJob{
		db:           db,
		sessionRepo:  sessionRepo,
		finalization: finalization,
		schedule:     schedule,
		log:          logger.New("reportFollowupJob"),
	}
}

func (j *ReportFollowupJob) Name() string {
	return "condition-report-followup"
}

func (j *ReportFollowupJob) Schedule() services.Schedule {
	return j.schedule
}

func (j *ReportFollowupJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	cutoff := time.Now().Add(-reportGracePeriod)
	sessions, err := j.sessionRepo.GetCompletedWithoutReport(ctx, j.db.SQL, cutoff)
	if err != nil {
		return log.Err("failed to list sessions missing reports", err)
	}

	if len(sessions) == 0 {
		return nil
	}

	log.Info("Retrying condition reports", "sessionCount", len(sessions))

	healed := 0
	for _, session := range sessions {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		created, err := j.finalization.CreateMissingReport(ctx, session.ID)
		if err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				continue
			}
			log.Er("report retry failed", err, "sessionID", session.ID)
			continue
		}
		if created {
			healed++
		}
	}

	log.Info("Report followup complete", "sessionCount", len(sessions), "healed", healed)
	return nil
}
