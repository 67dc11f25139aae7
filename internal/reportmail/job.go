package reportmail

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// DispatchJob ticks the report scheduler from the worker. The service
// decides whether anything is due, so the cron entry can fire often.
type DispatchJob struct {
	service *Service
	logger  *slog.Logger
}

// NewDispatchJob constructs a job handler.
func NewDispatchJob(service *Service, logger *slog.Logger) *DispatchJob {
	return &DispatchJob{service: service, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *DispatchJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if err := j.service.Dispatch(ctx); err != nil {
		if j.logger != nil {
			j.logger.Error("scheduled report dispatch", slog.Any("error", err))
		}
		return err
	}
	return nil
}
