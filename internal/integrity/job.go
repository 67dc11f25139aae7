package integrity

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// ScanJob runs the periodic integrity scan from the worker.
type ScanJob struct {
	service *Service
	logger  *slog.Logger
}

// NewScanJob constructs a job handler.
func NewScanJob(service *Service, logger *slog.Logger) *ScanJob {
	return &ScanJob{service: service, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *ScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	report, err := j.service.Scan(ctx)
	if err != nil {
		if j.logger != nil {
			j.logger.Error("scheduled integrity scan", slog.Any("error", err))
		}
		return err
	}
	if j.logger != nil && report.Clean() {
		j.logger.Info("integrity scan clean")
	}
	return nil
}
