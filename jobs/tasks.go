package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeIntegrityScan is the periodic ledger integrity scan.
	TaskTypeIntegrityScan = "integrity:scan"
	// TaskTypeReportDispatch ticks the automated financial report.
	TaskTypeReportDispatch = "reports:dispatch"
)

// NewIntegrityScanTask constructs the scheduled integrity scan task.
func NewIntegrityScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIntegrityScan, nil)
}

// NewReportDispatchTask constructs the scheduled report dispatch task.
func NewReportDispatchTask() *asynq.Task {
	return asynq.NewTask(TaskTypeReportDispatch, nil)
}
