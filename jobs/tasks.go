package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup pre-computes branch report aggregates into the cache.
	TaskReportWarmup = "reports:warmup"
	// TaskCounterAudit reconciles issued counters against stored documents.
	TaskCounterAudit = "counters:audit"
)

// ReportWarmupPayload scopes a warmup run.
type ReportWarmupPayload struct {
	// LookbackMonths bounds how far back aggregates are warmed. Zero means
	// the current and previous two months.
	LookbackMonths int `json:"lookback_months"`
}

// NewReportWarmupTask constructs an Asynq task for report warmup.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}

// CounterAuditPayload scopes a counter audit run.
type CounterAuditPayload struct {
	// DocType narrows the audit to a single document type when set.
	DocType string `json:"doc_type,omitempty"`
}

// NewCounterAuditTask constructs an Asynq task for counter auditing.
func NewCounterAuditTask(payload CounterAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCounterAudit, data), nil
}
