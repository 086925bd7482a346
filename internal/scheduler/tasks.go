// Package scheduler runs the background jobs: timing out stale handover
// requests and draining the notification outbox.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskHandoverTimeoutSweep = "handover.timeout.sweep"

const TaskNotificationOutboxDue = "notification.outbox.due"

type NotificationOutboxDuePayload struct {
	OutboxID   string `json:"outboxId"`
	MerchantID string `json:"merchantId"`
}

func NewHandoverTimeoutSweepTask() *asynq.Task {
	return asynq.NewTask(TaskHandoverTimeoutSweep, nil)
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}
