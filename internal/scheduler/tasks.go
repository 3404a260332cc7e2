package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskFunnelDispatch = "funnel.dispatch"

// FunnelDispatchPayload carries one outbound message from the engine to
// the delivery worker.
type FunnelDispatchPayload struct {
	ContactID      string    `json:"contactId"`
	Phone          string    `json:"phone"`
	Text           string    `json:"text"`
	AttachmentKind string    `json:"attachmentKind,omitempty"`
	AttachmentName string    `json:"attachmentName,omitempty"`
	QueuedAt       time.Time `json:"queuedAt"`
}

func NewFunnelDispatchTask(payload FunnelDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFunnelDispatch, data), nil
}

func ParseFunnelDispatchPayload(task *asynq.Task) (FunnelDispatchPayload, error) {
	var payload FunnelDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FunnelDispatchPayload{}, err
	}
	return payload, nil
}
