package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"wodbooker/models"
)

const TypeEmailSend = "email:send"

// NewEmailTask wraps an outbound mail as an asynq task so delivery
// survives SMTP hiccups and restarts.
func NewEmailTask(payload models.MailPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeEmailSend, b)
	opts := []asynq.Option{asynq.MaxRetry(5)}

	return task, opts, nil
}
