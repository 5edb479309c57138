package notification

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"wodbooker/config"
	"wodbooker/models"
	"wodbooker/services/tasks"
	"wodbooker/utils"
)

const mailSubjectPrefix = "[WodBooker] "

var mailTemplate = template.Must(template.New("mail").Parse(`<html>
<body>
<p>{{.Body}}</p>
<p>Puedes revisar el estado de tus reservas en <a href="https://{{.Host}}">WodBooker</a>.</p>
</body>
</html>`))

// Mailer renders outcome emails and hands them to the async mail queue.
type Mailer struct {
	client *asynq.Client
	logger *zap.Logger
}

// NewMailer builds a mailer publishing to the redis-backed mail queue.
func NewMailer() *Mailer {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisMailQueueDB,
	})
	return &Mailer{client: client, logger: utils.GetLogger()}
}

// Enqueue renders and queues one email. Queue failures are logged and
// swallowed: losing a mail must never break a booking.
func (m *Mailer) Enqueue(to, subject, body string) {
	var html bytes.Buffer
	err := mailTemplate.Execute(&html, struct {
		Body string
		Host string
	}{Body: body, Host: config.AppConfig.WodbookerHost})
	if err != nil {
		m.logger.Error("Failed to render mail template", zap.Error(err))
		return
	}

	payload := models.MailPayload{
		To:        to,
		Subject:   mailSubjectPrefix + subject,
		HTMLBody:  html.String(),
		PlainBody: fmt.Sprintf("%s\n\nPuedes revisar el estado de tus reservas en https://%s", body, config.AppConfig.WodbookerHost),
	}
	task, opts, err := tasks.NewEmailTask(payload)
	if err != nil {
		m.logger.Error("Failed to build mail task", zap.Error(err))
		return
	}
	if _, err := m.client.Enqueue(task, opts...); err != nil {
		m.logger.Error("Failed to enqueue mail", zap.String("to", to), zap.Error(err))
	}
}

// Close releases the queue connection.
func (m *Mailer) Close() error {
	return m.client.Close()
}
