package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"gopkg.in/gomail.v2"

	"wodbooker/config"
	"wodbooker/models"
	"wodbooker/services/tasks"
)

// InitMailWorker runs the async mail consumer in background.
func InitMailWorker() {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisMailQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeEmailSend, handleEmailTask)

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[MailWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[MailWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[MailWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleEmailTask(ctx context.Context, task *asynq.Task) error {
	var p models.MailPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		log.Printf("[MailHandler] Invalid payload: %v", err)
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", config.AppConfig.EmailSender)
	msg.SetHeader("To", p.To)
	msg.SetHeader("Subject", p.Subject)
	msg.SetBody("text/plain", p.PlainBody)
	if p.HTMLBody != "" {
		msg.AddAlternative("text/html", p.HTMLBody)
	}

	dialer := gomail.NewDialer(
		config.AppConfig.EmailHost,
		config.AppConfig.EmailPort,
		config.AppConfig.EmailUser,
		config.AppConfig.EmailPassword,
	)
	if err := dialer.DialAndSend(msg); err != nil {
		log.Printf("[MailHandler] Failed to send mail to %s: %v", p.To, err)
		return err
	}

	log.Printf("[MailHandler] Mail sent to %s: %s", p.To, p.Subject)
	return nil
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisMailQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[MailWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
