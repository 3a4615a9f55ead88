// Package notify queues member notices (registration confirmations and
// cancellations) on a redis list and delivers them over SMTP from a worker.
// Queueing is best effort: callers log a failed enqueue and carry on.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"gymflow/internal/logger"
	"gymflow/internal/metrics"
	"gymflow/internal/tz"
)

const (
	queueKey    = "notices"
	failedKey   = "notices:failed"
	maxAttempts = 3
)

const (
	TypeRegistration = "registration"
	TypeCancellation = "cancellation"
)

type Job struct {
	Type    string    `json:"type"`
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// SessionNotice describes the session a notice is about, in gym-local time.
type SessionNotice struct {
	To        string
	Name      string
	GymName   string
	ClassName string
	Start     tz.LocalTime
	Room      string
	Reason    string
}

type SMTPConfig struct {
	From     string
	FromName string
	Host     string
	Port     string
	User     string
	Pass     string
}

type Service struct {
	redis      redis.Cmdable
	enabled    bool
	smtp       SMTPConfig
	retryDelay time.Duration
	send       func(job Job) error
}

func New(rdb redis.Cmdable, enabled bool, cfg SMTPConfig) *Service {
	s := &Service{
		redis:      rdb,
		enabled:    enabled && rdb != nil,
		smtp:       cfg,
		retryDelay: 5 * time.Second,
	}
	s.send = s.sendNow
	return s
}

func (s *Service) Enabled() bool {
	return s != nil && s.enabled
}

func (s *Service) Enqueue(ctx context.Context, noticeType, to, name, subject, body string) error {
	if !s.Enabled() || to == "" {
		return nil
	}

	job := Job{
		Type:    noticeType,
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		metrics.RecordNotice(noticeType, "enqueue_failed")
		return fmt.Errorf("queue notice to %s: %w", to, err)
	}

	metrics.RecordNotice(noticeType, "queued")
	logger.Info("notice queued", "type", noticeType, "to", to)
	return nil
}

func (s *Service) SendRegistration(ctx context.Context, n SessionNotice) error {
	subject := "Registration confirmed - " + n.ClassName
	body := fmt.Sprintf(`Hi %s,

You are registered for %s at %s.

When: %s
Room: %s

See you there!

- %s`, n.Name, n.ClassName, n.GymName, n.Start.Wall().Format("Jan 2, 2006 at 3:04 PM"), roomOrDash(n.Room), s.smtp.FromName)

	return s.Enqueue(ctx, TypeRegistration, n.To, n.Name, subject, body)
}

func (s *Service) SendCancellation(ctx context.Context, n SessionNotice) error {
	subject := "Registration cancelled - " + n.ClassName
	body := fmt.Sprintf(`Hi %s,

Your registration for %s on %s has been cancelled.`, n.Name, n.ClassName, n.Start.Wall().Format("Jan 2, 2006 at 3:04 PM"))
	if n.Reason != "" {
		body += "\nReason: " + n.Reason
	}
	body += "\n\n- " + s.smtp.FromName

	return s.Enqueue(ctx, TypeCancellation, n.To, n.Name, subject, body)
}

func roomOrDash(room string) string {
	if room == "" {
		return "-"
	}
	return room
}

// Start delivers queued notices until ctx is done.
func (s *Service) Start(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	logger.Info("notice worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("notice worker stopped")
			return
		default:
			s.step(ctx)
		}
	}
}

// step delivers at most one notice and refreshes the queue length gauge.
func (s *Service) step(ctx context.Context) {
	s.processNext(ctx)

	n, err := s.QueueLength(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("notice queue length unavailable", "error", err)
		}
		return
	}
	metrics.NoticeQueueLength.Set(float64(n))
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			logger.Warn("notice queue read failed", "error", err)
			sleep(ctx, s.retryDelay)
		}
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("bad notice payload", "error", err)
		return
	}

	job.Tries++
	if err := s.send(job); err != nil {
		logger.Error("notice delivery failed", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxAttempts {
			// A stop during the delay cuts it short; the job is requeued either way.
			sleep(ctx, s.retryDelay)
			s.requeue(job)
			return
		}
		s.saveFailed(job, err)
		return
	}

	metrics.RecordNotice(job.Type, "sent")
	logger.Info("notice sent", "type", job.Type, "to", job.To)
}

func (s *Service) requeue(job Job) {
	data, err := json.Marshal(job)
	if err != nil {
		metrics.RecordNotice(job.Type, "failed")
		logger.Error("notice could not be encoded for retry", "to", job.To, "error", err)
		return
	}
	if err := s.redis.LPush(context.Background(), queueKey, data).Err(); err != nil {
		metrics.RecordNotice(job.Type, "failed")
		logger.Error("notice requeue failed", "to", job.To, "error", err)
		return
	}
	metrics.RecordNotice(job.Type, "retried")
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *Service) sendNow(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.smtp.FromName, s.smtp.From)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtp.User != "" && s.smtp.Pass != "" {
		auth = smtp.PlainAuth("", s.smtp.User, s.smtp.Pass, s.smtp.Host)
	}

	addr := s.smtp.Host + ":" + s.smtp.Port
	return smtp.SendMail(addr, auth, s.smtp.From, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, cause error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": cause.Error(),
		"time":  time.Now(),
	}
	metrics.RecordNotice(job.Type, "failed")

	data, err := json.Marshal(failed)
	if err != nil {
		logger.Error("notice dead-letter could not be encoded", "to", job.To, "error", err)
		return
	}
	if err := s.redis.LPush(context.Background(), failedKey, data).Err(); err != nil {
		logger.Error("notice dead-letter failed", "to", job.To, "error", err)
		return
	}
	logger.Error("notice moved to failed queue", "to", job.To, "attempts", job.Tries)
}

// QueueLength reports how many notices wait for delivery.
func (s *Service) QueueLength(ctx context.Context) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	return s.redis.LLen(ctx, queueKey).Result()
}
