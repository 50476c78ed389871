package service

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/pkg/jobs"
	"github.com/noah-isme/roadwatch-api/pkg/mailer"
	"github.com/noah-isme/roadwatch-api/pkg/sanitize"
)

const jobAdminApproval = "admin_approval"

var adminApprovalHTML = template.Must(template.New("admin_approval").Parse(`<h2>New admin registration request</h2>
<table>
<tr><td>Username</td><td>{{.Username}}</td></tr>
<tr><td>Full name</td><td>{{.FullName}}</td></tr>
<tr><td>Department</td><td>{{.Department}}</td></tr>
</table>
<p>SECRET USER ID: <code>{{.ID}}</code></p>
<p>Approve or reject this applicant through POST /admin/process-admin with the ID above.</p>
`))

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// NotificationConfig sizes the delivery queue and names the approval inbox.
type NotificationConfig struct {
	AdminEmail string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService delivers best-effort mail through a background queue.
type NotificationService struct {
	queue      *jobs.Queue
	sender     mailSender
	adminEmail string
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewNotificationService builds the service and its queue. Call Start before use.
func NewNotificationService(sender mailSender, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{sender: sender, adminEmail: cfg.AdminEmail, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop halts the delivery workers.
func (s *NotificationService) Stop() { s.queue.Stop() }

// NotifyAdminApplication queues the approval request for a new admin applicant.
// The mail carries the applicant's ID, which is otherwise never exposed.
func (s *NotificationService) NotifyAdminApplication(_ context.Context, user *models.User) error {
	if s.adminEmail == "" {
		s.logger.Warn("admin approval inbox not configured, skipping notification", zap.String("username", user.Username))
		return nil
	}

	var body strings.Builder
	body.WriteString("New admin registration request\n\n")
	fmt.Fprintf(&body, "Username:   %s\n", user.Username)
	fmt.Fprintf(&body, "Full name:  %s\n", valueOr(user.FullName, "N/A"))
	fmt.Fprintf(&body, "Department: %s\n\n", valueOr(user.Department, "N/A"))
	fmt.Fprintf(&body, "SECRET USER ID: %s\n\n", user.ID)
	body.WriteString("Approve or reject this applicant through POST /admin/process-admin with the ID above.\n")

	var htmlBody strings.Builder
	if err := adminApprovalHTML.Execute(&htmlBody, map[string]string{
		"Username":   user.Username,
		"FullName":   valueOr(user.FullName, "N/A"),
		"Department": valueOr(user.Department, "N/A"),
		"ID":         user.ID,
	}); err != nil {
		s.logger.Warn("failed to render approval mail html, sending plain text only", zap.Error(err))
		htmlBody.Reset()
	}

	return s.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: jobAdminApproval,
		Payload: mailer.Message{
			To:       []string{s.adminEmail},
			Subject:  fmt.Sprintf("Admin approval required (%s)", user.Username),
			Body:     body.String(),
			HTMLBody: sanitize.HTML(htmlBody.String()),
		},
	})
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		s.logger.Error("dropping notification with unexpected payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.ObserveNotification("failed")
		return err
	}
	s.metrics.ObserveNotification("sent")
	s.logger.Info("notification sent", zap.String("type", job.Type), zap.Strings("to", msg.To))
	return nil
}

func valueOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
