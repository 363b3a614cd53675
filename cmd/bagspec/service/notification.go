package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
	"github.com/vaayushanti/bagspec/cmd/bagspec/views"
	"github.com/vaayushanti/bagspec/common/logger"
	"github.com/vaayushanti/bagspec/common/mail"
	"github.com/vaayushanti/bagspec/common/queue"
)

// SubmissionTopic carries submission notice jobs
const SubmissionTopic = "submission-notices"

// Mailer sends one email
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) (*mail.SendResult, error)
	Enabled() bool
}

// EmailRenderer renders an email body from typed data
type EmailRenderer interface {
	RenderEmail(name string, data any) (string, error)
}

// DeliveryResult is the outcome of one send. Reason is set when
// Delivered is false.
type DeliveryResult struct {
	Delivered bool   `json:"delivered"`
	Reason    string `json:"reason,omitempty"`
}

// Err returns nil for a delivered message and an ErrNotification wrap otherwise
func (r DeliveryResult) Err() error {
	if r.Delivered {
		return nil
	}
	return fmt.Errorf("%w: %s", models.ErrNotification, r.Reason)
}

func delivered() DeliveryResult { return DeliveryResult{Delivered: true} }

func failed(reason string) DeliveryResult { return DeliveryResult{Reason: reason} }

// NotificationConfig holds the addresses and limits used for sends
type NotificationConfig struct {
	BaseURL      string        // public origin for form links
	AdminEmail   string        // where submission notices go
	ContactEmail string        // shown in the form-link footer
	Timeout      time.Duration // per send
}

// submissionJob is the queued payload for one stored response
type submissionJob struct {
	ID       string           `json:"id"`
	Response *models.Response `json:"response"`
}

// NotificationService formats and sends the emails of a form thread.
// Failures are reported as DeliveryResult values and never undo state.
type NotificationService struct {
	mailer Mailer
	views  EmailRenderer
	queue  queue.Queue
	cfg    NotificationConfig
	log    *logger.Logger
}

// NewNotificationService creates a notification service. q may be nil, in
// which case submission notices are sent from a goroutine per response.
func NewNotificationService(mailer Mailer, views EmailRenderer, q queue.Queue, cfg NotificationConfig, log *logger.Logger) *NotificationService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &NotificationService{
		mailer: mailer,
		views:  views,
		queue:  q,
		cfg:    cfg,
		log:    log,
	}
}

// FormURL returns the public link for a token
func (s *NotificationService) FormURL(token string) string {
	return s.cfg.BaseURL + "/form/" + token
}

// Send delivers one message within the configured timeout
func (s *NotificationService) Send(ctx context.Context, to, subject, body string) DeliveryResult {
	to = strings.TrimSpace(to)
	if to == "" || to == models.DirectLinkRecipient {
		return failed("no recipient address")
	}
	if !s.mailer.Enabled() {
		return failed("email delivery is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	result, err := s.mailer.Send(ctx, mail.Message{
		To:      []string{to},
		Subject: subject,
		HTML:    body,
	})
	if err != nil {
		var httpErr *mail.HTTPError
		switch {
		case errors.Is(err, mail.ErrNotConfigured):
			return failed("email delivery is not configured")
		case errors.Is(err, context.DeadlineExceeded):
			return failed("mail API timed out")
		case errors.As(err, &httpErr):
			return failed(fmt.Sprintf("mail API returned %d", httpErr.StatusCode))
		default:
			return failed(err.Error())
		}
	}

	s.log.Info("email sent", "subject", subject, "message_id", result.MessageID)
	return delivered()
}

// SendFormLink emails the form link for a request and waits for the result
func (s *NotificationService) SendFormLink(ctx context.Context, req *models.Request, formURL string) DeliveryResult {
	body, err := s.views.RenderEmail(views.EmailFormLink, views.FormLinkEmail{
		FormURL:      formURL,
		PONumber:     req.PONumber,
		ContactEmail: s.cfg.ContactEmail,
	})
	if err != nil {
		s.log.Error("failed to render form link email", "error", err)
		return failed("could not render email")
	}

	result := s.Send(ctx, req.RecipientEmail, "Filter Bag Specification Request", body)
	if !result.Delivered {
		s.log.WithToken(req.Token).Warn("form link email not delivered", "reason", result.Reason)
	}
	return result
}

// EnqueueSubmissionNotices schedules the admin and client notices for a
// stored response. It never waits on the mail API.
func (s *NotificationService) EnqueueSubmissionNotices(ctx context.Context, resp *models.Response) error {
	job := submissionJob{ID: uuid.NewString(), Response: resp}

	if s.queue == nil {
		go s.NotifySubmission(context.Background(), resp)
		return nil
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode submission job: %w", err)
	}

	if err := s.queue.Publish(ctx, SubmissionTopic, job.ID, payload); err != nil {
		return fmt.Errorf("failed to publish submission job: %w", err)
	}

	s.log.Debug("submission notices queued", "job_id", job.ID, "response_id", resp.ID)
	return nil
}

// Start subscribes to the submission topic. The subscription outlives ctx
// cancellation and ends when the queue is closed, so notices still buffered
// at shutdown are sent before Close returns.
func (s *NotificationService) Start(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	return s.queue.Subscribe(context.WithoutCancel(ctx), SubmissionTopic, s.handleSubmissionJob)
}

func (s *NotificationService) handleSubmissionJob(ctx context.Context, key string, value []byte) error {
	var job submissionJob
	if err := json.Unmarshal(value, &job); err != nil {
		return fmt.Errorf("failed to decode submission job %s: %w", key, err)
	}
	if job.Response == nil {
		return fmt.Errorf("submission job %s has no response", key)
	}

	s.NotifySubmission(ctx, job.Response)
	return nil
}

// NotifySubmission sends the admin notice and the client confirmation.
// Each send has its own timeout; one failing does not stop the other.
func (s *NotificationService) NotifySubmission(ctx context.Context, resp *models.Response) (admin, client DeliveryResult) {
	log := s.log.WithToken(resp.Token)
	data := views.SubmissionEmail{
		Response: resp,
		FormURL:  s.FormURL(resp.Token),
		BagCount: 1,
	}

	clientName := resp.ClientName
	if clientName == "" {
		clientName = "Client"
	}

	admin = s.renderAndSend(ctx, s.cfg.AdminEmail,
		fmt.Sprintf("Form Submitted - %s (1 bag)", clientName),
		views.EmailAdminSubmission, data)
	if !admin.Delivered {
		log.Warn("admin submission notice not delivered", "response_id", resp.ID, "reason", admin.Reason)
	}

	client = s.renderAndSend(ctx, ClientAddress(resp),
		"Your Filter Bag Submission Details (1 Bag)",
		views.EmailClientSubmission, data)
	if !client.Delivered {
		log.Warn("client submission notice not delivered", "response_id", resp.ID, "reason", client.Reason)
	}

	return admin, client
}

func (s *NotificationService) renderAndSend(ctx context.Context, to, subject, template string, data any) DeliveryResult {
	body, err := s.views.RenderEmail(template, data)
	if err != nil {
		s.log.Error("failed to render email", "template", template, "error", err)
		return failed("could not render email")
	}
	return s.Send(ctx, to, subject, body)
}

// ClientAddress picks the address for the client confirmation: the
// emailed recipient, or for direct links the address typed into the form.
// Empty means there is nobody to confirm to.
func ClientAddress(resp *models.Response) string {
	if resp.RecipientEmail != "" && resp.RecipientEmail != models.DirectLinkRecipient {
		return resp.RecipientEmail
	}
	return resp.ClientEmail
}
