package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no API key or sender is set
var ErrNotConfigured = errors.New("mail delivery is not configured")

// Logger interface for mail client logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Sender delivers one message
type Sender interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
}

// Config for the Resend API client
type Config struct {
	APIKey      string
	BaseURL     string
	SenderEmail string
	SenderName  string
	Timeout     time.Duration
	MaxRetries  int
	Backoff     time.Duration // first retry delay, doubled per attempt
}

// Message is one outbound HTML email
type Message struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// SendResult describes an accepted message
type SendResult struct {
	StatusCode int
	MessageID  string
}

// HTTPError is a non-2xx response from the API
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("resend http %d: %s", e.StatusCode, msg)
}

// Retryable reports whether the request may succeed if repeated
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the Resend HTTP API
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        Logger
}

// New creates a Resend client. It never fails: an unconfigured client
// returns ErrNotConfigured from Send so callers can report it.
func New(cfg Config, log Logger) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.resend.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// Enabled reports whether Send can deliver
func (c *Client) Enabled() bool {
	return strings.TrimSpace(c.cfg.APIKey) != "" && strings.TrimSpace(c.cfg.SenderEmail) != ""
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send posts the message to /emails, retrying 429 and 5xx responses
func (c *Client) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return nil, errors.New("resend: at least one recipient required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return nil, errors.New("resend: subject required")
	}

	from := c.cfg.SenderEmail
	if c.cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", c.cfg.SenderName, c.cfg.SenderEmail)
	}

	body, err := json.Marshal(sendRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return nil, fmt.Errorf("encode resend request: %w", err)
	}

	backoff := c.cfg.Backoff
	for attempt := 0; ; attempt++ {
		result, err := c.sendOnce(ctx, body)
		if err == nil {
			c.log.Debug("resend accepted message", "message_id", result.MessageID, "attempt", attempt+1)
			return result, nil
		}

		var httpErr *HTTPError
		retryable := errors.As(err, &httpErr) && httpErr.Retryable()
		if !retryable || attempt >= c.cfg.MaxRetries {
			return nil, err
		}

		c.log.Warn("resend request retrying",
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", backoff.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (c *Client) sendOnce(ctx context.Context, body []byte) (*SendResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read resend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed sendResponse
	_ = json.Unmarshal(raw, &parsed)

	return &SendResult{
		StatusCode: resp.StatusCode,
		MessageID:  parsed.ID,
	}, nil
}

// String hides the API key when the config is logged
func (c Config) String() string {
	return "mail.Config{BaseURL:" + c.BaseURL + " Sender:" + c.SenderEmail +
		" Timeout:" + c.Timeout.String() + " MaxRetries:" + strconv.Itoa(c.MaxRetries) + "}"
}
