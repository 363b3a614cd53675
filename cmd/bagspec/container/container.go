package container

import (
	"context"
	"fmt"

	"github.com/vaayushanti/bagspec/cmd/bagspec/middleware"
	"github.com/vaayushanti/bagspec/cmd/bagspec/repository"
	"github.com/vaayushanti/bagspec/cmd/bagspec/service"
	"github.com/vaayushanti/bagspec/cmd/bagspec/views"
	"github.com/vaayushanti/bagspec/common/bootstrap"
	"github.com/vaayushanti/bagspec/common/mail"
	"github.com/vaayushanti/bagspec/common/ratelimit"
	"github.com/vaayushanti/bagspec/common/validation"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Repositories
	Store repository.Store

	// Services
	Tokens        service.TokenIssuer
	Rules         *validation.BagValidator
	Lifecycle     *service.LifecycleService
	Sizes         *service.SizeService
	Notifications *service.NotificationService

	// HTTP collaborators
	Views       *views.Renderer
	Auth        *middleware.Authenticator
	RateLimiter ratelimit.Checker // nil when Redis is not configured
	PublicLimit ratelimit.Policy
}

// NewStore opens the record store for the configured driver
func NewStore(components *bootstrap.Components) (repository.Store, error) {
	switch components.Config.Database.Driver {
	case "postgres":
		if components.DB == nil {
			return nil, fmt.Errorf("postgres driver selected but no pool was opened")
		}
		return repository.NewPostgresStore(components.DB), nil
	case "sqlite":
		if components.SQLite == nil {
			return nil, fmt.Errorf("sqlite driver selected but no database was opened")
		}
		return repository.NewSQLiteStore(components.SQLite), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", components.Config.Database.Driver)
	}
}

// NewContainer initializes all services and repositories once and applies
// the schema
func NewContainer(ctx context.Context, components *bootstrap.Components) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	store, err := NewStore(components)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	renderer, err := views.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	auth, err := middleware.NewAuthenticator(cfg.Admin)
	if err != nil {
		return nil, fmt.Errorf("failed to configure admin auth: %w", err)
	}

	mailer := mail.New(mail.Config{
		APIKey:      cfg.Mail.APIKey,
		BaseURL:     cfg.Mail.BaseURL,
		SenderEmail: cfg.Mail.SenderEmail,
		SenderName:  cfg.Mail.SenderName,
		Timeout:     cfg.Mail.Timeout,
		MaxRetries:  cfg.Mail.MaxRetries,
	}, log)
	if !mailer.Enabled() {
		log.Warn("email delivery disabled, RESEND_API_KEY or SENDER_EMAIL not set")
	}

	// Initialize services (bottom-up: dependencies first)
	notifications := service.NewNotificationService(mailer, renderer, components.Queue, service.NotificationConfig{
		BaseURL:      cfg.Service.BaseURL,
		AdminEmail:   cfg.Mail.AdminEmail,
		ContactEmail: cfg.Mail.SenderEmail,
		Timeout:      cfg.Mail.Timeout,
	}, log)

	rules := validation.MustDefault()
	tokens := service.NewTokenIssuer()
	lifecycle := service.NewLifecycleService(store, tokens, rules, notifications, log)
	sizes := service.NewSizeService(store, components.Cache, cfg.Cache.DefaultTTL, log)

	c := &Container{
		Components:    components,
		Store:         store,
		Tokens:        tokens,
		Rules:         rules,
		Lifecycle:     lifecycle,
		Sizes:         sizes,
		Notifications: notifications,
		Views:         renderer,
		Auth:          auth,
		PublicLimit: ratelimit.Policy{
			Scope:         ratelimit.DefaultPublicPolicy.Scope,
			Limit:         cfg.RateLimit.Limit,
			WindowSeconds: cfg.RateLimit.WindowSeconds,
		},
	}

	if components.Redis != nil {
		c.RateLimiter = ratelimit.NewRateLimiter(components.Redis.GetUnderlying(), log)
	}

	return c, nil
}

// Start runs background workers until ctx is cancelled
func (c *Container) Start(ctx context.Context) error {
	if err := c.Notifications.Start(ctx); err != nil {
		return fmt.Errorf("failed to start notification worker: %w", err)
	}
	return nil
}
