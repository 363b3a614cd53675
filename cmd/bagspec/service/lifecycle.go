package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
	"github.com/vaayushanti/bagspec/cmd/bagspec/repository"
	"github.com/vaayushanti/bagspec/common/logger"
	"github.com/vaayushanti/bagspec/common/validation"
)

// SubmissionNotifier is told about every stored response. It must not block.
type SubmissionNotifier interface {
	EnqueueSubmissionNotices(ctx context.Context, resp *models.Response) error
}

// LifecycleService owns form threads: creating requests, resolving
// tokens and reconciling client submissions against earlier ones.
type LifecycleService struct {
	store    repository.SubmissionStore
	tokens   TokenIssuer
	rules    *validation.BagValidator
	notifier SubmissionNotifier
	now      func() time.Time
	log      *logger.Logger
}

// NewLifecycleService creates a new lifecycle service. notifier may be nil.
func NewLifecycleService(
	store repository.SubmissionStore,
	tokens TokenIssuer,
	rules *validation.BagValidator,
	notifier SubmissionNotifier,
	log *logger.Logger,
) *LifecycleService {
	return &LifecycleService{
		store:    store,
		tokens:   tokens,
		rules:    rules,
		notifier: notifier,
		now:      time.Now,
		log:      log,
	}
}

// ResolveRequest returns the request a token points at. Answered
// requests resolve like fresh ones; links never expire.
func (s *LifecycleService) ResolveRequest(ctx context.Context, token string) (*models.Request, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.ErrNotFound
	}

	row, err := s.store.FindRequest(ctx, token)
	if err == nil {
		if req, ok := row.Classify().(*models.Request); ok {
			return req, nil
		}
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}

	// No request row: fall back to the earliest row for the token
	row, err = s.store.FindEarliest(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}

	s.log.WithToken(token).Warn("token has no request row, using earliest record", "row_id", row.ID)
	return row.AsRequest(), nil
}

// SubmitResponse validates a client submission and makes it the current
// response for the token. Earlier responses are kept and marked superseded.
// Nothing is written when validation fails.
func (s *LifecycleService) SubmitResponse(ctx context.Context, token string, payload *models.SubmitPayload) (*models.Response, error) {
	log := s.log.WithToken(token)

	if _, err := s.ResolveRequest(ctx, token); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidLink
		}
		return nil, err
	}

	if payload == nil || len(payload.Bags) == 0 {
		return nil, models.ErrEmptySubmission
	}
	if len(payload.Bags) > 1 {
		log.Warn("extra bag specifications ignored", "bags", len(payload.Bags))
	}

	resp, err := s.buildResponse(token, payload.Bags[0], payload.RemarksText())
	if err != nil {
		return nil, err
	}

	if err := s.store.ReconcileResponse(ctx, resp, s.now().UTC()); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidLink
		}
		log.Error("failed to store response", "error", err)
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}

	log.Info("response submitted",
		"response_id", resp.ID,
		"bag_type", resp.BagType,
		"client", resp.ClientName,
	)

	if s.notifier != nil {
		if err := s.notifier.EnqueueSubmissionNotices(ctx, resp); err != nil {
			log.Warn("failed to enqueue submission notices", "response_id", resp.ID, "error", err)
		}
	}

	return resp, nil
}

// buildResponse checks one bag against the rules for its type and keeps
// only the specification fields that apply to it
func (s *LifecycleService) buildResponse(token string, bag models.BagSpec, remarks string) (*models.Response, error) {
	bagType := models.BagType(strings.ToLower(strings.TrimSpace(bag.BagType)))
	if bagType == "" {
		return nil, &models.ValidationError{Field: "bag_type", Message: "Please select a bag type"}
	}
	if !bagType.Valid() || !s.rules.Known(string(bagType)) {
		return nil, &models.ValidationError{
			Field:   "bag_type",
			Message: fmt.Sprintf("Unknown bag type %q", bag.BagType),
		}
	}

	violation, err := s.rules.Check(string(bagType), bag.Fields())
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate bag rules: %w", err)
	}
	if violation != nil {
		return nil, &models.MissingFieldError{BagType: bagType, Field: violation.Field}
	}

	resp := &models.Response{
		Token:       token,
		BagType:     bagType,
		ClientName:  strings.TrimSpace(bag.ClientName),
		ClientEmail: strings.TrimSpace(bag.ClientEmail),
		Remarks:     remarks,
	}

	switch bagType {
	case models.BagCollar:
		resp.CollarOD = strings.TrimSpace(bag.CollarOD)
		resp.CollarID = strings.TrimSpace(bag.CollarID)
	case models.BagSnap:
		resp.TubesheetData = strings.TrimSpace(bag.TubesheetData)
	case models.BagRing:
		resp.TubesheetDia = strings.TrimSpace(bag.TubesheetDia)
	}

	return resp, nil
}

// ListResponses returns every response, latest submission first.
// Superseded responses are included and flagged.
func (s *LifecycleService) ListResponses(ctx context.Context) ([]*models.Response, error) {
	rows, err := s.store.ListResponses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}
	return responsesOf(rows), nil
}

// ResponseHistory returns all responses for one token, newest first
func (s *LifecycleService) ResponseHistory(ctx context.Context, token string) ([]*models.Response, error) {
	rows, err := s.store.ListResponsesByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}
	return responsesOf(rows), nil
}

// CurrentResponse returns the live response for a token, or models.ErrNotFound
func (s *LifecycleService) CurrentResponse(ctx context.Context, token string) (*models.Response, error) {
	history, err := s.ResponseHistory(ctx, token)
	if err != nil {
		return nil, err
	}
	for _, resp := range history {
		if resp.Current() {
			return resp, nil
		}
	}
	return nil, models.ErrNotFound
}

func responsesOf(rows []*models.SubmissionRow) []*models.Response {
	out := make([]*models.Response, 0, len(rows))
	for _, row := range rows {
		if resp, ok := row.Classify().(*models.Response); ok {
			out = append(out, resp)
		}
	}
	return out
}

// CreateRequest validates the admin input, mints a token and stores the
// request. Pass models.DirectLinkRecipient for links that are not emailed.
func (s *LifecycleService) CreateRequest(ctx context.Context, in models.RequestInput, recipient string) (*models.Request, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, &models.ValidationError{Field: "recipient_email", Message: "Please provide recipient email"}
	}
	if recipient != models.DirectLinkRecipient && !strings.Contains(recipient, "@") {
		return nil, &models.ValidationError{Field: "recipient_email", Message: "Please provide a valid recipient email"}
	}

	quantity, size, err := validateRequestFields(in.Quantity(), in.Size())
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue()
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	req := &models.Request{
		Token:             token,
		RecipientEmail:    recipient,
		PONumber:          strings.TrimSpace(in.PONumber),
		RequestedQuantity: quantity,
		RequestedSize:     size,
		CreatedAt:         s.now().UTC(),
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, models.ErrTokenCollision) {
			s.log.Error("token collision on new request")
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}

	s.log.WithToken(token).Info("request created",
		"request_id", req.ID,
		"direct_link", req.IsDirectLink(),
		"po_number", req.PONumber,
	)

	return req, nil
}

// AmendRequest applies an RFC 7396 merge patch to the PO number,
// quantity and size of a request. Responses already stored keep the
// values they copied.
func (s *LifecycleService) AmendRequest(ctx context.Context, token string, patch []byte) (*models.Request, error) {
	req, err := s.ResolveRequest(ctx, token)
	if err != nil {
		return nil, err
	}

	current := models.RequestFields{
		RequestedQuantity: models.NewQuantityInput(fmt.Sprintf("%d", req.RequestedQuantity)),
		RequestedSize:     req.RequestedSize,
	}
	if req.PONumber != "" {
		po := req.PONumber
		current.PONumber = &po
	}

	doc, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request fields: %w", err)
	}

	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return nil, &models.ValidationError{Field: "patch", Message: "Invalid merge patch: " + err.Error()}
	}

	var fields models.RequestFields
	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fields); err != nil {
		return nil, &models.ValidationError{Field: "patch", Message: "Invalid request fields: " + err.Error()}
	}

	quantity, size, err := validateRequestFields(fields.RequestedQuantity, fields.RequestedSize)
	if err != nil {
		return nil, err
	}

	req.RequestedQuantity = quantity
	req.RequestedSize = size
	req.PONumber = ""
	if fields.PONumber != nil {
		req.PONumber = strings.TrimSpace(*fields.PONumber)
	}

	if err := s.store.UpdateRequestFields(ctx, req); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}

	s.log.WithToken(token).Info("request amended",
		"request_id", req.ID,
		"quantity", req.RequestedQuantity,
		"size", req.RequestedSize,
	)

	return req, nil
}

func validateRequestFields(quantity models.QuantityInput, size string) (int64, string, error) {
	size = strings.TrimSpace(size)
	if !quantity.IsSet() || size == "" {
		return 0, "", &models.ValidationError{Field: "requested_quantity", Message: "Please provide Quantity and Size"}
	}

	n, err := quantity.Int()
	if err != nil {
		return 0, "", err
	}

	return n, size, nil
}
