package repository

import (
	"context"
	"time"

	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
)

// SubmissionStore persists form threads: one request row per token plus
// the client responses that share its token.
type SubmissionStore interface {
	// CreateRequest inserts a request row and sets its ID.
	// Returns models.ErrTokenCollision if any row already uses the token.
	CreateRequest(ctx context.Context, req *models.Request) error

	// FindRequest returns the request row for token (lowest id), or models.ErrNotFound
	FindRequest(ctx context.Context, token string) (*models.SubmissionRow, error)

	// FindEarliest returns the lowest-id row of any role for token, or models.ErrNotFound
	FindEarliest(ctx context.Context, token string) (*models.SubmissionRow, error)

	// ReconcileResponse atomically supersedes every response for
	// resp.Token, inserts resp with the admin fields copied from the
	// locked anchor row, and marks the request submitted at `at`.
	// Returns models.ErrNotFound when no row uses the token.
	ReconcileResponse(ctx context.Context, resp *models.Response, at time.Time) error

	// ListResponses returns every response row, newest submission first
	ListResponses(ctx context.Context) ([]*models.SubmissionRow, error)

	// ListResponsesByToken returns the responses for token, newest first
	ListResponsesByToken(ctx context.Context, token string) ([]*models.SubmissionRow, error)

	// UpdateRequestFields rewrites PO number, quantity and size of a request row
	UpdateRequestFields(ctx context.Context, req *models.Request) error
}

// SizeStore persists the size catalog
type SizeStore interface {
	// CreateSize inserts an entry and sets its ID. Returns models.ErrDuplicateSize
	// when (size_name, bag_type) already exists.
	CreateSize(ctx context.Context, size *models.SizeEntry) error
	ListSizes(ctx context.Context, bagType models.BagType) ([]*models.SizeEntry, error)
	GetSize(ctx context.Context, id int64) (*models.SizeEntry, error)
	DeleteSize(ctx context.Context, id int64) error
}

// Store is a complete record store for one database driver
type Store interface {
	SubmissionStore
	SizeStore

	// Migrate applies the embedded schema. It is idempotent.
	Migrate(ctx context.Context) error
}

// Columns shared by every submission SELECT, in scan order
const submissionColumns = `id, token, recipient_email, po_number,
	bag_type, collar_od, collar_id, tubesheet_data, tubesheet_dia,
	client_name, client_email, quantity, remarks,
	submitted, superseded, admin_quantity, admin_size,
	created_at, submitted_at`

// Response listing order: latest submission first, then newest row
const responseOrder = `ORDER BY submitted_at DESC NULLS LAST, created_at DESC, id DESC`

// scanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// stampResponse copies the admin fields of the anchor row onto resp and
// sets its submission metadata
func stampResponse(resp *models.Response, anchor *models.SubmissionRow, at time.Time) {
	req := anchor.AsRequest()

	resp.RecipientEmail = req.RecipientEmail
	resp.PONumber = req.PONumber
	resp.RequestedQuantity = req.RequestedQuantity
	resp.RequestedSize = req.RequestedSize
	resp.Quantity = req.RequestedQuantity
	resp.Superseded = false
	resp.CreatedAt = at
	submittedAt := at
	resp.SubmittedAt = &submittedAt
}
