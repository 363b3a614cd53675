package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
	"github.com/vaayushanti/bagspec/common/db"
)

//go:embed schema/postgres.sql
var postgresSchema string

const pgUniqueViolation = "23505"

// PostgresStore handles database operations on PostgreSQL
type PostgresStore struct {
	db *db.DB
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded schema
func (r *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply postgres schema: %w", err)
	}
	return nil
}

// CreateRequest inserts a new request row
func (r *PostgresStore) CreateRequest(ctx context.Context, req *models.Request) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM filter_bag_submissions WHERE token = $1)`,
		req.Token,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check token: %w", err)
	}
	if exists {
		return models.ErrTokenCollision
	}

	row := req.Row()
	query := `
		INSERT INTO filter_bag_submissions
			(token, recipient_email, po_number, admin_quantity, admin_size, submitted, superseded, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, $6)
		RETURNING id
	`

	err = tx.QueryRow(ctx, query,
		row.Token,
		row.RecipientEmail,
		row.PONumber,
		row.AdminQuantity,
		row.AdminSize,
		row.CreatedAt,
	).Scan(&req.ID)
	if err != nil {
		if isPgUniqueViolation(err) {
			return models.ErrTokenCollision
		}
		return fmt.Errorf("failed to create request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit request: %w", err)
	}

	return nil
}

// FindRequest retrieves the request row for a token
func (r *PostgresStore) FindRequest(ctx context.Context, token string) (*models.SubmissionRow, error) {
	query := `SELECT ` + submissionColumns + `
		FROM filter_bag_submissions
		WHERE token = $1 AND bag_type IS NULL
		ORDER BY id ASC
		LIMIT 1`

	return r.findOne(ctx, query, token)
}

// FindEarliest retrieves the first row of any role for a token
func (r *PostgresStore) FindEarliest(ctx context.Context, token string) (*models.SubmissionRow, error) {
	query := `SELECT ` + submissionColumns + `
		FROM filter_bag_submissions
		WHERE token = $1
		ORDER BY id ASC
		LIMIT 1`

	return r.findOne(ctx, query, token)
}

func (r *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.SubmissionRow, error) {
	row, err := scanSubmissionPG(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return row, nil
}

// ReconcileResponse replaces the current response for a token in one transaction.
// The anchor row (the request, or the earliest row when the request is
// missing) is locked first, so concurrent submissions for the same token
// run one after another.
func (r *PostgresStore) ReconcileResponse(ctx context.Context, resp *models.Response, at time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	anchor, err := scanSubmissionPG(tx.QueryRow(ctx, `SELECT `+submissionColumns+`
		FROM filter_bag_submissions
		WHERE token = $1
		ORDER BY (bag_type IS NULL) DESC, id ASC
		LIMIT 1
		FOR UPDATE`, resp.Token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to lock request: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE filter_bag_submissions
		SET superseded = TRUE
		WHERE token = $1 AND bag_type IS NOT NULL AND superseded = FALSE`,
		resp.Token,
	); err != nil {
		return fmt.Errorf("failed to supersede responses: %w", err)
	}

	stampResponse(resp, anchor, at)
	row := resp.Row()

	err = tx.QueryRow(ctx, `
		INSERT INTO filter_bag_submissions (
			token, recipient_email, po_number,
			bag_type, collar_od, collar_id, tubesheet_data, tubesheet_dia,
			client_name, client_email, quantity, remarks,
			submitted, superseded, admin_quantity, admin_size,
			created_at, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE, FALSE, $13, $14, $15, $16)
		RETURNING id`,
		row.Token, row.RecipientEmail, row.PONumber,
		row.BagType, row.CollarOD, row.CollarID, row.TubesheetData, row.TubesheetDia,
		row.ClientName, row.ClientEmail, row.Quantity, row.Remarks,
		row.AdminQuantity, row.AdminSize,
		row.CreatedAt, row.SubmittedAt,
	).Scan(&resp.ID)
	if err != nil {
		return fmt.Errorf("failed to insert response: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE filter_bag_submissions
		SET submitted = TRUE, submitted_at = $2
		WHERE id = $1 AND bag_type IS NULL`,
		anchor.ID, at,
	); err != nil {
		return fmt.Errorf("failed to mark request submitted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit response: %w", err)
	}

	return nil
}

// ListResponses retrieves all response rows
func (r *PostgresStore) ListResponses(ctx context.Context) ([]*models.SubmissionRow, error) {
	query := `SELECT ` + submissionColumns + `
		FROM filter_bag_submissions
		WHERE bag_type IS NOT NULL
		` + responseOrder

	return r.list(ctx, query)
}

// ListResponsesByToken retrieves the response rows for one token
func (r *PostgresStore) ListResponsesByToken(ctx context.Context, token string) ([]*models.SubmissionRow, error) {
	query := `SELECT ` + submissionColumns + `
		FROM filter_bag_submissions
		WHERE token = $1 AND bag_type IS NOT NULL
		` + responseOrder

	return r.list(ctx, query, token)
}

func (r *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.SubmissionRow, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var out []*models.SubmissionRow
	for rows.Next() {
		row, err := scanSubmissionPG(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}

	return out, nil
}

// UpdateRequestFields updates the admin fields of a request row
func (r *PostgresStore) UpdateRequestFields(ctx context.Context, req *models.Request) error {
	row := req.Row()
	tag, err := r.db.Exec(ctx, `
		UPDATE filter_bag_submissions
		SET po_number = $2, admin_quantity = $3, admin_size = $4
		WHERE id = $1 AND bag_type IS NULL`,
		row.ID, row.PONumber, row.AdminQuantity, row.AdminSize,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CreateSize inserts a size catalog entry
func (r *PostgresStore) CreateSize(ctx context.Context, size *models.SizeEntry) error {
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bag_sizes WHERE size_name = $1 AND bag_type = $2)`,
		size.SizeName, string(size.BagType),
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check size: %w", err)
	}
	if exists {
		return models.ErrDuplicateSize
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO bag_sizes (size_name, bag_type, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`,
		size.SizeName, string(size.BagType), size.CreatedAt,
	).Scan(&size.ID)
	if err != nil {
		if isPgUniqueViolation(err) {
			return models.ErrDuplicateSize
		}
		return fmt.Errorf("failed to create size: %w", err)
	}

	return nil
}

// ListSizes retrieves the entries for a bag type, newest first
func (r *PostgresStore) ListSizes(ctx context.Context, bagType models.BagType) ([]*models.SizeEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, size_name, bag_type, created_at
		FROM bag_sizes
		WHERE bag_type = $1
		ORDER BY created_at DESC, id DESC`,
		string(bagType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sizes: %w", err)
	}
	defer rows.Close()

	sizes := make([]*models.SizeEntry, 0)
	for rows.Next() {
		size := &models.SizeEntry{}
		var bt string
		if err := rows.Scan(&size.ID, &size.SizeName, &bt, &size.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan size: %w", err)
		}
		size.BagType = models.BagType(bt)
		sizes = append(sizes, size)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sizes: %w", err)
	}

	return sizes, nil
}

// GetSize retrieves one size entry
func (r *PostgresStore) GetSize(ctx context.Context, id int64) (*models.SizeEntry, error) {
	size := &models.SizeEntry{}
	var bt string
	err := r.db.QueryRow(ctx,
		`SELECT id, size_name, bag_type, created_at FROM bag_sizes WHERE id = $1`, id,
	).Scan(&size.ID, &size.SizeName, &bt, &size.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSizeNotFound
		}
		return nil, fmt.Errorf("failed to get size: %w", err)
	}
	size.BagType = models.BagType(bt)
	return size, nil
}

// DeleteSize removes one size entry. Submissions are not touched.
func (r *PostgresStore) DeleteSize(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM bag_sizes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete size: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSizeNotFound
	}
	return nil
}

func scanSubmissionPG(s scanner) (*models.SubmissionRow, error) {
	row := &models.SubmissionRow{}
	err := s.Scan(
		&row.ID,
		&row.Token,
		&row.RecipientEmail,
		&row.PONumber,
		&row.BagType,
		&row.CollarOD,
		&row.CollarID,
		&row.TubesheetData,
		&row.TubesheetDia,
		&row.ClientName,
		&row.ClientEmail,
		&row.Quantity,
		&row.Remarks,
		&row.Submitted,
		&row.Superseded,
		&row.AdminQuantity,
		&row.AdminSize,
		&row.CreatedAt,
		&row.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
