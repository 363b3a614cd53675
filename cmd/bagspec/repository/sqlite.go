package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
	"github.com/vaayushanti/bagspec/common/db"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

// SQLiteStore handles database operations on SQLite. The handle is pinned
// to one connection, so write transactions never interleave.
type SQLiteStore struct {
	db *db.SQLite
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(db *db.SQLite) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate applies the embedded schema
func (r *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return nil
}

// CreateRequest inserts a new request row
func (r *SQLiteStore) CreateRequest(ctx context.Context, req *models.Request) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM filter_bag_submissions WHERE token = ?)`,
		req.Token,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check token: %w", err)
	}
	if exists {
		return models.ErrTokenCollision
	}

	row := req.Row()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO filter_bag_submissions
			(token, recipient_email, po_number, admin_quantity, admin_size, submitted, superseded, created_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?)`,
		row.Token,
		row.RecipientEmail,
		nullable(row.PONumber),
		nullable(row.AdminQuantity),
		nullable(row.AdminSize),
		toMicros(row.CreatedAt),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return models.ErrTokenCollision
		}
		return fmt.Errorf("failed to create request: %w", err)
	}

	if req.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read request id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit request: %w", err)
	}

	return nil
}

// FindRequest retrieves the request row for a token
func (r *SQLiteStore) FindRequest(ctx context.Context, token string) (*models.SubmissionRow, error) {
	query := `SELECT ` + submissionColumns + `
		FROM filter_bag_submissions
		WHERE token = ? AND bag_type IS NULL
		ORDER BY id ASC
		LIMIT 1`

	return r.findOne(ctx, query, token)
}

// FindEarliest retrieves the first row of any role for a token
func (r *SQLiteStore) FindEarliest(ctx context.Context, token string) (*models.SubmissionRow, error) {
	query := `SELECT ` + submissionColumns + `
		FROM filter_bag_submissions
		WHERE token = ?
		ORDER BY id ASC
		LIMIT 1`

	return r.findOne(ctx, query, token)
}

func (r *SQLiteStore) findOne(ctx context.Context, query string, args ...any) (*models.SubmissionRow, error) {
	row, err := scanSubmissionSQLite(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return row, nil
}

// ReconcileResponse replaces the current response for a token in one transaction
func (r *SQLiteStore) ReconcileResponse(ctx context.Context, resp *models.Response, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	anchor, err := scanSubmissionSQLite(tx.QueryRowContext(ctx, `SELECT `+submissionColumns+`
		FROM filter_bag_submissions
		WHERE token = ?
		ORDER BY (bag_type IS NULL) DESC, id ASC
		LIMIT 1`, resp.Token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to load request: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE filter_bag_submissions
		SET superseded = 1
		WHERE token = ? AND bag_type IS NOT NULL AND superseded = 0`,
		resp.Token,
	); err != nil {
		return fmt.Errorf("failed to supersede responses: %w", err)
	}

	stampResponse(resp, anchor, at)
	row := resp.Row()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO filter_bag_submissions (
			token, recipient_email, po_number,
			bag_type, collar_od, collar_id, tubesheet_data, tubesheet_dia,
			client_name, client_email, quantity, remarks,
			submitted, superseded, admin_quantity, admin_size,
			created_at, submitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 0, ?, ?, ?, ?)`,
		row.Token, row.RecipientEmail, nullable(row.PONumber),
		nullable(row.BagType), nullable(row.CollarOD), nullable(row.CollarID), nullable(row.TubesheetData), nullable(row.TubesheetDia),
		nullable(row.ClientName), nullable(row.ClientEmail), nullable(row.Quantity), nullable(row.Remarks),
		nullable(row.AdminQuantity), nullable(row.AdminSize),
		toMicros(row.CreatedAt), toMicros(*row.SubmittedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert response: %w", err)
	}
	if resp.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read response id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE filter_bag_submissions
		SET submitted = 1, submitted_at = ?
		WHERE id = ? AND bag_type IS NULL`,
		toMicros(at), anchor.ID,
	); err != nil {
		return fmt.Errorf("failed to mark request submitted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit response: %w", err)
	}

	return nil
}

// ListResponses retrieves all response rows
func (r *SQLiteStore) ListResponses(ctx context.Context) ([]*models.SubmissionRow, error) {
	query := `SELECT ` + submissionColumns + `
		FROM filter_bag_submissions
		WHERE bag_type IS NOT NULL
		` + responseOrder

	return r.list(ctx, query)
}

// ListResponsesByToken retrieves the response rows for one token
func (r *SQLiteStore) ListResponsesByToken(ctx context.Context, token string) ([]*models.SubmissionRow, error) {
	query := `SELECT ` + submissionColumns + `
		FROM filter_bag_submissions
		WHERE token = ? AND bag_type IS NOT NULL
		` + responseOrder

	return r.list(ctx, query, token)
}

func (r *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]*models.SubmissionRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var out []*models.SubmissionRow
	for rows.Next() {
		row, err := scanSubmissionSQLite(rows)
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
func (r *SQLiteStore) UpdateRequestFields(ctx context.Context, req *models.Request) error {
	row := req.Row()
	res, err := r.db.ExecContext(ctx, `
		UPDATE filter_bag_submissions
		SET po_number = ?, admin_quantity = ?, admin_size = ?
		WHERE id = ? AND bag_type IS NULL`,
		nullable(row.PONumber), nullable(row.AdminQuantity), nullable(row.AdminSize), row.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CreateSize inserts a size catalog entry
func (r *SQLiteStore) CreateSize(ctx context.Context, size *models.SizeEntry) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM bag_sizes WHERE size_name = ? AND bag_type = ?)`,
		size.SizeName, string(size.BagType),
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check size: %w", err)
	}
	if exists {
		return models.ErrDuplicateSize
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bag_sizes (size_name, bag_type, created_at) VALUES (?, ?, ?)`,
		size.SizeName, string(size.BagType), toMicros(size.CreatedAt),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return models.ErrDuplicateSize
		}
		return fmt.Errorf("failed to create size: %w", err)
	}

	if size.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read size id: %w", err)
	}
	return nil
}

// ListSizes retrieves the entries for a bag type, newest first
func (r *SQLiteStore) ListSizes(ctx context.Context, bagType models.BagType) ([]*models.SizeEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, size_name, bag_type, created_at
		FROM bag_sizes
		WHERE bag_type = ?
		ORDER BY created_at DESC, id DESC`,
		string(bagType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sizes: %w", err)
	}
	defer rows.Close()

	sizes := make([]*models.SizeEntry, 0)
	for rows.Next() {
		size, err := scanSizeSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan size: %w", err)
		}
		sizes = append(sizes, size)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sizes: %w", err)
	}

	return sizes, nil
}

// GetSize retrieves one size entry
func (r *SQLiteStore) GetSize(ctx context.Context, id int64) (*models.SizeEntry, error) {
	size, err := scanSizeSQLite(r.db.QueryRowContext(ctx,
		`SELECT id, size_name, bag_type, created_at FROM bag_sizes WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrSizeNotFound
		}
		return nil, fmt.Errorf("failed to get size: %w", err)
	}
	return size, nil
}

// DeleteSize removes one size entry. Submissions are not touched.
func (r *SQLiteStore) DeleteSize(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bag_sizes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete size: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete size: %w", err)
	}
	if n == 0 {
		return models.ErrSizeNotFound
	}
	return nil
}

func scanSubmissionSQLite(s scanner) (*models.SubmissionRow, error) {
	row := &models.SubmissionRow{}
	var createdAt int64
	var submittedAt sql.NullInt64

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
		&createdAt,
		&submittedAt,
	)
	if err != nil {
		return nil, err
	}

	row.CreatedAt = fromMicros(createdAt)
	if submittedAt.Valid {
		t := fromMicros(submittedAt.Int64)
		row.SubmittedAt = &t
	}
	return row, nil
}

func scanSizeSQLite(s scanner) (*models.SizeEntry, error) {
	size := &models.SizeEntry{}
	var bagType string
	var createdAt int64
	if err := s.Scan(&size.ID, &size.SizeName, &bagType, &createdAt); err != nil {
		return nil, err
	}
	size.BagType = models.BagType(bagType)
	size.CreatedAt = fromMicros(createdAt)
	return size, nil
}

// nullable unwraps optional values so the driver sees NULL or a plain value
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

func isSQLiteUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	code := liteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
