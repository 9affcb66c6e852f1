package downloads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchthat/storefront/internal/platform/httpx"
)

// Repository defines persistence for download resources.
type Repository interface {
	Get(ctx context.Context, id string) (*Download, error)
	Create(ctx context.Context, d Download) (string, error)
	Update(ctx context.Context, id string, patch Patch) error
	// Grant and Revoke mutate the explicit grant list idempotently:
	// granting a present id or revoking an absent one is a no-op.
	Grant(ctx context.Context, id, userID string) error
	Revoke(ctx context.Context, id, userID string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const downloadColumns = `id, title, description, uploaded_by, is_public, accessible_user_ids, required_product_id, required_course_id, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Download, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+downloadColumns+` FROM downloads WHERE id = $1`, id)
	return scanDownload(row)
}

func (r *repository) Create(ctx context.Context, d Download) (string, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO downloads (id, title, description, uploaded_by, is_public, accessible_user_ids, required_product_id, required_course_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $9)`,
		d.ID, d.Title, d.Description, d.UploadedBy, d.IsPublic, d.AccessibleUserIDs,
		d.RequiredProductID, d.RequiredCourseID, now)
	if err != nil {
		return "", err
	}
	return d.ID, nil
}

func (r *repository) Update(ctx context.Context, id string, patch Patch) error {
	if patch.Empty() {
		return nil
	}
	query := "UPDATE downloads SET updated_at = NOW()"
	var args []any
	argPos := 1

	if patch.Title != nil {
		query += fmt.Sprintf(", title = $%d", argPos)
		args = append(args, *patch.Title)
		argPos++
	}
	if patch.Description != nil {
		query += fmt.Sprintf(", description = $%d", argPos)
		args = append(args, *patch.Description)
		argPos++
	}
	if patch.IsPublic != nil {
		query += fmt.Sprintf(", is_public = $%d", argPos)
		args = append(args, *patch.IsPublic)
		argPos++
	}
	if patch.RequiredProductID != nil {
		query += fmt.Sprintf(", required_product_id = NULLIF($%d, '')", argPos)
		args = append(args, *patch.RequiredProductID)
		argPos++
	}
	if patch.RequiredCourseID != nil {
		query += fmt.Sprintf(", required_course_id = NULLIF($%d, '')", argPos)
		args = append(args, *patch.RequiredCourseID)
		argPos++
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Grant(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE downloads
		SET accessible_user_ids = array_append(accessible_user_ids, $2), updated_at = NOW()
		WHERE id = $1 AND NOT ($2 = ANY(accessible_user_ids))`,
		id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either already granted (no-op) or the download is missing;
		// distinguish so callers can report not-found.
		return r.ensureExists(ctx, id)
	}
	return nil
}

func (r *repository) Revoke(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE downloads
		SET accessible_user_ids = array_remove(accessible_user_ids, $2), updated_at = NOW()
		WHERE id = $1 AND $2 = ANY(accessible_user_ids)`,
		id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.ensureExists(ctx, id)
	}
	return nil
}

func (r *repository) ensureExists(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM downloads WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return httpx.ErrNotFound
	}
	return nil
}

func scanDownload(row pgx.Row) (*Download, error) {
	var d Download
	var description, requiredProduct, requiredCourse pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&d.ID, &d.Title, &description, &d.UploadedBy, &d.IsPublic, &d.AccessibleUserIDs,
		&requiredProduct, &requiredCourse, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if description.Valid {
		d.Description = description.String
	}
	if requiredProduct.Valid {
		d.RequiredProductID = requiredProduct.String
	}
	if requiredCourse.Valid {
		d.RequiredCourseID = requiredCourse.String
	}
	if createdAt.Valid {
		d.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		d.UpdatedAt = updatedAt.Time
	}
	return &d, nil
}
