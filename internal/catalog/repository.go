package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchthat/storefront/internal/platform/httpx"
)

// Repository defines catalog lookups.
type Repository interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	// ListProductsByIDs returns the products that exist, preserving the
	// input order; vanished ids are silently dropped.
	ListProductsByIDs(ctx context.Context, ids []string) ([]Product, error)
	ListProductIDs(ctx context.Context) ([]string, error)
	HasCompletedPurchase(ctx context.Context, userID, productID string) (bool, error)
	ListCompletedPurchasers(ctx context.Context, productID string) ([]string, error)
	HasActiveEnrollment(ctx context.Context, userID, courseID string) (bool, error)
	ListActiveEnrollees(ctx context.Context, courseID string) ([]string, error)
	CountCompletedPurchases(ctx context.Context, productID string) (int64, error)
	SetPurchaseCount(ctx context.Context, productID string, count int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, title, price, status, purchase_count, created_at, updated_at`

func (r *repository) GetProduct(ctx context.Context, id string) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *repository) ListProductsByIDs(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		byID[p.ID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *repository) ListProductIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM products ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) HasCompletedPurchase(ctx context.Context, userID, productID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM purchases WHERE user_id = $1 AND product_id = $2 AND status = $3)`,
		userID, productID, PurchaseStatusCompleted).Scan(&exists)
	return exists, err
}

func (r *repository) ListCompletedPurchasers(ctx context.Context, productID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM purchases WHERE product_id = $1 AND status = $2`,
		productID, PurchaseStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *repository) HasActiveEnrollment(ctx context.Context, userID, courseID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM course_enrollments WHERE user_id = $1 AND course_id = $2 AND status = $3)`,
		userID, courseID, EnrollmentStatusActive).Scan(&exists)
	return exists, err
}

func (r *repository) ListActiveEnrollees(ctx context.Context, courseID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM course_enrollments WHERE course_id = $1 AND status = $2`,
		courseID, EnrollmentStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *repository) CountCompletedPurchases(ctx context.Context, productID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM purchases WHERE product_id = $1 AND status = $2`,
		productID, PurchaseStatusCompleted).Scan(&count)
	return count, err
}

func (r *repository) SetPurchaseCount(ctx context.Context, productID string, count int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET purchase_count = $2, updated_at = NOW() WHERE id = $1`, productID, count)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var price pgtype.Numeric
	var createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&p.ID, &p.Title, &price, &p.Status, &p.PurchaseCount, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if price.Valid {
		f, _ := price.Float64Value()
		p.Price = f.Float64
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return &p, nil
}

func scanIDs(rows pgx.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
