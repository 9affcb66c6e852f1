package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchthat/storefront/internal/platform/httpx"
)

// Repository defines persistence for administrable role records.
type Repository interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id string) (*Role, error)
	Create(ctx context.Context, role Role) (string, error)
	Delete(ctx context.Context, id string) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const roleColumns = `id, name, description, scope_kind, scope_org_id, priority, is_system, is_assignable, parent_id, created_at, updated_at`

func (r *repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY priority DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (*Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

func (r *repository) Create(ctx context.Context, role Role) (string, error) {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	now := time.Now()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO roles (id, name, description, scope_kind, scope_org_id, priority, is_system, is_assignable, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, NULLIF($9, ''), $10, $10)`,
		role.ID, role.Name, role.Description, string(role.Scope.Kind()), role.Scope.OrgID(),
		role.Priority, role.IsSystem, role.IsAssignable, role.ParentID, now)
	if err != nil {
		return "", err
	}
	return role.ID, nil
}

func (r *repository) Delete(ctx context.Context, id string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	var scopeKind string
	var scopeOrgID, parentID pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&role.ID, &role.Name, &role.Description, &scopeKind, &scopeOrgID,
		&role.Priority, &role.IsSystem, &role.IsAssignable, &parentID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if ScopeKind(scopeKind) == ScopeOrganization && scopeOrgID.Valid {
		role.Scope = OrganizationScope(scopeOrgID.String)
	} else {
		role.Scope = GlobalScope()
	}
	if parentID.Valid {
		role.ParentID = parentID.String
	}
	if createdAt.Valid {
		role.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		role.UpdatedAt = updatedAt.Time
	}
	return &role, nil
}
