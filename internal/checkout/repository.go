package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchthat/storefront/internal/platform/db"
	"github.com/launchthat/storefront/internal/platform/httpx"
)

// Repository defines persistence for checkout configurations, carts,
// sessions and orders.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	ListConfigs(ctx context.Context, status string) ([]Config, error)
	GetConfig(ctx context.Context, id string) (*Config, error)
	GetConfigBySlug(ctx context.Context, slug string) (*Config, error)
	CreateConfig(ctx context.Context, c Config) (string, error)
	UpdateConfig(ctx context.Context, id string, patch ConfigPatch) error
	DeleteConfig(ctx context.Context, id string) error

	CreateCart(ctx context.Context, c Cart) (string, error)
	GetCart(ctx context.Context, id string) (*Cart, error)
	SetCartStatus(ctx context.Context, id, status string) error

	CreateSession(ctx context.Context, s Session) (string, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	MarkSessionExpired(ctx context.Context, id string) error
	UpdateSessionInfo(ctx context.Context, s Session) error
	// CompleteSession persists totals, payment details and the terminal
	// status, guarded on the session still being active. Returns
	// httpx.ErrInvalidState when the guard misses.
	CompleteSession(ctx context.Context, s Session) error

	CreateOrder(ctx context.Context, o Order) (string, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const configColumns = `id, title, slug, description, product_ids, collect_email, collect_name, collect_phone,
	collect_shipping_address, collect_billing_address, allow_coupons, success_url, cancel_url,
	status, created_by, created_at, updated_at`

func (r *repository) ListConfigs(ctx context.Context, status string) ([]Config, error) {
	query := `SELECT ` + configColumns + ` FROM checkouts`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Config
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *repository) GetConfig(ctx context.Context, id string) (*Config, error) {
	row := r.db.QueryRow(ctx, `SELECT `+configColumns+` FROM checkouts WHERE id = $1`, id)
	return scanConfig(row)
}

func (r *repository) GetConfigBySlug(ctx context.Context, slug string) (*Config, error) {
	row := r.db.QueryRow(ctx, `SELECT `+configColumns+` FROM checkouts WHERE slug = $1`, slug)
	return scanConfig(row)
}

func (r *repository) CreateConfig(ctx context.Context, c Config) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	_, err := r.db.Exec(ctx, `
		INSERT INTO checkouts (id, title, slug, description, product_ids, collect_email, collect_name,
			collect_phone, collect_shipping_address, collect_billing_address, allow_coupons,
			success_url, cancel_url, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), NULLIF($13, ''), $14, NULLIF($15, ''), $16, $16)`,
		c.ID, c.Title, c.Slug, c.Description, c.ProductIDs, c.CollectEmail, c.CollectName,
		c.CollectPhone, c.CollectShippingAddress, c.CollectBillingAddress, c.AllowCoupons,
		c.SuccessURL, c.CancelURL, c.Status, c.CreatedBy, now)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (r *repository) UpdateConfig(ctx context.Context, id string, patch ConfigPatch) error {
	if patch.Empty() {
		return nil
	}
	query := "UPDATE checkouts SET updated_at = NOW()"
	var args []any
	argPos := 1
	set := func(column string, value any) {
		query += fmt.Sprintf(", %s = $%d", column, argPos)
		args = append(args, value)
		argPos++
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.ProductIDs != nil {
		set("product_ids", *patch.ProductIDs)
	}
	if patch.CollectEmail != nil {
		set("collect_email", *patch.CollectEmail)
	}
	if patch.CollectName != nil {
		set("collect_name", *patch.CollectName)
	}
	if patch.CollectPhone != nil {
		set("collect_phone", *patch.CollectPhone)
	}
	if patch.CollectShippingAddress != nil {
		set("collect_shipping_address", *patch.CollectShippingAddress)
	}
	if patch.CollectBillingAddress != nil {
		set("collect_billing_address", *patch.CollectBillingAddress)
	}
	if patch.AllowCoupons != nil {
		set("allow_coupons", *patch.AllowCoupons)
	}
	if patch.SuccessURL != nil {
		set("success_url", *patch.SuccessURL)
	}
	if patch.CancelURL != nil {
		set("cancel_url", *patch.CancelURL)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteConfig(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM checkouts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) CreateCart(ctx context.Context, c Cart) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	items, err := json.Marshal(c.Items)
	if err != nil {
		return "", err
	}
	now := time.Now()
	_, err = r.db.Exec(ctx, `
		INSERT INTO carts (id, user_id, items, status, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $5)`,
		c.ID, c.UserID, items, c.Status, now)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (r *repository) GetCart(ctx context.Context, id string) (*Cart, error) {
	var c Cart
	var userID pgtype.Text
	var items []byte
	var createdAt, updatedAt pgtype.Timestamptz
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, items, status, created_at, updated_at FROM carts WHERE id = $1`, id).
		Scan(&c.ID, &userID, &items, &c.Status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if userID.Valid {
		c.UserID = userID.String
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, fmt.Errorf("cart %s: decode items: %w", id, err)
	}
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}
	return &c, nil
}

func (r *repository) SetCartStatus(ctx context.Context, id, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE carts SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

const sessionColumns = `id, checkout_id, cart_id, user_id, email, name, phone, shipping_address, billing_address,
	status, current_step, payment_method, payment_intent_id, subtotal, discount_amount, tax_amount,
	shipping_amount, total_amount, expires_at, created_at, updated_at`

func (r *repository) CreateSession(ctx context.Context, s Session) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	shipping, billing, err := marshalAddresses(s.ShippingAddress, s.BillingAddress)
	if err != nil {
		return "", err
	}
	now := time.Now()
	_, err = r.db.Exec(ctx, `
		INSERT INTO checkout_sessions (id, checkout_id, cart_id, user_id, email, name, phone,
			shipping_address, billing_address, status, current_step, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, $12, $13, $13)`,
		s.ID, s.CheckoutID, s.CartID, s.UserID, s.Email, s.Name, s.Phone,
		shipping, billing, s.Status, s.CurrentStep, s.ExpiresAt, now)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

func (r *repository) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM checkout_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (r *repository) MarkSessionExpired(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE checkout_sessions SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		id, SessionStatusExpired, SessionStatusActive)
	return err
}

func (r *repository) UpdateSessionInfo(ctx context.Context, s Session) error {
	shipping, _, err := marshalAddresses(s.ShippingAddress, nil)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE checkout_sessions
		SET email = NULLIF($2, ''), name = NULLIF($3, ''), phone = NULLIF($4, ''),
			shipping_address = $5, current_step = $6, updated_at = NOW()
		WHERE id = $1`,
		s.ID, s.Email, s.Name, s.Phone, shipping, s.CurrentStep)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) CompleteSession(ctx context.Context, s Session) error {
	_, billing, err := marshalAddresses(nil, s.BillingAddress)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE checkout_sessions
		SET payment_method = $2, payment_intent_id = NULLIF($3, ''), billing_address = $4,
			subtotal = $5, discount_amount = $6, tax_amount = $7, shipping_amount = $8, total_amount = $9,
			status = $10, current_step = $11, updated_at = NOW()
		WHERE id = $1 AND status = $12`,
		s.ID, s.PaymentMethod, s.PaymentIntentID, billing,
		s.Subtotal, s.DiscountAmount, s.TaxAmount, s.ShippingAmount, s.TotalAmount,
		SessionStatusCompleted, StepCompleted, SessionStatusActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", s.ID, httpx.ErrInvalidState)
	}
	return nil
}

func (r *repository) CreateOrder(ctx context.Context, o Order) (string, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return "", err
	}
	shipping, billing, err := marshalAddresses(o.ShippingAddress, o.BillingAddress)
	if err != nil {
		return "", err
	}
	now := time.Now()
	_, err = r.db.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, items, subtotal, discount_amount, tax_amount,
			shipping_amount, total_amount, customer_email, customer_name, customer_phone,
			shipping_address, billing_address, payment_status, payment_method, payment_intent_id,
			created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), NULLIF($12, ''),
			$13, $14, $15, $16, NULLIF($17, ''), $18, $18)`,
		o.ID, o.UserID, o.Status, items, o.Subtotal, o.DiscountAmount, o.TaxAmount,
		o.ShippingAmount, o.TotalAmount, o.CustomerEmail, o.CustomerName, o.CustomerPhone,
		shipping, billing, o.PaymentStatus, o.PaymentMethod, o.PaymentIntentID, now)
	if err != nil {
		return "", err
	}
	return o.ID, nil
}

func (r *repository) GetOrder(ctx context.Context, id string) (*Order, error) {
	var o Order
	var userID, customerName, customerPhone, paymentIntentID pgtype.Text
	var items, shipping, billing []byte
	var createdAt, updatedAt pgtype.Timestamptz
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, status, items, subtotal, discount_amount, tax_amount, shipping_amount,
			total_amount, customer_email, customer_name, customer_phone, shipping_address,
			billing_address, payment_status, payment_method, payment_intent_id, created_at, updated_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &userID, &o.Status, &items, &o.Subtotal, &o.DiscountAmount, &o.TaxAmount,
			&o.ShippingAmount, &o.TotalAmount, &o.CustomerEmail, &customerName, &customerPhone,
			&shipping, &billing, &o.PaymentStatus, &o.PaymentMethod, &paymentIntentID,
			&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if userID.Valid {
		o.UserID = userID.String
	}
	if customerName.Valid {
		o.CustomerName = customerName.String
	}
	if customerPhone.Valid {
		o.CustomerPhone = customerPhone.String
	}
	if paymentIntentID.Valid {
		o.PaymentIntentID = paymentIntentID.String
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("order %s: decode items: %w", id, err)
	}
	if o.ShippingAddress, err = unmarshalAddress(shipping); err != nil {
		return nil, err
	}
	if o.BillingAddress, err = unmarshalAddress(billing); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		o.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		o.UpdatedAt = updatedAt.Time
	}
	return &o, nil
}

func scanConfig(row pgx.Row) (*Config, error) {
	var c Config
	var description, successURL, cancelURL, createdBy pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&c.ID, &c.Title, &c.Slug, &description, &c.ProductIDs, &c.CollectEmail,
		&c.CollectName, &c.CollectPhone, &c.CollectShippingAddress, &c.CollectBillingAddress,
		&c.AllowCoupons, &successURL, &cancelURL, &c.Status, &createdBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if description.Valid {
		c.Description = description.String
	}
	if successURL.Valid {
		c.SuccessURL = successURL.String
	}
	if cancelURL.Valid {
		c.CancelURL = cancelURL.String
	}
	if createdBy.Valid {
		c.CreatedBy = createdBy.String
	}
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}
	return &c, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	var userID, email, name, phone, paymentMethod, paymentIntentID pgtype.Text
	var shipping, billing []byte
	var expiresAt, createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&s.ID, &s.CheckoutID, &s.CartID, &userID, &email, &name, &phone,
		&shipping, &billing, &s.Status, &s.CurrentStep, &paymentMethod, &paymentIntentID,
		&s.Subtotal, &s.DiscountAmount, &s.TaxAmount, &s.ShippingAmount, &s.TotalAmount,
		&expiresAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if userID.Valid {
		s.UserID = userID.String
	}
	if email.Valid {
		s.Email = email.String
	}
	if name.Valid {
		s.Name = name.String
	}
	if phone.Valid {
		s.Phone = phone.String
	}
	if paymentMethod.Valid {
		s.PaymentMethod = paymentMethod.String
	}
	if paymentIntentID.Valid {
		s.PaymentIntentID = paymentIntentID.String
	}
	if s.ShippingAddress, err = unmarshalAddress(shipping); err != nil {
		return nil, err
	}
	if s.BillingAddress, err = unmarshalAddress(billing); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		s.ExpiresAt = expiresAt.Time
	}
	if createdAt.Valid {
		s.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		s.UpdatedAt = updatedAt.Time
	}
	return &s, nil
}

func marshalAddresses(shipping, billing *Address) ([]byte, []byte, error) {
	var shippingJSON, billingJSON []byte
	var err error
	if shipping != nil {
		if shippingJSON, err = json.Marshal(shipping); err != nil {
			return nil, nil, err
		}
	}
	if billing != nil {
		if billingJSON, err = json.Marshal(billing); err != nil {
			return nil, nil, err
		}
	}
	return shippingJSON, billingJSON, nil
}

func unmarshalAddress(data []byte) (*Address, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var a Address
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	return &a, nil
}
