package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/launchthat/storefront/internal/audit"
	"github.com/launchthat/storefront/internal/catalog"
	"github.com/launchthat/storefront/internal/platform/cache"
	"github.com/launchthat/storefront/internal/platform/httpx"
	"github.com/launchthat/storefront/internal/rbac"
)

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Enqueuer submits follow-up work after a completed checkout.
type Enqueuer interface {
	EnqueueProductRecount(ctx context.Context, productIDs []string) error
	EnqueueOrderReceipt(ctx context.Context, orderID, email string, total float64) error
}

// Service orchestrates checkout configurations and the session flow.
type Service struct {
	repo    Repository
	catalog catalog.Repository
	cache   *cache.JSONCache
	jobs    Enqueuer
	audit   AuditRecorder
	logger  *slog.Logger
}

// NewService constructs a Service. cache, jobs and audit may be nil.
func NewService(repo Repository, cat catalog.Repository, configCache *cache.JSONCache, jobs Enqueuer, recorder AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, catalog: cat, cache: configCache, jobs: jobs, audit: recorder, logger: logger}
}

// CheckoutView is the public shape of a checkout page: the configuration
// plus its currently active products.
type CheckoutView struct {
	Config   Config            `json:"config"`
	Products []catalog.Product `json:"products"`
}

// ActiveCheckoutBySlug resolves an active configuration by slug together
// with its sellable products. Inactive and vanished products drop out
// silently.
func (s *Service) ActiveCheckoutBySlug(ctx context.Context, slug string) (*CheckoutView, error) {
	var view CheckoutView
	err := s.cache.Fetch(ctx, &view, func(ctx context.Context) (any, error) {
		return s.loadActiveCheckout(ctx, slug)
	}, "slug", slug)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *Service) loadActiveCheckout(ctx context.Context, slug string) (*CheckoutView, error) {
	cfg, err := s.repo.GetConfigBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("checkout %q: %w", slug, err)
	}
	if !cfg.Active() {
		return nil, fmt.Errorf("checkout %q: %w", slug, httpx.ErrNotFound)
	}
	products, err := s.activeProducts(ctx, cfg.ProductIDs)
	if err != nil {
		return nil, err
	}
	return &CheckoutView{Config: *cfg, Products: products}, nil
}

func (s *Service) activeProducts(ctx context.Context, ids []string) ([]catalog.Product, error) {
	all, err := s.catalog.ListProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	active := make([]catalog.Product, 0, len(all))
	for _, p := range all {
		if p.Active() {
			active = append(active, p)
		}
	}
	return active, nil
}

// CreateSessionResult identifies the session and cart just created.
type CreateSessionResult struct {
	SessionID string `json:"sessionId"`
	CartID    string `json:"cartId"`
}

// CreateSession opens a session against an active checkout, snapshotting
// the checkout's sellable products into a fresh cart at their current
// price. Guests are allowed; an authenticated principal is attached when
// present.
func (s *Service) CreateSession(ctx context.Context, p rbac.Principal, slug, email, name string) (*CreateSessionResult, error) {
	view, err := s.ActiveCheckoutBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	items := make([]CartItem, 0, len(view.Products))
	for _, product := range view.Products {
		items = append(items, CartItem{ProductID: product.ID, Quantity: 1, Price: product.Price})
	}

	now := time.Now()
	var result CreateSessionResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		cartID, err := repo.CreateCart(ctx, Cart{
			UserID: p.UserID,
			Items:  items,
			Status: CartStatusActive,
		})
		if err != nil {
			return fmt.Errorf("create cart: %w", err)
		}
		sessionID, err := repo.CreateSession(ctx, Session{
			CheckoutID:  view.Config.ID,
			CartID:      cartID,
			UserID:      p.UserID,
			Email:       email,
			Name:        name,
			Status:      SessionStatusActive,
			CurrentStep: StepInformation,
			ExpiresAt:   now.Add(SessionTTL),
		})
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		result = CreateSessionResult{SessionID: sessionID, CartID: cartID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SessionDetail bundles a session with its configuration and cart.
type SessionDetail struct {
	Session Session
	Config  *Config
	Cart    *Cart
}

// GetSession loads a session, expiring it lazily: a session read past its
// expiry is flipped to expired and reported as not found, and an already
// expired session stays not found on every later read. There is no
// background sweeper; this read path is the only expiry mechanism.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*SessionDetail, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if session.ExpiredAt(time.Now()) {
		if err := s.repo.MarkSessionExpired(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("expire session %s: %w", sessionID, err)
		}
		return nil, fmt.Errorf("session %s: %w", sessionID, httpx.ErrNotFound)
	}
	if session.Status == SessionStatusExpired {
		return nil, fmt.Errorf("session %s: %w", sessionID, httpx.ErrNotFound)
	}

	detail := SessionDetail{Session: *session}
	if cfg, err := s.repo.GetConfig(ctx, session.CheckoutID); err == nil {
		detail.Config = cfg
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return nil, err
	}
	if cart, err := s.repo.GetCart(ctx, session.CartID); err == nil {
		detail.Cart = cart
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return nil, err
	}
	return &detail, nil
}

// UpdateInfoInput carries the customer information step.
type UpdateInfoInput struct {
	Email           string
	Name            string
	Phone           string
	ShippingAddress *Address
}

// UpdateSessionInfo records customer details on an active session and
// advances the step: to shipping when the configuration collects a
// shipping address, straight to payment otherwise. Each field is required
// exactly when the configuration collects it.
func (s *Service) UpdateSessionInfo(ctx context.Context, sessionID string, in UpdateInfoInput) (*Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := requireActive(session); err != nil {
		return nil, err
	}
	cfg, err := s.repo.GetConfig(ctx, session.CheckoutID)
	if err != nil {
		return nil, fmt.Errorf("checkout config %s: %w", session.CheckoutID, err)
	}

	if cfg.CollectEmail && strings.TrimSpace(in.Email) == "" {
		return nil, fmt.Errorf("%w: email is required for this checkout", httpx.ErrValidation)
	}
	if cfg.CollectName && strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required for this checkout", httpx.ErrValidation)
	}
	if cfg.CollectPhone && strings.TrimSpace(in.Phone) == "" {
		return nil, fmt.Errorf("%w: phone number is required for this checkout", httpx.ErrValidation)
	}
	if cfg.CollectShippingAddress && in.ShippingAddress == nil {
		return nil, fmt.Errorf("%w: shipping address is required for this checkout", httpx.ErrValidation)
	}

	session.Email = in.Email
	if in.Name != "" {
		session.Name = in.Name
	}
	if in.Phone != "" {
		session.Phone = in.Phone
	}
	if in.ShippingAddress != nil {
		session.ShippingAddress = in.ShippingAddress
	}
	if cfg.CollectShippingAddress {
		session.CurrentStep = StepShipping
	} else {
		session.CurrentStep = StepPayment
	}

	if err := s.repo.UpdateSessionInfo(ctx, *session); err != nil {
		return nil, err
	}
	return s.repo.GetSession(ctx, sessionID)
}

// CompleteInput carries the payment step.
type CompleteInput struct {
	PaymentMethod   string
	PaymentIntentID string
	BillingAddress  *Address
}

// CompleteResult identifies the completed session and the order cut from it.
type CompleteResult struct {
	SessionID string `json:"sessionId"`
	OrderID   string `json:"orderId"`
}

// CompleteSession finalises an active session: computes totals from the
// cart snapshot, then in one transaction persists the totals and payment
// details, creates the order and marks the cart completed. A session that
// is not active fails with InvalidState and no order is created.
func (s *Service) CompleteSession(ctx context.Context, sessionID string, in CompleteInput) (*CompleteResult, error) {
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return nil, fmt.Errorf("%w: payment method is required", httpx.ErrValidation)
	}

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := requireActive(session); err != nil {
		return nil, err
	}
	cfg, err := s.repo.GetConfig(ctx, session.CheckoutID)
	if err != nil {
		return nil, fmt.Errorf("checkout config %s: %w", session.CheckoutID, err)
	}
	cart, err := s.repo.GetCart(ctx, session.CartID)
	if err != nil {
		return nil, fmt.Errorf("cart %s: %w", session.CartID, err)
	}

	if cfg.CollectBillingAddress && in.BillingAddress == nil {
		return nil, fmt.Errorf("%w: billing address is required for this checkout", httpx.ErrValidation)
	}

	var subtotal float64
	for _, item := range cart.Items {
		subtotal += item.Price * float64(item.Quantity)
	}
	// Discounts, tax and shipping come from collaborators not wired yet;
	// they contribute zero.
	var discountAmount, taxAmount, shippingAmount float64
	totalAmount := subtotal - discountAmount + taxAmount + shippingAmount

	billing := in.BillingAddress
	if billing == nil {
		billing = session.ShippingAddress
	}

	order := Order{
		UserID:          session.UserID,
		Status:          OrderStatusPending,
		Items:           cart.Items,
		Subtotal:        subtotal,
		DiscountAmount:  discountAmount,
		TaxAmount:       taxAmount,
		ShippingAmount:  shippingAmount,
		TotalAmount:     totalAmount,
		CustomerEmail:   session.Email,
		CustomerName:    session.Name,
		CustomerPhone:   session.Phone,
		ShippingAddress: session.ShippingAddress,
		BillingAddress:  billing,
		PaymentStatus:   PaymentStatusPaid,
		PaymentMethod:   in.PaymentMethod,
		PaymentIntentID: in.PaymentIntentID,
	}

	var orderID string
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		completed := *session
		completed.PaymentMethod = in.PaymentMethod
		completed.PaymentIntentID = in.PaymentIntentID
		completed.BillingAddress = in.BillingAddress
		completed.Subtotal = subtotal
		completed.DiscountAmount = discountAmount
		completed.TaxAmount = taxAmount
		completed.ShippingAmount = shippingAmount
		completed.TotalAmount = totalAmount
		if err := repo.CompleteSession(ctx, completed); err != nil {
			return err
		}
		id, err := repo.CreateOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		orderID = id
		if err := repo.SetCartStatus(ctx, cart.ID, CartStatusCompleted); err != nil {
			return fmt.Errorf("complete cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, session.UserID, "checkout.complete", sessionID, map[string]any{
		"orderId": orderID,
		"total":   totalAmount,
	})
	s.enqueueFollowups(ctx, cart, orderID, session.Email, totalAmount)

	return &CompleteResult{SessionID: sessionID, OrderID: orderID}, nil
}

// GetOrder returns an order by id.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, err)
	}
	return o, nil
}

func requireActive(session *Session) error {
	if session.Status != SessionStatusActive {
		return fmt.Errorf("%w: checkout session is %s", httpx.ErrInvalidState, session.Status)
	}
	return nil
}

func (s *Service) enqueueFollowups(ctx context.Context, cart *Cart, orderID, email string, total float64) {
	if s.jobs == nil {
		return
	}
	productIDs := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	if err := s.jobs.EnqueueProductRecount(ctx, productIDs); err != nil && s.logger != nil {
		s.logger.Warn("enqueue product recount", slog.String("order_id", orderID), slog.Any("error", err))
	}
	if email == "" {
		return
	}
	if err := s.jobs.EnqueueOrderReceipt(ctx, orderID, email, total); err != nil && s.logger != nil {
		s.logger.Warn("enqueue order receipt", slog.String("order_id", orderID), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, audit.Entry{
		ActorID:  actorID,
		Action:   action,
		Entity:   "checkout_session",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}
