// Package checkout implements slug-based checkout configurations and the
// guest checkout session flow: information, shipping, payment, completed.
package checkout

import "time"

// Session statuses. A session leaves active exactly once, to completed or
// expired.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusExpired   = "expired"
)

// Checkout steps in order. The shipping step is skipped when the
// configuration does not collect a shipping address.
const (
	StepInformation = "information"
	StepShipping    = "shipping"
	StepPayment     = "payment"
	StepCompleted   = "completed"
)

// Configuration statuses. Only active configurations accept new sessions.
const (
	ConfigStatusActive   = "active"
	ConfigStatusDraft    = "draft"
	ConfigStatusArchived = "archived"
)

// Cart statuses.
const (
	CartStatusActive    = "active"
	CartStatusCompleted = "completed"
)

// Order statuses at creation time.
const (
	OrderStatusPending = "pending"
	PaymentStatusPaid  = "paid"
)

// SessionTTL is how long a session stays usable after creation.
const SessionTTL = time.Hour

// Address is a postal address collected during checkout.
type Address struct {
	FullName        string `json:"fullName"`
	AddressLine1    string `json:"addressLine1"`
	AddressLine2    string `json:"addressLine2,omitempty"`
	City            string `json:"city"`
	StateOrProvince string `json:"stateOrProvince"`
	PostalCode      string `json:"postalCode"`
	Country         string `json:"country"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
}

// Config is an admin-managed checkout page definition.
type Config struct {
	ID                     string
	Title                  string
	Slug                   string
	Description            string
	ProductIDs             []string
	CollectEmail           bool
	CollectName            bool
	CollectPhone           bool
	CollectShippingAddress bool
	CollectBillingAddress  bool
	AllowCoupons           bool
	SuccessURL             string
	CancelURL              string
	Status                 string
	CreatedBy              string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Active reports whether the configuration accepts new sessions.
func (c Config) Active() bool {
	return c.Status == ConfigStatusActive
}

// ConfigPatch is a typed partial update for a checkout configuration.
type ConfigPatch struct {
	Title                  *string
	Description            *string
	ProductIDs             *[]string
	CollectEmail           *bool
	CollectName            *bool
	CollectPhone           *bool
	CollectShippingAddress *bool
	CollectBillingAddress  *bool
	AllowCoupons           *bool
	SuccessURL             *string
	CancelURL              *string
	Status                 *string
}

// Empty reports whether the patch changes nothing.
func (p ConfigPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.ProductIDs == nil &&
		p.CollectEmail == nil && p.CollectName == nil && p.CollectPhone == nil &&
		p.CollectShippingAddress == nil && p.CollectBillingAddress == nil &&
		p.AllowCoupons == nil && p.SuccessURL == nil && p.CancelURL == nil &&
		p.Status == nil
}

// CartItem is a priced line frozen into the cart at session creation.
// Later product price changes do not affect it.
type CartItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Cart holds the product snapshot for one session.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId,omitempty"`
	Items     []CartItem `json:"items"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Session is one buyer's progress through a checkout.
type Session struct {
	ID              string
	CheckoutID      string
	CartID          string
	UserID          string
	Email           string
	Name            string
	Phone           string
	ShippingAddress *Address
	BillingAddress  *Address
	Status          string
	CurrentStep     string
	PaymentMethod   string
	PaymentIntentID string
	Subtotal        float64
	DiscountAmount  float64
	TaxAmount       float64
	ShippingAmount  float64
	TotalAmount     float64
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ExpiredAt reports whether the session has outlived its expiry without
// completing.
func (s Session) ExpiredAt(now time.Time) bool {
	return s.Status == SessionStatusActive && !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Order is the immutable record cut when a session completes.
type Order struct {
	ID              string
	UserID          string
	Status          string
	Items           []CartItem
	Subtotal        float64
	DiscountAmount  float64
	TaxAmount       float64
	ShippingAmount  float64
	TotalAmount     float64
	CustomerEmail   string
	CustomerName    string
	CustomerPhone   string
	ShippingAddress *Address
	BillingAddress  *Address
	PaymentStatus   string
	PaymentMethod   string
	PaymentIntentID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
