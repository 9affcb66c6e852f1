// Package catalog provides lookup access to products, purchase records
// and course enrollments consumed by the downloads and checkout modules.
package catalog

import "time"

// Product statuses. Anything other than active is excluded from checkout
// snapshots.
const (
	ProductStatusActive   = "active"
	ProductStatusArchived = "archived"
)

// Purchase and enrollment statuses that satisfy access gates.
const (
	PurchaseStatusCompleted = "completed"
	EnrollmentStatusActive  = "active"
)

// Product is a sellable item.
type Product struct {
	ID            string
	Title         string
	Price         float64
	Status        string
	PurchaseCount int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Active reports whether the product can be sold.
func (p Product) Active() bool {
	return p.Status == ProductStatusActive
}
