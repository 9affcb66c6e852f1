package downloads

import "time"

// Download is a protected file resource with exactly one owner.
type Download struct {
	ID          string
	Title       string
	Description string
	// UploadedBy is the owning user.
	UploadedBy string
	IsPublic   bool
	// AccessibleUserIDs lists explicit per-user grants.
	AccessibleUserIDs []string
	// RequiredProductID gates access behind a completed purchase.
	RequiredProductID string
	// RequiredCourseID gates access behind an active enrollment.
	RequiredCourseID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Patch is a typed partial update. Nil fields are left untouched; this
// replaces the stringly-keyed patch maps the admin UI used to build.
type Patch struct {
	Title             *string
	Description       *string
	IsPublic          *bool
	RequiredProductID *string
	RequiredCourseID  *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.IsPublic == nil &&
		p.RequiredProductID == nil && p.RequiredCourseID == nil
}

// AccessType tags how a party gained access to a download.
type AccessType string

const (
	AccessOwner    AccessType = "owner"
	AccessExplicit AccessType = "explicit"
	AccessProduct  AccessType = "product"
	AccessCourse   AccessType = "course"
)

// AccessEntry is one row of the access list.
type AccessEntry struct {
	UserID     string     `json:"userId"`
	Name       string     `json:"name,omitempty"`
	Email      string     `json:"email,omitempty"`
	AccessType AccessType `json:"accessType"`
}
