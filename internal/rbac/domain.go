package rbac

import "time"

// Principal describes the actor an operation runs on behalf of. It is
// derived per-request from the session user and never persisted itself.
type Principal struct {
	// UserID is empty for guests.
	UserID string
	// Admin is the global role override; it short-circuits every check.
	Admin bool
	// DownloadRole is the assigned downloads role, empty when unassigned.
	DownloadRole string
	// OrgRole carries the organization membership role, if any.
	OrgRole string
}

// Authenticated reports whether the principal maps to a known user.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// ScopeKind discriminates the scope union.
type ScopeKind string

const (
	ScopeGlobal       ScopeKind = "global"
	ScopeOrganization ScopeKind = "organization"
)

// Scope is a tagged union: Global or Organization(id). Carrying the org id
// on the value keeps role meaning explicit instead of inferred from call
// context.
type Scope struct {
	kind  ScopeKind
	orgID string
}

// GlobalScope returns the global scope value.
func GlobalScope() Scope {
	return Scope{kind: ScopeGlobal}
}

// OrganizationScope returns a scope bound to one organization.
func OrganizationScope(orgID string) Scope {
	return Scope{kind: ScopeOrganization, orgID: orgID}
}

// Kind returns the scope discriminant.
func (s Scope) Kind() ScopeKind { return s.kind }

// OrgID returns the organization id; empty for the global scope.
func (s Scope) OrgID() string { return s.orgID }

func (s Scope) String() string {
	if s.kind == ScopeOrganization {
		return string(ScopeOrganization) + ":" + s.orgID
	}
	return string(ScopeGlobal)
}

// Role is an administrable role record. System roles are immutable: they
// cannot be deleted or edited through the management operations.
type Role struct {
	ID           string
	Name         string
	Description  string
	Scope        Scope
	Priority     int
	IsSystem     bool
	IsAssignable bool
	ParentID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
