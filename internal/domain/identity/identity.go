// Package identity holds the users, tenants and companies whose local
// changes are announced to other services through synchro events.
package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/google/uuid"
)

// Outbound synchro event types
const (
	EventTypeUserSynchro        = "user.synchro"
	EventTypeTenantSynchro      = "tenant.synchro"
	EventTypeCompanySynchro     = "company.synchro"
	EventTypeUserCompanySynchro = "company.user_company.synchro"
)

// User is a person allowed to sign in
type User struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a user with a fresh id
func NewUser(email, firstName, lastName string) (*User, error) {
	u := &User{ID: uuid.New()}
	if err := u.Update(email, firstName, lastName); err != nil {
		return nil, err
	}
	return u, nil
}

// Update replaces the user's profile
func (u *User) Update(email, firstName, lastName string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return shared.NewDomainError("INVALID_EMAIL", "Email is not a valid address")
	}
	if len(firstName) > 100 || len(lastName) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Names cannot exceed 100 characters")
	}
	u.Email = email
	u.FirstName = firstName
	u.LastName = lastName
	return nil
}

// Tenant is an organization owning its own copy of catalogs
type Tenant struct {
	ID        uuid.UUID
	Code      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTenant creates a tenant with a fresh id
func NewTenant(code, name string) (*Tenant, error) {
	if err := validateCode("Tenant", code); err != nil {
		return nil, err
	}
	if err := validateName("Tenant", name); err != nil {
		return nil, err
	}
	return &Tenant{
		ID:   uuid.New(),
		Code: strings.ToUpper(code),
		Name: name,
	}, nil
}

// Namespace returns the catalog namespace owned by the tenant
func (t *Tenant) Namespace() (shared.Namespace, error) {
	return shared.Tenant(t.ID.String())
}

// Company is a legal entity belonging to a tenant
type Company struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Code      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCompany creates a company of tenantID with a fresh id
func NewCompany(tenantID uuid.UUID, code, name string) (*Company, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Company must belong to a tenant")
	}
	if err := validateCode("Company", code); err != nil {
		return nil, err
	}
	if err := validateName("Company", name); err != nil {
		return nil, err
	}
	return &Company{
		ID:       uuid.New(),
		TenantID: tenantID,
		Code:     strings.ToUpper(code),
		Name:     name,
	}, nil
}

// UserCompany grants a user access to a company
type UserCompany struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	CreatedAt time.Time
}

// UserCompanySynchro is the payload of company.user_company.synchro
type UserCompanySynchro struct {
	UserID    string `json:"idUser"`
	CompanyID string `json:"idCompany"`
	Timestamp int64  `json:"timestamp"`
}

func validateCode(entity, code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", entity+" code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", entity+" code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", entity+" code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateName(entity, name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", entity+" name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", entity+" name cannot exceed 200 characters")
	}
	return nil
}
