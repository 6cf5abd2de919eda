package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists users
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	Save(ctx context.Context, user *User) error
}

// TenantRepository persists tenants
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, tenant *Tenant) error
}

// CompanyRepository persists companies and their user memberships
type CompanyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Company, error)
	Save(ctx context.Context, company *Company) error
	AttachUser(ctx context.Context, uc *UserCompany) error
}

// Repositories groups the repositories bound to one transaction
type Repositories struct {
	Users     UserRepository
	Tenants   TenantRepository
	Companies CompanyRepository
}

// UnitOfWork runs identity writes atomically
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

// NumberingService hands out the next code of a named sequence
type NumberingService interface {
	NextCode(ctx context.Context, sequence string) (string, error)
}
