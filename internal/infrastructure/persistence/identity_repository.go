package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/catalogsync/internal/domain/identity"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user by its ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	m, err := FindByKey[models.UserModel](ctx, r.db, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// Save upserts a user and refreshes its timestamps
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	stored, err := Upsert(ctx, r.db, models.UserModelFromDomain(user))
	if err != nil {
		return translateUnique(err, "user")
	}
	user.CreatedAt, user.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

// GormTenantRepository implements identity.TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	m, err := FindByKey[models.TenantModel](ctx, r.db, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// ExistsByCode checks if a tenant with the given code exists
func (r *GormTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TenantModel{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save upserts a tenant and refreshes its timestamps
func (r *GormTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	stored, err := Upsert(ctx, r.db, models.TenantModelFromDomain(tenant))
	if err != nil {
		return translateUnique(err, "tenant")
	}
	tenant.CreatedAt, tenant.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

// GormCompanyRepository implements identity.CompanyRepository using GORM
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewGormCompanyRepository creates a new GormCompanyRepository
func NewGormCompanyRepository(db *gorm.DB) *GormCompanyRepository {
	return &GormCompanyRepository{db: db}
}

// FindByID finds a company by its ID
func (r *GormCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Company, error) {
	m, err := FindByKey[models.CompanyModel](ctx, r.db, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// Save upserts a company and refreshes its timestamps
func (r *GormCompanyRepository) Save(ctx context.Context, company *identity.Company) error {
	stored, err := Upsert(ctx, r.db, models.CompanyModelFromDomain(company))
	if err != nil {
		return translateUnique(err, "company")
	}
	company.CreatedAt, company.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

// AttachUser grants a user access to a company. Attaching twice is a no-op.
func (r *GormCompanyRepository) AttachUser(ctx context.Context, uc *identity.UserCompany) error {
	if uc.CreatedAt.IsZero() {
		uc.CreatedAt = time.Now()
	}
	m := &models.UserCompanyModel{UserID: uc.UserID, CompanyID: uc.CompanyID, CreatedAt: uc.CreatedAt}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error; err != nil {
		return fmt.Errorf("failed to attach user %s to company %s: %w", uc.UserID, uc.CompanyID, err)
	}
	return nil
}

// GormIdentityUnitOfWork runs identity writes in a transaction
type GormIdentityUnitOfWork struct {
	db *gorm.DB
}

// NewGormIdentityUnitOfWork creates a new GormIdentityUnitOfWork
func NewGormIdentityUnitOfWork(db *gorm.DB) *GormIdentityUnitOfWork {
	return &GormIdentityUnitOfWork{db: db}
}

// Do runs fn with repositories bound to one transaction
func (u *GormIdentityUnitOfWork) Do(ctx context.Context, fn func(repos identity.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(identity.Repositories{
			Users:     NewGormUserRepository(tx),
			Tenants:   NewGormTenantRepository(tx),
			Companies: NewGormCompanyRepository(tx),
		})
	})
}

func translateUnique(err error, entity string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("A %s with the same unique fields already exists", entity))
	}
	return fmt.Errorf("failed to save %s: %w", entity, err)
}

var _ identity.UnitOfWork = (*GormIdentityUnitOfWork)(nil)
