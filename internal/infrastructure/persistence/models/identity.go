package models

import (
	"time"

	"github.com/erp/catalogsync/internal/domain/identity"
	"github.com/google/uuid"
)

// UserModel is the persistence model for a user
type UserModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	FirstName string    `gorm:"type:varchar(100)"`
	LastName  string    `gorm:"type:varchar(100)"`
	Timestamps
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// NaturalKey returns the identifying columns
func (m *UserModel) NaturalKey() map[string]any {
	return map[string]any{"id": m.ID}
}

// ToDomain converts the persistence model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		ID:        m.ID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// UserModelFromDomain creates a persistence model from a domain User
func UserModelFromDomain(u *identity.User) *UserModel {
	return &UserModel{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Timestamps: Timestamps{CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt},
	}
}

// TenantModel is the persistence model for a tenant
type TenantModel struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name string    `gorm:"type:varchar(200);not null"`
	Timestamps
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// NaturalKey returns the identifying columns
func (m *TenantModel) NaturalKey() map[string]any {
	return map[string]any{"id": m.ID}
}

// ToDomain converts the persistence model to a domain Tenant
func (m *TenantModel) ToDomain() *identity.Tenant {
	return &identity.Tenant{
		ID:        m.ID,
		Code:      m.Code,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// TenantModelFromDomain creates a persistence model from a domain Tenant
func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	return &TenantModel{
		ID:         t.ID,
		Code:       t.Code,
		Name:       t.Name,
		Timestamps: Timestamps{CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt},
	}
}

// CompanyModel is the persistence model for a company
type CompanyModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_company_tenant_code,priority:1"`
	Code     string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_company_tenant_code,priority:2"`
	Name     string    `gorm:"type:varchar(200);not null"`
	Timestamps
}

// TableName returns the table name for GORM
func (CompanyModel) TableName() string {
	return "companies"
}

// NaturalKey returns the identifying columns
func (m *CompanyModel) NaturalKey() map[string]any {
	return map[string]any{"id": m.ID}
}

// ToDomain converts the persistence model to a domain Company
func (m *CompanyModel) ToDomain() *identity.Company {
	return &identity.Company{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Code:      m.Code,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// CompanyModelFromDomain creates a persistence model from a domain Company
func CompanyModelFromDomain(c *identity.Company) *CompanyModel {
	return &CompanyModel{
		ID:         c.ID,
		TenantID:   c.TenantID,
		Code:       c.Code,
		Name:       c.Name,
		Timestamps: Timestamps{CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt},
	}
}

// UserCompanyModel grants a user access to a company
type UserCompanyModel struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserCompanyModel) TableName() string {
	return "user_companies"
}
