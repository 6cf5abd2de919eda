package identity

import (
	"time"

	"github.com/erp/catalogsync/internal/domain/identity"
	"github.com/google/uuid"
)

// SaveUserInput contains input for creating or updating a user.
// A nil ID creates a new user.
type SaveUserInput struct {
	ID        *uuid.UUID
	Email     string
	FirstName string
	LastName  string
}

// ProvisionTenantInput contains input for provisioning a tenant with its first company
type ProvisionTenantInput struct {
	Code        string
	Name        string
	CompanyName string
	// OwnerID, when set, is attached to the first company
	OwnerID *uuid.UUID
}

// SaveCompanyInput contains input for creating or updating a company.
// A nil ID creates a new company, coded by the numbering service.
type SaveCompanyInput struct {
	ID       *uuid.UUID
	TenantID uuid.UUID
	Name     string
}

// UserDTO represents user data transfer object
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantDTO represents tenant data transfer object
type TenantDTO struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Company   CompanyDTO `json:"company"`
	CreatedAt time.Time  `json:"created_at"`
}

// CompanyDTO represents company data transfer object
type CompanyDTO struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToUserDTO converts a domain User to UserDTO
func ToUserDTO(u *identity.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ToCompanyDTO converts a domain Company to CompanyDTO
func ToCompanyDTO(c *identity.Company) CompanyDTO {
	return CompanyDTO{
		ID:        c.ID,
		TenantID:  c.TenantID,
		Code:      c.Code,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
