package identity

import (
	"context"
	"fmt"

	"github.com/erp/catalogsync/internal/domain/identity"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanyService handles company management operations
type CompanyService struct {
	uow       identity.UnitOfWork
	numbering identity.NumberingService
	publisher SynchroPublisher
	logger    *zap.Logger
}

// NewCompanyService creates a new company service
func NewCompanyService(
	uow identity.UnitOfWork,
	numbering identity.NumberingService,
	publisher SynchroPublisher,
	logger *zap.Logger,
) *CompanyService {
	return &CompanyService{
		uow:       uow,
		numbering: numbering,
		publisher: publisher,
		logger:    logger,
	}
}

// Save creates a company in an existing tenant, or renames an existing one
func (s *CompanyService) Save(ctx context.Context, input SaveCompanyInput) (*CompanyDTO, error) {
	var code string
	if input.ID == nil {
		c, err := s.numbering.NextCode(ctx, CompanySequence)
		if err != nil {
			return nil, fmt.Errorf("failed to number company: %w", err)
		}
		code = c
	}

	var company *identity.Company
	err := s.uow.Do(ctx, func(repos identity.Repositories) error {
		if input.ID != nil {
			c, err := repos.Companies.FindByID(ctx, *input.ID)
			if err != nil {
				return err
			}
			if c.TenantID != input.TenantID {
				return shared.NewDomainError("TENANT_MISMATCH", "Company belongs to another tenant")
			}
			if input.Name == "" {
				return shared.NewDomainError("INVALID_NAME", "Company name cannot be empty")
			}
			c.Name = input.Name
			company = c
			return repos.Companies.Save(ctx, company)
		}

		if _, err := repos.Tenants.FindByID(ctx, input.TenantID); err != nil {
			return err
		}
		c, err := identity.NewCompany(input.TenantID, code, input.Name)
		if err != nil {
			return err
		}
		company = c
		return repos.Companies.Save(ctx, company)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("company saved",
		zap.String("company_id", company.ID.String()),
		zap.String("tenant_id", company.TenantID.String()),
	)
	s.publisher.CompanySaved(ctx, company.ID)

	dto := ToCompanyDTO(company)
	return &dto, nil
}

// AttachUser grants a user access to a company
func (s *CompanyService) AttachUser(ctx context.Context, userID, companyID uuid.UUID) error {
	err := s.uow.Do(ctx, func(repos identity.Repositories) error {
		if _, err := repos.Users.FindByID(ctx, userID); err != nil {
			return err
		}
		if _, err := repos.Companies.FindByID(ctx, companyID); err != nil {
			return err
		}
		return repos.Companies.AttachUser(ctx, &identity.UserCompany{UserID: userID, CompanyID: companyID})
	})
	if err != nil {
		return err
	}

	s.publisher.UserAttached(ctx, userID, companyID)
	return nil
}
