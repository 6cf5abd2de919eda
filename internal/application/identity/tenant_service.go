package identity

import (
	"context"
	"fmt"

	"github.com/erp/catalogsync/internal/domain/identity"
	"github.com/erp/catalogsync/internal/domain/shared"
	"go.uber.org/zap"
)

// TenantService provisions tenants
type TenantService struct {
	uow       identity.UnitOfWork
	numbering identity.NumberingService
	publisher SynchroPublisher
	logger    *zap.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(
	uow identity.UnitOfWork,
	numbering identity.NumberingService,
	publisher SynchroPublisher,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		uow:       uow,
		numbering: numbering,
		publisher: publisher,
		logger:    logger,
	}
}

// Provision creates a tenant together with its first company, and attaches
// the owner to it when one is given. Events are published once the whole
// provisioning has committed.
func (s *TenantService) Provision(ctx context.Context, input ProvisionTenantInput) (*TenantDTO, error) {
	tenant, err := identity.NewTenant(input.Code, input.Name)
	if err != nil {
		return nil, err
	}
	companyName := input.CompanyName
	if companyName == "" {
		companyName = input.Name
	}

	code, err := s.numbering.NextCode(ctx, CompanySequence)
	if err != nil {
		return nil, fmt.Errorf("failed to number company of tenant %s: %w", tenant.Code, err)
	}
	company, err := identity.NewCompany(tenant.ID, code, companyName)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(repos identity.Repositories) error {
		exists, err := repos.Tenants.ExistsByCode(ctx, tenant.Code)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("ALREADY_EXISTS", "Tenant code already exists")
		}
		if err := repos.Tenants.Save(ctx, tenant); err != nil {
			return err
		}
		if err := repos.Companies.Save(ctx, company); err != nil {
			return err
		}
		if input.OwnerID == nil {
			return nil
		}
		if _, err := repos.Users.FindByID(ctx, *input.OwnerID); err != nil {
			return err
		}
		return repos.Companies.AttachUser(ctx, &identity.UserCompany{UserID: *input.OwnerID, CompanyID: company.ID})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tenant provisioned",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("tenant_code", tenant.Code),
		zap.String("company_code", company.Code),
	)
	s.publisher.TenantSaved(ctx, tenant.ID)
	s.publisher.CompanySaved(ctx, company.ID)
	if input.OwnerID != nil {
		s.publisher.UserAttached(ctx, *input.OwnerID, company.ID)
	}

	return &TenantDTO{
		ID:        tenant.ID,
		Code:      tenant.Code,
		Name:      tenant.Name,
		Company:   ToCompanyDTO(company),
		CreatedAt: tenant.CreatedAt,
	}, nil
}
