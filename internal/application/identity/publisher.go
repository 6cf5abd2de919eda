// Package identity provisions users, tenants and companies and announces
// every committed change through synchro events.
package identity

import (
	"context"

	"github.com/google/uuid"
)

// SynchroPublisher announces committed identity writes
type SynchroPublisher interface {
	UserSaved(ctx context.Context, id uuid.UUID)
	TenantSaved(ctx context.Context, id uuid.UUID)
	CompanySaved(ctx context.Context, id uuid.UUID)
	UserAttached(ctx context.Context, userID, companyID uuid.UUID)
}

// CompanySequence is the numbering sequence of company codes
const CompanySequence = "company"
