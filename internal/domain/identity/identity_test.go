package identity

import (
	"testing"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("normalizes email", func(t *testing.T) {
		u, err := NewUser("  Jane.Doe@Example.COM ", "Jane", "Doe")

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, u.ID)
		assert.Equal(t, "jane.doe@example.com", u.Email)
	})

	t.Run("fails with invalid email", func(t *testing.T) {
		u, err := NewUser("not-an-email", "Jane", "Doe")

		assert.Nil(t, u)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_EMAIL", domainErr.Code)
	})
}

func TestNewTenant(t *testing.T) {
	t.Run("creates tenant successfully", func(t *testing.T) {
		tenant, err := NewTenant("acme-01", "Acme")

		require.NoError(t, err)
		assert.Equal(t, "ACME-01", tenant.Code)

		ns, err := tenant.Namespace()
		require.NoError(t, err)
		id, ok := ns.TenantID()
		assert.True(t, ok)
		assert.Equal(t, tenant.ID.String(), id)
	})

	t.Run("fails with invalid code characters", func(t *testing.T) {
		tenant, err := NewTenant("ACME@01", "Acme")

		assert.Nil(t, tenant)
		assert.Contains(t, err.Error(), "can only contain")
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewTenant("ACME", "")

		assert.Contains(t, err.Error(), "name cannot be empty")
	})
}

func TestNewCompany(t *testing.T) {
	t.Run("requires a tenant", func(t *testing.T) {
		c, err := NewCompany(uuid.Nil, "C1", "Acme Ouest")

		assert.Nil(t, c)
		assert.Error(t, err)
	})

	t.Run("creates company successfully", func(t *testing.T) {
		tenantID := uuid.New()
		c, err := NewCompany(tenantID, "c1", "Acme Ouest")

		require.NoError(t, err)
		assert.Equal(t, tenantID, c.TenantID)
		assert.Equal(t, "C1", c.Code)
	})
}
