package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/catalogsync/internal/domain/catalog"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// CloneAcknowledger is told when a tenant's copy of a catalog exists
type CloneAcknowledger interface {
	CatalogCloned(ctx context.Context, ct catalog.CatalogTenant)
}

// TenantCloner materializes a canonical catalog in a tenant's namespace.
// Only the catalog root is copied; the tenant builds its own hierarchy.
type TenantCloner struct {
	store  catalog.Store
	ack    CloneAcknowledger
	logger *zap.Logger
}

// NewTenantCloner creates a new TenantCloner
func NewTenantCloner(store catalog.Store, ack CloneAcknowledger, logger *zap.Logger) *TenantCloner {
	return &TenantCloner{store: store, ack: ack, logger: logger}
}

// CloneAll clones every subscription in order. A malformed element is
// logged and skipped so the rest of the array is still applied; any other
// error stops the loop and the whole array is redelivered. Elements cloned
// before the failure are acknowledged again on replay.
func (c *TenantCloner) CloneAll(ctx context.Context, subscriptions []catalog.CatalogTenant) error {
	for i, ct := range subscriptions {
		err := c.Clone(ctx, ct)
		if shared.IsMalformed(err) {
			c.logger.With(logger.Fields(ctx)...).Warn("skipping malformed catalog subscription",
				zap.Int("index", i),
				zap.String("tenant_id", ct.TenantID),
				zap.String("catalog_id", ct.CatalogID),
				zap.Error(err),
			)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone copies the canonical catalog root into the tenant namespace and
// acknowledges the copy. A copy that already exists is acknowledged again
// without touching it. An unknown canonical catalog is ignored.
func (c *TenantCloner) Clone(ctx context.Context, ct catalog.CatalogTenant) error {
	if strings.TrimSpace(ct.CatalogID) == "" {
		return shared.Malformed(fmt.Errorf("tenant %s: subscription has no catalog id", ct.TenantID))
	}
	ns, err := shared.Tenant(ct.TenantID)
	if err != nil {
		return shared.Malformed(fmt.Errorf("catalog %s: %w", ct.CatalogID, err))
	}
	ctx = logger.WithCatalogID(logger.WithTenantID(ctx, ct.TenantID), ct.CatalogID)
	log := c.logger.With(logger.Fields(ctx)...)

	acknowledge := false
	err = c.store.InCatalogTransaction(ctx, ct.CatalogID, func(repo catalog.Repository) error {
		source, err := repo.FindCatalog(ctx, ct.CatalogID, shared.Canonical())
		if errors.Is(err, shared.ErrNotFound) {
			log.Warn("canonical catalog not found, nothing to clone")
			return nil
		}
		if err != nil {
			return err
		}

		_, err = repo.FindCatalog(ctx, ct.CatalogID, ns)
		switch {
		case err == nil:
			log.Debug("tenant catalog already exists")
			acknowledge = true
			return nil
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}

		if err := repo.SaveCatalog(ctx, source.CloneFor(ns)); err != nil {
			return err
		}
		log.Info("catalog cloned for tenant")
		acknowledge = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clone catalog %s for tenant %s: %w", ct.CatalogID, ct.TenantID, err)
	}

	if acknowledge {
		c.ack.CatalogCloned(ctx, ct)
	}
	return nil
}
