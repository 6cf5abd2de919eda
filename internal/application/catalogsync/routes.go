package catalogsync

import (
	"github.com/erp/catalogsync/internal/domain/catalog"
	"github.com/erp/catalogsync/internal/infrastructure/event"
)

// Register binds the catalog events to the applier and the cloner
func Register(d *event.Dispatcher, applier *CatalogApplier, cloner *TenantCloner) {
	event.Register(d, catalog.EventTypeCatalogPublished, applier.Apply)
	event.Register(d, catalog.EventTypeCatalogTenantsUpsert, cloner.CloneAll)
}
