// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Every catalog model's primary key is its natural key: the domain id plus the
// catalog and tenant ids. The tenant_id column holds shared.CanonicalTenantID
// for canonical rows. No foreign key constraints are declared; the catalog
// applier writes parents before children inside one transaction.
//
// Structure:
// - base.go: shared timestamp columns
// - catalog.go: catalog hierarchy and membership link tables
// - reference.go: code-keyed reference data with soft delete
// - identity.go: users, tenants, companies
// - outbox.go: outbound retry outbox
package models
