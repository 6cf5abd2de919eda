package shared

import "strings"

// CanonicalTenantID is the storage value of the canonical namespace.
// It must never leak into business logic; use Namespace instead.
const CanonicalTenantID = "NIL"

// ErrReservedTenantID is returned when a caller tries to build a tenant
// namespace from the canonical sentinel or from an empty id
var ErrReservedTenantID = NewDomainError("RESERVED_TENANT", "Tenant id is empty or reserved for the canonical catalog")

// Namespace identifies where a catalog row lives: the canonical catalog
// published by the authoring system, or the copy owned by one tenant.
// The zero value is the canonical namespace.
type Namespace struct {
	tenantID string
}

// Canonical returns the canonical (source) namespace
func Canonical() Namespace {
	return Namespace{}
}

// Tenant returns the namespace of the given tenant
func Tenant(tenantID string) (Namespace, error) {
	id := strings.TrimSpace(tenantID)
	if id == "" || id == CanonicalTenantID {
		return Namespace{}, ErrReservedTenantID
	}
	return Namespace{tenantID: id}, nil
}

// NamespaceFromStorage maps a stored tenant_id column back to a Namespace
func NamespaceFromStorage(tenantID string) Namespace {
	if tenantID == "" || tenantID == CanonicalTenantID {
		return Canonical()
	}
	return Namespace{tenantID: tenantID}
}

// IsCanonical reports whether n is the canonical namespace
func (n Namespace) IsCanonical() bool {
	return n.tenantID == ""
}

// TenantID returns the tenant id and true, or false for the canonical namespace
func (n Namespace) TenantID() (string, bool) {
	if n.IsCanonical() {
		return "", false
	}
	return n.tenantID, true
}

// StorageID returns the value stored in tenant_id columns
func (n Namespace) StorageID() string {
	if n.IsCanonical() {
		return CanonicalTenantID
	}
	return n.tenantID
}

// String implements fmt.Stringer
func (n Namespace) String() string {
	if n.IsCanonical() {
		return "canonical"
	}
	return "tenant:" + n.tenantID
}
