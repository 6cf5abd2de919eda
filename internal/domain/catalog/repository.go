package catalog

import (
	"context"

	"github.com/erp/catalogsync/internal/domain/shared"
)

// Repository reads and writes the catalog hierarchy.
// Save methods upsert by natural key; Find methods return shared.ErrNotFound.
type Repository interface {
	FindCatalog(ctx context.Context, id string, ns shared.Namespace) (*Catalog, error)
	SaveCatalog(ctx context.Context, c *Catalog) error

	FindFamily(ctx context.Context, catalogID, id string, ns shared.Namespace) (*Family, error)
	SaveFamily(ctx context.Context, f *Family) error
	// ExistingFamilies returns the subset of ids present in the catalog
	ExistingFamilies(ctx context.Context, catalogID string, ns shared.Namespace, ids []string) (map[string]bool, error)
	ListFamilies(ctx context.Context, catalogID string, ns shared.Namespace) ([]Family, error)

	FindArticle(ctx context.Context, catalogID, id string, ns shared.Namespace) (*Article, error)
	SaveArticle(ctx context.Context, a *Article) error
	ReplaceArticleFamilies(ctx context.Context, a *Article, familyIDs []string) error
	ArticleFamilyIDs(ctx context.Context, a *Article) ([]string, error)

	FindOuvrage(ctx context.Context, catalogID, id string, ns shared.Namespace) (*Ouvrage, error)
	SaveOuvrage(ctx context.Context, o *Ouvrage) error
	ReplaceOuvrageFamilies(ctx context.Context, o *Ouvrage, familyIDs []string) error
	OuvrageFamilyIDs(ctx context.Context, o *Ouvrage) ([]string, error)

	SaveLine(ctx context.Context, l *OuvrageLine) error
	ListLines(ctx context.Context, o *Ouvrage) ([]OuvrageLine, error)
	FindLineArticle(ctx context.Context, l *OuvrageLine) (*LineArticle, error)
	SaveLineArticle(ctx context.Context, la *LineArticle) error
	DeleteLineArticle(ctx context.Context, l *OuvrageLine) error

	FindComment(ctx context.Context, id string, ns shared.Namespace) (*Comment, error)
	SaveComment(ctx context.Context, c *Comment) error
}

// Store runs catalog writes atomically. Work on the same catalog id is
// serialized, so concurrent deliveries never interleave on one catalog.
type Store interface {
	Repository
	// InCatalogTransaction runs fn in one transaction holding the lock of catalogID.
	// Any error from fn rolls the transaction back.
	InCatalogTransaction(ctx context.Context, catalogID string, fn func(repo Repository) error) error
}
