package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/catalogsync/internal/domain/catalog"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCatalogRepository implements catalog.Repository using GORM
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// FindCatalog finds a catalog root in a namespace
func (r *GormCatalogRepository) FindCatalog(ctx context.Context, id string, ns shared.Namespace) (*catalog.Catalog, error) {
	m, err := FindByKey[models.CatalogModel](ctx, r.db, map[string]any{
		"catalog_id": id,
		"tenant_id":  ns.StorageID(),
	})
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// SaveCatalog upserts a catalog root
func (r *GormCatalogRepository) SaveCatalog(ctx context.Context, c *catalog.Catalog) error {
	if _, err := Upsert(ctx, r.db, models.CatalogModelFromDomain(c)); err != nil {
		return fmt.Errorf("failed to save catalog %s: %w", c.ID, err)
	}
	return nil
}

// FindFamily finds a family of a catalog
func (r *GormCatalogRepository) FindFamily(ctx context.Context, catalogID, id string, ns shared.Namespace) (*catalog.Family, error) {
	m, err := FindByKey[models.FamilyModel](ctx, r.db, map[string]any{
		"family_id":  id,
		"catalog_id": catalogID,
		"tenant_id":  ns.StorageID(),
	})
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// SaveFamily upserts a family node
func (r *GormCatalogRepository) SaveFamily(ctx context.Context, f *catalog.Family) error {
	if _, err := Upsert(ctx, r.db, models.FamilyModelFromDomain(f)); err != nil {
		return fmt.Errorf("failed to save family %s: %w", f.ID, err)
	}
	return nil
}

// ExistingFamilies returns which of ids exist in the catalog
func (r *GormCatalogRepository) ExistingFamilies(ctx context.Context, catalogID string, ns shared.Namespace, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var existing []string
	if err := r.db.WithContext(ctx).
		Model(&models.FamilyModel{}).
		Scopes(InNamespace(ns)).
		Where("catalog_id = ? AND family_id IN ?", catalogID, ids).
		Pluck("family_id", &existing).Error; err != nil {
		return nil, err
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}

// ListFamilies returns the families of a catalog ordered by id
func (r *GormCatalogRepository) ListFamilies(ctx context.Context, catalogID string, ns shared.Namespace) ([]catalog.Family, error) {
	var rows []models.FamilyModel
	if err := r.db.WithContext(ctx).
		Scopes(InNamespace(ns)).
		Where("catalog_id = ?", catalogID).
		Order("family_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	families := make([]catalog.Family, len(rows))
	for i := range rows {
		families[i] = *rows[i].ToDomain()
	}
	return families, nil
}

// FindArticle finds an article of a catalog
func (r *GormCatalogRepository) FindArticle(ctx context.Context, catalogID, id string, ns shared.Namespace) (*catalog.Article, error) {
	m, err := FindByKey[models.ArticleModel](ctx, r.db, map[string]any{
		"article_id": id,
		"catalog_id": catalogID,
		"tenant_id":  ns.StorageID(),
	})
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// SaveArticle upserts an article
func (r *GormCatalogRepository) SaveArticle(ctx context.Context, a *catalog.Article) error {
	if _, err := Upsert(ctx, r.db, models.ArticleModelFromDomain(a)); err != nil {
		return fmt.Errorf("failed to save article %s: %w", a.ID, err)
	}
	return nil
}

// ReplaceArticleFamilies replaces every family link of an article.
// Family ids are expected to exist in the article's catalog.
func (r *GormCatalogRepository) ReplaceArticleFamilies(ctx context.Context, a *catalog.Article, familyIDs []string) error {
	db := r.db.WithContext(ctx)
	tenantID := a.Namespace.StorageID()

	if err := db.Where("article_id = ? AND article_catalog_id = ? AND article_tenant_id = ?", a.ID, a.CatalogID, tenantID).
		Delete(&models.FamilyArticleModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear families of article %s: %w", a.ID, err)
	}

	links := make([]models.FamilyArticleModel, 0, len(familyIDs))
	for _, id := range dedupe(familyIDs) {
		links = append(links, models.FamilyArticleModel{
			FamilyID:         id,
			FamilyCatalogID:  a.CatalogID,
			FamilyTenantID:   tenantID,
			ArticleID:        a.ID,
			ArticleCatalogID: a.CatalogID,
			ArticleTenantID:  tenantID,
		})
	}
	if len(links) == 0 {
		return nil
	}
	if err := db.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to link families of article %s: %w", a.ID, err)
	}
	return nil
}

// ArticleFamilyIDs returns the ids of the families an article belongs to
func (r *GormCatalogRepository) ArticleFamilyIDs(ctx context.Context, a *catalog.Article) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.FamilyArticleModel{}).
		Where("article_id = ? AND article_catalog_id = ? AND article_tenant_id = ?", a.ID, a.CatalogID, a.Namespace.StorageID()).
		Order("family_id").
		Pluck("family_id", &ids).Error
	return ids, err
}

// FindOuvrage finds an ouvrage of a catalog
func (r *GormCatalogRepository) FindOuvrage(ctx context.Context, catalogID, id string, ns shared.Namespace) (*catalog.Ouvrage, error) {
	m, err := FindByKey[models.OuvrageModel](ctx, r.db, map[string]any{
		"ouvrage_id": id,
		"catalog_id": catalogID,
		"tenant_id":  ns.StorageID(),
	})
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// SaveOuvrage upserts an ouvrage
func (r *GormCatalogRepository) SaveOuvrage(ctx context.Context, o *catalog.Ouvrage) error {
	if _, err := Upsert(ctx, r.db, models.OuvrageModelFromDomain(o)); err != nil {
		return fmt.Errorf("failed to save ouvrage %s: %w", o.ID, err)
	}
	return nil
}

// ReplaceOuvrageFamilies replaces every family link of an ouvrage
func (r *GormCatalogRepository) ReplaceOuvrageFamilies(ctx context.Context, o *catalog.Ouvrage, familyIDs []string) error {
	db := r.db.WithContext(ctx)
	tenantID := o.Namespace.StorageID()

	if err := db.Where("ouvrage_id = ? AND ouvrage_catalog_id = ? AND ouvrage_tenant_id = ?", o.ID, o.CatalogID, tenantID).
		Delete(&models.FamilyOuvrageModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear families of ouvrage %s: %w", o.ID, err)
	}

	links := make([]models.FamilyOuvrageModel, 0, len(familyIDs))
	for _, id := range dedupe(familyIDs) {
		links = append(links, models.FamilyOuvrageModel{
			FamilyID:         id,
			FamilyCatalogID:  o.CatalogID,
			FamilyTenantID:   tenantID,
			OuvrageID:        o.ID,
			OuvrageCatalogID: o.CatalogID,
			OuvrageTenantID:  tenantID,
		})
	}
	if len(links) == 0 {
		return nil
	}
	if err := db.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to link families of ouvrage %s: %w", o.ID, err)
	}
	return nil
}

// OuvrageFamilyIDs returns the ids of the families an ouvrage belongs to
func (r *GormCatalogRepository) OuvrageFamilyIDs(ctx context.Context, o *catalog.Ouvrage) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.FamilyOuvrageModel{}).
		Where("ouvrage_id = ? AND ouvrage_catalog_id = ? AND ouvrage_tenant_id = ?", o.ID, o.CatalogID, o.Namespace.StorageID()).
		Order("family_id").
		Pluck("family_id", &ids).Error
	return ids, err
}

// SaveLine upserts an ouvrage line
func (r *GormCatalogRepository) SaveLine(ctx context.Context, l *catalog.OuvrageLine) error {
	if _, err := Upsert(ctx, r.db, models.OuvrageLineModelFromDomain(l)); err != nil {
		return fmt.Errorf("failed to save line %s: %w", l.ID, err)
	}
	return nil
}

// ListLines returns the lines of an ouvrage ordered by noOrdre
func (r *GormCatalogRepository) ListLines(ctx context.Context, o *catalog.Ouvrage) ([]catalog.OuvrageLine, error) {
	var rows []models.OuvrageLineModel
	if err := r.db.WithContext(ctx).
		Scopes(InNamespace(o.Namespace)).
		Where("catalog_id = ? AND ouvrage_id = ?", o.CatalogID, o.ID).
		Order("no_ordre, ligne_ouvrage_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	lines := make([]catalog.OuvrageLine, len(rows))
	for i := range rows {
		lines[i] = *rows[i].ToDomain()
	}
	return lines, nil
}

// FindLineArticle finds the article attachment of a line
func (r *GormCatalogRepository) FindLineArticle(ctx context.Context, l *catalog.OuvrageLine) (*catalog.LineArticle, error) {
	m, err := FindByKey[models.LineArticleModel](ctx, r.db, lineKey(l))
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// SaveLineArticle upserts the article attachment of a line
func (r *GormCatalogRepository) SaveLineArticle(ctx context.Context, la *catalog.LineArticle) error {
	if _, err := Upsert(ctx, r.db, models.LineArticleModelFromDomain(la)); err != nil {
		return fmt.Errorf("failed to save article of line %s: %w", la.LineID, err)
	}
	return nil
}

// DeleteLineArticle removes the article attachment of a line, if any
func (r *GormCatalogRepository) DeleteLineArticle(ctx context.Context, l *catalog.OuvrageLine) error {
	if err := r.db.WithContext(ctx).Where(lineKey(l)).Delete(&models.LineArticleModel{}).Error; err != nil {
		return fmt.Errorf("failed to detach article of line %s: %w", l.ID, err)
	}
	return nil
}

// FindComment finds a comment in a namespace
func (r *GormCatalogRepository) FindComment(ctx context.Context, id string, ns shared.Namespace) (*catalog.Comment, error) {
	m, err := FindByKey[models.CommentModel](ctx, r.db, map[string]any{
		"comment_id": id,
		"tenant_id":  ns.StorageID(),
	})
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// SaveComment upserts a comment
func (r *GormCatalogRepository) SaveComment(ctx context.Context, c *catalog.Comment) error {
	if _, err := Upsert(ctx, r.db, models.CommentModelFromDomain(c)); err != nil {
		return fmt.Errorf("failed to save comment %s: %w", c.ID, err)
	}
	return nil
}

func lineKey(l *catalog.OuvrageLine) map[string]any {
	return map[string]any{
		"ligne_ouvrage_id": l.ID,
		"catalog_id":       l.CatalogID,
		"tenant_id":        l.Namespace.StorageID(),
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// GormCatalogStore implements catalog.Store on top of a KeyedTransactor
type GormCatalogStore struct {
	*GormCatalogRepository
	transactor *KeyedTransactor
}

// NewGormCatalogStore creates a new GormCatalogStore
func NewGormCatalogStore(db *gorm.DB) *GormCatalogStore {
	return &GormCatalogStore{
		GormCatalogRepository: NewGormCatalogRepository(db),
		transactor:            NewKeyedTransactor(db),
	}
}

// InCatalogTransaction runs fn in one transaction serialized on catalogID
func (s *GormCatalogStore) InCatalogTransaction(ctx context.Context, catalogID string, fn func(repo catalog.Repository) error) error {
	return s.transactor.InTransaction(ctx, "catalog:"+catalogID, func(tx *gorm.DB) error {
		return fn(NewGormCatalogRepository(tx))
	})
}

// IsNotFound reports whether err means the row does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}

var _ catalog.Store = (*GormCatalogStore)(nil)
