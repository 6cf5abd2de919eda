package models

import (
	"github.com/erp/catalogsync/internal/domain/catalog"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CatalogModel is the persistence model for a catalog root
type CatalogModel struct {
	CatalogID   string  `gorm:"type:varchar(64);primaryKey"`
	TenantID    string  `gorm:"type:varchar(64);primaryKey"`
	Name        *string `gorm:"type:varchar(255)"`
	Description *string `gorm:"type:text"`
	IsDeleted   bool    `gorm:"not null;default:false"`
	Timestamps
}

// TableName returns the table name for GORM
func (CatalogModel) TableName() string {
	return "catalogs"
}

// NaturalKey returns the identifying columns
func (m *CatalogModel) NaturalKey() map[string]any {
	return map[string]any{"catalog_id": m.CatalogID, "tenant_id": m.TenantID}
}

// ToDomain converts the persistence model to a domain Catalog
func (m *CatalogModel) ToDomain() *catalog.Catalog {
	return &catalog.Catalog{
		ID:          m.CatalogID,
		Namespace:   shared.NamespaceFromStorage(m.TenantID),
		Name:        m.Name,
		Description: m.Description,
		IsDeleted:   m.IsDeleted,
	}
}

// CatalogModelFromDomain creates a persistence model from a domain Catalog
func CatalogModelFromDomain(c *catalog.Catalog) *CatalogModel {
	return &CatalogModel{
		CatalogID:   c.ID,
		TenantID:    c.Namespace.StorageID(),
		Name:        c.Name,
		Description: c.Description,
		IsDeleted:   c.IsDeleted,
	}
}

// FamilyModel is the persistence model for a family node.
// The parent always shares the child's catalog.
type FamilyModel struct {
	FamilyID       string  `gorm:"type:varchar(64);primaryKey"`
	CatalogID      string  `gorm:"type:varchar(64);primaryKey"`
	TenantID       string  `gorm:"type:varchar(64);primaryKey"`
	Name           string  `gorm:"type:varchar(255)"`
	ParentID       *string `gorm:"type:varchar(64);index"`
	ParentTenantID *string `gorm:"type:varchar(64)"`
	IsDeleted      bool    `gorm:"not null;default:false"`
	Timestamps
}

// TableName returns the table name for GORM
func (FamilyModel) TableName() string {
	return "catalog_families"
}

// NaturalKey returns the identifying columns
func (m *FamilyModel) NaturalKey() map[string]any {
	return map[string]any{"family_id": m.FamilyID, "catalog_id": m.CatalogID, "tenant_id": m.TenantID}
}

// ToDomain converts the persistence model to a domain Family
func (m *FamilyModel) ToDomain() *catalog.Family {
	return &catalog.Family{
		ID:        m.FamilyID,
		CatalogID: m.CatalogID,
		Namespace: shared.NamespaceFromStorage(m.TenantID),
		Name:      m.Name,
		ParentID:  m.ParentID,
		IsDeleted: m.IsDeleted,
	}
}

// FamilyModelFromDomain creates a persistence model from a domain Family
func FamilyModelFromDomain(f *catalog.Family) *FamilyModel {
	m := &FamilyModel{
		FamilyID:  f.ID,
		CatalogID: f.CatalogID,
		TenantID:  f.Namespace.StorageID(),
		Name:      f.Name,
		IsDeleted: f.IsDeleted,
	}
	if f.ParentID != nil {
		m.ParentID = f.ParentID
		m.ParentTenantID = &m.TenantID
	}
	return m
}

// ArticleModel is the persistence model for an article
type ArticleModel struct {
	ArticleID       string          `gorm:"type:varchar(64);primaryKey"`
	CatalogID       string          `gorm:"type:varchar(64);primaryKey"`
	TenantID        string          `gorm:"type:varchar(64);primaryKey"`
	Code            string          `gorm:"type:varchar(100);index"`
	Name            string          `gorm:"type:varchar(255)"`
	Description     string          `gorm:"type:text"`
	PurchasePrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SalePrice       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Coefficient     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SaleUnitID      *string         `gorm:"type:varchar(64)"`
	PurchaseUnitID  *string         `gorm:"type:varchar(64)"`
	ArticleNatureID *string         `gorm:"type:varchar(64)"`
	IsDeleted       bool            `gorm:"not null;default:false"`
	Timestamps
}

// TableName returns the table name for GORM
func (ArticleModel) TableName() string {
	return "catalog_articles"
}

// NaturalKey returns the identifying columns
func (m *ArticleModel) NaturalKey() map[string]any {
	return map[string]any{"article_id": m.ArticleID, "catalog_id": m.CatalogID, "tenant_id": m.TenantID}
}

// ToDomain converts the persistence model to a domain Article
func (m *ArticleModel) ToDomain() *catalog.Article {
	return &catalog.Article{
		ID:              m.ArticleID,
		CatalogID:       m.CatalogID,
		Namespace:       shared.NamespaceFromStorage(m.TenantID),
		Code:            m.Code,
		Name:            m.Name,
		Description:     m.Description,
		PurchasePrice:   m.PurchasePrice,
		SalePrice:       m.SalePrice,
		Coefficient:     m.Coefficient,
		SaleUnitID:      m.SaleUnitID,
		PurchaseUnitID:  m.PurchaseUnitID,
		ArticleNatureID: m.ArticleNatureID,
		IsDeleted:       m.IsDeleted,
	}
}

// ArticleModelFromDomain creates a persistence model from a domain Article
func ArticleModelFromDomain(a *catalog.Article) *ArticleModel {
	return &ArticleModel{
		ArticleID:       a.ID,
		CatalogID:       a.CatalogID,
		TenantID:        a.Namespace.StorageID(),
		Code:            a.Code,
		Name:            a.Name,
		Description:     a.Description,
		PurchasePrice:   a.PurchasePrice,
		SalePrice:       a.SalePrice,
		Coefficient:     a.Coefficient,
		SaleUnitID:      a.SaleUnitID,
		PurchaseUnitID:  a.PurchaseUnitID,
		ArticleNatureID: a.ArticleNatureID,
		IsDeleted:       a.IsDeleted,
	}
}

// OuvrageModel is the persistence model for a compound work item
type OuvrageModel struct {
	OuvrageID   string          `gorm:"type:varchar(64);primaryKey"`
	CatalogID   string          `gorm:"type:varchar(64);primaryKey"`
	TenantID    string          `gorm:"type:varchar(64);primaryKey"`
	Code        string          `gorm:"type:varchar(100);index"`
	Designation string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitID      *string         `gorm:"type:varchar(64)"`
	IsDeleted   bool            `gorm:"not null;default:false"`
	Timestamps
}

// TableName returns the table name for GORM
func (OuvrageModel) TableName() string {
	return "catalog_ouvrages"
}

// NaturalKey returns the identifying columns
func (m *OuvrageModel) NaturalKey() map[string]any {
	return map[string]any{"ouvrage_id": m.OuvrageID, "catalog_id": m.CatalogID, "tenant_id": m.TenantID}
}

// ToDomain converts the persistence model to a domain Ouvrage
func (m *OuvrageModel) ToDomain() *catalog.Ouvrage {
	return &catalog.Ouvrage{
		ID:          m.OuvrageID,
		CatalogID:   m.CatalogID,
		Namespace:   shared.NamespaceFromStorage(m.TenantID),
		Code:        m.Code,
		Designation: m.Designation,
		Price:       m.Price,
		UnitID:      m.UnitID,
		IsDeleted:   m.IsDeleted,
	}
}

// OuvrageModelFromDomain creates a persistence model from a domain Ouvrage
func OuvrageModelFromDomain(o *catalog.Ouvrage) *OuvrageModel {
	return &OuvrageModel{
		OuvrageID:   o.ID,
		CatalogID:   o.CatalogID,
		TenantID:    o.Namespace.StorageID(),
		Code:        o.Code,
		Designation: o.Designation,
		Price:       o.Price,
		UnitID:      o.UnitID,
		IsDeleted:   o.IsDeleted,
	}
}

// OuvrageLineModel is the persistence model for one ordered line of an ouvrage
type OuvrageLineModel struct {
	LigneOuvrageID  string           `gorm:"type:varchar(64);primaryKey"`
	CatalogID       string           `gorm:"type:varchar(64);primaryKey"`
	TenantID        string           `gorm:"type:varchar(64);primaryKey"`
	OuvrageID       string           `gorm:"type:varchar(64);not null;index"`
	NoOrdre         int              `gorm:"not null"`
	TypeLigne       catalog.LineType `gorm:"type:varchar(20);not null"`
	CommentID       *string          `gorm:"type:varchar(64)"`
	CommentTenantID *string          `gorm:"type:varchar(64)"`
	Timestamps
}

// TableName returns the table name for GORM
func (OuvrageLineModel) TableName() string {
	return "catalog_ouvrage_lines"
}

// NaturalKey returns the identifying columns
func (m *OuvrageLineModel) NaturalKey() map[string]any {
	return map[string]any{"ligne_ouvrage_id": m.LigneOuvrageID, "catalog_id": m.CatalogID, "tenant_id": m.TenantID}
}

// ToDomain converts the persistence model to a domain OuvrageLine
func (m *OuvrageLineModel) ToDomain() *catalog.OuvrageLine {
	line := &catalog.OuvrageLine{
		ID:        m.LigneOuvrageID,
		OuvrageID: m.OuvrageID,
		CatalogID: m.CatalogID,
		Namespace: shared.NamespaceFromStorage(m.TenantID),
		NoOrdre:   m.NoOrdre,
		Type:      m.TypeLigne,
	}
	if m.CommentID != nil {
		ref := &catalog.CommentRef{ID: *m.CommentID, Namespace: line.Namespace}
		if m.CommentTenantID != nil {
			ref.Namespace = shared.NamespaceFromStorage(*m.CommentTenantID)
		}
		line.Comment = ref
	}
	return line
}

// OuvrageLineModelFromDomain creates a persistence model from a domain OuvrageLine
func OuvrageLineModelFromDomain(l *catalog.OuvrageLine) *OuvrageLineModel {
	m := &OuvrageLineModel{
		LigneOuvrageID: l.ID,
		CatalogID:      l.CatalogID,
		TenantID:       l.Namespace.StorageID(),
		OuvrageID:      l.OuvrageID,
		NoOrdre:        l.NoOrdre,
		TypeLigne:      l.Type,
	}
	if l.Comment != nil {
		id, tenant := l.Comment.ID, l.Comment.Namespace.StorageID()
		m.CommentID = &id
		m.CommentTenantID = &tenant
	}
	return m
}

// LineArticleModel is the article attachment of an ARTICLE line.
// It shares its line's key, making the relation one-to-one.
type LineArticleModel struct {
	ID               string          `gorm:"type:varchar(64)"`
	LigneOuvrageID   string          `gorm:"type:varchar(64);primaryKey"`
	CatalogID        string          `gorm:"type:varchar(64);primaryKey"`
	TenantID         string          `gorm:"type:varchar(64);primaryKey"`
	OuvrageID        string          `gorm:"type:varchar(64);not null;index"`
	ArticleID        string          `gorm:"type:varchar(64);not null;index"`
	ArticleCatalogID string          `gorm:"type:varchar(64);not null"`
	ArticleTenantID  string          `gorm:"type:varchar(64);not null"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Timestamps
}

// TableName returns the table name for GORM
func (LineArticleModel) TableName() string {
	return "catalog_line_articles"
}

// NaturalKey returns the identifying columns
func (m *LineArticleModel) NaturalKey() map[string]any {
	return map[string]any{"ligne_ouvrage_id": m.LigneOuvrageID, "catalog_id": m.CatalogID, "tenant_id": m.TenantID}
}

// ToDomain converts the persistence model to a domain LineArticle
func (m *LineArticleModel) ToDomain() *catalog.LineArticle {
	return &catalog.LineArticle{
		ID:               m.ID,
		LineID:           m.LigneOuvrageID,
		OuvrageID:        m.OuvrageID,
		CatalogID:        m.CatalogID,
		Namespace:        shared.NamespaceFromStorage(m.TenantID),
		ArticleID:        m.ArticleID,
		ArticleCatalogID: m.ArticleCatalogID,
		ArticleNamespace: shared.NamespaceFromStorage(m.ArticleTenantID),
		Quantity:         m.Quantity,
	}
}

// LineArticleModelFromDomain creates a persistence model from a domain LineArticle
func LineArticleModelFromDomain(la *catalog.LineArticle) *LineArticleModel {
	return &LineArticleModel{
		ID:               la.ID,
		LigneOuvrageID:   la.LineID,
		CatalogID:        la.CatalogID,
		TenantID:         la.Namespace.StorageID(),
		OuvrageID:        la.OuvrageID,
		ArticleID:        la.ArticleID,
		ArticleCatalogID: la.ArticleCatalogID,
		ArticleTenantID:  la.ArticleNamespace.StorageID(),
		Quantity:         la.Quantity,
	}
}

// CommentModel is the persistence model for a comment
type CommentModel struct {
	CommentID   string `gorm:"type:varchar(64);primaryKey"`
	TenantID    string `gorm:"type:varchar(64);primaryKey"`
	Description string `gorm:"type:text"`
	IsDeleted   bool   `gorm:"not null;default:false"`
	Timestamps
}

// TableName returns the table name for GORM
func (CommentModel) TableName() string {
	return "catalog_comments"
}

// NaturalKey returns the identifying columns
func (m *CommentModel) NaturalKey() map[string]any {
	return map[string]any{"comment_id": m.CommentID, "tenant_id": m.TenantID}
}

// ToDomain converts the persistence model to a domain Comment
func (m *CommentModel) ToDomain() *catalog.Comment {
	return &catalog.Comment{
		ID:          m.CommentID,
		Namespace:   shared.NamespaceFromStorage(m.TenantID),
		Description: m.Description,
		IsDeleted:   m.IsDeleted,
	}
}

// CommentModelFromDomain creates a persistence model from a domain Comment
func CommentModelFromDomain(c *catalog.Comment) *CommentModel {
	return &CommentModel{
		CommentID:   c.ID,
		TenantID:    c.Namespace.StorageID(),
		Description: c.Description,
		IsDeleted:   c.IsDeleted,
	}
}

// FamilyArticleModel links a family to an article. Every column is part of the key.
type FamilyArticleModel struct {
	FamilyID         string `gorm:"type:varchar(64);primaryKey"`
	FamilyCatalogID  string `gorm:"type:varchar(64);primaryKey"`
	FamilyTenantID   string `gorm:"type:varchar(64);primaryKey"`
	ArticleID        string `gorm:"type:varchar(64);primaryKey"`
	ArticleCatalogID string `gorm:"type:varchar(64);primaryKey"`
	ArticleTenantID  string `gorm:"type:varchar(64);primaryKey"`
}

// TableName returns the table name for GORM
func (FamilyArticleModel) TableName() string {
	return "family_articles"
}

// FamilyOuvrageModel links a family to an ouvrage. Every column is part of the key.
type FamilyOuvrageModel struct {
	FamilyID         string `gorm:"type:varchar(64);primaryKey"`
	FamilyCatalogID  string `gorm:"type:varchar(64);primaryKey"`
	FamilyTenantID   string `gorm:"type:varchar(64);primaryKey"`
	OuvrageID        string `gorm:"type:varchar(64);primaryKey"`
	OuvrageCatalogID string `gorm:"type:varchar(64);primaryKey"`
	OuvrageTenantID  string `gorm:"type:varchar(64);primaryKey"`
}

// TableName returns the table name for GORM
func (FamilyOuvrageModel) TableName() string {
	return "family_ouvrages"
}
