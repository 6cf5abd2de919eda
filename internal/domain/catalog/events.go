package catalog

import (
	"fmt"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeCatalogPublished     = "catalog.published"
	EventTypeCatalogTenantsUpsert = "catalog_tenants.upsert"
	EventTypeCatalogTenantSynchro = "catalog_tenant.synchro"
	EventTypeCommentUpsert        = "comment.upsert"
	EventTypeCommentDeleted       = "comment.deleted"
)

// CatalogPublished is the payload of catalog.published: one canonical
// catalog with its whole hierarchy.
type CatalogPublished struct {
	ID          string           `json:"id" validate:"required"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	IsDeleted   bool             `json:"isDeleted"`
	Families    []FamilyPayload  `json:"families" validate:"dive"`
	Articles    []ArticlePayload `json:"articles" validate:"dive"`
	Ouvrages    []OuvragePayload `json:"ouvrages" validate:"dive"`
}

// Validate checks the rules struct tags cannot express
func (p *CatalogPublished) Validate() error {
	for _, o := range p.Ouvrages {
		for _, l := range o.Lines {
			if err := l.validate(); err != nil {
				return fmt.Errorf("ouvrage %s: %w", o.ID, err)
			}
		}
	}
	return nil
}

// Catalog returns the canonical catalog row described by the payload
func (p *CatalogPublished) Catalog() *Catalog {
	return &Catalog{
		ID:          p.ID,
		Namespace:   shared.Canonical(),
		Name:        p.Name,
		Description: p.Description,
		IsDeleted:   p.IsDeleted,
	}
}

// FamilyPayload describes one family node
type FamilyPayload struct {
	ID        string  `json:"id" validate:"required"`
	Name      string  `json:"name"`
	ParentID  *string `json:"parentId"`
	IsDeleted bool    `json:"isDeleted"`
}

// Family returns the family node without its parent link
func (p FamilyPayload) Family(catalogID string, ns shared.Namespace) *Family {
	return &Family{
		ID:        p.ID,
		CatalogID: catalogID,
		Namespace: ns,
		Name:      p.Name,
		IsDeleted: p.IsDeleted,
	}
}

// HasParent reports whether the payload names a parent family
func (p FamilyPayload) HasParent() bool {
	return p.ParentID != nil && *p.ParentID != ""
}

// ArticlePayload describes one article and its family memberships
type ArticlePayload struct {
	ID              string          `json:"id" validate:"required"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	PurchasePrice   decimal.Decimal `json:"prixAchat"`
	SalePrice       decimal.Decimal `json:"prixVente"`
	Coefficient     decimal.Decimal `json:"coefficient"`
	SaleUnitID      *string         `json:"saleUnitId"`
	PurchaseUnitID  *string         `json:"purchaseUnitId"`
	ArticleNatureID *string         `json:"articleNatureId"`
	FamiliesIDs     []string        `json:"familiesIds"`
	IsDeleted       bool            `json:"isDeleted"`
}

// Article returns the article row described by the payload
func (p ArticlePayload) Article(catalogID string, ns shared.Namespace) *Article {
	return &Article{
		ID:              p.ID,
		CatalogID:       catalogID,
		Namespace:       ns,
		Code:            p.Code,
		Name:            p.Name,
		Description:     p.Description,
		PurchasePrice:   p.PurchasePrice,
		SalePrice:       p.SalePrice,
		Coefficient:     p.Coefficient,
		SaleUnitID:      p.SaleUnitID,
		PurchaseUnitID:  p.PurchaseUnitID,
		ArticleNatureID: p.ArticleNatureID,
		IsDeleted:       p.IsDeleted,
	}
}

// OuvragePayload describes one ouvrage, its memberships and its lines
type OuvragePayload struct {
	ID          string          `json:"id" validate:"required"`
	Code        string          `json:"code"`
	Designation string          `json:"designation"`
	Price       decimal.Decimal `json:"prix"`
	UnitID      *string         `json:"unitId"`
	FamiliesIDs []string        `json:"familiesIds"`
	IsDeleted   bool            `json:"isDeleted"`
	Lines       []LinePayload   `json:"lignesOuvrage" validate:"dive"`
}

// Ouvrage returns the ouvrage row described by the payload
func (p OuvragePayload) Ouvrage(catalogID string, ns shared.Namespace) *Ouvrage {
	return &Ouvrage{
		ID:          p.ID,
		CatalogID:   catalogID,
		Namespace:   ns,
		Code:        p.Code,
		Designation: p.Designation,
		Price:       p.Price,
		UnitID:      p.UnitID,
		IsDeleted:   p.IsDeleted,
	}
}

// LinePayload describes one ouvrage line
type LinePayload struct {
	ID                  string              `json:"id" validate:"required"`
	NoOrdre             int                 `json:"noOrdre"`
	Type                LineType            `json:"typeLigneOuvrage" validate:"omitempty,oneof=ARTICLE COMMENT"`
	Commentaire         *CommentPayload     `json:"commentaire"`
	LigneOuvrageArticle *LineArticlePayload `json:"ligneOuvrageArticle"`
}

// LineType returns the declared type, or infers it from the attachment
func (p LinePayload) LineType() LineType {
	if p.Type != "" {
		return p.Type
	}
	if p.LigneOuvrageArticle != nil {
		return LineTypeArticle
	}
	return LineTypeComment
}

func (p LinePayload) validate() error {
	hasComment := p.Commentaire != nil
	hasArticle := p.LigneOuvrageArticle != nil
	switch {
	case hasComment && hasArticle:
		return fmt.Errorf("line %s carries both a comment and an article", p.ID)
	case !hasComment && !hasArticle:
		return fmt.Errorf("line %s carries neither a comment nor an article", p.ID)
	case p.LineType() == LineTypeArticle && !hasArticle:
		return fmt.Errorf("line %s is typed ARTICLE but has no article", p.ID)
	case p.LineType() == LineTypeComment && !hasComment:
		return fmt.Errorf("line %s is typed COMMENT but has no comment", p.ID)
	}
	return nil
}

// Line returns the line row, without its attachment
func (p LinePayload) Line(ouvrageID, catalogID string, ns shared.Namespace) *OuvrageLine {
	return &OuvrageLine{
		ID:        p.ID,
		OuvrageID: ouvrageID,
		CatalogID: catalogID,
		Namespace: ns,
		NoOrdre:   p.NoOrdre,
		Type:      p.LineType(),
	}
}

// CommentPayload describes a comment, embedded in a line or sent on its own
type CommentPayload struct {
	ID          string `json:"id" validate:"required"`
	Description string `json:"description"`
	IsDeleted   bool   `json:"isDeleted"`
}

// Comment returns the comment row described by the payload
func (p CommentPayload) Comment(ns shared.Namespace) *Comment {
	return &Comment{
		ID:          p.ID,
		Namespace:   ns,
		Description: p.Description,
		IsDeleted:   p.IsDeleted,
	}
}

// CommentUpsert is the payload of comment.upsert. An empty tenant id
// addresses the canonical comment.
type CommentUpsert struct {
	CommentPayload
	TenantID string `json:"tenantId"`
}

// CommentDeleted is the payload of comment.deleted
type CommentDeleted struct {
	ID       string `json:"id" validate:"required"`
	TenantID string `json:"tenantId"`
}

// NamespaceOf maps an optional payload tenant id to its namespace.
// Upstream systems send either nothing or the storage sentinel for canonical rows.
func NamespaceOf(tenantID string) (shared.Namespace, error) {
	if tenantID == "" || tenantID == shared.CanonicalTenantID {
		return shared.Canonical(), nil
	}
	return shared.Tenant(tenantID)
}

// LineArticlePayload attaches an article to a line
type LineArticlePayload struct {
	ID        string          `json:"id"`
	ArticleID string          `json:"articleId" validate:"required"`
	Quantite  decimal.Decimal `json:"quantite"`
}

// CatalogTenant pairs a tenant with a canonical catalog it subscribes to.
// It is both an element of catalog_tenants.upsert and the payload of
// catalog_tenant.synchro. Elements are checked one by one when cloned, so
// a bad element does not reject the rest of its array.
type CatalogTenant struct {
	TenantID  string `json:"tenantId"`
	CatalogID string `json:"catalogId"`
}
