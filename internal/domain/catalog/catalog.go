// Package catalog holds the replicated catalog hierarchy: catalogs, their
// family trees, articles, ouvrages (compound work items) with their ordered
// lines, and the comments those lines embed.
//
// Every entity is identified by its domain id, assigned by the authoring
// system, plus the Namespace it lives in.
package catalog

import (
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Catalog is the root of one catalog instance
type Catalog struct {
	ID          string
	Namespace   shared.Namespace
	Name        *string
	Description *string
	IsDeleted   bool
}

// CloneFor returns the shell of c materialized in ns. Name and description
// are left empty so the tenant can customize them.
func (c *Catalog) CloneFor(ns shared.Namespace) *Catalog {
	return &Catalog{
		ID:        c.ID,
		Namespace: ns,
		IsDeleted: c.IsDeleted,
	}
}

// Family is a node of a catalog's classification tree.
// A parent always lives in the same catalog and namespace as its child.
type Family struct {
	ID        string
	CatalogID string
	Namespace shared.Namespace
	Name      string
	ParentID  *string
	IsDeleted bool
}

// Article is a sellable catalog item
type Article struct {
	ID              string
	CatalogID       string
	Namespace       shared.Namespace
	Code            string
	Name            string
	Description     string
	PurchasePrice   decimal.Decimal
	SalePrice       decimal.Decimal
	Coefficient     decimal.Decimal
	SaleUnitID      *string
	PurchaseUnitID  *string
	ArticleNatureID *string
	IsDeleted       bool
}

// Ouvrage is a compound work item built from an ordered list of lines
type Ouvrage struct {
	ID          string
	CatalogID   string
	Namespace   shared.Namespace
	Code        string
	Designation string
	Price       decimal.Decimal
	UnitID      *string
	IsDeleted   bool
}

// LineType tells what a compound item line carries
type LineType string

const (
	LineTypeArticle LineType = "ARTICLE"
	LineTypeComment LineType = "COMMENT"
)

// CommentRef points at a comment in a namespace
type CommentRef struct {
	ID        string
	Namespace shared.Namespace
}

// OuvrageLine is one ordered row of an ouvrage. It carries either a comment
// reference or a LineArticle, never both.
type OuvrageLine struct {
	ID        string
	OuvrageID string
	CatalogID string
	Namespace shared.Namespace
	NoOrdre   int
	Type      LineType
	Comment   *CommentRef
}

// LineArticle attaches an article and a quantity to its owning line
type LineArticle struct {
	ID               string
	LineID           string
	OuvrageID        string
	CatalogID        string
	Namespace        shared.Namespace
	ArticleID        string
	ArticleCatalogID string
	ArticleNamespace shared.Namespace
	Quantity         decimal.Decimal
}

// Comment is free text embedded by ouvrage lines
type Comment struct {
	ID          string
	Namespace   shared.Namespace
	Description string
	IsDeleted   bool
}
