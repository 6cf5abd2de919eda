// Package reference holds the catalog-independent lookup data replicated
// alongside catalogs: units, natures, geography and commercial terms.
// Every kind is identified by its code.
package reference

import "github.com/shopspring/decimal"

// Kind names a reference data kind. Its value prefixes the kind's event tags.
type Kind string

const (
	KindUnit             Kind = "unit"
	KindArticleNature    Kind = "article_nature"
	KindCountry          Kind = "country"
	KindCity             Kind = "city"
	KindJob              Kind = "job"
	KindTaxRate          Kind = "tax_rate"
	KindPaymentCondition Kind = "payment_condition"
	KindLegalForm        Kind = "legal_form"
	KindCivility         Kind = "civility"
)

// Kinds lists every reference kind replicated by the service
func Kinds() []Kind {
	return []Kind{
		KindUnit,
		KindArticleNature,
		KindCountry,
		KindCity,
		KindJob,
		KindTaxRate,
		KindPaymentCondition,
		KindLegalForm,
		KindCivility,
	}
}

// UpsertEvent returns the event tag creating or updating a row of k
func (k Kind) UpsertEvent() string {
	return string(k) + ".upsert"
}

// DeletedEvent returns the event tag soft deleting a row of k
func (k Kind) DeletedEvent() string {
	return string(k) + ".deleted"
}

// Labelled is the payload shared by kinds that only carry a label
type Labelled struct {
	Code  string `json:"code" validate:"required,max=50"`
	Label string `json:"label" validate:"max=255"`
}

// Unit is a measurement unit (m2, kg, h, ...)
type Unit struct {
	Labelled
	Symbol string `json:"symbol" validate:"max=20"`
}

// ArticleNature classifies articles (material, labour, equipment, ...)
type ArticleNature struct {
	Labelled
}

// Country is identified by its ISO code
type Country struct {
	Labelled
}

// City belongs to a country
type City struct {
	Labelled
	PostalCode  string `json:"postalCode" validate:"max=20"`
	CountryCode string `json:"countryCode" validate:"required,max=50"`
}

// Job is a trade or position
type Job struct {
	Labelled
}

// TaxRate is a VAT rate expressed as a percentage
type TaxRate struct {
	Labelled
	Rate decimal.Decimal `json:"rate"`
}

// PaymentCondition describes when an invoice falls due
type PaymentCondition struct {
	Labelled
	Days       int  `json:"days" validate:"min=0"`
	EndOfMonth bool `json:"endOfMonth"`
}

// LegalForm is a company legal structure
type LegalForm struct {
	Labelled
}

// Civility is a form of address
type Civility struct {
	Labelled
}

// Deleted is the payload of every <kind>.deleted event
type Deleted struct {
	Code string `json:"code" validate:"required"`
}
