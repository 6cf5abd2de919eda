package models

import (
	"github.com/erp/catalogsync/internal/domain/reference"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReferenceModel holds the columns shared by every reference kind.
// Deleting a row only timestamps DeletedAt; an upsert of the same code clears it.
type ReferenceModel struct {
	Code  string `gorm:"type:varchar(50);primaryKey"`
	Label string `gorm:"type:varchar(255)"`
	Timestamps
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// NaturalKey returns the identifying columns
func (m *ReferenceModel) NaturalKey() map[string]any {
	return map[string]any{"code": m.Code}
}

func referenceFrom(l reference.Labelled) ReferenceModel {
	return ReferenceModel{Code: l.Code, Label: l.Label}
}

// UnitModel is the persistence model for a measurement unit
type UnitModel struct {
	ReferenceModel
	Symbol string `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (UnitModel) TableName() string { return "ref_units" }

// UnitModelFrom converts a payload to its persistence model
func UnitModelFrom(p reference.Unit) *UnitModel {
	return &UnitModel{ReferenceModel: referenceFrom(p.Labelled), Symbol: p.Symbol}
}

// ArticleNatureModel is the persistence model for an article nature
type ArticleNatureModel struct {
	ReferenceModel
}

// TableName returns the table name for GORM
func (ArticleNatureModel) TableName() string { return "ref_article_natures" }

// ArticleNatureModelFrom converts a payload to its persistence model
func ArticleNatureModelFrom(p reference.ArticleNature) *ArticleNatureModel {
	return &ArticleNatureModel{ReferenceModel: referenceFrom(p.Labelled)}
}

// CountryModel is the persistence model for a country
type CountryModel struct {
	ReferenceModel
}

// TableName returns the table name for GORM
func (CountryModel) TableName() string { return "ref_countries" }

// CountryModelFrom converts a payload to its persistence model
func CountryModelFrom(p reference.Country) *CountryModel {
	return &CountryModel{ReferenceModel: referenceFrom(p.Labelled)}
}

// CityModel is the persistence model for a city
type CityModel struct {
	ReferenceModel
	PostalCode  string `gorm:"type:varchar(20)"`
	CountryCode string `gorm:"type:varchar(50);not null;index"`
}

// TableName returns the table name for GORM
func (CityModel) TableName() string { return "ref_cities" }

// CityModelFrom converts a payload to its persistence model
func CityModelFrom(p reference.City) *CityModel {
	return &CityModel{
		ReferenceModel: referenceFrom(p.Labelled),
		PostalCode:     p.PostalCode,
		CountryCode:    p.CountryCode,
	}
}

// JobModel is the persistence model for a job
type JobModel struct {
	ReferenceModel
}

// TableName returns the table name for GORM
func (JobModel) TableName() string { return "ref_jobs" }

// JobModelFrom converts a payload to its persistence model
func JobModelFrom(p reference.Job) *JobModel {
	return &JobModel{ReferenceModel: referenceFrom(p.Labelled)}
}

// TaxRateModel is the persistence model for a tax rate
type TaxRateModel struct {
	ReferenceModel
	Rate decimal.Decimal `gorm:"type:decimal(7,4);not null"`
}

// TableName returns the table name for GORM
func (TaxRateModel) TableName() string { return "ref_tax_rates" }

// TaxRateModelFrom converts a payload to its persistence model
func TaxRateModelFrom(p reference.TaxRate) *TaxRateModel {
	return &TaxRateModel{ReferenceModel: referenceFrom(p.Labelled), Rate: p.Rate}
}

// PaymentConditionModel is the persistence model for a payment condition
type PaymentConditionModel struct {
	ReferenceModel
	Days       int  `gorm:"not null"`
	EndOfMonth bool `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentConditionModel) TableName() string { return "ref_payment_conditions" }

// PaymentConditionModelFrom converts a payload to its persistence model
func PaymentConditionModelFrom(p reference.PaymentCondition) *PaymentConditionModel {
	return &PaymentConditionModel{
		ReferenceModel: referenceFrom(p.Labelled),
		Days:           p.Days,
		EndOfMonth:     p.EndOfMonth,
	}
}

// LegalFormModel is the persistence model for a legal form
type LegalFormModel struct {
	ReferenceModel
}

// TableName returns the table name for GORM
func (LegalFormModel) TableName() string { return "ref_legal_forms" }

// LegalFormModelFrom converts a payload to its persistence model
func LegalFormModelFrom(p reference.LegalForm) *LegalFormModel {
	return &LegalFormModel{ReferenceModel: referenceFrom(p.Labelled)}
}

// CivilityModel is the persistence model for a civility
type CivilityModel struct {
	ReferenceModel
}

// TableName returns the table name for GORM
func (CivilityModel) TableName() string { return "ref_civilities" }

// CivilityModelFrom converts a payload to its persistence model
func CivilityModelFrom(p reference.Civility) *CivilityModel {
	return &CivilityModel{ReferenceModel: referenceFrom(p.Labelled)}
}
