package models

import "time"

// Timestamps provides the bookkeeping columns of every table.
// CreatedAt is never overwritten by an upsert.
type Timestamps struct {
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// All returns every model managed by the service, in creation order
func All() []any {
	return []any{
		&CatalogModel{},
		&FamilyModel{},
		&ArticleModel{},
		&OuvrageModel{},
		&OuvrageLineModel{},
		&LineArticleModel{},
		&CommentModel{},
		&FamilyArticleModel{},
		&FamilyOuvrageModel{},
		&UnitModel{},
		&ArticleNatureModel{},
		&CountryModel{},
		&CityModel{},
		&JobModel{},
		&TaxRateModel{},
		&PaymentConditionModel{},
		&LegalFormModel{},
		&CivilityModel{},
		&UserModel{},
		&TenantModel{},
		&CompanyModel{},
		&UserCompanyModel{},
		&OutboxEntryModel{},
	}
}
