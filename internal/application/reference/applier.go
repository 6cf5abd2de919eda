// Package reference applies the upsert and delete events of catalog
// independent lookup data and of stand-alone comments.
package reference

import (
	"context"
	"fmt"

	"github.com/erp/catalogsync/internal/domain/reference"
	"github.com/erp/catalogsync/internal/infrastructure/event"
	"github.com/erp/catalogsync/internal/infrastructure/logger"
	"github.com/erp/catalogsync/internal/infrastructure/persistence"
	"github.com/erp/catalogsync/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Applier writes the rows of one reference kind. P is the event payload,
// M the persistence model it is stored as.
type Applier[P any, M any, PM interface {
	*M
	persistence.Keyed
}] struct {
	kind    reference.Kind
	db      *gorm.DB
	toModel func(P) PM
	logger  *zap.Logger
}

// NewApplier creates an applier for kind
func NewApplier[P any, M any, PM interface {
	*M
	persistence.Keyed
}](kind reference.Kind, db *gorm.DB, toModel func(P) PM, logger *zap.Logger) *Applier[P, M, PM] {
	return &Applier[P, M, PM]{
		kind:    kind,
		db:      db,
		toModel: toModel,
		logger:  logger,
	}
}

// Kind returns the reference kind written by the applier
func (a *Applier[P, M, PM]) Kind() reference.Kind {
	return a.kind
}

// Upsert creates or replaces the row described by payload.
// A soft-deleted row with the same code is restored.
func (a *Applier[P, M, PM]) Upsert(ctx context.Context, payload P) error {
	row := a.toModel(payload)
	if _, err := persistence.Upsert[M, PM](ctx, a.db, row); err != nil {
		return fmt.Errorf("failed to upsert %s %v: %w", a.kind, row.NaturalKey()["code"], err)
	}
	return nil
}

// Delete soft deletes the row with the payload's code. An unknown or
// already deleted code is a no-op.
func (a *Applier[P, M, PM]) Delete(ctx context.Context, payload reference.Deleted) error {
	deleted, err := persistence.SoftDelete[M](ctx, a.db, map[string]any{"code": payload.Code})
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", a.kind, payload.Code, err)
	}
	if !deleted {
		a.logger.With(logger.Fields(ctx)...).Debug("nothing to delete",
			zap.String("kind", string(a.kind)),
			zap.String("code", payload.Code),
		)
	}
	return nil
}

// Register binds the kind's upsert and deleted events
func (a *Applier[P, M, PM]) Register(d *event.Dispatcher) {
	event.Register(d, a.kind.UpsertEvent(), a.Upsert)
	event.Register(d, a.kind.DeletedEvent(), a.Delete)
}

// RegisterAll binds the events of every reference kind
func RegisterAll(d *event.Dispatcher, db *gorm.DB, logger *zap.Logger) {
	NewApplier(reference.KindUnit, db, models.UnitModelFrom, logger).Register(d)
	NewApplier(reference.KindArticleNature, db, models.ArticleNatureModelFrom, logger).Register(d)
	NewApplier(reference.KindCountry, db, models.CountryModelFrom, logger).Register(d)
	NewApplier(reference.KindCity, db, models.CityModelFrom, logger).Register(d)
	NewApplier(reference.KindJob, db, models.JobModelFrom, logger).Register(d)
	NewApplier(reference.KindTaxRate, db, models.TaxRateModelFrom, logger).Register(d)
	NewApplier(reference.KindPaymentCondition, db, models.PaymentConditionModelFrom, logger).Register(d)
	NewApplier(reference.KindLegalForm, db, models.LegalFormModelFrom, logger).Register(d)
	NewApplier(reference.KindCivility, db, models.CivilityModelFrom, logger).Register(d)
}
