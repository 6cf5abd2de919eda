package reference

import (
	"context"
	"testing"

	"github.com/erp/catalogsync/internal/domain/reference"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/event"
	"github.com/erp/catalogsync/internal/infrastructure/persistence"
	"github.com/erp/catalogsync/internal/infrastructure/persistence/models"
	"github.com/erp/catalogsync/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApplier_UpsertReplacesRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	a := NewApplier(reference.KindTaxRate, db, models.TaxRateModelFrom, zap.NewNop())

	require.NoError(t, a.Upsert(ctx, reference.TaxRate{
		Labelled: reference.Labelled{Code: "TVA20", Label: "TVA 20%"},
		Rate:     decimal.RequireFromString("20"),
	}))
	require.NoError(t, a.Upsert(ctx, reference.TaxRate{
		Labelled: reference.Labelled{Code: "TVA20", Label: "TVA normale"},
		Rate:     decimal.RequireFromString("20.0"),
	}))

	var rows []models.TaxRateModel
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "TVA normale", rows[0].Label)
	assert.True(t, decimal.NewFromInt(20).Equal(rows[0].Rate))
}

func TestApplier_DeleteIsSoft(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	a := NewApplier(reference.KindUnit, db, models.UnitModelFrom, zap.NewNop())
	require.NoError(t, a.Upsert(ctx, reference.Unit{Labelled: reference.Labelled{Code: "M2", Label: "Metre carre"}}))

	require.NoError(t, a.Delete(ctx, reference.Deleted{Code: "M2"}))

	_, err := persistence.FindByKey[models.UnitModel](ctx, db, map[string]any{"code": "M2"})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var row models.UnitModel
	require.NoError(t, db.Unscoped().Where("code = ?", "M2").Take(&row).Error)
	assert.True(t, row.DeletedAt.Valid, "row kept with a deletion timestamp")
}

func TestApplier_UpsertRestoresDeletedRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	a := NewApplier(reference.KindCountry, db, models.CountryModelFrom, zap.NewNop())
	require.NoError(t, a.Upsert(ctx, reference.Country{Labelled: reference.Labelled{Code: "FR", Label: "France"}}))
	require.NoError(t, a.Delete(ctx, reference.Deleted{Code: "FR"}))

	require.NoError(t, a.Upsert(ctx, reference.Country{Labelled: reference.Labelled{Code: "FR", Label: "France"}}))

	row, err := persistence.FindByKey[models.CountryModel](ctx, db, map[string]any{"code": "FR"})
	require.NoError(t, err)
	assert.False(t, row.DeletedAt.Valid)
}

func TestApplier_DeleteUnknownCodeIsNoop(t *testing.T) {
	a := NewApplier(reference.KindJob, testutil.NewSQLiteDB(t), models.JobModelFrom, zap.NewNop())

	assert.NoError(t, a.Delete(context.Background(), reference.Deleted{Code: "NOPE"}))
	assert.NoError(t, a.Delete(context.Background(), reference.Deleted{Code: "NOPE"}))
}

func TestRegisterAll_RoutesEveryKind(t *testing.T) {
	d := event.NewDispatcher(zap.NewNop())
	RegisterAll(d, testutil.NewSQLiteDB(t), zap.NewNop())

	types := d.EventTypes()
	assert.Len(t, types, 18)
	for _, k := range reference.Kinds() {
		assert.Contains(t, types, k.UpsertEvent())
		assert.Contains(t, types, k.DeletedEvent())
	}
}

func TestRegisterAll_DispatchesEnvelopes(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	d := event.NewDispatcher(zap.NewNop())
	RegisterAll(d, db, zap.NewNop())

	city := testutil.MustEnvelope(t, reference.KindCity.UpsertEvent(), map[string]any{
		"code": "LYON", "label": "Lyon", "postalCode": "69000", "countryCode": "FR",
	})
	require.NoError(t, d.HandleMessage(ctx, testutil.MustMessage(t, city, 1)))

	row, err := persistence.FindByKey[models.CityModel](ctx, db, map[string]any{"code": "LYON"})
	require.NoError(t, err)
	assert.Equal(t, "FR", row.CountryCode)

	// countryCode is required
	invalid := testutil.MustEnvelope(t, reference.KindCity.UpsertEvent(), map[string]any{"code": "PARIS"})
	require.NoError(t, d.HandleMessage(ctx, testutil.MustMessage(t, invalid, 2)))
	assert.Equal(t, int64(1), d.Stats().Malformed)

	condition := testutil.MustEnvelope(t, reference.KindPaymentCondition.UpsertEvent(), map[string]any{
		"code": "30FM", "label": "30 jours fin de mois", "days": 30, "endOfMonth": true,
	})
	require.NoError(t, d.HandleMessage(ctx, testutil.MustMessage(t, condition, 3)))
	pc, err := persistence.FindByKey[models.PaymentConditionModel](ctx, db, map[string]any{"code": "30FM"})
	require.NoError(t, err)
	assert.Equal(t, 30, pc.Days)
	assert.True(t, pc.EndOfMonth)
}
