package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/catalogsync/internal/domain/catalog"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCatalogRepository_FindCatalog(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCatalogRepository(testutil.NewSQLiteDB(t))
	tenant, err := shared.Tenant("T1")
	require.NoError(t, err)

	require.NoError(t, repo.SaveCatalog(ctx, &catalog.Catalog{ID: "C1"}))

	found, err := repo.FindCatalog(ctx, "C1", shared.Canonical())
	require.NoError(t, err)
	assert.True(t, found.Namespace.IsCanonical())

	_, err = repo.FindCatalog(ctx, "C1", tenant)
	assert.True(t, IsNotFound(err), "namespaces are isolated")
}

func TestGormCatalogRepository_ReplaceArticleFamilies(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCatalogRepository(testutil.NewSQLiteDB(t))
	article := &catalog.Article{ID: "A1", CatalogID: "C1", SalePrice: decimal.NewFromInt(3)}
	require.NoError(t, repo.SaveArticle(ctx, article))

	require.NoError(t, repo.ReplaceArticleFamilies(ctx, article, []string{"F1", "F2", "F1"}))
	ids, err := repo.ArticleFamilyIDs(ctx, article)
	require.NoError(t, err)
	assert.Equal(t, []string{"F1", "F2"}, ids)

	require.NoError(t, repo.ReplaceArticleFamilies(ctx, article, []string{"F3"}))
	ids, err = repo.ArticleFamilyIDs(ctx, article)
	require.NoError(t, err)
	assert.Equal(t, []string{"F3"}, ids)

	require.NoError(t, repo.ReplaceArticleFamilies(ctx, article, nil))
	ids, err = repo.ArticleFamilyIDs(ctx, article)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGormCatalogRepository_ExistingFamilies(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCatalogRepository(testutil.NewSQLiteDB(t))
	require.NoError(t, repo.SaveFamily(ctx, &catalog.Family{ID: "F1", CatalogID: "C1"}))
	require.NoError(t, repo.SaveFamily(ctx, &catalog.Family{ID: "F2", CatalogID: "C2"}))

	found, err := repo.ExistingFamilies(ctx, "C1", shared.Canonical(), []string{"F1", "F2", "F9"})

	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"F1": true}, found)
}

func TestGormCatalogRepository_Lines(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCatalogRepository(testutil.NewSQLiteDB(t))
	ouvrage := &catalog.Ouvrage{ID: "O1", CatalogID: "C1"}
	require.NoError(t, repo.SaveOuvrage(ctx, ouvrage))

	second := &catalog.OuvrageLine{ID: "L2", OuvrageID: "O1", CatalogID: "C1", NoOrdre: 2, Type: catalog.LineTypeComment,
		Comment: &catalog.CommentRef{ID: "CM1"}}
	first := &catalog.OuvrageLine{ID: "L1", OuvrageID: "O1", CatalogID: "C1", NoOrdre: 1, Type: catalog.LineTypeArticle}
	require.NoError(t, repo.SaveLine(ctx, second))
	require.NoError(t, repo.SaveLine(ctx, first))
	require.NoError(t, repo.SaveLineArticle(ctx, &catalog.LineArticle{
		ID: "LA1", LineID: "L1", OuvrageID: "O1", CatalogID: "C1",
		ArticleID: "A1", ArticleCatalogID: "C1", Quantity: decimal.NewFromInt(2),
	}))

	lines, err := repo.ListLines(ctx, ouvrage)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "L1", lines[0].ID)
	assert.Equal(t, "CM1", lines[1].Comment.ID)

	la, err := repo.FindLineArticle(ctx, first)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(la.Quantity))

	require.NoError(t, repo.DeleteLineArticle(ctx, first))
	_, err = repo.FindLineArticle(ctx, first)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormCatalogStore_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewGormCatalogStore(testutil.NewSQLiteDB(t))
	boom := errors.New("boom")

	err := store.InCatalogTransaction(ctx, "C1", func(repo catalog.Repository) error {
		if err := repo.SaveCatalog(ctx, &catalog.Catalog{ID: "C1"}); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	_, err = store.FindCatalog(ctx, "C1", shared.Canonical())
	assert.True(t, IsNotFound(err))
}
