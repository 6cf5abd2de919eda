//go:build integration

package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/catalogsync/internal/domain/catalog"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresDB starts a disposable PostgreSQL container with the schema migrated
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("catalog_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestPostgres_UpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newPostgresDB(t)
	repo := NewGormCatalogRepository(db)

	article := &catalog.Article{
		ID:        "A1",
		CatalogID: "C1",
		Name:      "Ciment",
		SalePrice: decimal.RequireFromString("6.2000"),
	}
	require.NoError(t, repo.SaveArticle(ctx, article))
	article.Name = "Ciment gris"
	require.NoError(t, repo.SaveArticle(ctx, article))

	found, err := repo.FindArticle(ctx, "C1", "A1", shared.Canonical())
	require.NoError(t, err)
	assert.Equal(t, "Ciment gris", found.Name)
	assert.True(t, decimal.RequireFromString("6.2").Equal(found.SalePrice))

	var count int64
	require.NoError(t, db.Model(&models.ArticleModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPostgres_AdvisoryLockSerializesStores(t *testing.T) {
	ctx := context.Background()
	db := newPostgresDB(t)

	// Two stores model two service instances sharing the database.
	stores := []*GormCatalogStore{NewGormCatalogStore(db), NewGormCatalogStore(db)}

	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup
	for i, store := range stores {
		wg.Add(1)
		go func(i int, store *GormCatalogStore) {
			defer wg.Done()
			err := store.InCatalogTransaction(ctx, "C1", func(repo catalog.Repository) error {
				mu.Lock()
				order = append(order, "start")
				mu.Unlock()
				time.Sleep(100 * time.Millisecond)
				mu.Lock()
				order = append(order, "end")
				mu.Unlock()
				return repo.SaveCatalog(ctx, &catalog.Catalog{ID: "C1"})
			})
			assert.NoError(t, err)
		}(i, store)
	}
	wg.Wait()

	assert.Equal(t, []string{"start", "end", "start", "end"}, order)
}
