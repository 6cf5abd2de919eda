// Package catalogsync applies published catalogs and tenant subscriptions to
// the local store.
package catalogsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/catalogsync/internal/domain/catalog"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// CatalogApplier writes a published catalog and its whole hierarchy into the
// canonical namespace, in one transaction.
type CatalogApplier struct {
	store  catalog.Store
	logger *zap.Logger
}

// NewCatalogApplier creates a new CatalogApplier
func NewCatalogApplier(store catalog.Store, logger *zap.Logger) *CatalogApplier {
	return &CatalogApplier{store: store, logger: logger}
}

// ApplyStats counts what one Apply call wrote
type ApplyStats struct {
	Families int
	Articles int
	Ouvrages int
	Lines    int
}

// Apply upserts the catalog root, its families, articles and ouvrages with
// their lines. Any failure rolls back the whole catalog.
func (a *CatalogApplier) Apply(ctx context.Context, p catalog.CatalogPublished) error {
	ctx = logger.WithCatalogID(ctx, p.ID)

	var stats ApplyStats
	err := a.store.InCatalogTransaction(ctx, p.ID, func(repo catalog.Repository) error {
		w := &catalogWriter{
			repo:    repo,
			payload: &p,
			ns:      shared.Canonical(),
			log:     a.log(ctx),
		}
		var err error
		stats, err = w.write(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to apply catalog %s: %w", p.ID, err)
	}

	a.log(ctx).Info("catalog applied",
		zap.Int("families", stats.Families),
		zap.Int("articles", stats.Articles),
		zap.Int("ouvrages", stats.Ouvrages),
		zap.Int("lines", stats.Lines),
	)
	return nil
}

func (a *CatalogApplier) log(ctx context.Context) *zap.Logger {
	return a.logger.With(logger.Fields(ctx)...)
}

// catalogWriter holds the state of one Apply transaction
type catalogWriter struct {
	repo    catalog.Repository
	payload *catalog.CatalogPublished
	ns      shared.Namespace
	log     *zap.Logger

	// families maps every family id known to exist in the catalog
	families map[string]*catalog.Family
	// stored holds ids found in the store that the payload does not carry
	stored map[string]bool
	stats  ApplyStats
}

func (w *catalogWriter) write(ctx context.Context) (ApplyStats, error) {
	p := w.payload
	if err := w.repo.SaveCatalog(ctx, p.Catalog()); err != nil {
		return w.stats, err
	}
	if err := w.writeFamilies(ctx); err != nil {
		return w.stats, err
	}
	if err := w.loadStoredFamilies(ctx); err != nil {
		return w.stats, err
	}
	for _, ap := range p.Articles {
		if err := w.writeArticle(ctx, ap); err != nil {
			return w.stats, err
		}
	}
	for _, op := range p.Ouvrages {
		if err := w.writeOuvrage(ctx, op); err != nil {
			return w.stats, err
		}
	}
	return w.stats, nil
}

// writeFamilies upserts every family without its parent, then links the
// parents once every node of the payload exists.
func (w *catalogWriter) writeFamilies(ctx context.Context) error {
	p := w.payload
	w.families = make(map[string]*catalog.Family, len(p.Families))

	for _, fp := range p.Families {
		f := fp.Family(p.ID, w.ns)
		if err := w.repo.SaveFamily(ctx, f); err != nil {
			return err
		}
		w.families[f.ID] = f
		w.stats.Families++
	}

	for _, fp := range p.Families {
		if !fp.HasParent() {
			continue
		}
		parentID := *fp.ParentID
		found, err := w.familyExists(ctx, parentID)
		if err != nil {
			return err
		}
		if !found {
			w.log.Warn("parent family not found, leaving family without parent",
				zap.String("family_id", fp.ID),
				zap.String("parent_id", parentID),
			)
			continue
		}
		f := w.families[fp.ID]
		f.ParentID = &parentID
		if err := w.repo.SaveFamily(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// familyExists looks a parent up in the payload, then in the store
func (w *catalogWriter) familyExists(ctx context.Context, id string) (bool, error) {
	if _, ok := w.families[id]; ok {
		return true, nil
	}
	_, err := w.repo.FindFamily(ctx, w.payload.ID, id, w.ns)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// loadStoredFamilies resolves in one query the membership targets the
// payload references without carrying them.
func (w *catalogWriter) loadStoredFamilies(ctx context.Context) error {
	var missing []string
	seen := make(map[string]bool)
	collect := func(ids []string) {
		for _, id := range ids {
			if _, ok := w.families[id]; ok || seen[id] {
				continue
			}
			seen[id] = true
			missing = append(missing, id)
		}
	}
	for _, ap := range w.payload.Articles {
		collect(ap.FamiliesIDs)
	}
	for _, op := range w.payload.Ouvrages {
		collect(op.FamiliesIDs)
	}

	stored, err := w.repo.ExistingFamilies(ctx, w.payload.ID, w.ns, missing)
	if err != nil {
		return err
	}
	w.stored = stored
	return nil
}

// knownFamilies drops, with a warning, the ids of families that do not exist
func (w *catalogWriter) knownFamilies(ids []string, member string, memberID string) []string {
	known := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := w.families[id]; ok || w.stored[id] {
			known = append(known, id)
			continue
		}
		w.log.Warn("unknown family, skipping membership",
			zap.String(member, memberID),
			zap.String("family_id", id),
		)
	}
	return known
}

func (w *catalogWriter) writeArticle(ctx context.Context, ap catalog.ArticlePayload) error {
	a := ap.Article(w.payload.ID, w.ns)
	if err := w.repo.SaveArticle(ctx, a); err != nil {
		return err
	}
	if err := w.repo.ReplaceArticleFamilies(ctx, a, w.knownFamilies(ap.FamiliesIDs, "article_id", a.ID)); err != nil {
		return err
	}
	w.stats.Articles++
	return nil
}

func (w *catalogWriter) writeOuvrage(ctx context.Context, op catalog.OuvragePayload) error {
	o := op.Ouvrage(w.payload.ID, w.ns)
	if err := w.repo.SaveOuvrage(ctx, o); err != nil {
		return err
	}
	if err := w.repo.ReplaceOuvrageFamilies(ctx, o, w.knownFamilies(op.FamiliesIDs, "ouvrage_id", o.ID)); err != nil {
		return err
	}
	for _, lp := range op.Lines {
		if err := w.writeLine(ctx, o, lp); err != nil {
			return err
		}
	}
	w.stats.Ouvrages++
	return nil
}

// writeLine upserts a line with its comment or its article attachment.
// The referenced article must already exist, otherwise the catalog is rejected.
func (w *catalogWriter) writeLine(ctx context.Context, o *catalog.Ouvrage, lp catalog.LinePayload) error {
	line := lp.Line(o.ID, o.CatalogID, w.ns)

	if lp.Commentaire != nil {
		c := lp.Commentaire.Comment(w.ns)
		if err := w.repo.SaveComment(ctx, c); err != nil {
			return err
		}
		line.Comment = &catalog.CommentRef{ID: c.ID, Namespace: c.Namespace}
	}

	var attachment *catalog.LineArticle
	if lap := lp.LigneOuvrageArticle; lap != nil {
		article, err := w.repo.FindArticle(ctx, o.CatalogID, lap.ArticleID, w.ns)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.MissingReference("article", lap.ArticleID)
		}
		if err != nil {
			return err
		}
		id := lap.ID
		if id == "" {
			id = line.ID
		}
		attachment = &catalog.LineArticle{
			ID:               id,
			LineID:           line.ID,
			OuvrageID:        o.ID,
			CatalogID:        o.CatalogID,
			Namespace:        w.ns,
			ArticleID:        article.ID,
			ArticleCatalogID: article.CatalogID,
			ArticleNamespace: article.Namespace,
			Quantity:         lap.Quantite,
		}
	}

	if err := w.repo.SaveLine(ctx, line); err != nil {
		return err
	}
	if attachment != nil {
		if err := w.repo.SaveLineArticle(ctx, attachment); err != nil {
			return err
		}
	} else if err := w.repo.DeleteLineArticle(ctx, line); err != nil {
		return err
	}
	w.stats.Lines++
	return nil
}
