package reference

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/catalogsync/internal/domain/catalog"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/event"
	"github.com/erp/catalogsync/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// CommentApplier writes comments sent outside of a published catalog
type CommentApplier struct {
	repo   catalog.Repository
	logger *zap.Logger
}

// NewCommentApplier creates a new CommentApplier
func NewCommentApplier(repo catalog.Repository, logger *zap.Logger) *CommentApplier {
	return &CommentApplier{repo: repo, logger: logger}
}

// Upsert creates or replaces a comment in the payload's namespace
func (a *CommentApplier) Upsert(ctx context.Context, p catalog.CommentUpsert) error {
	ns, err := catalog.NamespaceOf(p.TenantID)
	if err != nil {
		return shared.Malformed(err)
	}
	if err := a.repo.SaveComment(ctx, p.Comment(ns)); err != nil {
		return fmt.Errorf("failed to upsert comment %s: %w", p.ID, err)
	}
	return nil
}

// Delete flags a comment as deleted. Lines keep pointing at it.
func (a *CommentApplier) Delete(ctx context.Context, p catalog.CommentDeleted) error {
	ns, err := catalog.NamespaceOf(p.TenantID)
	if err != nil {
		return shared.Malformed(err)
	}

	c, err := a.repo.FindComment(ctx, p.ID, ns)
	if errors.Is(err, shared.ErrNotFound) {
		a.logger.With(logger.Fields(ctx)...).Debug("nothing to delete",
			zap.String("comment_id", p.ID),
			zap.Stringer("namespace", ns),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load comment %s: %w", p.ID, err)
	}
	if c.IsDeleted {
		return nil
	}

	c.IsDeleted = true
	if err := a.repo.SaveComment(ctx, c); err != nil {
		return fmt.Errorf("failed to delete comment %s: %w", p.ID, err)
	}
	return nil
}

// Register binds comment.upsert and comment.deleted
func (a *CommentApplier) Register(d *event.Dispatcher) {
	event.Register(d, catalog.EventTypeCommentUpsert, a.Upsert)
	event.Register(d, catalog.EventTypeCommentDeleted, a.Delete)
}
