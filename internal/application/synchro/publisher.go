// Package synchro announces committed local changes to the other services
// sharing the outbound topic.
package synchro

import (
	"context"
	"time"

	"github.com/erp/catalogsync/internal/domain/catalog"
	"github.com/erp/catalogsync/internal/domain/identity"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher sends synchro envelopes after the write they describe has
// committed. Publishing is best effort: a failure is logged, kept in the
// outbox when one is configured, and never reported to the caller.
type Publisher struct {
	publisher shared.EventPublisher
	outbox    shared.OutboxRepository
	retries   int
	logger    *zap.Logger
	now       func() time.Time
}

// Option is a functional option for Publisher
type Option func(*Publisher)

// WithOutbox stores envelopes that could not be published for later retry
func WithOutbox(repo shared.OutboxRepository) Option {
	return func(p *Publisher) {
		p.outbox = repo
	}
}

// WithMaxRetries caps the publish attempts of outbox entries
func WithMaxRetries(n int) Option {
	return func(p *Publisher) {
		p.retries = n
	}
}

// WithClock overrides the source of event timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// NewPublisher creates a new Publisher
func NewPublisher(publisher shared.EventPublisher, logger *zap.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		publisher: publisher,
		retries:   shared.DefaultMaxRetries,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UserSaved announces a created or updated user
func (p *Publisher) UserSaved(ctx context.Context, id uuid.UUID) {
	p.timestamped(ctx, identity.EventTypeUserSynchro, id)
}

// TenantSaved announces a created or updated tenant
func (p *Publisher) TenantSaved(ctx context.Context, id uuid.UUID) {
	p.timestamped(ctx, identity.EventTypeTenantSynchro, id)
}

// CompanySaved announces a created or updated company
func (p *Publisher) CompanySaved(ctx context.Context, id uuid.UUID) {
	p.timestamped(ctx, identity.EventTypeCompanySynchro, id)
}

// UserAttached announces a new user-company membership
func (p *Publisher) UserAttached(ctx context.Context, userID, companyID uuid.UUID) {
	p.publish(ctx, userID.String(), identity.EventTypeUserCompanySynchro, identity.UserCompanySynchro{
		UserID:    userID.String(),
		CompanyID: companyID.String(),
		Timestamp: p.now().UnixMilli(),
	})
}

// CatalogCloned acknowledges that a tenant's copy of a catalog exists
func (p *Publisher) CatalogCloned(ctx context.Context, ct catalog.CatalogTenant) {
	p.publish(ctx, ct.CatalogID, catalog.EventTypeCatalogTenantSynchro, ct)
}

func (p *Publisher) timestamped(ctx context.Context, eventType string, id uuid.UUID) {
	p.publish(ctx, id.String(), eventType, shared.Timestamped{
		ID:        id.String(),
		Timestamp: p.now().UnixMilli(),
	})
}

func (p *Publisher) publish(ctx context.Context, key, eventType string, payload any) {
	log := p.logger.With(logger.Fields(ctx)...).With(
		zap.String("synchro_event", eventType),
		zap.String("key", key),
	)

	env, err := shared.NewEnvelope(eventType, payload)
	if err != nil {
		log.Error("failed to build synchro envelope", zap.Error(err))
		return
	}

	err = p.publisher.Publish(ctx, key, env)
	if err == nil {
		log.Debug("synchro event published")
		return
	}
	log.Error("failed to publish synchro event", zap.Error(err))

	if p.outbox == nil {
		return
	}
	entry, err2 := shared.NewOutboxEntry(key, env, err)
	if err2 != nil {
		log.Error("failed to build outbox entry", zap.Error(err2))
		return
	}
	if p.retries > 0 {
		entry.MaxRetries = p.retries
	}
	// The entry starts FAILED so the processor applies its backoff before
	// the next attempt.
	entry.MarkFailed(err.Error())
	if err2 := p.outbox.Save(context.WithoutCancel(ctx), entry); err2 != nil {
		log.Error("failed to store synchro event in outbox", zap.Error(err2))
		return
	}
	log.Info("synchro event stored in outbox", zap.String("outbox_id", entry.ID.String()))
}
