package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"vidnest/accounts/internal/metrics"
	"vidnest/accounts/internal/queue"
	"vidnest/accounts/internal/storage"
)

// MediaPrefixes are the object key prefixes owned by account media.
var MediaPrefixes = []string{"avatars/", "covers/"}

// MediaStore is the part of storage.Backend the janitor needs.
type MediaStore interface {
	RemoveObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	PublicURL(key string) string
	KeyFromURL(rawURL string) (string, bool)
}

type ReferenceChecker interface {
	MediaReferenced(ctx context.Context, url string) (bool, error)
}

// Processor removes media no account points at any more.
type Processor struct {
	store   MediaStore
	refs    ReferenceChecker
	grace   time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewProcessor(store MediaStore, refs ReferenceChecker, grace time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Processor {
	return &Processor{
		store:   store,
		refs:    refs,
		grace:   grace,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

func (p *Processor) Handle(ctx context.Context, task queue.Task) error {
	var err error
	switch task.Type {
	case queue.TaskDiscard:
		err = p.handleDiscard(ctx, task)
	case queue.TaskSweep:
		err = p.handleSweep(ctx)
	default:
		p.logger.Warn().Str("type", task.Type).Msg("unknown task type")
		p.metrics.MediaTask(task.Type, "unknown")
		return nil
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.metrics.MediaTask(task.Type, outcome)
	return err
}

func (p *Processor) handleDiscard(ctx context.Context, task queue.Task) error {
	key, ok := p.store.KeyFromURL(task.URL)
	if !ok {
		p.logger.Info().Str("url", task.URL).Msg("discard skipped: url not hosted here")
		return nil
	}

	referenced, err := p.refs.MediaReferenced(ctx, task.URL)
	if err != nil {
		return fmt.Errorf("check reference: %w", err)
	}
	if referenced {
		p.logger.Info().Str("key", key).Msg("discard skipped: still referenced")
		return nil
	}

	if err := p.store.RemoveObject(ctx, key); err != nil {
		return err
	}
	p.logger.Info().Str("key", key).Str("reason", task.Reason).Msg("media discarded")
	return nil
}

// handleSweep deletes unreferenced objects older than the grace period.
// The grace period keeps uploads whose account row is still being written.
func (p *Processor) handleSweep(ctx context.Context) error {
	cutoff := p.now().Add(-p.grace)
	var removed, kept int

	for _, prefix := range MediaPrefixes {
		objects, err := p.store.ListObjects(ctx, prefix)
		if err != nil {
			return err
		}
		for _, obj := range objects {
			if obj.LastModified.After(cutoff) {
				continue
			}
			referenced, err := p.refs.MediaReferenced(ctx, p.store.PublicURL(obj.Key))
			if err != nil {
				return fmt.Errorf("check reference: %w", err)
			}
			if referenced {
				kept++
				continue
			}
			if err := p.store.RemoveObject(ctx, obj.Key); err != nil {
				return err
			}
			removed++
		}
	}

	p.logger.Info().Int("removed", removed).Int("kept", kept).Msg("media sweep finished")
	return nil
}
