// Package drafts keeps the in-progress campaign creation form and persists it
// to the configured draft slot.
package drafts

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crowdfund/internal/domain"
	"crowdfund/internal/infra"
)

// DefaultInterval is the autosave period.
const DefaultInterval = 30 * time.Second

// Options configures an Autosaver.
type Options struct {
	Repo        domain.DraftRepository
	Interval    time.Duration
	Now         func() time.Time
	NewRevision func() string
	Logger      *infra.Logger
}

// Autosaver holds the form being edited and writes it to the repository on a
// fixed period. Blank forms are never written.
type Autosaver struct {
	repo     domain.DraftRepository
	interval time.Duration
	now      func() time.Time
	revision func() string
	logger   *infra.Logger

	// ioMu orders repository writes so a clear is never overtaken by a save.
	ioMu sync.Mutex

	mu      sync.Mutex
	current domain.Draft
	dirty   bool
}

// New builds an Autosaver over opts.Repo.
func New(opts Options) (*Autosaver, error) {
	if opts.Repo == nil {
		return nil, errors.New("drafts: repository is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rev := opts.NewRevision
	if rev == nil {
		rev = func() string { return uuid.NewString() }
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Autosaver{repo: opts.Repo, interval: interval, now: now, revision: rev, logger: logger}, nil
}

// Interval returns the autosave period.
func (a *Autosaver) Interval() time.Duration { return a.interval }

// Restore loads the stored draft into the editor. It returns nil when the
// slot is empty.
func (a *Autosaver) Restore(ctx context.Context) (*domain.Draft, error) {
	d, err := a.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if d == nil {
		return nil, nil
	}
	a.current = *d
	a.dirty = false
	return d, nil
}

// Current returns the form held in memory.
func (a *Autosaver) Current() domain.Draft {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Update replaces the in-memory form. Revision and SavedAt are kept from the
// last save.
func (a *Autosaver) Update(d domain.Draft) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d.Revision = a.current.Revision
	d.SavedAt = a.current.SavedAt
	a.current = d
	a.dirty = true
}

// Flush writes the in-memory form when it changed since the last save and
// has at least one non-blank field.
func (a *Autosaver) Flush(ctx context.Context) (bool, error) {
	a.ioMu.Lock()
	defer a.ioMu.Unlock()

	a.mu.Lock()
	if !a.dirty || a.current.IsEmpty() {
		a.mu.Unlock()
		return false, nil
	}
	d := a.current
	d.Revision = a.revision()
	d.SavedAt = a.now().UTC()
	a.mu.Unlock()

	if err := a.repo.Save(ctx, d); err != nil {
		a.logger.Warn().Err(err).Msg("drafts: autosave failed")
		return false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// An Update that landed during the write keeps the form dirty.
	if sameForm(a.current, d) {
		a.current.Revision = d.Revision
		a.current.SavedAt = d.SavedAt
		a.dirty = false
	}
	a.logger.Debug().Str("revision", d.Revision).Msg("drafts: saved")
	return true, nil
}

// Discard drops the form and clears the stored slot.
func (a *Autosaver) Discard(ctx context.Context) error {
	a.ioMu.Lock()
	defer a.ioMu.Unlock()

	a.mu.Lock()
	a.current = domain.Draft{}
	a.dirty = false
	a.mu.Unlock()
	return a.repo.Clear(ctx)
}

// Submitted clears the draft after the campaign it described was created.
func (a *Autosaver) Submitted(ctx context.Context) error {
	if err := a.Discard(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("drafts: clear after submit failed")
		return err
	}
	a.logger.Info().Msg("drafts: cleared after submit")
	return nil
}

// Run flushes on every tick until ctx is done.
func (a *Autosaver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, _ = a.Flush(ctx)
		}
	}
}

func sameForm(a, b domain.Draft) bool {
	return a.Title == b.Title &&
		a.Description == b.Description &&
		a.Target == b.Target &&
		a.Deadline == b.Deadline &&
		a.Image == b.Image &&
		a.Category == b.Category
}
