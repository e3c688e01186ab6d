// Package viewstate holds the working set of campaigns behind a view and the
// projections derived from it.
package viewstate

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"crowdfund/internal/domain"
	"crowdfund/internal/infra"
)

// State is a view's load lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// CampaignSource is the subset of the ledger gateway the store reads from.
type CampaignSource interface {
	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)
	ListCampaignsByOwner(ctx context.Context, owner string) ([]domain.Campaign, error)
	ListDonations(ctx context.Context, pid int64) ([]domain.Donation, error)
}

// NoticeKind distinguishes success and error banners.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a dismissible banner attached to a view.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Message   string     `json:"message"`
	Retryable bool       `json:"retryable,omitempty"`
}

// View is a consistent snapshot of the store.
type View struct {
	State     State             `json:"state"`
	Err       error             `json:"-"`
	Campaigns []domain.Campaign `json:"-"`
	LoadedAt  time.Time         `json:"loaded_at,omitempty"`
}

// Options configures a Store.
type Options struct {
	Source CampaignSource
	// Owner scopes the store to one account's campaigns. Empty means all.
	Owner string
	// DonorCounts fills missing donor counts with one donor-list read per
	// campaign after each refresh.
	DonorCounts      bool
	DonorConcurrency int
	Now              func() time.Time
	Logger           *infra.Logger
	// MaxProfiles caps the profile stores a Registry holds. Stores ignore it.
	MaxProfiles int
}

// Store owns the working set for one view. Refresh replaces it wholesale;
// derivations never modify it.
type Store struct {
	source      CampaignSource
	owner       string
	donorCounts bool
	donorLimit  int
	now         func() time.Time
	logger      *infra.Logger

	refreshMu sync.Mutex

	mu        sync.RWMutex
	state     State
	err       error
	campaigns []domain.Campaign
	loadedAt  time.Time
	notice    *Notice
}

// NewStore builds an idle store.
func NewStore(opts Options) (*Store, error) {
	if opts.Source == nil {
		return nil, errors.New("viewstate: source is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	limit := opts.DonorConcurrency
	if limit <= 0 {
		limit = 4
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Store{
		source:      opts.Source,
		owner:       strings.TrimSpace(opts.Owner),
		donorCounts: opts.DonorCounts,
		donorLimit:  limit,
		now:         now,
		logger:      logger,
		state:       StateIdle,
	}, nil
}

// Owner returns the account the store is scoped to, or "".
func (s *Store) Owner() string { return s.owner }

// Refresh reloads the working set. On failure the previous set is kept and
// the store moves to StateError. Concurrent calls run one at a time.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	list, err := s.load(ctx)
	if err == nil && s.donorCounts {
		s.fillDonorCounts(ctx, list)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateError
		s.err = err
		s.logger.Warn().Err(err).Str("owner", s.owner).Msg("campaign refresh failed")
		return err
	}
	s.state = StateReady
	s.err = nil
	s.campaigns = list
	s.loadedAt = s.now()
	return nil
}

func (s *Store) load(ctx context.Context) ([]domain.Campaign, error) {
	if s.owner != "" {
		return s.source.ListCampaignsByOwner(ctx, s.owner)
	}
	return s.source.ListCampaigns(ctx)
}

func (s *Store) fillDonorCounts(ctx context.Context, list []domain.Campaign) {
	var g errgroup.Group
	g.SetLimit(s.donorLimit)
	for i := range list {
		if list[i].DonorsKnown {
			continue
		}
		i := i
		g.Go(func() error {
			donations, err := s.source.ListDonations(ctx, list[i].PID)
			if err != nil {
				s.logger.Debug().Err(err).Int64("pid", list[i].PID).Msg("donor count unavailable")
				return nil
			}
			list[i].Donors = len(donations)
			list[i].DonorsKnown = true
			return nil
		})
	}
	_ = g.Wait()
}

// Snapshot returns the current state with a private copy of the working set.
func (s *Store) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		State:     s.state,
		Err:       s.err,
		Campaigns: append([]domain.Campaign(nil), s.campaigns...),
		LoadedAt:  s.loadedAt,
	}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Loading() bool { return s.State() == StateLoading }

// Err returns the last refresh error while the store is in StateError.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Loaded reports whether at least one refresh has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loadedAt.IsZero()
}

// Find returns the campaign with pid from the working set.
func (s *Store) Find(pid int64) (domain.Campaign, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.campaigns {
		if c.PID == pid {
			return c, true
		}
	}
	return domain.Campaign{}, false
}

// ApplyFilters derives the listing for q from the working set.
func (s *Store) ApplyFilters(q Query) []domain.Campaign {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filter(s.campaigns, q, s.now())
}

// Aggregate summarizes the working set at the current time.
func (s *Store) Aggregate() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summarize(s.campaigns, s.now())
}

// SetNotice replaces the view's banner.
func (s *Store) SetNotice(kind NoticeKind, message string, retryable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = &Notice{Kind: kind, Message: message, Retryable: retryable}
}

// Notice returns the current banner, if any.
func (s *Store) Notice() (Notice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.notice == nil {
		return Notice{}, false
	}
	return *s.notice, true
}

// ClearNotice dismisses the banner.
func (s *Store) ClearNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = nil
}

// NoticeFor turns an operation error into an error banner. Retry is offered
// for failed transactions and an unreachable ledger.
func NoticeFor(err error) Notice {
	n := Notice{Kind: NoticeError, Message: err.Error()}
	if e, ok := domain.AsError(err); ok {
		if e.Message != "" {
			n.Message = e.Message
		}
		n.Retryable = e.Retryable()
	}
	return n
}
