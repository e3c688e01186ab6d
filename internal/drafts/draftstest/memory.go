// Package draftstest provides an in-memory draft repository for tests.
package draftstest

import (
	"context"
	"sync"

	"crowdfund/internal/domain"
)

// Repository is a DraftRepository held in memory. Set the error fields to
// make the matching operation fail.
type Repository struct {
	mu     sync.Mutex
	draft  *domain.Draft
	saves  int
	clears int

	LoadErr  error
	SaveErr  error
	ClearErr error
}

func (r *Repository) Load(ctx context.Context) (*domain.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	if r.draft == nil {
		return nil, nil
	}
	d := *r.draft
	return &d, nil
}

func (r *Repository) Save(ctx context.Context, draft domain.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.draft = &draft
	r.saves++
	return nil
}

func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ClearErr != nil {
		return r.ClearErr
	}
	r.draft = nil
	r.clears++
	return nil
}

// Saves returns how many successful writes the repository received.
func (r *Repository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// Clears returns how many successful clears the repository received.
func (r *Repository) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

var _ domain.DraftRepository = (*Repository)(nil)
