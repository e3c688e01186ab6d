package domain

import "context"

// DraftRepository persists the single draft slot.
type DraftRepository interface {
	// Load returns nil when no draft is stored.
	Load(ctx context.Context) (*Draft, error)
	Save(ctx context.Context, draft Draft) error
	Clear(ctx context.Context) error
}
