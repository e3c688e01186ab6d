package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"crowdfund/internal/domain"
	"crowdfund/internal/storage"
)

// DraftRepositoryFile keeps the draft slot as one JSON document on disk.
type DraftRepositoryFile struct {
	store *storage.FileStore
	key   string
}

func NewDraftRepositoryFile(store *storage.FileStore) *DraftRepositoryFile {
	return &DraftRepositoryFile{store: store, key: domain.DraftKey + ".json"}
}

func (r *DraftRepositoryFile) Load(ctx context.Context) (*domain.Draft, error) {
	raw, err := r.store.Read(ctx, r.key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("repo: load draft: %w", err)
	}
	var draft domain.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("repo: decode draft: %w", err)
	}
	return &draft, nil
}

func (r *DraftRepositoryFile) Save(ctx context.Context, draft domain.Draft) error {
	raw, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("repo: encode draft: %w", err)
	}
	return r.store.Write(ctx, r.key, raw)
}

func (r *DraftRepositoryFile) Clear(ctx context.Context) error {
	return r.store.Delete(ctx, r.key)
}

var _ domain.DraftRepository = (*DraftRepositoryFile)(nil)
