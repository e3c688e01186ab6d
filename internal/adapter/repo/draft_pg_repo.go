package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"crowdfund/internal/domain"
	"crowdfund/internal/infra"
	"crowdfund/internal/sqlinline"
)

// DraftRepositoryPG stores the draft slot in the campaign_drafts table.
type DraftRepositoryPG struct {
	sql  infra.SQLExecutor
	slot string
}

// NewDraftRepositoryPG creates a Postgres-backed draft repository.
func NewDraftRepositoryPG(sql infra.SQLExecutor) *DraftRepositoryPG {
	return &DraftRepositoryPG{sql: sql, slot: domain.DraftKey}
}

// Migrate creates the drafts table when it is missing.
func (r *DraftRepositoryPG) Migrate(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QCreateDraftsTable); err != nil {
		return fmt.Errorf("repo: create campaign_drafts: %w", err)
	}
	return nil
}

func (r *DraftRepositoryPG) Load(ctx context.Context) (*domain.Draft, error) {
	var payload []byte
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectDraft, r.slot).Scan(&payload); err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("repo: load draft: %w", err)
	}
	var draft domain.Draft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return nil, fmt.Errorf("repo: decode draft: %w", err)
	}
	return &draft, nil
}

func (r *DraftRepositoryPG) Save(ctx context.Context, draft domain.Draft) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("repo: encode draft: %w", err)
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QUpsertDraft, r.slot, string(payload), draft.Revision, draft.SavedAt); err != nil {
		return fmt.Errorf("repo: save draft: %w", err)
	}
	return nil
}

func (r *DraftRepositoryPG) Clear(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QDeleteDraft, r.slot); err != nil {
		return fmt.Errorf("repo: clear draft: %w", err)
	}
	return nil
}

var _ domain.DraftRepository = (*DraftRepositoryPG)(nil)
