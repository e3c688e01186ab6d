package drafts

import (
	"context"
	"fmt"

	"crowdfund/internal/adapter/repo"
	"crowdfund/internal/domain"
	"crowdfund/internal/infra"
	"crowdfund/internal/storage"
)

// OpenRepository builds the draft repository selected by cfg.DraftStore. The
// returned close func releases any connection the backend holds.
func OpenRepository(ctx context.Context, cfg *infra.Config, logger infra.Logger) (domain.DraftRepository, func(), error) {
	switch cfg.DraftStore {
	case infra.DraftStorePostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		r := repo.NewDraftRepositoryPG(infra.NewSQLRunner(pool, logger))
		if err := r.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return r, pool.Close, nil
	case infra.DraftStoreRedis:
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewDraftRepositoryRedis(client, "crowdfund", 0), func() { _ = client.Close() }, nil
	case infra.DraftStoreFile, "":
		store, err := storage.NewFileStore(cfg.DraftDir)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewDraftRepositoryFile(store), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("drafts: unknown store %q", cfg.DraftStore)
	}
}
