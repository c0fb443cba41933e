package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/mmdatafocus/gem_ledger/utils"
	"gorm.io/gorm"
)

type profileReader struct {
	db *gorm.DB
}

func (r *profileReader) getProfiles(ctx context.Context, ids []string) []*dataloader.Result[*models.Profile] {
	results, err := utils.FetchModelsByIds[models.Profile](ctx, r.db, ids)
	if err != nil {
		return handleError[*models.Profile](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(p *models.Profile) string { return p.ID })
}

func GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	loaders := For(ctx)
	return loaders.profileLoader.Load(ctx, id)()
}

func GetProfiles(ctx context.Context, ids []string) ([]*models.Profile, []error) {
	loaders := For(ctx)
	return loaders.profileLoader.LoadMany(ctx, ids)()
}
