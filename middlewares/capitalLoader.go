package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/mmdatafocus/gem_ledger/utils"
	"gorm.io/gorm"
)

type capitalReader struct {
	db *gorm.DB
}

func (r *capitalReader) getCapitalInvestments(ctx context.Context, ids []string) []*dataloader.Result[*models.CapitalInvestment] {
	results, err := utils.FetchModelsByIds[models.CapitalInvestment](ctx, r.db, ids)
	if err != nil {
		return handleError[*models.CapitalInvestment](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(c *models.CapitalInvestment) string { return c.ID })
}

func GetCapitalInvestment(ctx context.Context, id string) (*models.CapitalInvestment, error) {
	loaders := For(ctx)
	return loaders.capitalLoader.Load(ctx, id)()
}
