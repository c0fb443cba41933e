package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/mmdatafocus/gem_ledger/utils"
	"gorm.io/gorm"
)

type inventoryReader struct {
	db *gorm.DB
}

func (r *inventoryReader) getInventoryItems(ctx context.Context, ids []string) []*dataloader.Result[*models.InventoryItem] {
	results, err := utils.FetchModelsByIds[models.InventoryItem](ctx, r.db, ids)
	if err != nil {
		return handleError[*models.InventoryItem](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(item *models.InventoryItem) string { return item.ID })
}

func GetInventoryItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	loaders := For(ctx)
	return loaders.inventoryLoader.Load(ctx, id)()
}
