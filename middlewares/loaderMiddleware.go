package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/models"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	profileLoader   *dataloader.Loader[string, *models.Profile]
	inventoryLoader *dataloader.Loader[string, *models.InventoryItem]
	capitalLoader   *dataloader.Loader[string, *models.CapitalInvestment]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders(conn *gorm.DB) *Loaders {
	// define the data loader
	profileReader := &profileReader{db: conn}
	inventoryReader := &inventoryReader{db: conn}
	capitalReader := &capitalReader{db: conn}

	return &Loaders{
		profileLoader:   dataloader.NewBatchedLoader(profileReader.getProfiles, dataloader.WithWait[string, *models.Profile](time.Millisecond)),
		inventoryLoader: dataloader.NewBatchedLoader(inventoryReader.getInventoryItems, dataloader.WithWait[string, *models.InventoryItem](time.Millisecond)),
		capitalLoader:   dataloader.NewBatchedLoader(capitalReader.getCapitalInvestments, dataloader.WithWait[string, *models.CapitalInvestment](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// For returns the request's loaders, or a fresh set when the request did not
// pass through LoaderMiddleware (CLI, tests).
func For(ctx context.Context) *Loaders {
	if loaders, ok := ctx.Value(loadersKey).(*Loaders); ok {
		return loaders
	}
	return NewLoaders(config.GetDB())
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// turns results from db into dataloader results, in the order of ids.
// Missing ids resolve to nil without error.
func generateLoaderResults[T any](results []*T, ids []string, key func(*T) string) []*dataloader.Result[*T] {
	resultMap := make(map[string]*T, len(results))
	for _, result := range results {
		resultMap[key(result)] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: resultMap[id]})
	}
	return loaderResults
}
