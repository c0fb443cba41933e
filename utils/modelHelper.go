package utils

import (
	"context"
	"errors"

	"github.com/mmdatafocus/gem_ledger/config"
	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db by its uuid
// (may return RecordNotFound)
func FetchModel[T any](ctx context.Context, id string, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// fetch all models from db, in the given order
func FetchAllModels[T any](ctx context.Context, orders ...string) ([]*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	for _, order := range orders {
		dbCtx = dbCtx.Order(order)
	}
	var results []*T
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// fetch models by ids, order is not guaranteed
func FetchModelsByIds[T any](ctx context.Context, db *gorm.DB, ids []string) ([]*T, error) {
	var results []*T
	if len(ids) == 0 {
		return results, nil
	}
	if err := db.WithContext(ctx).Where("id IN ?", UniqueSlice(ids)).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
