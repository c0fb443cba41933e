package utils

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/gem_ledger/config"
	"gorm.io/gorm"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// store instance under Type:$id
func StoreRedis[T any](obj *T, id string) error {
	key := GetTypeName[T]() + ":" + id
	return config.SetRedisObject(key, obj, GetCacheLifespan())
}

// get from redis
// returns nil if does not exist
func RetrieveRedis[T any](id string) (*T, error) {
	var result *T
	key := GetTypeName[T]() + ":" + id
	exists, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

func SequenceKey[T any](column string) string {
	return strings.ToLower(GetTypeName[T]()) + "_" + column + "_seq"
}

// GetSequence returns the next value of an integer column. The redis counter
// is seeded from max(column) when it is fresh or redis is not connected.
// Pass the transaction the row will be inserted with; callers hold the
// sequence lock until it commits.
func GetSequence[T any](ctx context.Context, db *gorm.DB, column string) (int64, error) {
	var model T
	cacheKey := SequenceKey[T](column)

	for {
		seqNo, err := config.GetRedisCounter(ctx, cacheKey)
		if err != nil {
			return 0, err
		}
		// if not found in redis, get from db
		if seqNo <= 1 {
			var row struct {
				MaxSeq *int64
			}
			if err := db.WithContext(ctx).Model(&model).Select("max(" + column + ") AS max_seq").
				Scan(&row).Error; err != nil {
				return 0, err
			}
			// in case db has no records
			seqNo = DereferencePtr(row.MaxSeq) + 1
			if err := config.SetRedisValue(cacheKey, fmt.Sprint(seqNo), 0); err != nil {
				return 0, err
			}
		}
		// check if sequence number exists in db
		var count int64
		if err := db.WithContext(ctx).Model(&model).Where(column+" = ?", seqNo).Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			return seqNo, nil
		}
	}
}
