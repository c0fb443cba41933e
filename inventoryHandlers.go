package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/middlewares"
	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/mmdatafocus/gem_ledger/models/reports"
	"github.com/mmdatafocus/gem_ledger/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type soldInput struct {
	Revision *int `json:"revision"`
}

// fillRate gives an empty usd_rate the current rate so stored rows always
// carry the rate they were valued at.
func fillRate(ctx context.Context, form *models.NewInventoryItem) {
	if strings.TrimSpace(form.UsdRate) == "" {
		form.UsdRate = models.CurrentRate(ctx).Rate.String()
	}
}

func listInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.InventoryFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			badRequest(c, err)
			return
		}
		items, err := models.ListInventoryItems(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": items})
	}
}

func getInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := models.GetInventoryItem(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": item})
	}
}

func getInventoryEditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := models.GetInventoryItemForEdit(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": view})
	}
}

func createInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInventoryItem
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		fillRate(c.Request.Context(), &input)
		item, err := models.CreateInventoryItem(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": item})
	}
}

func updateInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInventoryItem
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		fillRate(c.Request.Context(), &input)
		item, err := models.UpdateInventoryItem(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": item})
	}
}

func markSoldHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input soldInput
		// body is optional
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				badRequest(c, err)
				return
			}
		}
		item, err := models.MarkInventoryItemSold(c.Request.Context(), c.Param("id"), input.Revision)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": item})
	}
}

func deleteInventoryHandler(store utils.ObjectStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		item, err := models.DeleteInventoryItem(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		removeImages(ctx, store, item.ImageUrls)
		c.JSON(http.StatusOK, gin.H{"data": item})
	}
}

// removeImages is best-effort; a leftover object never fails the delete.
func removeImages(ctx context.Context, store utils.ObjectStore, urls []string) {
	if store == nil {
		return
	}
	logger := config.GetLogger()
	for _, u := range urls {
		key := utils.ExtractObjectKeyFromURL(u)
		if key == "" {
			continue
		}
		for _, k := range []string{key, thumbnailObjectKey(key)} {
			if err := store.Delete(ctx, k); err != nil {
				logger.WithFields(logrus.Fields{
					"field":      "DeleteImage",
					"object_key": k,
				}).Warn(err.Error())
			}
		}
	}
}

func exportInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.InventoryFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			badRequest(c, err)
			return
		}
		ctx, span := tracer.Start(c.Request.Context(), "http.ExportInventory")
		defer span.End()
		span.SetAttributes(attribute.String("export.q", filter.Query), attribute.String("export.status", string(filter.Status)))

		var buf bytes.Buffer
		filename, err := reports.ExportInventory(ctx, &buf, filter, time.Now())
		if err != nil {
			span.RecordError(err)
			respondError(c, err)
			return
		}
		span.SetAttributes(attribute.Int("export.bytes", buf.Len()))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}

// entityLogsHandler serves the history of one gem or capital entry. The
// entity is resolved through the request loaders first so unknown ids 404.
func entityLogsHandler(entityType models.EntityType) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("id")

		var found bool
		var err error
		switch entityType {
		case models.EntityTypeGem:
			var item *models.InventoryItem
			item, err = middlewares.GetInventoryItem(ctx, id)
			found = item != nil
		case models.EntityTypeCapital:
			var capital *models.CapitalInvestment
			capital, err = middlewares.GetCapitalInvestment(ctx, id)
			found = capital != nil
		}
		if err != nil {
			respondError(c, err)
			return
		}
		if !found {
			respondError(c, utils.ErrorRecordNotFound)
			return
		}

		logs, err := models.GetEntityActivity(ctx, entityType, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": logs})
	}
}
