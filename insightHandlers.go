package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/mmdatafocus/gem_ledger/valuation"
)

func dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics, err := models.GetDashboard(c.Request.Context(), c.Query("q"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": metrics})
	}
}

func gemTypeStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := models.GetGemTypeStats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": stats})
	}
}

// suggestions for the gem type picker; free text is still accepted
func gemTypesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": models.PredefinedGemTypes})
	}
}

func valuationPreviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var form valuation.Form
		if err := c.ShouldBindJSON(&form); err != nil {
			badRequest(c, err)
			return
		}
		if strings.TrimSpace(form.UsdRate) == "" {
			form.UsdRate = models.CurrentRate(c.Request.Context()).Rate.String()
		}
		c.JSON(http.StatusOK, gin.H{"data": valuation.Calculate(valuation.ParseForm(form))})
	}
}

func getRateHandler(fetcher models.RateFetcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": models.ResolveRate(c.Request.Context(), fetcher)})
	}
}

func recordRateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCurrencyRate
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		rate, err := models.RecordManualRate(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": rate})
	}
}
