package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/middlewares"
	"github.com/mmdatafocus/gem_ledger/models"
)

type capitalRow struct {
	*models.CapitalInvestment
	InvestorName string `json:"investor_name"`
}

func listCapitalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		investments, err := models.ListCapitalInvestments(ctx)
		if err != nil {
			respondError(c, err)
			return
		}

		ids := make([]string, len(investments))
		for i, inv := range investments {
			ids[i] = inv.InvestorId
		}
		investors, errs := middlewares.GetProfiles(ctx, ids)

		rows := make([]capitalRow, len(investments))
		for i, inv := range investments {
			var investor *models.Profile
			if i < len(investors) && (len(errs) <= i || errs[i] == nil) {
				investor = investors[i]
			}
			rows[i] = capitalRow{CapitalInvestment: inv, InvestorName: inv.DisplayName(investor)}
		}
		c.JSON(http.StatusOK, gin.H{"data": rows})
	}
}

func createCapitalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCapitalInvestment
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		ctx := c.Request.Context()
		investment, err := models.CreateCapitalInvestment(ctx, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		investor, _ := middlewares.GetProfile(ctx, investment.InvestorId)
		c.JSON(http.StatusCreated, gin.H{"data": capitalRow{
			CapitalInvestment: investment,
			InvestorName:      investment.DisplayName(investor),
		}})
	}
}

func listTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := models.ListTransactions(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": list})
	}
}

func createTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		transaction, err := models.CreateTransaction(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": transaction})
	}
}

func deleteTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		transaction, err := models.DeleteTransaction(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": transaction})
	}
}

func listLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.LogFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			badRequest(c, err)
			return
		}
		logs, err := models.ListActivityLogs(c.Request.Context(), filter)
		if err != nil {
			config.LogError(config.GetLogger(), "http", "ListLogs", "list activity logs", filter, err)
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": logs})
	}
}
