package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/gem_ledger/middlewares"
	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/mmdatafocus/gem_ledger/utils"
)

type signInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type roleInput struct {
	Role models.UserRole `json:"role"`
}

func signUpHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProfile
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		profile, err := models.SignUp(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": profile})
	}
}

func signInHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input signInInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		info, err := models.SignIn(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": info})
	}
}

func signOutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.SignOut(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func meHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userId, _ := utils.GetUserIdFromContext(ctx)
		profile, err := middlewares.GetProfile(ctx, userId)
		if err != nil {
			respondError(c, err)
			return
		}
		if profile == nil {
			// profile deleted under a live session
			respondError(c, utils.ErrUnauthorized)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": profile})
	}
}

func listProfilesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profiles, err := models.GetProfiles(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": profiles})
	}
}

func setRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input roleInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		profile, err := models.SetRole(c.Request.Context(), c.Param("id"), input.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": profile})
	}
}
