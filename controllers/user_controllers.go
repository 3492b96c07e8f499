package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sarthaktajane07/DineFlow/middlewares"
	"github.com/sarthaktajane07/DineFlow/services"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/sirupsen/logrus"
)

type UserController struct {
	Users *services.UserService
	Log   logrus.FieldLogger
}

func NewUserController(users *services.UserService, log logrus.FieldLogger) *UserController {
	return &UserController{Users: users, Log: log}
}

// Register -> POST /api/auth/register, managers only.
func (uc *UserController) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := uc.Users.Register(c.Request.Context(), req, middlewares.CurrentUserID(c))
	if err != nil {
		respondServiceError(c, uc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{"user": user})
}

func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := uc.Users.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondServiceError(c, uc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Login successful", res)
}

func (uc *UserController) GetProfile(c *gin.Context) {
	user, err := uc.Users.Get(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		respondServiceError(c, uc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", gin.H{"user": user})
}

// UpdateProfile -> PUT /api/auth/update-profile
func (uc *UserController) UpdateProfile(c *gin.Context) {
	var req services.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := uc.Users.UpdateProfile(c.Request.Context(), middlewares.CurrentUserID(c), req)
	if err != nil {
		respondServiceError(c, uc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile updated successfully", gin.H{"user": user})
}

// UpdatePassword -> PUT /api/auth/update-password
func (uc *UserController) UpdatePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	err := uc.Users.UpdatePassword(c.Request.Context(), middlewares.CurrentUserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondServiceError(c, uc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Password updated successfully", nil)
}
