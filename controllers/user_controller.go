package controllers

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapfeed/snapfeed/middleware"
	"github.com/snapfeed/snapfeed/models"
	"github.com/snapfeed/snapfeed/utils"
)

// UserController serves the current-user endpoints.
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a new UserController instance.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// Me returns the authenticated user.
func (u *UserController) Me(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	utils.Success(ctx, userResponse(*user))
}

// UpdateMe updates the authenticated user's email or password. Changing the
// email clears the verified flag until the new address is confirmed.
func (u *UserController) UpdateMe(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
		if _, err := mail.ParseAddress(email); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40002, "invalid email address")
			return
		}
		var existing models.User
		if err := u.db.Where("email = ?", email).First(&existing).Error; err == nil {
			utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
			return
		}
		user.Email = email
		user.IsVerified = false
	}

	if req.Password != "" {
		if len(req.Password) < 6 || len(req.Password) > 72 {
			utils.Error(ctx, http.StatusBadRequest, 40003, "password must be 6-72 characters")
			return
		}
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
			return
		}
		user.PasswordHash = hash
	}

	if err := u.db.Save(user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update profile")
		return
	}

	utils.Success(ctx, userResponse(*user))
}
