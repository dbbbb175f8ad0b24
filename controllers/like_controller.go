package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snapfeed/snapfeed/middleware"
	"github.com/snapfeed/snapfeed/models"
	"github.com/snapfeed/snapfeed/utils"
)

// LikeController manages the like toggle.
type LikeController struct {
	db *gorm.DB
}

// NewLikeController creates a new LikeController instance.
func NewLikeController(db *gorm.DB) *LikeController {
	return &LikeController{db: db}
}

// Toggle flips the caller's like on a post inside one transaction. The
// unique index on (user_id, post_id) makes the flip safe under concurrent
// requests: a lost insert race hits ON CONFLICT DO NOTHING and still reads
// back as liked.
func (l *LikeController) Toggle(ctx *gin.Context) {
	postID, err := parsePostID(ctx)
	if err != nil {
		return
	}
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var post models.Post
	if err := l.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to load post")
		return
	}

	var liked bool
	err = l.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("post_id = ? AND user_id = ?", post.ID, user.ID).First(&existing).Error
		if err == nil {
			liked = false
			return tx.Delete(&existing).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		liked = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Like{PostID: post.ID, UserID: user.ID}).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to toggle like")
		return
	}

	utils.InvalidateByPrefix("cache:feed:")

	utils.Success(ctx, gin.H{"liked": liked})
}
