package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapfeed/snapfeed/middleware"
	"github.com/snapfeed/snapfeed/models"
	"github.com/snapfeed/snapfeed/utils"
)

// CommentController manages comment creation and listing.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// Create adds a comment to a post. Any authenticated user may comment on any
// post; there is no ownership check.
func (c *CommentController) Create(ctx *gin.Context) {
	postID, err := parsePostID(ctx)
	if err != nil {
		return
	}
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}
	content := utils.Sanitize(req.Content)
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40023, "content cannot be empty")
		return
	}

	var post models.Post
	if err := c.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load post")
		return
	}

	comment := models.Comment{
		PostID:  post.ID,
		UserID:  user.ID,
		Content: content,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to create comment")
		return
	}

	utils.InvalidateByPrefix("cache:comments:" + post.ID)
	utils.InvalidateByPrefix("cache:feed:")

	utils.Success(ctx, gin.H{
		"id":         comment.ID,
		"user_id":    comment.UserID,
		"post_id":    comment.PostID,
		"content":    comment.Content,
		"created_at": comment.CreatedAt,
	})
}

// commentItem is one annotated entry of the comment listing.
type commentItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns all comments on a post oldest first, each annotated with the
// author's email. Listing is public.
func (c *CommentController) List(ctx *gin.Context) {
	postID, err := parsePostID(ctx)
	if err != nil {
		return
	}

	cacheKey := "cache:comments:" + postID
	if b, cached := utils.CacheGetBytes(cacheKey); cached {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var comments []models.Comment
	if err := c.db.Where("post_id = ?", postID).Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to list comments")
		return
	}

	// Resolve author emails with a single IN query.
	emailByUser := map[string]string{}
	if len(comments) > 0 {
		userIDs := make([]string, 0, len(comments))
		for _, cm := range comments {
			userIDs = append(userIDs, cm.UserID)
		}
		userIDs = utils.UniqueStrings(userIDs)

		var users []models.User
		if err := c.db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load authors")
			return
		}
		for _, u := range users {
			emailByUser[u.ID] = u.Email
		}
	}

	items := make([]commentItem, 0, len(comments))
	for _, cm := range comments {
		email, ok := emailByUser[cm.UserID]
		if !ok {
			email = "Unknown"
		}
		items = append(items, commentItem{
			ID:        cm.ID,
			UserID:    cm.UserID,
			Email:     email,
			Content:   cm.Content,
			CreatedAt: cm.CreatedAt,
		})
	}

	payload := gin.H{"comments": items}
	utils.CacheSetJSON(cacheKey, payload, time.Minute)
	utils.Success(ctx, payload)
}
