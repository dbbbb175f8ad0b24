package controllers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapfeed/snapfeed/config"
	"github.com/snapfeed/snapfeed/media"
	"github.com/snapfeed/snapfeed/middleware"
	"github.com/snapfeed/snapfeed/models"
	"github.com/snapfeed/snapfeed/utils"
)

// PostController manages uploads, the feed and post deletion.
type PostController struct {
	db    *gorm.DB
	store media.Store
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, store media.Store) *PostController {
	return &PostController{db: db, store: store}
}

// Upload accepts a multipart file plus optional caption, hands the file to
// the media delegate and records the resulting post. The scratch copy is
// removed on every exit path.
func (p *PostController) Upload(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return
	}
	defer file.Close()

	caption := utils.Sanitize(strings.TrimSpace(ctx.PostForm("caption")))

	maxSize := int64(config.Get().MaxUploadSizeMB) * 1024 * 1024
	if header.Size > 0 && header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40032, "file too large")
		return
	}

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to create scratch file")
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	written, err := io.Copy(tmp, &io.LimitedReader{R: file, N: maxSize + 1})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to write scratch file")
		return
	}
	if written > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40032, "file too large")
		return
	}

	contentType := header.Header.Get("Content-Type")
	fileType := models.FileTypeImage
	if strings.HasPrefix(contentType, "video/") {
		fileType = models.FileTypeVideo
	}

	stored, err := p.store.Store(ctx.Request.Context(), tmpPath, header.Filename, contentType)
	if err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Errorf("media store failed: %v", err)
		}
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to store media")
		return
	}

	post := models.Post{
		UserID:   user.ID,
		Caption:  caption,
		URL:      stored.URL,
		FileType: fileType,
		FileName: stored.Name,
	}
	if err := p.db.Create(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to create post")
		return
	}

	utils.InvalidateByPrefix("cache:feed:")

	utils.Success(ctx, post)
}

// feedItem is one annotated entry of the feed response.
type feedItem struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Caption      string    `json:"caption"`
	URL          string    `json:"url"`
	FileType     string    `json:"file_type"`
	FileName     string    `json:"file_name"`
	CreatedAt    time.Time `json:"created_at"`
	IsOwner      bool      `json:"is_owner"`
	Email        string    `json:"email"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	IsLiked      bool      `json:"is_liked"`
}

// Feed returns all posts newest first, annotated for the requesting user.
// Aggregation is set based: one posts query, one grouped count per metric
// and a single membership lookup, independent of the number of posts.
func (p *PostController) Feed(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	cacheKey := "cache:feed:user:" + user.ID
	if b, cached := utils.CacheGetBytes(cacheKey); cached {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var posts []models.Post
	if err := p.db.Preload("User").Order("created_at DESC").Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to list posts")
		return
	}

	type postCount struct {
		PostID string
		N      int64
	}
	toMap := func(rows []postCount) map[string]int64 {
		m := make(map[string]int64, len(rows))
		for _, r := range rows {
			m[r.PostID] = r.N
		}
		return m
	}

	var likeRows, commentRows []postCount
	if err := p.db.Model(&models.Like{}).Select("post_id, COUNT(*) AS n").Group("post_id").Scan(&likeRows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to count likes")
		return
	}
	if err := p.db.Model(&models.Comment{}).Select("post_id, COUNT(*) AS n").Group("post_id").Scan(&commentRows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50036, "failed to count comments")
		return
	}
	likeCounts := toMap(likeRows)
	commentCounts := toMap(commentRows)

	var likedIDs []string
	if err := p.db.Model(&models.Like{}).Where("user_id = ?", user.ID).Pluck("post_id", &likedIDs).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50037, "failed to load likes")
		return
	}
	liked := make(map[string]bool, len(likedIDs))
	for _, id := range likedIDs {
		liked[id] = true
	}

	items := make([]feedItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, feedItem{
			ID:           post.ID,
			UserID:       post.UserID,
			Caption:      post.Caption,
			URL:          post.URL,
			FileType:     post.FileType,
			FileName:     post.FileName,
			CreatedAt:    post.CreatedAt,
			IsOwner:      post.UserID == user.ID,
			Email:        post.User.Email,
			LikeCount:    likeCounts[post.ID],
			CommentCount: commentCounts[post.ID],
			IsLiked:      liked[post.ID],
		})
	}

	payload := gin.H{"posts": items}
	utils.CacheSetJSON(cacheKey, payload, time.Minute)
	utils.Success(ctx, payload)
}

// DeletePost removes a post, and with it all of its comments and likes, for
// the owning user only. Missing post and foreign owner report distinctly.
func (p *PostController) DeletePost(ctx *gin.Context) {
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
	if err := p.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50038, "failed to load post")
		return
	}

	if post.UserID != user.ID {
		utils.Error(ctx, http.StatusForbidden, 40301, "you don't have permission to delete this post")
		return
	}

	// Cascade is explicit and transactional so the dependent rows can never
	// outlive the post regardless of how the schema was created.
	err = p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50039, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:feed:")
	utils.InvalidateByPrefix("cache:comments:" + post.ID)

	utils.Success(ctx, gin.H{"success": true, "message": "Post deleted successfully"})
}

// parsePostID validates the post_id path parameter, answering 400 itself
// when the value is not a UUID.
func parsePostID(ctx *gin.Context) (string, error) {
	raw := ctx.Param("post_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid post id")
		return "", err
	}
	return id.String(), nil
}
