package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snapfeed/snapfeed/models"
)

// PageViewRecorder records successful GET page views per day and path,
// feeding the dashboard stats endpoint.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != "GET" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 400 {
			return
		}

		path := c.Request.URL.Path
		// Skip endpoints that would skew the numbers.
		if path == "/health" || path == "/stats" || strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/config/") {
			return
		}

		today := time.Now().Format("2006-01-02")

		// Atomic upsert to avoid duplicate key errors under concurrency.
		_ = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.PageView{Date: today, Path: path, Count: 1}).Error
	}
}
