package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapfeed/snapfeed/models"
	"github.com/snapfeed/snapfeed/utils"
)

// StatsController provides aggregate numbers for the dashboard.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate counts. Individual failures fall back to zero
// instead of failing the whole endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	count := func(model interface{}) int64 {
		var n int64
		if err := s.db.Model(model).Count(&n).Error; err != nil {
			return 0
		}
		return n
	}

	var dailyViews int64
	today := time.Now().Format("2006-01-02")
	if err := s.db.Model(&models.PageView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&dailyViews).Error; err != nil {
		dailyViews = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":    count(&models.User{}),
		"post_count":    count(&models.Post{}),
		"comment_count": count(&models.Comment{}),
		"like_count":    count(&models.Like{}),
		"daily_views":   dailyViews,
	})
}
