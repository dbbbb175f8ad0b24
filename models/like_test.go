package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/snapfeed/snapfeed/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Like{}))
	return db
}

func TestLikePairIsUnique(t *testing.T) {
	db := openTestDB(t)

	user := models.User{Email: "u@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	post := models.Post{UserID: user.ID, URL: "/static/uploads/x.png", FileType: models.FileTypeImage, FileName: "x.png"}
	require.NoError(t, db.Create(&post).Error)

	require.NoError(t, db.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error)

	// A second row for the same pair violates the composite unique index.
	err := db.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error
	assert.Error(t, err)

	var n int64
	require.NoError(t, db.Model(&models.Like{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestBeforeCreateAssignsUUIDs(t *testing.T) {
	db := openTestDB(t)

	user := models.User{Email: "id@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	assert.Len(t, user.ID, 36)
	assert.False(t, user.CreatedAt.IsZero())

	post := models.Post{UserID: user.ID, URL: "/u/p.png", FileType: models.FileTypeImage, FileName: "p.png"}
	require.NoError(t, db.Create(&post).Error)
	assert.Len(t, post.ID, 36)
	assert.NotEqual(t, user.ID, post.ID)
}
