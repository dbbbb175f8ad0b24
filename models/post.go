package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Media kinds stored on a post. Set once at upload time and never changed.
const (
	FileTypeImage = "image"
	FileTypeVideo = "video"
)

// Post represents an uploaded media item owned by a user.
type Post struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:char(36);index;not null" json:"user_id"`
	Caption   string    `gorm:"type:text" json:"caption"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	FileType  string    `gorm:"size:16;not null" json:"file_type"`
	FileName  string    `gorm:"size:512;not null" json:"file_name"`
	CreatedAt time.Time `json:"created_at"`

	User     User      `json:"-"`
	Comments []Comment `json:"-"`
	Likes    []Like    `json:"-"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return nil
}
