package models

import "time"

// PageView stores aggregated page view counts per day and path, feeding the
// dashboard stats endpoint.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      string    `gorm:"size:10;index:idx_pv_date_path,unique;not null" json:"date"`
	Path      string    `gorm:"size:255;index:idx_pv_date_path,unique;not null" json:"path"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
