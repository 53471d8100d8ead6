package models

import "time"

// InstagramMedia rows are written by the ingestion backend and only read here.
type InstagramMedia struct {
	ID                string     `gorm:"primaryKey;size:191" json:"id"`
	UserID            string     `gorm:"size:191;index" json:"user_id"`
	SourceURL         *string    `json:"source_url"`
	StorageKey        *string    `json:"storage_key"`
	Caption           *string    `json:"caption"`
	CaptionConfidence *float64   `json:"caption_confidence"`
	AudioURL          *string    `json:"audio_url"`
	ProcessedAt       *time.Time `gorm:"index" json:"processed_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (InstagramMedia) TableName() string {
	return "instagram_media"
}
