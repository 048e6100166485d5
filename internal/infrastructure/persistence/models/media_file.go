package models

import (
	"github.com/catalog/backend/internal/domain/media"
)

// MediaFileModel is the persistence model of a media catalog record.
// Only canonical object keys are stored; derivative keys are NULL when the
// derivative was not produced.
type MediaFileModel struct {
	BaseModel
	Filename      string  `gorm:"type:varchar(255);not null"`
	MimeType      string  `gorm:"type:varchar(100);not null"`
	Size          int64   `gorm:"not null"`
	Width         int     `gorm:"not null"`
	Height        int     `gorm:"not null"`
	AltText       string  `gorm:"type:varchar(500);not null;default:''"`
	Caption       string  `gorm:"type:text;not null;default:''"`
	Source        string  `gorm:"type:varchar(20);not null;index"`
	IsInMediaPool bool    `gorm:"column:is_in_media_pool;not null;index"`
	Tier          string  `gorm:"type:varchar(20);not null;uniqueIndex:idx_media_files_tier_key_original,priority:1"`
	KeyOriginal   string  `gorm:"type:varchar(1024);not null;uniqueIndex:idx_media_files_tier_key_original,priority:2"`
	KeyLarge      *string `gorm:"type:varchar(1024)"`
	KeyMedium     *string `gorm:"type:varchar(1024)"`
	KeyThumb      *string `gorm:"type:varchar(1024)"`
}

// TableName returns the table name for GORM
func (MediaFileModel) TableName() string {
	return "media_files"
}

// ToDomain converts the persistence model to a domain Asset
func (m *MediaFileModel) ToDomain() *media.Asset {
	return &media.Asset{
		BaseAggregateRoot: m.BaseModel.ToDomainAggregateRoot(),
		Filename:          m.Filename,
		Keys: media.AssetKeys{
			Original: m.KeyOriginal,
			Large:    deref(m.KeyLarge),
			Medium:   deref(m.KeyMedium),
			Thumb:    deref(m.KeyThumb),
		},
		MimeType: m.MimeType,
		ByteSize: m.Size,
		Width:    m.Width,
		Height:   m.Height,
		AltText:  m.AltText,
		Caption:  m.Caption,
		Source:   media.Source(m.Source),
		InPool:   m.IsInMediaPool,
		Tier:     media.Tier(m.Tier),
	}
}

// FromDomain populates the persistence model from a domain Asset
func (m *MediaFileModel) FromDomain(a *media.Asset) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.Filename = a.Filename
	m.MimeType = a.MimeType
	m.Size = a.ByteSize
	m.Width = a.Width
	m.Height = a.Height
	m.AltText = a.AltText
	m.Caption = a.Caption
	m.Source = string(a.Source)
	m.IsInMediaPool = a.InPool
	m.Tier = a.Tier.String()
	m.KeyOriginal = a.Keys.Original
	m.KeyLarge = ptr(a.Keys.Large)
	m.KeyMedium = ptr(a.Keys.Medium)
	m.KeyThumb = ptr(a.Keys.Thumb)
}

// MediaFileModelFromDomain creates a new persistence model from a domain Asset
func MediaFileModelFromDomain(a *media.Asset) *MediaFileModel {
	m := &MediaFileModel{}
	m.FromDomain(a)
	return m
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
