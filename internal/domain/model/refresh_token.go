package model

import "time"

// 平文は保存しない（TokenHash のみ）
type RefreshToken struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	ClientID  int64      `gorm:"not null;index"`
	TokenHash string     `gorm:"not null;uniqueIndex"`
	UserAgent string     `gorm:"not null;default:''"`
	ExpiresAt time.Time  `gorm:"not null;index"`
	UsedAt    *time.Time `gorm:"index"`
	RevokedAt *time.Time `gorm:"index"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime"`
}
