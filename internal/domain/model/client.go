package model

import "time"

// 会員（ログインはメールか電話番号）
type Client struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Email        string  `gorm:"uniqueIndex;not null"`
	PhoneNumber  *string `gorm:"uniqueIndex"`
	PasswordHash string  `gorm:"column:password_hash;not null"`
	Surname      string  `gorm:"type:varchar(100);not null;default:''"`
	Name         string  `gorm:"type:varchar(100);not null;default:''"`
	Patronymic   string  `gorm:"type:varchar(100);not null;default:''"`
	Birthday     *time.Time
	Image        string `gorm:"type:varchar(255);not null;default:''"` // MEDIA_ROOT からの相対パス
	TokenVersion int    `gorm:"not null;default:0"`
	IsActive     bool   `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c Client) Phone() string {
	if c.PhoneNumber == nil {
		return ""
	}
	return *c.PhoneNumber
}
