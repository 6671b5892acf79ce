package model

import "time"

type Favorite struct {
	ClientID  int64     `gorm:"primaryKey"`
	ProductID int64     `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}
