package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Critic stores an LLM-backed critic definition
type Critic struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Key           string         `gorm:"type:varchar(100);uniqueIndex;not null"`
	Name          string         `gorm:"type:varchar(200);not null"`
	Tier          string         `gorm:"type:varchar(20);not null;default:'research';index"`
	Description   string         `gorm:"type:text"`
	SystemPrompt  string         `gorm:"type:text;not null"`
	ModelOverride *string        `gorm:"type:varchar(100)"`
	Focus         datatypes.JSON `gorm:"type:jsonb"`
	IsActive      bool           `gorm:"default:true;index"`
	SortOrder     int            `gorm:"default:0"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (Critic) TableName() string {
	return "critics"
}
