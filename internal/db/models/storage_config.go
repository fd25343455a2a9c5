package models

import (
	"time"

	"gorm.io/gorm"
)

// Model 基础模型
type Model struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// StorageConfig 存储配置表。
// Credential 列保存加密后的凭证材料，从不序列化到响应中。
// OwnerID 为 0 表示系统级配置，对所有用户可见
type StorageConfig struct {
	Model
	Name               string `gorm:"size:128;not null" json:"name"`
	StorageType        string `gorm:"size:32;not null;index" json:"storage_type"`
	Bucket             string `gorm:"size:128;not null" json:"bucket"`
	Region             string `gorm:"size:64" json:"region"`
	CustomDomain       string `gorm:"size:256" json:"custom_domain"`
	Credential         string `gorm:"type:text" json:"-"`
	STSRoleArn         string `gorm:"size:256" json:"sts_role_arn,omitempty"`
	STSSessionName     string `gorm:"size:64" json:"sts_session_name,omitempty"`
	STSDurationSeconds int    `json:"sts_duration_seconds,omitempty"`
	IsDefault          bool   `gorm:"default:false;index" json:"is_default"`
	Enabled            bool   `gorm:"default:true" json:"enabled"`
	OwnerID            uint   `gorm:"index" json:"owner_id"`
}

// TableName 表名
func (StorageConfig) TableName() string {
	return "storage_configs"
}
