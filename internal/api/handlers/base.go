package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/myysophia/storagehub/internal/storage"
)

// BaseHandler 处理器公共能力
type BaseHandler struct{}

// ParseUintParam 解析路径中的数字参数
func (h *BaseHandler) ParseUintParam(c *gin.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

// MaterialRequest 凭证材料请求体，各供应商使用的字段不同
type MaterialRequest struct {
	AccessKeyID     string `json:"access_key_id"`
	AccessKeySecret string `json:"access_key_secret"`
	SecretAccessKey string `json:"secret_access_key"`
	AccessKey       string `json:"access_key"`
	SecretKey       string `json:"secret_key"`
	SecretID        string `json:"secret_id"`
	AppID           string `json:"app_id"`
}

// ToMaterial 转换为凭证材料
func (m *MaterialRequest) ToMaterial() storage.CredentialMaterial {
	return storage.CredentialMaterial{
		AccessKeyID:     m.AccessKeyID,
		AccessKeySecret: m.AccessKeySecret,
		SecretAccessKey: m.SecretAccessKey,
		AccessKey:       m.AccessKey,
		SecretKey:       m.SecretKey,
		SecretID:        m.SecretID,
		AppID:           m.AppID,
	}
}

// STSRequest STS角色请求体
type STSRequest struct {
	RoleArn         string `json:"role_arn" validate:"required"`
	SessionName     string `json:"session_name" validate:"required"`
	DurationSeconds int    `json:"duration_seconds"`
}

// ToRole 转换为STS角色
func (s *STSRequest) ToRole() *storage.STSRole {
	return &storage.STSRole{
		RoleArn:         s.RoleArn,
		SessionName:     s.SessionName,
		DurationSeconds: s.DurationSeconds,
	}
}
