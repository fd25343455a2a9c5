package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/sts"
	"github.com/myysophia/storagehub/internal/logger"
	"go.uber.org/zap"
)

// CredentialMaterial 供应商凭证材料，各供应商使用的字段不同
type CredentialMaterial struct {
	// 阿里云OSS / AWS S3
	AccessKeyID     string `json:"accessKeyId,omitempty"`
	AccessKeySecret string `json:"accessKeySecret,omitempty"`
	SecretAccessKey string `json:"secretAccessKey,omitempty"`
	// 七牛云
	AccessKey string `json:"accessKey,omitempty"`
	SecretKey string `json:"secretKey,omitempty"`
	// 腾讯云COS
	SecretID string `json:"secretId,omitempty"`
	AppID    string `json:"appId,omitempty"`
}

// STSRole STS 角色描述，配置声明角色后按需换取临时凭证
type STSRole struct {
	RoleArn         string `json:"role_arn"`
	SessionName     string `json:"session_name"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Credentials 解析后的访问凭证。静态凭证 Expiration 为零值；
// STS 临时凭证过期后不可继续使用，调用方不得跨过期时间缓存
type Credentials struct {
	AccessKeyID     string
	AccessKeySecret string
	SecurityToken   string
	Expiration      time.Time
}

// Expired 判断凭证是否已过期
func (c *Credentials) Expired(now time.Time) bool {
	if c.Expiration.IsZero() {
		return false
	}
	return !now.Before(c.Expiration)
}

// assumeRoleFunc STS 换取函数，测试中可替换
type assumeRoleFunc func(region string, material *CredentialMaterial, role *STSRole) (*Credentials, error)

// CredentialResolver 凭证解析器：静态凭证直接返回，
// 声明了 STS 角色的配置按需向供应商 STS 服务换取临时凭证
type CredentialResolver struct {
	assumeRole assumeRoleFunc
}

// NewCredentialResolver 创建凭证解析器
func NewCredentialResolver() *CredentialResolver {
	return &CredentialResolver{assumeRole: assumeAliyunRole}
}

// Resolve 解析配置的访问凭证
func (r *CredentialResolver) Resolve(cfg *Config) (*Credentials, error) {
	if cfg.STS != nil {
		if cfg.Type != TypeAliyunOSS {
			return nil, NewConfigError(fmt.Sprintf("存储类型 %s 不支持STS临时凭证", cfg.Type))
		}
		creds, err := r.assumeRole(cfg.Region, &cfg.Material, cfg.STS)
		if err != nil {
			return nil, err
		}
		logger.Info("STS临时凭证换取成功",
			zap.String("roleArn", cfg.STS.RoleArn),
			zap.Time("expiration", creds.Expiration))
		return creds, nil
	}

	return staticCredentials(cfg.Type, &cfg.Material)
}

// staticCredentials 把供应商凭证材料归一化为统一凭证
func staticCredentials(storageType string, m *CredentialMaterial) (*Credentials, error) {
	switch storageType {
	case TypeAliyunOSS:
		return &Credentials{AccessKeyID: m.AccessKeyID, AccessKeySecret: m.AccessKeySecret}, nil
	case TypeQiniu:
		return &Credentials{AccessKeyID: m.AccessKey, AccessKeySecret: m.SecretKey}, nil
	case TypeTencentCOS:
		return &Credentials{AccessKeyID: m.SecretID, AccessKeySecret: m.SecretKey}, nil
	case TypeAWSS3:
		return &Credentials{AccessKeyID: m.AccessKeyID, AccessKeySecret: m.SecretAccessKey}, nil
	default:
		return nil, NewConfigError(fmt.Sprintf("不支持的存储类型: %s", storageType))
	}
}

// assumeAliyunRole 向阿里云 STS 服务换取临时凭证。
// 不传 Policy 时授予角色的全部权限。失败不自动重试，由调用方决定
func assumeAliyunRole(region string, material *CredentialMaterial, role *STSRole) (*Credentials, error) {
	client, err := sts.NewClientWithAccessKey(stsRegionID(region), material.AccessKeyID, material.AccessKeySecret)
	if err != nil {
		return nil, NewStsError("初始化STS客户端失败", err)
	}

	request := sts.CreateAssumeRoleRequest()
	request.Scheme = "https"
	request.RoleArn = role.RoleArn
	request.RoleSessionName = role.SessionName
	if role.DurationSeconds > 0 {
		request.DurationSeconds = requests.NewInteger(role.DurationSeconds)
	}

	response, err := client.AssumeRole(request)
	if err != nil {
		return nil, NewStsError("STS临时凭证换取失败", err)
	}

	expiration, err := time.Parse(time.RFC3339, response.Credentials.Expiration)
	if err != nil {
		return nil, NewStsError("解析STS凭证过期时间失败", err)
	}

	return &Credentials{
		AccessKeyID:     response.Credentials.AccessKeyId,
		AccessKeySecret: response.Credentials.AccessKeySecret,
		SecurityToken:   response.Credentials.SecurityToken,
		Expiration:      expiration,
	}, nil
}

// stsRegionID OSS 区域代码转 STS 区域，如 oss-cn-hangzhou -> cn-hangzhou
func stsRegionID(region string) string {
	return strings.TrimPrefix(region, "oss-")
}
