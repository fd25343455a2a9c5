package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// 存储类型枚举
const (
	TypeAliyunOSS  = "aliyun_oss"
	TypeQiniu      = "qiniu"
	TypeTencentCOS = "tencent_cos"
	TypeAWSS3      = "aws_s3"
)

// Config 运行期存储配置，由 ConfigStore 解密数据库行或环境变量降级得到。
// ID 为 0 表示来自环境变量的降级配置，从不落库
type Config struct {
	ID           uint               `json:"id"`
	Type         string             `json:"type"`
	Name         string             `json:"name"`
	Bucket       string             `json:"bucket"`
	Region       string             `json:"region"`
	CustomDomain string             `json:"custom_domain,omitempty"`
	Enabled      bool               `json:"enabled"`
	IsDefault    bool               `json:"is_default"`
	OwnerID      uint               `json:"owner_id"`
	Material     CredentialMaterial `json:"-"`
	STS          *STSRole           `json:"sts,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Validate 校验供应商必填字段，校验不过的配置既不落库也不使用
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return NewConfigError("缺少存储桶名称")
	}
	switch c.Type {
	case TypeAliyunOSS:
		if c.Region == "" {
			return NewConfigError("阿里云OSS配置缺少区域")
		}
		if c.Material.AccessKeyID == "" || c.Material.AccessKeySecret == "" {
			return NewConfigError("阿里云OSS配置缺少accessKeyId或accessKeySecret")
		}
	case TypeQiniu:
		if c.Material.AccessKey == "" || c.Material.SecretKey == "" {
			return NewConfigError("七牛云配置缺少accessKey或secretKey")
		}
		if c.CustomDomain == "" {
			return NewConfigError("七牛云配置缺少访问域名")
		}
	case TypeTencentCOS:
		if c.Region == "" {
			return NewConfigError("腾讯云COS配置缺少区域")
		}
		if c.Material.SecretID == "" || c.Material.SecretKey == "" || c.Material.AppID == "" {
			return NewConfigError("腾讯云COS配置缺少secretId、secretKey或appId")
		}
	case TypeAWSS3:
		if c.Region == "" {
			return NewConfigError("AWS S3配置缺少区域")
		}
		if c.Material.AccessKeyID == "" || c.Material.SecretAccessKey == "" {
			return NewConfigError("AWS S3配置缺少accessKeyId或secretAccessKey")
		}
	default:
		return NewConfigError(fmt.Sprintf("不支持的存储类型: %s", c.Type))
	}
	if c.STS != nil {
		if c.Type != TypeAliyunOSS {
			return NewConfigError(fmt.Sprintf("存储类型 %s 不支持STS临时凭证", c.Type))
		}
		if c.STS.RoleArn == "" || c.STS.SessionName == "" {
			return NewConfigError("STS配置缺少roleArn或sessionName")
		}
	}
	return nil
}

// UploadOptions 上传可选项。Size 为内容字节数，
// 未提供时需要预知长度的供应商会把内容先读入内存
type UploadOptions struct {
	ContentType  string
	Size         int64
	Meta         map[string]string
	StorageClass string
}

// DownloadOptions 下载可选项
type DownloadOptions struct {
	// RangeStart/RangeEnd 请求的字节区间（含端点），
	// RangeEnd 为 0 时读到对象末尾
	RangeStart int64
	RangeEnd   int64
}

// UploadResult 上传结果
type UploadResult struct {
	Name string `json:"name"`
	ETag string `json:"etag"`
	URL  string `json:"url"`
}

// DeleteResult 删除结果，删除不存在的对象不报错（幂等）
type DeleteResult struct {
	Deleted []string `json:"deleted"`
}

// Adapter 存储适配器，每个供应商一个实现。
// 供应商 SDK 错误在适配器边界统一转换为 *Error，不向外泄漏
type Adapter interface {
	// Type 存储类型
	Type() string

	// BucketName 存储桶名称
	BucketName() string

	// PublicURL 对象的公开访问URL
	PublicURL(objectKey string) string

	// Upload 上传对象
	Upload(ctx context.Context, objectKey string, reader io.Reader, opts *UploadOptions) (*UploadResult, error)

	// Download 下载对象内容，可指定字节区间
	Download(ctx context.Context, objectKey string, opts *DownloadOptions) ([]byte, error)

	// DownloadStream 下载对象为流，流惰性产生、有限且不可重放
	DownloadStream(ctx context.Context, objectKey string, opts *DownloadOptions) (io.ReadCloser, error)

	// Delete 删除一个或多个对象，批量删除使用quiet模式
	Delete(ctx context.Context, objectKeys ...string) (*DeleteResult, error)

	// SignURL 生成预签名下载/上传URL
	SignURL(ctx context.Context, objectKey string, opts *SignURLOptions) (string, error)

	// PostSignature 生成浏览器直传POST签名
	PostSignature(ctx context.Context, opts *PostPolicyOptions) (*PostSignature, error)

	// TestConnection 测试连通性，任何失败都返回 false，从不报错
	TestConnection(ctx context.Context) bool
}

// resolveHost 解析对象访问域名：配置了自定义域名则归一化使用，
// 否则按 bucket+region 合成供应商标准虚拟主机域名
func resolveHost(cfg *Config) string {
	if cfg.CustomDomain != "" {
		return normalizeDomain(cfg.CustomDomain)
	}
	switch cfg.Type {
	case TypeAliyunOSS:
		return fmt.Sprintf("https://%s.%s", cfg.Bucket, aliyunEndpoint(cfg.Region))
	case TypeTencentCOS:
		return fmt.Sprintf("https://%s-%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Material.AppID, cfg.Region)
	case TypeAWSS3:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	default:
		// 七牛云没有默认公开域名，必须配置自定义域名（Validate 已保证）
		return ""
	}
}

// rangeSpec 下载区间描述，如 "0-1023" 或 "1024-"，未指定区间时为空串
func rangeSpec(opts *DownloadOptions) string {
	if opts == nil || (opts.RangeStart <= 0 && opts.RangeEnd <= 0) {
		return ""
	}
	if opts.RangeEnd > 0 {
		return fmt.Sprintf("%d-%d", opts.RangeStart, opts.RangeEnd)
	}
	return fmt.Sprintf("%d-", opts.RangeStart)
}

// normalizeDomain 归一化自定义域名：无协议时补 https://，去掉末尾斜杠
func normalizeDomain(domain string) string {
	d := strings.TrimSpace(domain)
	if !strings.HasPrefix(d, "http://") && !strings.HasPrefix(d, "https://") {
		d = "https://" + d
	}
	return strings.TrimRight(d, "/")
}

// aliyunEndpoint 区域代码转 OSS Endpoint，兼容带/不带 oss- 前缀两种写法
func aliyunEndpoint(region string) string {
	if !strings.HasPrefix(region, "oss-") {
		region = "oss-" + region
	}
	return region + ".aliyuncs.com"
}
