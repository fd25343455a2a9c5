package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/myysophia/storagehub/internal/logger"
	"go.uber.org/zap"
)

// aliyunAdapter 阿里云OSS存储适配器
type aliyunAdapter struct {
	cfg    *Config
	creds  *Credentials
	engine *SignatureEngine
	client *oss.Client
	bucket *oss.Bucket
	host   string
}

// newAliyunAdapter 创建阿里云OSS适配器
func newAliyunAdapter(cfg *Config, creds *Credentials, engine *SignatureEngine) (*aliyunAdapter, error) {
	var clientOpts []oss.ClientOption
	if creds.SecurityToken != "" {
		clientOpts = append(clientOpts, oss.SecurityToken(creds.SecurityToken))
	}

	client, err := oss.New("https://"+aliyunEndpoint(cfg.Region), creds.AccessKeyID, creds.AccessKeySecret, clientOpts...)
	if err != nil {
		return nil, NewError(KindConfig, "初始化阿里云OSS客户端失败", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, NewError(KindConfig, "获取阿里云OSS存储桶失败", err)
	}

	return &aliyunAdapter{
		cfg:    cfg,
		creds:  creds,
		engine: engine,
		client: client,
		bucket: bucket,
		host:   resolveHost(cfg),
	}, nil
}

// Type 存储类型
func (a *aliyunAdapter) Type() string {
	return TypeAliyunOSS
}

// BucketName 存储桶名称
func (a *aliyunAdapter) BucketName() string {
	return a.cfg.Bucket
}

// PublicURL 对象公开访问URL
func (a *aliyunAdapter) PublicURL(objectKey string) string {
	return a.host + "/" + objectKey
}

// Upload 上传对象
func (a *aliyunAdapter) Upload(ctx context.Context, objectKey string, reader io.Reader, opts *UploadOptions) (*UploadResult, error) {
	var ossOpts []oss.Option
	if opts != nil {
		if opts.ContentType != "" {
			ossOpts = append(ossOpts, oss.ContentType(opts.ContentType))
		}
		if opts.StorageClass != "" {
			ossOpts = append(ossOpts, oss.ObjectStorageClass(oss.StorageClassType(opts.StorageClass)))
		}
		for k, v := range opts.Meta {
			ossOpts = append(ossOpts, oss.Meta(k, v))
		}
	}

	if err := a.bucket.PutObject(objectKey, reader, ossOpts...); err != nil {
		logger.Error("阿里云OSS上传对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, a.wrapError(KindUpload, "上传对象到阿里云OSS失败", err)
	}

	etag := ""
	if meta, err := a.bucket.GetObjectDetailedMeta(objectKey); err == nil {
		etag = strings.Trim(meta.Get("ETag"), `"`)
	}

	return &UploadResult{
		Name: objectKey,
		ETag: etag,
		URL:  a.PublicURL(objectKey),
	}, nil
}

// Download 下载对象内容
func (a *aliyunAdapter) Download(ctx context.Context, objectKey string, opts *DownloadOptions) ([]byte, error) {
	body, err := a.DownloadStream(ctx, objectKey, opts)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, a.wrapError(KindDownload, "读取阿里云OSS对象内容失败", err)
	}
	return data, nil
}

// DownloadStream 下载对象为流
func (a *aliyunAdapter) DownloadStream(ctx context.Context, objectKey string, opts *DownloadOptions) (io.ReadCloser, error) {
	var ossOpts []oss.Option
	if spec := rangeSpec(opts); spec != "" {
		ossOpts = append(ossOpts, oss.NormalizedRange(spec))
	}
	body, err := a.bucket.GetObject(objectKey, ossOpts...)
	if err != nil {
		logger.Error("阿里云OSS获取对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, a.wrapError(KindDownload, "获取阿里云OSS对象失败", err)
	}
	return body, nil
}

// Delete 删除对象，quiet模式批量删除；删除不存在的对象视为成功（幂等）
func (a *aliyunAdapter) Delete(ctx context.Context, objectKeys ...string) (*DeleteResult, error) {
	if len(objectKeys) == 0 {
		return &DeleteResult{Deleted: []string{}}, nil
	}

	if _, err := a.bucket.DeleteObjects(objectKeys, oss.DeleteObjectsQuiet(true)); err != nil {
		logger.Error("阿里云OSS批量删除对象失败", zap.Strings("objectKeys", objectKeys), zap.Error(err))
		return nil, a.wrapError(KindDelete, "删除阿里云OSS对象失败", err)
	}

	return &DeleteResult{Deleted: objectKeys}, nil
}

// SignURL 生成预签名URL，委托给签名引擎
func (a *aliyunAdapter) SignURL(ctx context.Context, objectKey string, opts *SignURLOptions) (string, error) {
	if opts == nil {
		opts = &SignURLOptions{}
	}
	if opts.Host == "" {
		opts.Host = a.host
	}
	return a.engine.SignURL(a.creds, a.cfg.Bucket, a.cfg.Region, objectKey, opts)
}

// PostSignature 生成直传POST签名，委托给签名引擎
func (a *aliyunAdapter) PostSignature(ctx context.Context, opts *PostPolicyOptions) (*PostSignature, error) {
	return a.engine.PostPolicy(a.creds, a.cfg.Bucket, a.cfg.Region, a.host, opts)
}

// TestConnection 测试连通性
func (a *aliyunAdapter) TestConnection(ctx context.Context) bool {
	if _, err := a.client.GetBucketInfo(a.cfg.Bucket); err != nil {
		logger.Warn("阿里云OSS连通性测试失败", zap.String("bucket", a.cfg.Bucket), zap.Error(err))
		return false
	}
	return true
}

// wrapError 在适配器边界转换供应商错误
func (a *aliyunAdapter) wrapError(fallback Kind, message string, err error) *Error {
	var svcErr oss.ServiceError
	if errors.As(err, &svcErr) {
		return wrapProviderError(fallback, message, svcErr.Code, svcErr.StatusCode, err)
	}
	return wrapProviderError(fallback, message, "", 0, err)
}
