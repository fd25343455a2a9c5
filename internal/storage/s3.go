package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/myysophia/storagehub/internal/logger"
	"go.uber.org/zap"
)

// s3Adapter AWS S3存储适配器
type s3Adapter struct {
	cfg    *Config
	creds  *Credentials
	client *s3.Client
	host   string
}

// newS3Adapter 创建AWS S3适配器
func newS3Adapter(cfg *Config, creds *Credentials) (*s3Adapter, error) {
	provider := credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.AccessKeySecret, creds.SecurityToken)

	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(provider),
	)
	if err != nil {
		return nil, NewError(KindConfig, "创建AWS配置失败", err)
	}

	return &s3Adapter{
		cfg:    cfg,
		creds:  creds,
		client: s3.NewFromConfig(awsCfg),
		host:   resolveHost(cfg),
	}, nil
}

// Type 存储类型
func (s *s3Adapter) Type() string {
	return TypeAWSS3
}

// BucketName 存储桶名称
func (s *s3Adapter) BucketName() string {
	return s.cfg.Bucket
}

// PublicURL 对象公开访问URL
func (s *s3Adapter) PublicURL(objectKey string) string {
	return s.host + "/" + objectKey
}

// Upload 上传对象
func (s *s3Adapter) Upload(ctx context.Context, objectKey string, reader io.Reader, opts *UploadOptions) (*UploadResult, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey),
		Body:   reader,
	}
	if opts != nil {
		if opts.ContentType != "" {
			input.ContentType = aws.String(opts.ContentType)
		}
		if opts.StorageClass != "" {
			input.StorageClass = types.StorageClass(opts.StorageClass)
		}
		if len(opts.Meta) > 0 {
			input.Metadata = opts.Meta
		}
	}

	result, err := s.client.PutObject(ctx, input)
	if err != nil {
		logger.Error("AWS S3上传对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, s.wrapError(KindUpload, "上传对象到AWS S3失败", err)
	}

	etag := ""
	if result.ETag != nil {
		etag = strings.Trim(*result.ETag, `"`)
	}
	return &UploadResult{
		Name: objectKey,
		ETag: etag,
		URL:  s.PublicURL(objectKey),
	}, nil
}

// Download 下载对象内容
func (s *s3Adapter) Download(ctx context.Context, objectKey string, opts *DownloadOptions) ([]byte, error) {
	body, err := s.DownloadStream(ctx, objectKey, opts)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, s.wrapError(KindDownload, "读取AWS S3对象内容失败", err)
	}
	return data, nil
}

// DownloadStream 下载对象为流
func (s *s3Adapter) DownloadStream(ctx context.Context, objectKey string, opts *DownloadOptions) (io.ReadCloser, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey),
	}
	if spec := rangeSpec(opts); spec != "" {
		input.Range = aws.String("bytes=" + spec)
	}
	resp, err := s.client.GetObject(ctx, input)
	if err != nil {
		logger.Error("AWS S3获取对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, s.wrapError(KindDownload, "获取AWS S3对象失败", err)
	}
	return resp.Body, nil
}

// Delete 删除对象，quiet模式批量删除；删除不存在的对象视为成功（幂等）
func (s *s3Adapter) Delete(ctx context.Context, objectKeys ...string) (*DeleteResult, error) {
	if len(objectKeys) == 0 {
		return &DeleteResult{Deleted: []string{}}, nil
	}

	identifiers := make([]types.ObjectIdentifier, 0, len(objectKeys))
	for _, key := range objectKeys {
		identifiers = append(identifiers, types.ObjectIdentifier{Key: aws.String(key)})
	}

	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.cfg.Bucket),
		Delete: &types.Delete{Objects: identifiers, Quiet: aws.Bool(true)},
	})
	if err != nil {
		logger.Error("AWS S3批量删除对象失败", zap.Strings("objectKeys", objectKeys), zap.Error(err))
		return nil, s.wrapError(KindDelete, "删除AWS S3对象失败", err)
	}

	return &DeleteResult{Deleted: objectKeys}, nil
}

// SignURL 生成预签名URL
func (s *s3Adapter) SignURL(ctx context.Context, objectKey string, opts *SignURLOptions) (string, error) {
	if opts == nil {
		opts = &SignURLOptions{}
	}
	expires := opts.Expires
	if expires <= 0 {
		expires = time.Hour
	}

	presignClient := s3.NewPresignClient(s.client)

	method := strings.ToUpper(opts.Method)
	if method == "" || method == http.MethodGet {
		input := &s3.GetObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(objectKey),
		}
		if ct, ok := opts.ResponseHeaders["response-content-type"]; ok {
			input.ResponseContentType = aws.String(ct)
		}
		if cd, ok := opts.ResponseHeaders["response-content-disposition"]; ok {
			input.ResponseContentDisposition = aws.String(cd)
		}
		result, err := presignClient.PresignGetObject(ctx, input, func(po *s3.PresignOptions) {
			po.Expires = expires
		})
		if err != nil {
			return "", s.wrapError(KindSignature, "生成AWS S3预签名URL失败", err)
		}
		return result.URL, nil
	}

	if method == http.MethodPut {
		result, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(objectKey),
		}, func(po *s3.PresignOptions) {
			po.Expires = expires
		})
		if err != nil {
			return "", s.wrapError(KindSignature, "生成AWS S3预签名上传URL失败", err)
		}
		return result.URL, nil
	}

	return "", NewError(KindSignature, "AWS S3仅支持GET/PUT预签名URL", nil)
}

// PostSignature 本系统没有S3浏览器直传流程
func (s *s3Adapter) PostSignature(ctx context.Context, opts *PostPolicyOptions) (*PostSignature, error) {
	return nil, NewError(KindSignature, "AWS S3不支持直传POST签名", nil)
}

// TestConnection 测试连通性
func (s *s3Adapter) TestConnection(ctx context.Context) bool {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)}); err != nil {
		logger.Warn("AWS S3连通性测试失败", zap.String("bucket", s.cfg.Bucket), zap.Error(err))
		return false
	}
	return true
}

// wrapError 在适配器边界转换供应商错误
func (s *s3Adapter) wrapError(fallback Kind, message string, err error) *Error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return wrapProviderError(fallback, message, apiErr.ErrorCode(), 0, err)
	}
	return wrapProviderError(fallback, message, "", 0, err)
}
